package mongo

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/pribylovaa/thinkedin/internal/config"
	"github.com/pribylovaa/thinkedin/internal/realtime"
	"github.com/pribylovaa/thinkedin/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	postsCollection    = "posts"
	commentsCollection = "comments"
	votesCollection    = "votes"
	defaultDBName      = "thinkedin"
)

var _ storage.Storage = (*Mongo)(nil)

// Mongo — адаптер хранилища записей поверх MongoDB.
// Изменения счётчиков реакций публикуются в realtime.Bus.
type Mongo struct {
	cfg      *config.Config
	client   *mongodriver.Client
	db       *mongodriver.Database
	posts    *mongodriver.Collection
	comments *mongodriver.Collection
	votes    *mongodriver.Collection
	bus      realtime.Bus
}

// New подключается к MongoDB, проверяет соединение, готовит коллекции и индексы.
// bus == nil — используется локальный realtime.Hub.
func New(ctx context.Context, cfg *config.Config, bus realtime.Bus) (*Mongo, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mongo: nil config")
	}

	if cfg.DB.URL == "" {
		return nil, fmt.Errorf("mongo: empty cfg.DB.URL")
	}

	cli, err := mongodriver.Connect(ctx, options.Client().ApplyURI(cfg.DB.URL))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	if bus == nil {
		bus = realtime.NewHub()
	}

	db := cli.Database(databaseFromURI(cfg.DB.URL))

	m := &Mongo{
		cfg:      cfg,
		client:   cli,
		db:       db,
		posts:    db.Collection(postsCollection),
		comments: db.Collection(commentsCollection),
		votes:    db.Collection(votesCollection),
		bus:      bus,
	}

	if err := m.ensureIndexes(ctx); err != nil {
		_ = m.Close(ctx)
		return nil, err
	}

	return m, nil
}

// Close закрывает соединение с MongoDB. Шина закрывается её владельцем.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// Ping проверяет доступность primary.
func (m *Mongo) Ping(ctx context.Context) error {
	if err := m.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo ping: %w", err)
	}
	return nil
}

// ensureIndexes создаёт индексы:
//   - лента: posts.created_at(desc);
//   - дашборд: owner_id + created_at(desc) в обеих коллекциях;
//   - дерево: comments.post_id + created_at(asc);
//   - проверка дубликатов: content + created_at в обеих коллекциях.
func (m *Mongo) ensureIndexes(ctx context.Context) error {
	postIdx := []mongodriver.IndexModel{
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("created_desc"),
		},
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("owner_created_desc"),
		},
		{
			Keys:    bson.D{{Key: "content", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("content_created_desc"),
		},
	}

	if _, err := m.posts.Indexes().CreateMany(ctx, postIdx); err != nil {
		return fmt.Errorf("mongo ensure post indexes: %w", err)
	}

	commentIdx := []mongodriver.IndexModel{
		{
			Keys:    bson.D{{Key: "post_id", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("post_created_asc"),
		},
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("owner_created_desc"),
		},
		{
			Keys:    bson.D{{Key: "content", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("content_created_desc"),
		},
	}

	if _, err := m.comments.Indexes().CreateMany(ctx, commentIdx); err != nil {
		return fmt.Errorf("mongo ensure comment indexes: %w", err)
	}

	return nil
}

// databaseFromURI извлекает имя базы данных из URI-пути mongodb.
// Если оно отсутствует или не поддается расшифровке, возвращает значение по умолчанию.
func databaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err == nil {
		if name := strings.Trim(u.Path, "/"); name != "" {
			return name
		}
	}
	return defaultDBName
}

// limitOrDefault приводит запрошенный размер выдачи к [1, Max]; 0 и меньше -> Default.
func limitOrDefault(cfg *config.Config, limit int) int64 {
	lim := limit
	if lim <= 0 {
		lim = cfg.Limits.Default
	}

	if lim > cfg.Limits.Max {
		lim = cfg.Limits.Max
	}

	return int64(lim)
}
