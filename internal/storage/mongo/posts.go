package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/thinkedin/internal/models"
	"github.com/pribylovaa/thinkedin/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreatePost вставляет пост с нулевыми счётчиками реакций.
func (m *Mongo) CreatePost(ctx context.Context, post models.Post) (*models.Post, error) {
	const op = "storage/mongo/CreatePost"

	now := toMS(time.Now())
	doc := postDoc{
		Content:   post.Content,
		Pseudonym: post.Pseudonym,
		OwnerID:   ownerString(post.OwnerID),
		Tags:      post.Tags,
		Kind:      string(post.Kind),
		CreatedAt: now,
		UpdatedAt: now,
	}

	res, err := m.posts.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("%s: insert: %w", op, err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("%s: inserted id type", op)
	}

	doc.ID = oid
	out := doc.toModel()
	return &out, nil
}

// PostByID возвращает пост по идентификатору.
func (m *Mongo) PostByID(ctx context.Context, id string) (*models.Post, error) {
	const op = "storage/mongo/PostByID"

	oid, err := parseOID(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var doc postDoc
	if err := m.posts.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := doc.toModel()
	return &out, nil
}

// ListPosts — лента: created_at DESC, _id DESC.
func (m *Mongo) ListPosts(ctx context.Context, limit int) ([]models.Post, error) {
	const op = "storage/mongo/ListPosts"

	posts, err := m.findPosts(ctx, bson.D{}, limitOrDefault(m.cfg, limit))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return posts, nil
}

// SearchPosts ищет подстроку (без учёта регистра) в содержимом или в любом из тегов.
// Пустой запрос эквивалентен ленте.
func (m *Mongo) SearchPosts(ctx context.Context, query string, limit int) ([]models.Post, error) {
	const op = "storage/mongo/SearchPosts"

	query = strings.TrimSpace(query)
	filter := bson.D{}
	if query != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
		filter = bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "content", Value: rx}},
			bson.D{{Key: "tags", Value: rx}},
		}}}
	}

	posts, err := m.findPosts(ctx, filter, limitOrDefault(m.cfg, limit))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return posts, nil
}

// ListPostsByOwner — посты аккаунта, новые сверху.
func (m *Mongo) ListPostsByOwner(ctx context.Context, owner uuid.UUID, limit int) ([]models.Post, error) {
	const op = "storage/mongo/ListPostsByOwner"

	if owner == uuid.Nil {
		return []models.Post{}, nil
	}

	posts, err := m.findPosts(ctx, bson.D{{Key: "owner_id", Value: owner.String()}}, limitOrDefault(m.cfg, limit))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return posts, nil
}

func (m *Mongo) findPosts(ctx context.Context, filter bson.D, limit int64) ([]models.Post, error) {
	findOpts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)

	cur, err := m.posts.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]models.Post, 0, limit)
	for cur.Next(ctx) {
		var doc postDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		out = append(out, doc.toModel())
	}

	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("cursor: %w", err)
	}

	return out, nil
}
