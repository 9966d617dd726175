package mongo

import (
	"context"
	"errors"
	"fmt"
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

// CreateComment создаёт комментарий (корневой или ответ).
//   - пост должен существовать, иначе storage.ErrNotFound;
//   - родитель должен принадлежать тому же посту, иначе storage.ErrParentNotFound.
//
// Глубина в хранилище не ограничивается: её учитывает только отображение дерева.
func (m *Mongo) CreateComment(ctx context.Context, comm models.Comment) (*models.Comment, error) {
	const op = "storage/mongo/CreateComment"

	postOID, err := parseOID(comm.PostID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	n, err := m.posts.CountDocuments(ctx, bson.D{{Key: "_id", Value: postOID}}, options.Count().SetLimit(1))
	if err != nil {
		return nil, fmt.Errorf("%s: find post: %w", op, err)
	}

	if n == 0 {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	parentID := strings.TrimSpace(comm.ParentID)
	if parentID != "" {
		parentOID, err := primitive.ObjectIDFromHex(parentID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrParentNotFound)
		}

		n, err := m.comments.CountDocuments(ctx, bson.D{
			{Key: "_id", Value: parentOID},
			{Key: "post_id", Value: postOID.Hex()},
		}, options.Count().SetLimit(1))
		if err != nil {
			return nil, fmt.Errorf("%s: find parent: %w", op, err)
		}

		if n == 0 {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrParentNotFound)
		}
	}

	now := toMS(time.Now())
	doc := commentDoc{
		PostID:    postOID.Hex(),
		ParentID:  parentID,
		Content:   comm.Content,
		Pseudonym: comm.Pseudonym,
		OwnerID:   ownerString(comm.OwnerID),
		CreatedAt: now,
		UpdatedAt: now,
	}

	res, err := m.comments.InsertOne(ctx, doc)
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

// CommentByID возвращает комментарий по идентификатору.
// Некорректный формат id трактуется как «нет такой записи».
func (m *Mongo) CommentByID(ctx context.Context, id string) (*models.Comment, error) {
	const op = "storage/mongo/CommentByID"

	oid, err := parseOID(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var doc commentDoc
	if err := m.comments.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := doc.toModel()
	return &out, nil
}

// ListComments возвращает все комментарии поста, включая tombstone.
// Сортировка: created_at ASC, _id ASC. Пост без комментариев (или удалённый) — пустой список.
func (m *Mongo) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	const op = "storage/mongo/ListComments"

	oid, err := parseOID(postID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	out, err := m.findComments(ctx, bson.D{{Key: "post_id", Value: oid.Hex()}}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// ListCommentsByOwner — комментарии аккаунта без tombstone, новые сверху.
func (m *Mongo) ListCommentsByOwner(ctx context.Context, owner uuid.UUID, limit int) ([]models.Comment, error) {
	const op = "storage/mongo/ListCommentsByOwner"

	if owner == uuid.Nil {
		return []models.Comment{}, nil
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limitOrDefault(m.cfg, limit))

	filter := bson.D{
		{Key: "owner_id", Value: owner.String()},
		{Key: "is_deleted", Value: false},
	}

	out, err := m.findComments(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (m *Mongo) findComments(ctx context.Context, filter bson.D, opts *options.FindOptions) ([]models.Comment, error) {
	cur, err := m.comments.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]models.Comment, 0)
	for cur.Next(ctx) {
		var doc commentDoc
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

// CountRecent считает записи kind с точно таким же content, созданные не раньше since.
func (m *Mongo) CountRecent(ctx context.Context, kind models.RecordKind, content string, since time.Time) (int64, error) {
	const op = "storage/mongo/CountRecent"

	coll, err := m.collectionFor(kind)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	filter := bson.D{
		{Key: "content", Value: content},
		{Key: "created_at", Value: bson.D{{Key: "$gte", Value: toMS(since)}}},
	}

	n, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

func (m *Mongo) collectionFor(kind models.RecordKind) (*mongodriver.Collection, error) {
	switch kind {
	case models.RecordPost:
		return m.posts, nil
	case models.RecordComment:
		return m.comments, nil
	default:
		return nil, storage.ErrInvalidArgument
	}
}
