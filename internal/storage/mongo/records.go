package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/thinkedin/internal/models"
	"github.com/pribylovaa/thinkedin/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
)

// EditRecord заменяет содержимое записи, если acting — её владелец.
// Условие на владельца входит в фильтр обновления, поэтому проверка и запись атомарны.
// Tombstone-комментарий не редактируется (storage.ErrNotFound).
func (m *Mongo) EditRecord(ctx context.Context, kind models.RecordKind, id, content string, acting uuid.UUID) error {
	const op = "storage/mongo/EditRecord"

	coll, err := m.collectionFor(kind)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	oid, err := parseOID(id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if acting == uuid.Nil {
		return fmt.Errorf("%s: %w", op, m.classifyMiss(ctx, coll, oid))
	}

	filter := bson.D{
		{Key: "_id", Value: oid},
		{Key: "owner_id", Value: acting.String()},
	}
	if kind == models.RecordComment {
		filter = append(filter, bson.E{Key: "is_deleted", Value: false})
	}

	res, err := coll.UpdateOne(ctx, filter, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "content", Value: content},
			{Key: "updated_at", Value: toMS(time.Now())},
		}},
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, m.classifyMiss(ctx, coll, oid))
	}

	return nil
}

// DeleteRecord удаляет запись владельца.
//   - пост удаляется физически, следом удаляются все его комментарии;
//   - комментарий превращается в tombstone, ответы на него остаются.
func (m *Mongo) DeleteRecord(ctx context.Context, kind models.RecordKind, id string, acting uuid.UUID) error {
	const op = "storage/mongo/DeleteRecord"

	coll, err := m.collectionFor(kind)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	oid, err := parseOID(id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if acting == uuid.Nil {
		return fmt.Errorf("%s: %w", op, m.classifyMiss(ctx, coll, oid))
	}

	filter := bson.D{
		{Key: "_id", Value: oid},
		{Key: "owner_id", Value: acting.String()},
	}

	switch kind {
	case models.RecordPost:
		res, err := m.posts.DeleteOne(ctx, filter)
		if err != nil {
			return fmt.Errorf("%s: delete post: %w", op, err)
		}

		if res.DeletedCount == 0 {
			return fmt.Errorf("%s: %w", op, m.classifyMiss(ctx, coll, oid))
		}

		// Каскад: комментарии удалённого поста.
		if _, err := m.comments.DeleteMany(ctx, bson.D{{Key: "post_id", Value: oid.Hex()}}); err != nil {
			return fmt.Errorf("%s: delete comments: %w", op, err)
		}

	case models.RecordComment:
		res, err := m.comments.UpdateOne(ctx, filter, bson.D{
			{Key: "$set", Value: bson.D{
				{Key: "is_deleted", Value: true},
				{Key: "content", Value: models.Tombstone},
				{Key: "updated_at", Value: toMS(time.Now())},
			}},
		})
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if res.MatchedCount == 0 {
			return fmt.Errorf("%s: %w", op, m.classifyMiss(ctx, coll, oid))
		}
	}

	return nil
}

// classifyMiss различает «записи нет» и «запись чужая» после промаха фильтра с владельцем.
func (m *Mongo) classifyMiss(ctx context.Context, coll *mongodriver.Collection, oid primitive.ObjectID) error {
	var doc struct {
		IsDeleted bool `bson:"is_deleted"`
	}

	err := coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	switch {
	case errors.Is(err, mongodriver.ErrNoDocuments):
		return storage.ErrNotFound
	case err != nil:
		return err
	case doc.IsDeleted:
		return storage.ErrNotFound
	default:
		return storage.ErrForbidden
	}
}
