package mongo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pribylovaa/thinkedin/internal/models"
	"github.com/pribylovaa/thinkedin/internal/pkg/log"
	"github.com/pribylovaa/thinkedin/internal/realtime"
	"github.com/pribylovaa/thinkedin/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// IncrementReactionCounter атомарно прибавляет delta к счётчику реакции ($inc).
// Для отрицательной delta фильтр требует counter >= -delta, поэтому счётчик не уходит ниже нуля:
// при промахе возвращается текущий снимок без изменений.
// Новый снимок публикуется в шину; ошибка публикации только логируется.
func (m *Mongo) IncrementReactionCounter(ctx context.Context, postID string, kind models.ReactionKind, delta int64) (*models.ReactionSnapshot, error) {
	const op = "storage/mongo/IncrementReactionCounter"

	if !kind.Valid() {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrInvalidArgument)
	}

	oid, err := parseOID(postID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	field := reactionField(kind)
	filter := bson.D{{Key: "_id", Value: oid}}
	if delta < 0 {
		filter = append(filter, bson.E{Key: field, Value: bson.D{{Key: "$gte", Value: -delta}}})
	}

	update := bson.D{{Key: "$inc", Value: bson.D{{Key: field, Value: delta}}}}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.D{{Key: "reactions", Value: 1}})

	var doc postDoc
	err = m.posts.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		if delta >= 0 {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		post, err := m.PostByID(ctx, postID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		return &models.ReactionSnapshot{
			PostID:    post.ID,
			Reactions: post.Reactions,
			At:        time.Now().UTC(),
		}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	snap := models.ReactionSnapshot{
		PostID:    oid.Hex(),
		Reactions: doc.Reactions.toModel(),
		At:        time.Now().UTC(),
	}

	if err := m.bus.Publish(ctx, snap); err != nil {
		log.From(ctx).Warn("reaction_publish_failed",
			"post_id", snap.PostID,
			"err", err,
		)
	}

	return &snap, nil
}

// Subscribe подписывает onChange на снимки счётчиков поста.
// Подписка снимается вызовом Cancel или при завершении ctx; после Cancel
// за ctx больше ничего не следит.
func (m *Mongo) Subscribe(ctx context.Context, postID string, onChange func(models.ReactionSnapshot)) (storage.Subscription, error) {
	const op = "storage/mongo/Subscribe"

	if onChange == nil {
		return nil, fmt.Errorf("%s: nil handler: %w", op, storage.ErrInvalidArgument)
	}

	oid, err := parseOID(postID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sub, err := m.bus.Subscribe(oid.Hex(), realtime.Handler(onChange))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	stop := context.AfterFunc(ctx, sub.Cancel)

	var once sync.Once
	return subscription(func() {
		once.Do(func() {
			stop()
			sub.Cancel()
		})
	}), nil
}

type subscription func()

func (f subscription) Cancel() { f() }
