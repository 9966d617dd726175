package mongo

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/thinkedin/internal/models"
	"github.com/pribylovaa/thinkedin/internal/storage"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Документы MongoDB. Доменные модели не знают про bson.
//   - owner_id хранится строкой UUID, "" — анонимная запись;
//   - post_id/parent_id в комментариях — hex ObjectID.

type reactionsDoc struct {
	Inspired  int64 `bson:"inspired"`
	Think     int64 `bson:"think"`
	Relatable int64 `bson:"relatable"`
	Following int64 `bson:"following"`
}

type postDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Content   string             `bson:"content"`
	Pseudonym string             `bson:"pseudonym"`
	OwnerID   string             `bson:"owner_id"`
	Tags      []string           `bson:"tags"`
	Kind      string             `bson:"kind"`
	Reactions reactionsDoc       `bson:"reactions"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

type commentDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	PostID    string             `bson:"post_id"`
	ParentID  string             `bson:"parent_id"`
	Content   string             `bson:"content"`
	Pseudonym string             `bson:"pseudonym"`
	OwnerID   string             `bson:"owner_id"`
	IsDeleted bool               `bson:"is_deleted"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

// toMS — MongoDB DateTime хранит миллисекунды.
func toMS(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// parseOID трактует некорректный формат id как «нет такой записи».
func parseOID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return primitive.NilObjectID, storage.ErrNotFound
	}
	return oid, nil
}

func ownerString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

func parseOwner(s string) uuid.UUID {
	if s == "" {
		return uuid.Nil
	}

	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// reactionField — путь к счётчику в документе поста.
func reactionField(kind models.ReactionKind) string {
	return "reactions." + string(kind)
}

func (d reactionsDoc) toModel() models.Reactions {
	return models.Reactions{
		Inspired:  d.Inspired,
		Think:     d.Think,
		Relatable: d.Relatable,
		Following: d.Following,
	}
}

func (d postDoc) toModel() models.Post {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}

	return models.Post{
		ID:        d.ID.Hex(),
		Content:   d.Content,
		Pseudonym: d.Pseudonym,
		OwnerID:   parseOwner(d.OwnerID),
		Tags:      tags,
		Kind:      models.PostKind(d.Kind),
		Reactions: d.Reactions.toModel(),
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

func (d commentDoc) toModel() models.Comment {
	return models.Comment{
		ID:        d.ID.Hex(),
		PostID:    d.PostID,
		ParentID:  d.ParentID,
		Content:   d.Content,
		Pseudonym: d.Pseudonym,
		OwnerID:   parseOwner(d.OwnerID),
		IsDeleted: d.IsDeleted,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}
