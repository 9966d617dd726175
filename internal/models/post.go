// Package models содержит доменные сущности Thinkedin.
package models

import (
	"time"

	"github.com/google/uuid"
)

// PostKind — вид публикации.
type PostKind string

const (
	KindThought  PostKind = "thought"
	KindQuestion PostKind = "question"
	KindStory    PostKind = "story"
	KindTrigger  PostKind = "trigger"
)

// PostKinds — допустимые виды в порядке отображения.
var PostKinds = []PostKind{KindThought, KindQuestion, KindStory, KindTrigger}

// Valid сообщает, входит ли вид в фиксированный набор.
func (k PostKind) Valid() bool {
	switch k {
	case KindThought, KindQuestion, KindStory, KindTrigger:
		return true
	}
	return false
}

// RecordKind — тип записи для операций редактирования/удаления и модерации.
type RecordKind string

const (
	RecordPost    RecordKind = "post"
	RecordComment RecordKind = "comment"
)

// Valid сообщает, известен ли тип записи.
func (k RecordKind) Valid() bool {
	return k == RecordPost || k == RecordComment
}

// Post — публикация ("thought").
//   - ID — ObjectID в hex-виде;
//   - OwnerID == uuid.Nil означает анонимную запись: изменить/удалить её нельзя;
//   - Reactions — агрегированные счётчики, источник истины — хранилище.
type Post struct {
	ID        string
	Content   string
	Pseudonym string
	OwnerID   uuid.UUID
	Tags      []string
	Kind      PostKind
	Reactions Reactions
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OwnedBy — проверка владельца; анонимные записи не принадлежат никому.
func (p Post) OwnedBy(account uuid.UUID) bool {
	return p.OwnerID != uuid.Nil && p.OwnerID == account
}
