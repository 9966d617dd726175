package models

import (
	"time"

	"github.com/google/uuid"
)

// Tombstone — содержимое удалённого комментария; запись остаётся в дереве.
const Tombstone = "[deleted]"

// Comment — доменная модель комментария.
//   - ID/PostID/ParentID — ObjectID в hex-виде.
//   - ParentID пуст у корневых комментариев; ответы ссылаются на комментарий того же поста.
//   - Дети не хранятся, дерево собирается при чтении (см. internal/thread).
//   - IsDeleted — tombstone: Content == Tombstone, узел и его ответы сохраняются.
type Comment struct {
	ID        string
	PostID    string
	ParentID  string
	Content   string
	Pseudonym string
	OwnerID   uuid.UUID
	IsDeleted bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsRoot сообщает, является ли комментарий корнем ветки.
func (c Comment) IsRoot() bool {
	return c.ParentID == ""
}

// OwnedBy — проверка владельца; анонимные записи не принадлежат никому.
func (c Comment) OwnedBy(account uuid.UUID) bool {
	return c.OwnerID != uuid.Nil && c.OwnerID == account
}
