package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/thinkedin/internal/models"
)

var (
	// ErrNotFound — сущность отсутствует в хранилище (или исчезла между чтением и записью).
	ErrNotFound = errors.New("not found")
	// ErrForbidden — запись принадлежит другому аккаунту.
	ErrForbidden = errors.New("forbidden")
	// ErrParentNotFound — указан parent_id, но такого комментария у поста нет.
	ErrParentNotFound = errors.New("parent not found")
	// ErrInvalidArgument — неизвестный тип записи/реакции.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Subscription — отменяемая подписка на изменения счётчиков поста.
// Cancel идемпотентен и безопасен при повторном вызове.
type Subscription interface {
	Cancel()
}

// Posts описывает операции над публикациями.
type Posts interface {
	// CreatePost сохраняет пост; ID, CreatedAt/UpdatedAt и нулевые счётчики выставляет хранилище.
	CreatePost(ctx context.Context, post models.Post) (*models.Post, error)

	// PostByID возвращает пост. Если записи нет — ErrNotFound.
	PostByID(ctx context.Context, id string) (*models.Post, error)

	// ListPosts возвращает последние limit постов (created_at DESC).
	ListPosts(ctx context.Context, limit int) ([]models.Post, error)

	// SearchPosts — регистронезависимый поиск подстроки в содержимом или тегах.
	SearchPosts(ctx context.Context, query string, limit int) ([]models.Post, error)

	// ListPostsByOwner — посты аккаунта (created_at DESC).
	ListPostsByOwner(ctx context.Context, owner uuid.UUID, limit int) ([]models.Post, error)
}

// Comments описывает операции над комментариями.
type Comments interface {
	// CreateComment сохраняет комментарий.
	// Ошибки: ErrNotFound (нет поста), ErrParentNotFound (родитель не из этого поста).
	CreateComment(ctx context.Context, comment models.Comment) (*models.Comment, error)

	// CommentByID возвращает комментарий. Если записи нет — ErrNotFound.
	CommentByID(ctx context.Context, id string) (*models.Comment, error)

	// ListComments — все комментарии поста плоским списком (created_at ASC).
	ListComments(ctx context.Context, postID string) ([]models.Comment, error)

	// ListCommentsByOwner — комментарии аккаунта (created_at DESC).
	ListCommentsByOwner(ctx context.Context, owner uuid.UUID, limit int) ([]models.Comment, error)
}

// Records — изменение записей с проверкой владельца на стороне хранилища.
type Records interface {
	// EditRecord заменяет содержимое (last-write-wins), created_at не меняется.
	// Ошибки: ErrNotFound, ErrForbidden.
	EditRecord(ctx context.Context, kind models.RecordKind, id, content string, acting uuid.UUID) error

	// DeleteRecord: пост удаляется вместе со всеми комментариями,
	// комментарий превращается в tombstone. Ошибки: ErrNotFound, ErrForbidden.
	DeleteRecord(ctx context.Context, kind models.RecordKind, id string, acting uuid.UUID) error
}

// Reactions — атомарные счётчики и подписка на их изменения.
type Reactions interface {
	// IncrementReactionCounter атомарно меняет счётчик на delta и возвращает новый снимок.
	// Счётчик не опускается ниже нуля. Нет поста — ErrNotFound.
	IncrementReactionCounter(ctx context.Context, postID string, kind models.ReactionKind, delta int64) (*models.ReactionSnapshot, error)

	// Subscribe вызывает onChange на каждое изменение счётчиков поста до Cancel.
	Subscribe(ctx context.Context, postID string, onChange func(models.ReactionSnapshot)) (Subscription, error)
}

// Duplicates — подсчёт одинаковых текстов для модерации.
type Duplicates interface {
	// CountRecent считает записи kind с точно таким же content, созданные не раньше since.
	CountRecent(ctx context.Context, kind models.RecordKind, content string, since time.Time) (int64, error)
}

// Votes — опрос, один голос на псевдоним.
type Votes interface {
	SetVote(ctx context.Context, vote models.Vote) error
	VoteTally(ctx context.Context) (*models.VoteTally, error)
}

// Storage — полный адаптер хранилища записей.
type Storage interface {
	Posts
	Comments
	Records
	Reactions
	Duplicates
	Votes

	// Ping проверяет доступность хранилища.
	Ping(ctx context.Context) error
}
