package handlers

import (
	"github.com/google/uuid"
	"github.com/pribylovaa/thinkedin/internal/models"
	"github.com/pribylovaa/thinkedin/internal/service"
	"github.com/pribylovaa/thinkedin/internal/thread"
)

// Post — пост в ответах API. Владелец наружу не отдаётся, только признак "мой".
type Post struct {
	ID        string           `json:"id"` // Mongo ObjectID
	Content   string           `json:"content"`
	Pseudonym string           `json:"pseudonym"`
	Tags      []string         `json:"tags"`
	Kind      string           `json:"kind"`
	Reactions models.Reactions `json:"reactions"`
	Mine      bool             `json:"mine"`
	CreatedAt int64            `json:"created_at"` // Unix UTC
	UpdatedAt int64            `json:"updated_at"` // Unix UTC
}

// Comment — комментарий; tombstone приходит с is_deleted=true и content="[deleted]".
type Comment struct {
	ID        string `json:"id"`
	PostID    string `json:"post_id"`
	ParentID  string `json:"parent_id"` // "" — корень
	Content   string `json:"content"`
	Pseudonym string `json:"pseudonym"`
	IsDeleted bool   `json:"is_deleted"`
	Mine      bool   `json:"mine"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// ThreadNode — узел дерева комментариев.
type ThreadNode struct {
	Comment
	Depth    int          `json:"depth"`     // 0 — корень
	Count    int          `json:"count"`     // узел + все потомки
	CanReply bool         `json:"can_reply"` // false начиная с max_depth
	Replies  []ThreadNode `json:"replies"`
}

type CreatePostRequest struct {
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
	Kind    string   `json:"kind,omitempty"`
}

type CreateCommentRequest struct {
	ParentID string `json:"parent_id,omitempty"` // если задан — ответ
	Content  string `json:"content"`
}

type EditRequest struct {
	Content string `json:"content"`
}

type VoteRequest struct {
	Choice string `json:"choice"`
}

type RecommendRequest struct {
	Prompt string `json:"prompt"`
}

// RecommendResponse — пояснение модели и выбранные ею посты.
type RecommendResponse struct {
	Text  string `json:"text"`
	Posts []Post `json:"posts"`
}

type ListPostsResponse struct {
	Posts []Post `json:"posts"`
}

type ListCommentsResponse struct {
	Comments []Comment `json:"comments"`
}

type ThreadResponse struct {
	PostID   string       `json:"post_id"`
	Total    int          `json:"total"`
	MaxDepth int          `json:"max_depth"`
	Comments []ThreadNode `json:"comments"`
}

// FlatComment — строка плоского вида треда.
type FlatComment struct {
	Comment
	Depth    int  `json:"depth"`
	CanReply bool `json:"can_reply"`
}

type FlatThreadResponse struct {
	PostID   string        `json:"post_id"`
	Total    int           `json:"total"`
	MaxDepth int           `json:"max_depth"`
	Comments []FlatComment `json:"comments"`
}

type ReactionsResponse struct {
	PostID    string                       `json:"post_id"`
	Reactions models.Reactions             `json:"reactions"`
	Mine      map[models.ReactionKind]bool `json:"mine"`
}

type TagsResponse struct {
	Tags  []string          `json:"tags"`
	Kinds []models.PostKind `json:"kinds"`
}

type MeResponse struct {
	Pseudonym           string `json:"pseudonym"`
	OnboardingDismissed bool   `json:"onboarding_dismissed"`
	Authenticated       bool   `json:"authenticated"`
}

func postFromModel(p models.Post, account uuid.UUID) Post {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}

	return Post{
		ID:        p.ID,
		Content:   p.Content,
		Pseudonym: p.Pseudonym,
		Tags:      tags,
		Kind:      string(p.Kind),
		Reactions: p.Reactions,
		Mine:      p.OwnedBy(account),
		CreatedAt: p.CreatedAt.Unix(),
		UpdatedAt: p.UpdatedAt.Unix(),
	}
}

func postsFromModel(posts []models.Post, account uuid.UUID) ListPostsResponse {
	out := make([]Post, 0, len(posts))
	for _, p := range posts {
		out = append(out, postFromModel(p, account))
	}
	return ListPostsResponse{Posts: out}
}

func commentFromModel(c models.Comment, account uuid.UUID) Comment {
	return Comment{
		ID:        c.ID,
		PostID:    c.PostID,
		ParentID:  c.ParentID,
		Content:   c.Content,
		Pseudonym: c.Pseudonym,
		IsDeleted: c.IsDeleted,
		Mine:      !c.IsDeleted && c.OwnedBy(account),
		CreatedAt: c.CreatedAt.Unix(),
		UpdatedAt: c.UpdatedAt.Unix(),
	}
}

func commentsFromModel(comments []models.Comment, account uuid.UUID) ListCommentsResponse {
	out := make([]Comment, 0, len(comments))
	for _, c := range comments {
		out = append(out, commentFromModel(c, account))
	}
	return ListCommentsResponse{Comments: out}
}

func threadFromService(th *service.Thread, account uuid.UUID) ThreadResponse {
	var conv func(nodes []*thread.Node) []ThreadNode
	conv = func(nodes []*thread.Node) []ThreadNode {
		out := make([]ThreadNode, 0, len(nodes))
		for _, n := range nodes {
			out = append(out, ThreadNode{
				Comment:  commentFromModel(n.Comment, account),
				Depth:    n.Depth,
				Count:    n.Count(),
				CanReply: th.Policy.CanReply(n),
				Replies:  conv(n.Children),
			})
		}
		return out
	}

	return ThreadResponse{
		PostID:   th.PostID,
		Total:    th.Total,
		MaxDepth: th.Policy.MaxDepth,
		Comments: conv(th.Roots),
	}
}

func flatFromService(th *service.Thread, account uuid.UUID) FlatThreadResponse {
	items := thread.Flatten(th.Roots, th.Policy)

	out := make([]FlatComment, 0, len(items))
	for _, it := range items {
		out = append(out, FlatComment{
			Comment:  commentFromModel(it.Node.Comment, account),
			Depth:    it.Node.Depth,
			CanReply: it.CanReply,
		})
	}

	return FlatThreadResponse{
		PostID:   th.PostID,
		Total:    th.Total,
		MaxDepth: th.Policy.MaxDepth,
		Comments: out,
	}
}

func reactionsFromService(st *service.ReactionState) ReactionsResponse {
	mine := make(map[models.ReactionKind]bool, len(models.ReactionKinds))
	for _, k := range models.ReactionKinds {
		mine[k] = st.Mine[k]
	}

	return ReactionsResponse{PostID: st.PostID, Reactions: st.Reactions, Mine: mine}
}
