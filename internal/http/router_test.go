package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pribylovaa/thinkedin/internal/auth"
	"github.com/pribylovaa/thinkedin/internal/config"
	"github.com/pribylovaa/thinkedin/internal/http/handlers"
	"github.com/pribylovaa/thinkedin/internal/models"
	"github.com/pribylovaa/thinkedin/internal/moderation"
	"github.com/pribylovaa/thinkedin/internal/service"
	"github.com/pribylovaa/thinkedin/internal/storage"
	"github.com/pribylovaa/thinkedin/mocks"
	"github.com/stretchr/testify/require"
)

var authCfg = config.AuthConfig{JWTSecret: "test-secret", Issuer: "auth-service", Audience: []string{"thinkedin"}}

type subFunc func()

func (f subFunc) Cancel() { f() }

type testEnv struct {
	srv      *httptest.Server
	storage  *mocks.MockStorage
	verifier *auth.Verifier
}

// newTestEnv — роутер поверх сервиса с моками стораджа; модерация пропускает всё.
func newTestEnv(t *testing.T, ping func(context.Context) error) *testEnv {
	t.Helper()

	ctrl := gomock.NewController(t)
	ms := mocks.NewMockStorage(ctrl)
	mv := mocks.NewMockContentValidator(ctrl)
	mv.EXPECT().Validate(gomock.Any(), gomock.Any()).Return(moderation.Allow, nil).AnyTimes()

	cfg := config.Config{
		Limits: config.LimitsConfig{
			Default: 50, Max: 200, MaxDepth: 3,
			PostMaxLen: 1000, CommentMaxLen: 500,
			MaxTags: 10, TagMaxLen: 32, SearchQueryMax: 100,
		},
		Reactions: config.ReactionsConfig{SyncTimeout: time.Second},
		Chatbot:   config.ChatbotConfig{Posts: 20, PromptMaxLen: 500},
	}
	svc := service.New(ms, cfg, service.Deps{Validator: mv})
	t.Cleanup(svc.Wait)

	v := auth.NewVerifier(authCfg)
	srv := httptest.NewServer(NewRouter(svc, Options{
		Timeout:  time.Second,
		BasePath: "/api",
		Verifier: v,
		Ping:     ping,
	}))
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, storage: ms, verifier: v}
}

func (e *testEnv) do(t *testing.T, method, path, body, token string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("X-Device-Id", "device-1")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (e *testEnv) token(t *testing.T, account uuid.UUID) string {
	t.Helper()
	tok, err := e.verifier.Issue(account, time.Hour, time.Now())
	require.NoError(t, err)
	return tok
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, func(context.Context) error { return errors.New("mongo down") })

	resp := env.do(t, http.MethodGet, "/livez", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_CreatePost(t *testing.T) {
	env := newTestEnv(t, nil)

	env.storage.EXPECT().CreatePost(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p models.Post) (*models.Post, error) {
			p.ID = "p1"
			p.CreatedAt = time.Now()
			return &p, nil
		})

	resp := env.do(t, http.MethodPost, "/api/posts", `{"content":"  a quiet thought  ","tags":["dreams"]}`, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "device-1", resp.Header.Get("X-Device-Id"))

	var out handlers.Post
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, "p1", out.ID)
	require.Equal(t, "a quiet thought", out.Content)
	require.Equal(t, []string{"#dreams"}, out.Tags)
	require.Equal(t, "thought", out.Kind)
	require.NotEmpty(t, out.Pseudonym)
	require.False(t, out.Mine)
}

func TestRouter_CreatePost_BadBody(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodPost, "/api/posts", `{"content":"x","owner":"me"}`, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_EditPost_Auth(t *testing.T) {
	env := newTestEnv(t, nil)

	// Без токена.
	resp := env.do(t, http.MethodPatch, "/api/posts/p1", `{"content":"new"}`, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Битый токен.
	resp = env.do(t, http.MethodPatch, "/api/posts/p1", `{"content":"new"}`, "garbage")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Чужой пост.
	env.storage.EXPECT().PostByID(gomock.Any(), "p1").Return(&models.Post{ID: "p1", OwnerID: uuid.New()}, nil)
	resp = env.do(t, http.MethodPatch, "/api/posts/p1", `{"content":"new"}`, env.token(t, uuid.New()))
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Свой пост.
	owner := uuid.New()
	env.storage.EXPECT().PostByID(gomock.Any(), "p2").Return(&models.Post{ID: "p2", OwnerID: owner}, nil)
	env.storage.EXPECT().EditRecord(gomock.Any(), models.RecordPost, "p2", "new", owner).Return(nil)
	resp = env.do(t, http.MethodPatch, "/api/posts/p2", `{"content":"new"}`, env.token(t, owner))
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestRouter_DeleteComment_NotFound(t *testing.T) {
	env := newTestEnv(t, nil)

	env.storage.EXPECT().CommentByID(gomock.Any(), "c1").Return(nil, storage.ErrNotFound)
	resp := env.do(t, http.MethodDelete, "/api/comments/c1", "", env.token(t, uuid.New()))
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_Thread(t *testing.T) {
	env := newTestEnv(t, nil)

	base := time.Now().Add(-time.Hour)
	env.storage.EXPECT().ListComments(gomock.Any(), "p1").Return([]models.Comment{
		{ID: "a", PostID: "p1", Content: "root", CreatedAt: base},
		{ID: "b", PostID: "p1", ParentID: "a", Content: models.Tombstone, IsDeleted: true, CreatedAt: base.Add(time.Minute)},
		{ID: "c", PostID: "p1", ParentID: "b", Content: "reply", CreatedAt: base.Add(2 * time.Minute)},
		{ID: "d", PostID: "p1", ParentID: "c", Content: "deep", CreatedAt: base.Add(3 * time.Minute)},
	}, nil)

	resp := env.do(t, http.MethodGet, "/api/posts/p1/comments", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out handlers.ThreadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, 4, out.Total)
	require.Equal(t, 3, out.MaxDepth)
	require.Len(t, out.Comments, 1)

	a := out.Comments[0]
	require.Equal(t, 4, a.Count)
	require.True(t, a.CanReply)

	b := a.Replies[0]
	require.True(t, b.IsDeleted)
	require.Equal(t, models.Tombstone, b.Content)

	d := b.Replies[0].Replies[0]
	require.Equal(t, 3, d.Depth)
	require.False(t, d.CanReply)
}

func TestRouter_Thread_Flat(t *testing.T) {
	env := newTestEnv(t, nil)

	base := time.Now().Add(-time.Hour)
	env.storage.EXPECT().ListComments(gomock.Any(), "p1").Return([]models.Comment{
		{ID: "a", PostID: "p1", Content: "root", CreatedAt: base},
		{ID: "b", PostID: "p1", ParentID: "a", Content: "reply", CreatedAt: base.Add(time.Minute)},
		{ID: "c", PostID: "p1", Content: "second root", CreatedAt: base.Add(2 * time.Minute)},
	}, nil)

	resp := env.do(t, http.MethodGet, "/api/posts/p1/comments?flat=true", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out handlers.FlatThreadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Comments, 3)
	require.Equal(t, "a", out.Comments[0].ID)
	require.Equal(t, "b", out.Comments[1].ID)
	require.Equal(t, 1, out.Comments[1].Depth)
	require.Equal(t, "c", out.Comments[2].ID)
}

func TestRouter_ToggleReaction(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodPost, "/api/posts/p1/reactions/angry", "", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	env.storage.EXPECT().PostByID(gomock.Any(), "p1").Return(&models.Post{ID: "p1", Reactions: models.Reactions{Inspired: 2}}, nil)
	env.storage.EXPECT().IncrementReactionCounter(gomock.Any(), "p1", models.ReactionInspired, int64(1)).
		Return(&models.ReactionSnapshot{PostID: "p1", Reactions: models.Reactions{Inspired: 3}}, nil)

	resp = env.do(t, http.MethodPost, "/api/posts/p1/reactions/inspired", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out handlers.ReactionsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.EqualValues(t, 3, out.Reactions.Inspired)
	require.True(t, out.Mine[models.ReactionInspired])
	require.False(t, out.Mine[models.ReactionThink])
}

func TestRouter_MyPosts_RequiresToken(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodGet, "/api/me/posts", "", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/me/posts?limit=-1", "", env.token(t, uuid.New()))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_LiveReactions(t *testing.T) {
	env := newTestEnv(t, nil)

	subscribed := make(chan func(models.ReactionSnapshot), 1)
	canceled := make(chan struct{})

	env.storage.EXPECT().PostByID(gomock.Any(), "p1").Return(&models.Post{ID: "p1", Reactions: models.Reactions{Think: 1}}, nil)
	env.storage.EXPECT().Subscribe(gomock.Any(), "p1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, fn func(models.ReactionSnapshot)) (storage.Subscription, error) {
			subscribed <- fn
			return subFunc(func() { close(canceled) }), nil
		})

	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/api/posts/p1/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	var first models.ReactionSnapshot
	require.NoError(t, conn.ReadJSON(&first))
	require.EqualValues(t, 1, first.Reactions.Think)

	fn := <-subscribed
	fn(models.ReactionSnapshot{PostID: "p1", Reactions: models.Reactions{Think: 7}})

	var next models.ReactionSnapshot
	require.NoError(t, conn.ReadJSON(&next))
	require.EqualValues(t, 7, next.Reactions.Think)

	require.NoError(t, conn.Close())

	select {
	case <-canceled:
	case <-time.After(2 * time.Second):
		t.Fatal("subscription was not canceled after client disconnect")
	}
}

// Без настроенной модели чат-бот отвечает 503, битое тело — 400.
func TestRouter_Chatbot(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodPost, "/api/chatbot", `{"prompt":"x","extra":1}`, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/chatbot", `{"prompt":"   "}`, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/chatbot", `{"prompt":"posts about go"}`, "")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var out struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, "recommend_unavailable", out.Error.Code)
}
