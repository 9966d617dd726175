package recommend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pribylovaa/thinkedin/internal/models"
	"github.com/stretchr/testify/require"
)

func posts(contents ...string) []models.Post {
	out := make([]models.Post, 0, len(contents))
	for i, c := range contents {
		out = append(out, models.Post{ID: string(rune('a' + i)), Content: c})
	}
	return out
}

type captured struct {
	req generateRequest
	key string
}

// llmStub отвечает текстом reply и отдаёт полученные запросы в канал.
func llmStub(t *testing.T, reply string, status int) (*httptest.Server, <-chan captured) {
	t.Helper()

	seen := make(chan captured, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var c captured
		c.key = r.URL.Query().Get("key")
		if err := json.NewDecoder(r.Body).Decode(&c.req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		seen <- c

		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{
				map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": reply}}}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, seen
}

func TestLLM_Recommend(t *testing.T) {
	t.Parallel()

	srv, seen := llmStub(t, "Posts 3, 1 fit best; 1 is about sleep. See also 42.", http.StatusOK)

	l := NewLLM(srv.URL+"/v1/generate", "secret", time.Second)
	defer l.Close()

	reply, err := l.Recommend(context.Background(), "how to rest", posts("work hard", "gym", "sleep more"))
	require.NoError(t, err)
	require.Equal(t, []int{2, 0}, reply.Picks)
	require.Contains(t, reply.Text, "fit best")

	got := <-seen
	require.Equal(t, "secret", got.key)
	require.Len(t, got.req.Contents, 1)
	text := got.req.Contents[0].Parts[0].Text
	require.Contains(t, text, `User request: "how to rest"`)
	require.Contains(t, text, `3. "sleep more"`)
}

func TestLLM_Recommend_Errors(t *testing.T) {
	t.Parallel()

	srv, _ := llmStub(t, "", http.StatusInternalServerError)
	l := NewLLM(srv.URL, "", time.Second)
	defer l.Close()

	_, err := l.Recommend(context.Background(), "anything", posts("one"))
	require.Error(t, err)

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer empty.Close()

	l2 := NewLLM(empty.URL, "", time.Second)
	defer l2.Close()

	_, err = l2.Recommend(context.Background(), "anything", posts("one"))
	require.Error(t, err)
}

func TestLLM_Recommend_Timeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	l := NewLLM(srv.URL, "", 50*time.Millisecond)
	defer l.Close()

	_, err := l.Recommend(context.Background(), "slow", posts("one"))
	require.Error(t, err)
}

func TestParsePicks(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text string
		n    int
		want []int
	}{
		{"1, 2", 3, []int{0, 1}},
		{"I'd pick 2 and then 2 again", 3, []int{1}},
		{"none match", 3, []int{}},
		{"0 and 4 are out of range, 3 is fine", 3, []int{2}},
		{"post12 is glued", 20, []int{}},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, ParsePicks(tc.text, tc.n), tc.text)
	}
}

func TestBuildPrompt_NoPosts(t *testing.T) {
	t.Parallel()

	p := BuildPrompt("anything", nil)
	require.True(t, strings.HasPrefix(p, `User request: "anything"`))
	require.Contains(t, p, "most relevant")
}
