// Package recommend — подбор постов по запросу пользователя через внешнюю языковую модель.
//
// Модели уходит запрос и пронумерованный список свежих постов; в ответ она присылает
// текст с номерами подходящих постов. Номера вне списка отбрасываются.
package recommend

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pribylovaa/thinkedin/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"
	"resty.dev/v3"
)

var llmLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "thinkedin_recommend_llm_latency",
		Help:    "Histogram of language model request latency in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	},
	[]string{"path", "status_code"},
)

// Reply — ответ модели.
//   - Text: пояснение как есть;
//   - Picks: индексы выбранных постов (с нуля) в порядке упоминания, без повторов.
type Reply struct {
	Text  string
	Picks []int
}

// Recommender выбирает из posts подходящие под prompt.
type Recommender interface {
	Recommend(ctx context.Context, prompt string, posts []models.Post) (Reply, error)
}

// LLM — Recommender поверх generateContent-совместимого HTTP API.
// Запрос: POST {"contents":[{"parts":[{"text":...}]}]}, ключ — параметр key.
type LLM struct {
	client  *resty.Client
	url     string
	apiKey  string
	timeout time.Duration
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// NewLLM создаёт клиент; timeout ограничивает каждый запрос к модели.
func NewLLM(endpoint, apiKey string, timeout time.Duration) *LLM {
	client := resty.NewWithTransportSettings(&resty.TransportSettings{
		DialerTimeout:         timeout,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		IdleConnTimeout:       30 * time.Second,
	})
	client.AddResponseMiddleware(latencyMiddleware)

	return &LLM{client: client, url: endpoint, apiKey: apiKey, timeout: timeout}
}

// Close освобождает транспорт клиента.
func (l *LLM) Close() error {
	return l.client.Close()
}

func (l *LLM) Recommend(ctx context.Context, prompt string, posts []models.Post) (Reply, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	req := l.client.R().
		WithContext(ctx).
		SetBody(generateRequest{Contents: []content{{Parts: []part{{Text: BuildPrompt(prompt, posts)}}}}}).
		SetResult(&generateResponse{})
	if l.apiKey != "" {
		req.SetQueryParam("key", l.apiKey)
	}

	res, err := req.Post(l.url)
	if err != nil {
		return Reply{}, fmt.Errorf("recommend: llm: %w", err)
	}

	if res.IsError() {
		return Reply{}, fmt.Errorf("recommend: llm: unexpected status %d", res.StatusCode())
	}

	out, ok := res.Result().(*generateResponse)
	if !ok || out == nil || len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return Reply{}, fmt.Errorf("recommend: llm: empty response")
	}

	text := out.Candidates[0].Content.Parts[0].Text
	return Reply{Text: text, Picks: ParsePicks(text, len(posts))}, nil
}

// BuildPrompt собирает текст для модели: запрос пользователя и пронумерованные с 1 посты.
func BuildPrompt(prompt string, posts []models.Post) string {
	var b strings.Builder

	fmt.Fprintf(&b, "User request: %q\n", prompt)
	b.WriteString("Here are some recent posts:\n")
	for i, p := range posts {
		fmt.Fprintf(&b, "%d. %q\n", i+1, p.Content)
	}
	b.WriteString("\nBased on the user's request, which of these posts are most relevant? ")
	b.WriteString("Reply with the numbers of the best matches and a short explanation.")

	return b.String()
}

var numberRe = regexp.MustCompile(`\b\d+\b`)

// ParsePicks вытаскивает из ответа номера постов 1..n и переводит их в индексы.
func ParsePicks(text string, n int) []int {
	picks := lo.FilterMap(numberRe.FindAllString(text, -1), func(s string, _ int) (int, bool) {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 || v > n {
			return 0, false
		}
		return v - 1, true
	})

	return lo.Uniq(picks)
}

func latencyMiddleware(_ *resty.Client, response *resty.Response) error {
	path := ""
	if u, err := url.Parse(response.Request.URL); err == nil {
		path = u.Path
	}

	llmLatency.WithLabelValues(path, strconv.Itoa(response.StatusCode())).
		Observe(response.Duration().Seconds())

	return nil
}
