package moderation

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"resty.dev/v3"
)

var remoteLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "thinkedin_moderation_remote_latency",
		Help:    "Histogram of remote moderation request latency in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	},
	[]string{"path", "status_code"},
)

// Remote — внешний валидатор (например, AI-модерация).
// Запрос: POST {"kind","content","pseudonym"}; ответ: {"allowed":bool,"reason":string}.
type Remote struct {
	client  *resty.Client
	url     string
	timeout time.Duration
}

type remoteRequest struct {
	Kind      string `json:"kind"`
	Content   string `json:"content"`
	Pseudonym string `json:"pseudonym"`
}

type remoteResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// NewRemote создаёт клиент; timeout ограничивает каждую проверку.
func NewRemote(endpoint string, timeout time.Duration) *Remote {
	client := resty.NewWithTransportSettings(&resty.TransportSettings{
		DialerTimeout:         timeout,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		IdleConnTimeout:       30 * time.Second,
	})
	client.AddResponseMiddleware(latencyMiddleware)

	return &Remote{client: client, url: endpoint, timeout: timeout}
}

// Close освобождает транспорт клиента.
func (r *Remote) Close() error {
	return r.client.Close()
}

func (r *Remote) Validate(ctx context.Context, c Content) (Verdict, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	res, err := r.client.R().
		WithContext(ctx).
		SetBody(remoteRequest{Kind: string(c.Kind), Content: c.Text, Pseudonym: c.Pseudonym}).
		SetResult(&remoteResponse{}).
		Post(r.url)
	if err != nil {
		return Allow, fmt.Errorf("moderation: remote: %w", err)
	}

	if res.IsError() {
		return Allow, fmt.Errorf("moderation: remote: unexpected status %d", res.StatusCode())
	}

	out, ok := res.Result().(*remoteResponse)
	if !ok || out == nil {
		return Allow, fmt.Errorf("moderation: remote: empty response")
	}

	if !out.Allowed {
		return Reject(ReasonRemote, out.Reason), nil
	}

	return Allow, nil
}

func latencyMiddleware(_ *resty.Client, response *resty.Response) error {
	path := ""
	if u, err := url.Parse(response.Request.URL); err == nil {
		path = u.Path
	}

	remoteLatency.WithLabelValues(path, strconv.Itoa(response.StatusCode())).
		Observe(response.Duration().Seconds())

	return nil
}
