package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/academy/internal/domain/model"
	"github.com/okian/academy/pkg/logger"
	"golang.org/x/time/rate"
)

const (
	maxRetries     = 5
	initialBackoff = 50 * time.Millisecond
	reportInterval = time.Second
)

// Client talks to the tracker's JSON API.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a client for baseURL with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{base: baseURL, http: &http.Client{Timeout: timeout}}
}

// statusError is returned for any non-2xx reply.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", path, err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &statusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(data))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	if err := c.do(ctx, http.MethodGet, "/healthz", nil, nil); err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	return nil
}

// Submit posts one snapshot. A 429 is retried with exponential backoff.
func (c *Client) Submit(ctx context.Context, uuid string, snap SnapshotRequest) (AckResponse, int, error) {
	var ack AckResponse
	backoff := initialBackoff
	path := "/players/" + url.PathEscape(uuid) + "/snapshots"
	for attempt := 0; ; attempt++ {
		err := c.do(ctx, http.MethodPost, path, snap, &ack)
		var se *statusError
		if !errors.As(err, &se) || se.Code != http.StatusTooManyRequests || attempt == maxRetries {
			return ack, attempt, err
		}
		select {
		case <-ctx.Done():
			return ack, attempt, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// Leaderboard reads GET /leaderboards/{category}.
func (c *Client) Leaderboard(ctx context.Context, category string, limit int) ([]Entry, error) {
	var out []Entry
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/leaderboards/%s?limit=%d", url.PathEscape(category), limit), nil, &out)
	return out, err
}

// TitleSummary mirrors GET /players/{uuid}/titles.
type TitleSummary struct {
	Primary     titleRef   `json:"primary"`
	Secondary   []titleRef `json:"secondary"`
	EarnedCount int        `json:"earnedCount"`
	Total       int        `json:"total"`
}

type titleRef struct {
	ID string `json:"id"`
}

// Titles reads GET /players/{uuid}/titles.
func (c *Client) Titles(ctx context.Context, uuid string, limit int) (TitleSummary, error) {
	var out TitleSummary
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/players/%s/titles?limit=%d", url.PathEscape(uuid), limit), nil, &out)
	return out, err
}

// PlayerSummary holds the fields of GET /players/{uuid}/summary the run checks.
type PlayerSummary struct {
	UUID      string    `json:"uuid"`
	Username  string    `json:"username"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Summary reads GET /players/{uuid}/summary.
func (c *Client) Summary(ctx context.Context, uuid string) (PlayerSummary, error) {
	var out PlayerSummary
	err := c.do(ctx, http.MethodGet, "/players/"+url.PathEscape(uuid)+"/summary", nil, &out)
	return out, err
}

// Party reads GET /players/{uuid}/party.
func (c *Client) Party(ctx context.Context, uuid string) ([]model.Pokemon, error) {
	var out []model.Pokemon
	err := c.do(ctx, http.MethodGet, "/players/"+url.PathEscape(uuid)+"/party", nil, &out)
	return out, err
}

type job struct {
	uuid string
	snap SnapshotRequest
}

// submitAll sends every snapshot through a pool of cfg.Workers goroutines,
// then resends each trainer's last snapshot, which the server must report
// as a duplicate.
func submitAll(ctx context.Context, cfg *Config, c *Client, trainers []Trainer, stats *Stats) error {
	log := logger.Get().Named("simulate")

	var jobs []job
	for _, t := range trainers {
		for _, s := range t.Snapshots {
			jobs = append(jobs, job{uuid: t.UUID, snap: s})
		}
	}
	resend := make([]job, len(trainers))
	for i, t := range trainers {
		resend[i] = job{uuid: t.UUID, snap: t.Snapshots[len(t.Snapshots)-1]}
	}

	limit := rate.Inf
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
	}
	limiter := rate.NewLimiter(limit, cfg.Workers)

	var accepted, duplicate, failed, retries, done atomic.Int64
	total := int64(len(jobs) + len(resend))
	var lastReport atomic.Int64

	run := func(batch []job) {
		ch := make(chan job)
		var wg sync.WaitGroup
		for i := 0; i < cfg.Workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := range ch {
					if err := limiter.Wait(ctx); err != nil {
						failed.Add(1)
						continue
					}
					ack, n, err := c.Submit(ctx, j.uuid, j.snap)
					retries.Add(int64(n))
					switch {
					case err != nil:
						failed.Add(1)
						log.Debug(ctx, "snapshot failed",
							logger.String("uuid", j.uuid),
							logger.String("snapshotID", j.snap.SnapshotID),
							logger.Error(err))
					case ack.Duplicate:
						duplicate.Add(1)
					default:
						accepted.Add(1)
					}
					d := done.Add(1)
					now := time.Now().UnixNano()
					if last := lastReport.Load(); now-last >= int64(reportInterval) && lastReport.CompareAndSwap(last, now) {
						log.Info(ctx, "submitting",
							logger.Any("done", d),
							logger.Any("total", total),
							logger.Any("failed", failed.Load()))
					}
				}
			}()
		}
	feed:
		for _, j := range batch {
			select {
			case <-ctx.Done():
				break feed
			case ch <- j:
			}
		}
		close(ch)
		wg.Wait()
	}

	log.Info(ctx, "submitting snapshots",
		logger.Int("snapshots", len(jobs)),
		logger.Int("workers", cfg.Workers))
	run(jobs)
	run(resend)

	stats.SnapshotsAccepted = int(accepted.Load())
	stats.SnapshotsDuplicate = int(duplicate.Load())
	stats.SnapshotsFailed = int(failed.Load())
	stats.Retries = int(retries.Load())

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	return nil
}
