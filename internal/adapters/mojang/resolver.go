// Package mojang resolves player uuids to Minecraft usernames.
package mojang

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/okian/academy/internal/domain/model"
	"github.com/okian/academy/pkg/logger"
	"github.com/okian/academy/pkg/metrics"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://sessionserver.mojang.com/session/minecraft/profile"
	defaultTTL     = 7 * 24 * time.Hour
	defaultMissTTL = 10 * time.Minute
	defaultTimeout = 3 * time.Second
	defaultRPS     = 5
	maxBodyBytes   = 64 << 10
)

// Lookup outcomes reported to metrics.
const (
	resultCacheHit = "cache_hit"
	resultRemote   = "remote"
	resultStale    = "stale"
	resultFallback = "fallback"
	resultMiss     = "cached_miss"
)

// Names resolves usernames. Resolve never fails; it returns
// model.UnknownTrainer when nothing better is known.
type Names interface {
	Resolve(ctx context.Context, uuid string) string
	Seed(uuid, username string)
}

type cached struct {
	name string
	at   time.Time
}

type profile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Resolver is a caching, rate-limited client of the session profile API.
type Resolver struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	ttl        time.Duration
	missTTL    time.Duration
	remote     bool
	now        func() time.Time
	logger     logger.Logger

	mu    sync.RWMutex
	cache map[string]cached
	// misses holds uuids the profile service could not answer, keyed like
	// cache, so repeated reads do not queue behind the limiter.
	misses map[string]time.Time
}

// NewResolver creates a Resolver with configuration options.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(defaultRPS), 1),
		ttl:        defaultTTL,
		missTTL:    defaultMissTTL,
		remote:     true,
		now:        time.Now,
		logger:     logger.Get().Named("mojang"),
		cache:      make(map[string]cached),
		misses:     make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func cacheKey(uuid string) string {
	return strings.ToLower(strings.ReplaceAll(uuid, "-", ""))
}

// Seed records a username reported by the game server.
func (r *Resolver) Seed(uuid, username string) {
	username = strings.TrimSpace(username)
	if username == "" {
		return
	}
	key := cacheKey(uuid)
	r.mu.Lock()
	r.cache[key] = cached{name: username, at: r.now()}
	delete(r.misses, key)
	r.mu.Unlock()
}

// Cached returns the cached username regardless of age.
func (r *Resolver) Cached(uuid string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cache[cacheKey(uuid)]
	return c.name, ok
}

// Resolve returns a fresh cached name, else asks the profile service, else
// falls back to a stale cached name, else model.UnknownTrainer. A uuid the
// service failed to answer is not asked about again until the miss expires.
func (r *Resolver) Resolve(ctx context.Context, uuid string) string {
	key := cacheKey(uuid)

	r.mu.RLock()
	c, ok := r.cache[key]
	missedAt, missed := r.misses[key]
	r.mu.RUnlock()
	now := r.now()
	if ok && now.Sub(c.at) < r.ttl {
		metrics.RecordUsernameLookup(resultCacheHit)
		return c.name
	}
	if missed && now.Sub(missedAt) < r.missTTL {
		metrics.RecordUsernameLookup(resultMiss)
		return fallback(c, ok)
	}

	name, err := r.Lookup(ctx, uuid)
	if err == nil {
		metrics.RecordUsernameLookup(resultRemote)
		return name
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnavailable) {
		r.mu.Lock()
		r.misses[key] = now
		r.mu.Unlock()
	}
	if ok {
		metrics.RecordUsernameLookup(resultStale)
	} else {
		metrics.RecordUsernameLookup(resultFallback)
	}
	return fallback(c, ok)
}

func fallback(c cached, ok bool) string {
	if ok {
		return c.name
	}
	return model.UnknownTrainer
}

// Lookup asks the profile service for uuid and caches a hit.
func (r *Resolver) Lookup(ctx context.Context, uuid string) (string, error) {
	if !r.remote {
		return "", ErrDisabled
	}
	key := cacheKey(uuid)

	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(r.baseURL, "/")+"/"+key, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.Error(ctx, "username lookup failed", logger.String("uuid", uuid), logger.Error(err))
		metrics.RecordErrorByComponent("mojang", "request_failed")
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent, http.StatusNotFound:
		r.logger.Warn(ctx, "uuid not found on profile service", logger.String("uuid", uuid))
		return "", ErrNotFound
	default:
		r.logger.Error(ctx, "profile service error", logger.String("uuid", uuid), logger.Int("status", resp.StatusCode))
		metrics.RecordErrorByComponent("mojang", "bad_status")
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var p profile
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&p); err != nil {
		return "", fmt.Errorf("decode profile: %w", err)
	}
	if strings.TrimSpace(p.Name) == "" {
		return "", ErrNotFound
	}

	r.mu.Lock()
	r.cache[key] = cached{name: p.Name, at: r.now()}
	delete(r.misses, key)
	r.mu.Unlock()
	return p.Name, nil
}
