package mojang

import (
	"net/http"
	"time"

	"github.com/okian/academy/pkg/logger"
	"golang.org/x/time/rate"
)

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithBaseURL sets the session profile endpoint; the compact uuid is appended.
func WithBaseURL(u string) Option {
	return func(r *Resolver) {
		if u != "" {
			r.baseURL = u
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) {
		if c != nil {
			r.httpClient = c
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.httpClient.Timeout = d
		}
	}
}

// WithCacheTTL sets how long a resolved username is served without a refresh.
func WithCacheTTL(ttl time.Duration) Option {
	return func(r *Resolver) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithMissTTL sets how long a failed lookup suppresses further remote calls
// for the same uuid.
func WithMissTTL(ttl time.Duration) Option {
	return func(r *Resolver) {
		if ttl > 0 {
			r.missTTL = ttl
		}
	}
}

// WithRateLimit caps outbound lookups per second.
func WithRateLimit(perSecond float64) Option {
	return func(r *Resolver) {
		if perSecond > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithRemote enables or disables calls to the profile service. When disabled
// only seeded names are served.
func WithRemote(enabled bool) Option {
	return func(r *Resolver) {
		r.remote = enabled
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}
