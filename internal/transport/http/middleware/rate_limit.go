package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimitStore is the sliding-window attempt log behind the limiter.
type RateLimitStore interface {
	TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error
	CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error)
	RecordAttempt(ctx context.Context, identifier string, at time.Time) error
	OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error)
}

// IdentifierFunc scopes a rule to one caller, typically by client IP.
type IdentifierFunc func(*gin.Context) (string, bool)

// RateLimitRule caps attempts per identifier inside a sliding window.
type RateLimitRule struct {
	Name       string
	Limit      int
	Window     time.Duration
	Identifier IdentifierFunc
}

func (r RateLimitRule) valid() bool {
	return r.Identifier != nil && r.Limit > 0 && r.Window > 0
}

// RateLimiter evaluates sliding-window rules against a shared store. A
// store failure admits the request: losing rate limiting briefly is
// preferable to locking every learner out of login.
type RateLimiter struct {
	store  RateLimitStore
	logger *zap.Logger
	now    func() time.Time
}

// NewRateLimiter constructs a limiter over the given attempt store.
func NewRateLimiter(store RateLimitStore, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{store: store, logger: logger, now: time.Now}
}

// WithClock injects a custom clock, primarily for tests.
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	if now != nil {
		rl.now = now
	}
	return rl
}

// ClientIPIdentifier keys a rule by the request's client IP.
func ClientIPIdentifier() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		ip := c.ClientIP()
		return ip, ip != ""
	}
}

// windowState is one rule's verdict for the current request.
type windowState struct {
	limit     int
	remaining int
	resetAt   time.Time
}

func (s windowState) rejected() bool { return s.remaining < 0 }

// RateLimitedResponse is the 429 payload, in the API's error envelope plus
// the seconds until the window frees up.
type RateLimitedResponse struct {
	Status     int    `json:"status"`
	Error      string `json:"error"`
	Message    string `json:"message"`
	Path       string `json:"path"`
	TraceID    string `json:"trace_id,omitempty"`
	RetryAfter int    `json:"retry_after"`
}

// RateLimit enforces the given rules in order. Rules without an identifier
// function, a positive limit, and a positive window are dropped up front.
func (rl *RateLimiter) RateLimit(rules ...RateLimitRule) gin.HandlerFunc {
	active := make([]RateLimitRule, 0, len(rules))
	for _, rule := range rules {
		if !rule.valid() {
			continue
		}
		if rule.Name == "" {
			rule.Name = "default"
		}
		active = append(active, rule)
	}

	return func(c *gin.Context) {
		if rl.store == nil || len(active) == 0 {
			c.Next()
			return
		}

		var strictest *windowState
		for _, rule := range active {
			identifier, ok := rule.Identifier(c)
			if !ok || identifier == "" {
				continue
			}

			state, err := rl.admit(c.Request.Context(), rule, rule.Name+":"+identifier)
			if err != nil {
				rl.logger.Warn("rate limit store unavailable, admitting request",
					zap.String("rule", rule.Name), zap.Error(err))
				continue
			}

			if strictest == nil || state.remaining < strictest.remaining {
				s := state
				strictest = &s
			}

			if state.rejected() {
				rl.reject(c, state)
				return
			}
		}

		if strictest != nil {
			rl.writeLimitHeaders(c, *strictest)
		}
		c.Next()
	}
}

// admit trims the window, checks the attempt count, and records the new
// attempt when there is room. A full window reports remaining -1 and the
// instant the oldest attempt ages out.
func (rl *RateLimiter) admit(ctx context.Context, rule RateLimitRule, key string) (windowState, error) {
	now := rl.now()

	if err := rl.store.TrimWindow(ctx, key, rule.Window, now); err != nil {
		return windowState{}, err
	}

	count, err := rl.store.CountAttempts(ctx, key, rule.Window, now)
	if err != nil {
		return windowState{}, err
	}

	if count >= rule.Limit {
		resetAt := now.Add(rule.Window)
		oldest, ok, err := rl.store.OldestAttempt(ctx, key, rule.Window, now)
		if err != nil {
			return windowState{}, err
		}
		if ok {
			resetAt = oldest.Add(rule.Window)
		}
		return windowState{limit: rule.Limit, remaining: -1, resetAt: resetAt}, nil
	}

	if err := rl.store.RecordAttempt(ctx, key, now); err != nil {
		return windowState{}, err
	}

	return windowState{
		limit:     rule.Limit,
		remaining: rule.Limit - count - 1,
		resetAt:   now.Add(rule.Window),
	}, nil
}

func (rl *RateLimiter) writeLimitHeaders(c *gin.Context, state windowState) {
	h := c.Writer.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(state.limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(max(state.remaining, 0)))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(state.resetAt.Unix(), 10))
}

func (rl *RateLimiter) reject(c *gin.Context, state windowState) {
	seconds := int(math.Ceil(state.resetAt.Sub(rl.now()).Seconds()))
	if seconds < 0 {
		seconds = 0
	}

	rl.writeLimitHeaders(c, state)
	c.Writer.Header().Set("Retry-After", strconv.Itoa(seconds))

	c.AbortWithStatusJSON(http.StatusTooManyRequests, RateLimitedResponse{
		Status:     http.StatusTooManyRequests,
		Error:      http.StatusText(http.StatusTooManyRequests),
		Message:    fmt.Sprintf("Too many attempts. Retry in %d seconds.", seconds),
		Path:       c.Request.URL.Path,
		TraceID:    GetTraceID(c),
		RetryAfter: seconds,
	})
}
