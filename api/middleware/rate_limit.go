package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/eventra-africa/eventra-backend/api/responses"
	pkgerrors "github.com/eventra-africa/eventra-backend/pkg/errors"
	"github.com/eventra-africa/eventra-backend/pkg/logger"
)

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// WebhookRateLimitPolicy defines throttling parameters for a webhook surface.
// The per-reference counter caps replay storms against a single payment.
type WebhookRateLimitPolicy struct {
	name           string
	window         time.Duration
	ipLimit        int
	referenceLimit int
}

// NewWebhookRateLimitPolicy builds a policy with the supplied window and limits.
func NewWebhookRateLimitPolicy(name string, window time.Duration, ipLimit, referenceLimit int) WebhookRateLimitPolicy {
	return WebhookRateLimitPolicy{
		name:           strings.ToLower(strings.TrimSpace(name)),
		window:         window,
		ipLimit:        ipLimit,
		referenceLimit: referenceLimit,
	}
}

func (p WebhookRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.referenceLimit > 0)
}

func (p WebhookRateLimitPolicy) normalizedName() string {
	if p.name == "" {
		return "webhook"
	}
	return p.name
}

func (p WebhookRateLimitPolicy) ipKey(ip string) string {
	if ip == "" {
		return ""
	}
	return fmt.Sprintf("rl:ip:%s:%s", p.normalizedName(), ip)
}

func (p WebhookRateLimitPolicy) referenceKey(hash string) string {
	if hash == "" {
		return ""
	}
	return fmt.Sprintf("rl:ref:%s:%s", p.normalizedName(), hash)
}

// WebhookRateLimit enforces per-IP and per-reference counters for webhook endpoints.
func WebhookRateLimit(policy WebhookRateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			ip := clientIP(r)
			if policy.ipLimit > 0 {
				if key := policy.ipKey(ip); key != "" {
					if allowed, count, err := allow(ctx, store, key, policy.window, int64(policy.ipLimit)); err != nil {
						responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
						return
					} else if !allowed {
						respondRateLimited(ctx, logg, w, policy, "ip", ip, "", count, policy.ipLimit)
						return
					}
				}
			}

			if policy.referenceLimit > 0 {
				body, err := io.ReadAll(r.Body)
				if err != nil {
					responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))

				if reference := extractReference(body); reference != "" {
					hash := hashValue(reference)
					if key := policy.referenceKey(hash); key != "" {
						if allowed, count, err := allow(ctx, store, key, policy.window, int64(policy.referenceLimit)); err != nil {
							responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
							return
						} else if !allowed {
							respondRateLimited(ctx, logg, w, policy, "reference", "", hash, count, policy.referenceLimit)
							return
						}
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func allow(ctx context.Context, store rateLimiterStore, key string, window time.Duration, limit int64) (bool, int64, error) {
	count, err := store.IncrWithTTL(ctx, key, window)
	if err != nil {
		return false, 0, err
	}
	return count <= limit, count, nil
}

func respondRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy WebhookRateLimitPolicy, scope, ip, refHash string, count int64, limit int) {
	if logg != nil {
		fields := map[string]any{
			"scope":          scope,
			"policy":         policy.normalizedName(),
			"attempts":       count,
			"limit":          limit,
			"window_seconds": int(policy.window.Seconds()),
		}
		if ip != "" {
			fields["ip"] = ip
		}
		if refHash != "" {
			fields["reference_hash"] = refHash
		}
		logCtx := logg.WithFields(ctx, fields)
		logg.Warn(logCtx, "webhook.rate_limit.blocked")
	}
	err := pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded")
	responses.WriteError(ctx, nil, w, err)
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func extractReference(payload []byte) string {
	var body struct {
		Data struct {
			Reference       string `json:"reference"`
			ClientReference string `json:"clientReference"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	if body.Data.Reference != "" {
		return strings.TrimSpace(body.Data.Reference)
	}
	return strings.TrimSpace(body.Data.ClientReference)
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
