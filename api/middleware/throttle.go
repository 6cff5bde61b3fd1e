package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rootsreach/rootsreach-backend/api/responses"
	pkgerrors "github.com/rootsreach/rootsreach-backend/pkg/errors"
	"github.com/rootsreach/rootsreach-backend/pkg/logger"
	pkgredis "github.com/rootsreach/rootsreach-backend/pkg/redis"
)

const maxThrottleBodyBytes = 64 << 10

// RateLimiter counts hits per scope in fixed windows.
type RateLimiter interface {
	HitWindow(ctx context.Context, scope string, window time.Duration) (pkgredis.Window, error)
}

// Limit caps hits per window for one request attribute. A key func returning
// "" skips the limit for that request.
type Limit struct {
	Name     string
	Max      int64
	key      func(r *http.Request, body []byte) string
	needBody bool
}

// ByClientIP limits hits per caller address.
func ByClientIP(perWindow int) Limit {
	return Limit{
		Name: "ip",
		Max:  int64(perWindow),
		key:  func(r *http.Request, _ []byte) string { return clientIP(r) },
	}
}

// ByEmail limits hits per normalized "email" in the JSON body. Only a hash of
// the address reaches the store and the logs.
func ByEmail(perWindow int) Limit {
	return Limit{
		Name:     "email",
		Max:      int64(perWindow),
		needBody: true,
		key: func(_ *http.Request, body []byte) string {
			var payload struct {
				Email string `json:"email"`
			}
			if json.Unmarshal(body, &payload) != nil {
				return ""
			}
			email := strings.ToLower(strings.TrimSpace(payload.Email))
			if email == "" {
				return ""
			}
			return sha256Hex(email)
		},
	}
}

// Throttle applies limits under a shared window. Blocked requests get 429
// with Retry-After set to the time left in the window.
func Throttle(name string, window time.Duration, store RateLimiter, logg *logger.Logger, limits ...Limit) func(http.Handler) http.Handler {
	name = strings.ToLower(strings.TrimSpace(name))
	active := make([]Limit, 0, len(limits))
	readBody := false
	for _, limit := range limits {
		if limit.Max > 0 {
			active = append(active, limit)
			readBody = readBody || limit.needBody
		}
	}

	return func(next http.Handler) http.Handler {
		if store == nil || window <= 0 || len(active) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var body []byte
			if readBody {
				var err error
				body, err = io.ReadAll(io.LimitReader(r.Body, maxThrottleBodyBytes))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
					return
				}
				// hand the handler the whole body, including anything past the peek
				r.Body = struct {
					io.Reader
					io.Closer
				}{io.MultiReader(bytes.NewReader(body), r.Body), r.Body}
			}

			for _, limit := range active {
				id := limit.key(r, body)
				if id == "" {
					continue
				}
				hit, err := store.HitWindow(ctx, name+":"+limit.Name+":"+id, window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if hit.Exceeds(limit.Max) {
					if logg != nil {
						logg.Warn(logg.WithFields(ctx, map[string]any{
							"throttle": name,
							"limit":    limit.Name,
							"key":      id,
							"attempts": hit.Count,
							"max":      limit.Max,
						}), "throttle.blocked")
					}
					w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(hit.ResetIn, window)))
					responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func retryAfterSeconds(resetIn, window time.Duration) int {
	if resetIn <= 0 {
		resetIn = window
	}
	return max(1, int(math.Ceil(resetIn.Seconds())))
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func sha256Hex(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
