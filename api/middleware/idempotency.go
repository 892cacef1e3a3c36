package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

const (
	// IdempotencyHeader is the client supplied submission token.
	IdempotencyHeader = "Idempotency-Key"

	replayHeader = "Idempotent-Replayed"

	maxIdempotencyKeyLength = 128

	shortReplayTTL = 24 * time.Hour
	orderReplayTTL = 7 * 24 * time.Hour
	// inFlightTTL bounds how long a crashed request can block its key.
	inFlightTTL = 30 * time.Second
)

// replayPolicy says which routes record responses and for how long.
type replayPolicy struct {
	method   string
	pattern  string
	suffix   bool
	ttl      time.Duration
	required bool
}

func (p replayPolicy) matches(method, pattern string) bool {
	if p.method != method {
		return false
	}
	if p.suffix {
		return strings.HasSuffix(pattern, p.pattern)
	}
	return pattern == p.pattern
}

var replayPolicies = []replayPolicy{
	{method: http.MethodPost, pattern: "/api/v1/checkout", ttl: orderReplayTTL, required: true},
	{method: http.MethodPost, pattern: "/api/v1/orders", ttl: orderReplayTTL},
	{method: http.MethodPost, pattern: "/api/v1/newsletter", ttl: shortReplayTTL},
	{method: http.MethodPost, pattern: "/move-to-cart", suffix: true, ttl: shortReplayTTL},
}

func policyFor(method, pattern string) (replayPolicy, bool) {
	for _, p := range replayPolicies {
		if pattern != "" && p.matches(method, pattern) {
			return p, true
		}
	}
	return replayPolicy{}, false
}

// storedResponse is the JSON value kept under an idempotency key. A pending
// entry reserves the key while the first request is still running.
type storedResponse struct {
	Pending     bool   `json:"pending,omitempty"`
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Idempotency makes the configured routes safe to retry. The first request
// with a key reserves it, runs, and records its response. Later requests with
// the same key, session and path get that response back. Only 2xx responses
// are kept; any other status releases the key so a corrected retry runs again.
// A nil store disables replay.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			policy, ok := policyFor(r.Method, routePattern(r))
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			token := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			switch {
			case token == "" && policy.required:
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			case token == "":
				next.ServeHTTP(w, r)
				return
			case len(token) > maxIdempotencyKeyLength:
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header too long").
					WithDetails(map[string]any{"max_length": maxIdempotencyKeyLength}))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			fingerprint := fingerprintBody(body)
			key := store.IdempotencyKey(replayScope(r), token)
			if logg != nil {
				ctx = logg.WithField(ctx, "idempotency_key", token)
			}

			reserved, err := reserve(ctx, store, key, fingerprint)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key"))
				return
			}
			if !reserved {
				replayExisting(ctx, store, logg, w, key, fingerprint)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)
			record(ctx, store, logg, key, policy.ttl, fingerprint, capture)
		})
	}
}

func reserve(ctx context.Context, store pkgredis.IdempotencyStore, key, fingerprint string) (bool, error) {
	pending, err := json.Marshal(storedResponse{Pending: true, Fingerprint: fingerprint})
	if err != nil {
		return false, err
	}
	return store.SetNX(ctx, key, string(pending), inFlightTTL)
}

func replayExisting(ctx context.Context, store pkgredis.IdempotencyStore, logg *logger.Logger, w http.ResponseWriter, key, fingerprint string) {
	raw, err := store.Get(ctx, key)
	if pkgredis.IsNil(err) {
		// The reservation expired between SetNX and Get.
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request is still being processed, retry shortly"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency record"))
		return
	}

	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	switch {
	case stored.Fingerprint != fingerprint:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
	case stored.Pending:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request is still being processed, retry shortly"))
	default:
		if stored.ContentType != "" {
			w.Header().Set("Content-Type", stored.ContentType)
		}
		w.Header().Set(replayHeader, "true")
		w.WriteHeader(stored.Status)
		_, _ = w.Write(stored.Body)
	}
}

func record(ctx context.Context, store pkgredis.IdempotencyStore, logg *logger.Logger, key string, ttl time.Duration, fingerprint string, capture *responseCapture) {
	status := capture.statusCode()
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		if err := store.Del(ctx, key); err != nil {
			logWarn(ctx, logg, "idempotency.release_failed", err)
		}
		return
	}

	payload, err := json.Marshal(storedResponse{
		Fingerprint: fingerprint,
		Status:      status,
		ContentType: capture.Header().Get("Content-Type"),
		Body:        capture.body.Bytes(),
	})
	if err == nil {
		err = store.Set(ctx, key, string(payload), ttl)
	}
	if err != nil {
		logWarn(ctx, logg, "idempotency.record_failed", err)
	}
}

// replayScope ties a key to the shopper session, method and path, so two
// sessions reusing one token never see each other's responses.
func replayScope(r *http.Request) string {
	return strings.Join([]string{SessionIDFromContext(r.Context()), r.Method, r.URL.Path}, "|")
}

func fingerprintBody(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}

func logWarn(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil {
		return
	}
	logg.Warn(logg.WithField(ctx, "error", err.Error()), msg)
}
