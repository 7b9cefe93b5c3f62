package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

const (
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour

	// inFlightTTL bounds how long a crashed request can hold its key.
	inFlightTTL = 2 * time.Minute
)

const (
	replayStateInFlight = "in_flight"
	replayStateDone     = "done"
)

// idempotencyRoutes lists the mutating routes that require an
// Idempotency-Key. Segments in braces match any single path segment.
var idempotencyRoutes = []struct {
	method   string
	template string
	ttl      time.Duration
}{
	{http.MethodPost, "/api/v1/cart/items", defaultIdempotencyTTL},
	{http.MethodPost, "/api/v1/admin/promocodes", defaultIdempotencyTTL},
	{http.MethodPost, "/api/v1/payments/{sessionId}/cancel", defaultIdempotencyTTL},
	{http.MethodPost, "/api/v1/orders", criticalIdempotencyTTL},
	{http.MethodPost, "/api/v1/orders/{orderId}/payments", criticalIdempotencyTTL},
	{http.MethodPost, "/api/v1/payments/{sessionId}/capture", criticalIdempotencyTTL},
}

type replayEntry struct {
	State       string `json:"state"`
	RequestHash string `json:"request_hash"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        string `json:"body,omitempty"`
}

// Idempotency makes the listed routes safe to retry. The first request for a
// key reserves it before the handler runs; a duplicate that arrives while the
// first is still running gets a 409, and one that arrives afterwards gets the
// stored response. Server errors free the key so the client can retry.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, ok := routeTTL(r.Method, r.URL.Path)
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			clientKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
			if clientKey == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			guard := &replayGuard{
				store: store,
				key:   store.IdempotencyKey(idempotencyScope(r), clientKey),
				hash:  hashBody(body),
				ttl:   ttl,
			}

			reserved, err := guard.reserve(r.Context())
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if !reserved {
				entry, err := guard.load(r.Context())
				if err != nil {
					responses.WriteError(r.Context(), logg, w, err)
					return
				}
				entry.replay(w)
				return
			}

			rec := &responseCapture{ResponseWriter: w}
			completed := false
			defer func() {
				if !completed {
					guard.release(r.Context(), logg)
				}
			}()
			next.ServeHTTP(rec, r)

			if rec.statusCode() >= http.StatusInternalServerError {
				return
			}
			if err := guard.complete(r.Context(), rec); err != nil {
				logError(r.Context(), logg, "persist idempotency record", err)
				return
			}
			completed = true
		})
	}
}

type replayGuard struct {
	store pkgredis.IdempotencyStore
	key   string
	hash  string
	ttl   time.Duration
}

func (g *replayGuard) reserve(ctx context.Context) (bool, error) {
	payload, err := json.Marshal(replayEntry{State: replayStateInFlight, RequestHash: g.hash})
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode idempotency reservation")
	}
	ok, err := g.store.SetNX(ctx, g.key, string(payload), inFlightTTL)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key")
	}
	return ok, nil
}

// load returns the finished entry for a duplicate request, or the error the
// duplicate should receive.
func (g *replayGuard) load(ctx context.Context) (*replayEntry, error) {
	stored, err := g.store.Get(ctx, g.key)
	if errors.Is(err, redis.Nil) {
		// The original finished with a server error or its reservation lapsed.
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "request with this Idempotency-Key was not completed, retry")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
	}
	var entry replayEntry
	if err := json.Unmarshal([]byte(stored), &entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record")
	}
	if entry.RequestHash != g.hash {
		return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body")
	}
	if entry.State != replayStateDone {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "request with this Idempotency-Key is still in progress")
	}
	return &entry, nil
}

func (g *replayGuard) complete(ctx context.Context, rec *responseCapture) error {
	payload, err := json.Marshal(replayEntry{
		State:       replayStateDone,
		RequestHash: g.hash,
		Status:      rec.statusCode(),
		ContentType: rec.Header().Get("Content-Type"),
		Body:        base64.StdEncoding.EncodeToString(rec.body.Bytes()),
	})
	if err != nil {
		return err
	}
	return g.store.Set(ctx, g.key, string(payload), g.ttl)
}

func (g *replayGuard) release(ctx context.Context, logg *logger.Logger) {
	// The request context may already be cancelled by a disconnecting client.
	if err := g.store.Del(context.WithoutCancel(ctx), g.key); err != nil {
		logError(ctx, logg, "release idempotency key", err)
	}
}

func (e *replayEntry) replay(w http.ResponseWriter) {
	if e.ContentType != "" {
		w.Header().Set("Content-Type", e.ContentType)
	}
	w.WriteHeader(e.Status)
	if decoded, err := base64.StdEncoding.DecodeString(e.Body); err == nil {
		_, _ = w.Write(decoded)
	}
}

func idempotencyScope(r *http.Request) string {
	return strings.Join([]string{UserIDFromContext(r.Context()), r.Method, r.URL.Path}, "|")
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func routeTTL(method, path string) (time.Duration, bool) {
	for _, route := range idempotencyRoutes {
		if route.method == method && matchTemplate(route.template, path) {
			return route.ttl, true
		}
	}
	return 0, false
}

func matchTemplate(template, path string) bool {
	want := strings.Split(strings.Trim(template, "/"), "/")
	got := strings.Split(strings.Trim(path, "/"), "/")
	if len(want) != len(got) {
		return false
	}
	for i, segment := range want {
		if strings.HasPrefix(segment, "{") {
			if got[i] == "" {
				return false
			}
			continue
		}
		if segment != got[i] {
			return false
		}
	}
	return true
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseCapture) statusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}
