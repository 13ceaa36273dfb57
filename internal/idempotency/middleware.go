package idempotency

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	HeaderKey    = "Idempotency-Key"
	HeaderReplay = "Idempotent-Replay"
)

type recorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *recorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// Middleware stores the first response for each Idempotency-Key (scoped to method and path)
// and serves it again for later requests carrying the same key. The key is reserved before the
// handler runs, so a retry arriving while the first request is still running gets 409 instead
// of running twice. Requests without the header pass through; 5xx responses release the key.
func Middleware(st Store, ttl time.Duration, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(HeaderKey)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			storeKey := "idempotency:" + r.Method + ":" + r.URL.Path + ":" + key

			resp, state, err := st.Reserve(r.Context(), storeKey)
			if err != nil {
				logger.Warn("idempotency lookup failed", zap.String("key", key), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			switch state {
			case InFlight:
				http.Error(w, "a request with this Idempotency-Key is still in progress", http.StatusConflict)
				return
			case Completed:
				if resp.ContentType != "" {
					w.Header().Set("Content-Type", resp.ContentType)
				}
				w.Header().Set(HeaderReplay, "true")
				w.WriteHeader(resp.Status)
				_, _ = w.Write(resp.Body)
				return
			}

			stored := false
			defer func() {
				if stored {
					return
				}
				if err := st.Release(context.WithoutCancel(r.Context()), storeKey); err != nil {
					logger.Warn("idempotency release failed", zap.String("key", key), zap.Error(err))
				}
			}()

			rec := &recorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			if rec.status == 0 || rec.status >= http.StatusInternalServerError {
				return
			}
			saved := Response{
				Status:      rec.status,
				ContentType: w.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
			}
			if err := st.Put(context.WithoutCancel(r.Context()), storeKey, saved, ttl); err != nil {
				logger.Warn("idempotency store failed", zap.String("key", key), zap.Error(err))
				return
			}
			stored = true
		})
	}
}
