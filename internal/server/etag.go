package server

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// ETagMiddleware adds ETag and Last-Modified to API responses. The report
// is fixed for the life of the server, so Last-Modified is the start time.
type ETagMiddleware struct {
	logger       *zap.Logger
	lastModified time.Time
}

// NewETagMiddleware creates a new ETag middleware
func NewETagMiddleware(logger *zap.Logger, lastModified time.Time) *ETagMiddleware {
	return &ETagMiddleware{
		logger:       logger,
		lastModified: lastModified.UTC().Truncate(time.Second),
	}
}

// Middleware returns the ETag middleware handler
func (em *ETagMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only apply to safe GET requests
		if r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}

		recorder := &etagRecorder{header: make(http.Header), status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		for k, v := range recorder.header {
			w.Header()[k] = v
		}

		if recorder.status != http.StatusOK || recorder.body.Len() == 0 {
			w.WriteHeader(recorder.status)
			w.Write(recorder.body.Bytes())
			return
		}

		etag := calculateETag(recorder.body.Bytes())
		w.Header().Set("ETag", `"`+etag+`"`)
		w.Header().Set("Last-Modified", em.lastModified.Format(http.TimeFormat))
		w.Header().Set("Cache-Control", "public, max-age=60")

		if em.notModified(r, etag) {
			em.logger.Debug("ETag matched, serving 304",
				zap.String("path", r.URL.Path),
				zap.String("etag", etag),
				zap.String("request_id", middleware.GetReqID(r.Context())))
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write(recorder.body.Bytes())
	})
}

// notModified checks If-None-Match first and falls back to If-Modified-Since
func (em *ETagMiddleware) notModified(r *http.Request, etag string) bool {
	if clientETag := r.Header.Get("If-None-Match"); clientETag != "" {
		return etagMatches(clientETag, etag)
	}
	if modSince := r.Header.Get("If-Modified-Since"); modSince != "" {
		if clientTime, err := http.ParseTime(modSince); err == nil {
			return !em.lastModified.After(clientTime)
		}
	}
	return false
}

// calculateETag hashes the response body
func calculateETag(content []byte) string {
	return fmt.Sprintf("%x", md5.Sum(content))[:16]
}

// etagMatches checks a (possibly quoted or weak) client ETag list against ours
func etagMatches(clientETags, serverETag string) bool {
	for _, tag := range strings.Split(clientETags, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "*" {
			return true
		}
		tag = strings.TrimPrefix(tag, "W/")
		if strings.Trim(tag, `"`) == serverETag {
			return true
		}
	}
	return false
}

// etagRecorder buffers a response so headers can be added after the handler ran
type etagRecorder struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func (r *etagRecorder) Header() http.Header {
	return r.header
}

func (r *etagRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
}

func (r *etagRecorder) Write(data []byte) (int, error) {
	return r.body.Write(data)
}
