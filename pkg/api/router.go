// Package api wires the S3-compatible wire surface together:
// authentication, routing, and the per-request metrics every handler
// reports through.
package api

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/fula-project/gateway/internal/logger"
	apiauth "github.com/fula-project/gateway/pkg/api/auth"
	"github.com/fula-project/gateway/pkg/api/handlers"
	apimiddleware "github.com/fula-project/gateway/pkg/api/middleware"
	"github.com/fula-project/gateway/pkg/blockstore"
	"github.com/fula-project/gateway/pkg/bucket"
	"github.com/fula-project/gateway/pkg/config"
	"github.com/fula-project/gateway/pkg/metrics"
)

// NewRouter builds the gateway's HTTP router: liveness/readiness probes
// unauthenticated, everything else behind cfg.Auth.
func NewRouter(cfg *config.Config, store blockstore.BlockStore, mgr *bucket.Manager, jwtSvc *apiauth.JWTService, m metrics.APIMetrics) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)
	if cfg.Server.MaxRequestBodyBytes > 0 {
		r.Use(bodyLimit(int64(cfg.Server.MaxRequestBodyBytes)))
	}

	health := handlers.NewHealthHandler(store, mgr)
	r.Get("/health", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Group(func(r chi.Router) {
		r.Use(apimiddleware.Authenticate(cfg.Auth, jwtSvc, m))
		r.Use(recordMetrics(m))

		bucketH := handlers.NewBucketHandler(mgr, m)
		objectH := handlers.NewObjectHandler(mgr, store, m)

		r.Get("/", bucketH.ListBuckets)

		r.Route("/{bucket}", func(r chi.Router) {
			r.Put("/", bucketH.CreateBucket)
			r.Head("/", bucketH.HeadBucket)
			r.Delete("/", bucketH.DeleteBucket)
			r.Get("/", bucketH.ListObjectsV2)
			r.Post("/", dispatchBucketPost(objectH))

			r.Put("/*", dispatchObjectPut(objectH))
			r.Get("/*", objectH.GetObject)
			r.Head("/*", objectH.HeadObject)
			r.Delete("/*", dispatchObjectDelete(objectH))
			r.Post("/*", dispatchObjectPost(objectH))
		})
	})

	return r
}

// dispatchBucketPost distinguishes POST /{bucket}?delete (multi-object
// delete) from other bucket-level POSTs.
func dispatchBucketPost(h *handlers.ObjectHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.URL.Query()["delete"]; ok {
			h.DeleteMultiple(w, r)
			return
		}
		http.Error(w, "unsupported bucket operation", http.StatusNotImplemented)
	}
}

// dispatchObjectPut distinguishes a multipart UploadPart
// (?uploadId=...&partNumber=...), a CopyObject (x-amz-copy-source header),
// and an ordinary PutObject.
func dispatchObjectPut(h *handlers.ObjectHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("uploadId") != "" && q.Get("partNumber") != "":
			h.UploadPart(w, r)
		case r.Header.Get("X-Amz-Copy-Source") != "":
			h.CopyObject(w, r)
		default:
			h.PutObject(w, r)
		}
	}
}

// dispatchObjectDelete distinguishes AbortMultipartUpload
// (?uploadId=...) from an ordinary DeleteObject.
func dispatchObjectDelete(h *handlers.ObjectHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("uploadId") != "" {
			h.AbortMultipartUpload(w, r)
			return
		}
		h.DeleteObject(w, r)
	}
}

// dispatchObjectPost distinguishes InitiateMultipartUpload (?uploads) from
// CompleteMultipartUpload (?uploadId=...).
func dispatchObjectPost(h *handlers.ObjectHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Has("uploads"):
			h.InitiateMultipartUpload(w, r)
		case q.Get("uploadId") != "":
			h.CompleteMultipartUpload(w, r)
		default:
			http.Error(w, "unsupported object operation", http.StatusNotImplemented)
		}
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.RemoteAddr
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			clientIP = host
		}
		lc := logger.NewLogContext(clientIP).
			WithRequestID(chimiddleware.GetReqID(r.Context()))
		ctx := logger.WithContext(r.Context(), lc)
		r = r.WithContext(ctx)

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.InfoCtx(ctx, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", logger.Duration(start),
		)
	})
}

func bodyLimit(max int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, max)
			next.ServeHTTP(w, r)
		})
	}
}

// recordMetrics wraps every authenticated S3 request with
// RecordRequestStart/End and RecordRequest, using the route's verb as
// chi understands it (method + whether it targets a bucket or an object).
func recordMetrics(m metrics.APIMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			verb := s3Verb(r)
			bucketName := chi.URLParam(r, "bucket")

			if lc := logger.FromContext(r.Context()); lc != nil {
				enriched := lc.WithVerb(verb).WithObject(bucketName, chi.URLParam(r, "*"))
				if claims := apimiddleware.ClaimsFromContext(r.Context()); claims != nil {
					enriched = enriched.WithOwner(claims.Subject)
				}
				r = r.WithContext(logger.WithContext(r.Context(), enriched))
			}

			if m == nil {
				next.ServeHTTP(w, r)
				return
			}

			m.RecordRequestStart(verb, bucketName)
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			m.RecordRequestEnd(verb, bucketName)

			errorCode := ""
			if ww.Status() >= 400 {
				errorCode = http.StatusText(ww.Status())
			}
			m.RecordRequest(verb, bucketName, time.Since(start), errorCode)
		})
	}
}

// s3Verb maps a request onto an S3 API-name label for metrics, mirroring
// the operation dispatchObject*/dispatchBucket* would route to.
func s3Verb(r *http.Request) string {
	q := r.URL.Query()
	hasKey := chi.URLParam(r, "*") != ""

	switch r.Method {
	case http.MethodPut:
		switch {
		case !hasKey:
			return "CreateBucket"
		case r.Header.Get("X-Amz-Copy-Source") != "":
			return "CopyObject"
		case q.Get("uploadId") != "":
			return "UploadPart"
		default:
			return "PutObject"
		}
	case http.MethodGet:
		if hasKey {
			return "GetObject"
		}
		if chi.URLParam(r, "bucket") == "" {
			return "ListBuckets"
		}
		return "ListObjectsV2"
	case http.MethodHead:
		if hasKey {
			return "HeadObject"
		}
		return "HeadBucket"
	case http.MethodDelete:
		switch {
		case !hasKey:
			return "DeleteBucket"
		case q.Get("uploadId") != "":
			return "AbortMultipartUpload"
		default:
			return "DeleteObject"
		}
	case http.MethodPost:
		switch {
		case q.Has("delete"):
			return "DeleteObjects"
		case q.Has("uploads"):
			return "InitiateMultipartUpload"
		case q.Get("uploadId") != "":
			return "CompleteMultipartUpload"
		}
	}
	return "Unknown"
}
