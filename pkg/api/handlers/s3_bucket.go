package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fula-project/gateway/pkg/api/middleware"
	"github.com/fula-project/gateway/pkg/bucket"
	"github.com/fula-project/gateway/pkg/metrics"
)

// BucketHandler serves the bucket-level S3 surface: CreateBucket,
// HeadBucket, DeleteBucket, ListObjectsV2, and the account-level
// ListBuckets.
type BucketHandler struct {
	mgr     *bucket.Manager
	metrics metrics.APIMetrics
}

// NewBucketHandler builds a BucketHandler over mgr. m may be nil.
func NewBucketHandler(mgr *bucket.Manager, m metrics.APIMetrics) *BucketHandler {
	return &BucketHandler{mgr: mgr, metrics: m}
}

func ownerID(r *http.Request) string {
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		return claims.Subject
	}
	return ""
}

// CreateBucket handles PUT /{bucket}.
func (h *BucketHandler) CreateBucket(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "bucket")
	_, err := h.mgr.CreateBucket(r.Context(), name, ownerID(r))
	switch err {
	case nil:
		w.Header().Set("Location", "/"+name)
		w.WriteHeader(http.StatusOK)
	case bucket.ErrInvalidBucketName:
		WriteS3Error(w, r, ErrInvalidBucketName, name)
	case bucket.ErrBucketAlreadyExists:
		WriteS3Error(w, r, ErrBucketAlreadyExists, name)
	default:
		WriteS3ErrorMessage(w, r, ErrInternalError, name, err.Error())
	}
}

// HeadBucket handles HEAD /{bucket}.
func (h *BucketHandler) HeadBucket(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "bucket")
	exists, err := h.mgr.BucketExists(r.Context(), name)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if !exists {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// DeleteBucket handles DELETE /{bucket}.
func (h *BucketHandler) DeleteBucket(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "bucket")
	err := h.mgr.DeleteBucket(r.Context(), name)
	switch err {
	case nil:
		w.WriteHeader(http.StatusNoContent)
	case bucket.ErrBucketNotFound:
		WriteS3Error(w, r, ErrNoSuchBucket, name)
	case bucket.ErrBucketNotEmpty:
		WriteS3Error(w, r, ErrBucketNotEmpty, name)
	default:
		WriteS3ErrorMessage(w, r, ErrInternalError, name, err.Error())
	}
}

// ListBuckets handles GET /.
func (h *BucketHandler) ListBuckets(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	all, err := h.mgr.ListBuckets(r.Context())
	if err != nil {
		WriteS3ErrorMessage(w, r, ErrInternalError, "", err.Error())
		return
	}

	result := xmlListAllMyBucketsResult{
		Xmlns: s3Xmlns,
		Owner: xmlOwner{ID: owner, DisplayName: owner},
	}
	for _, meta := range all {
		if owner != "" && meta.OwnerID != owner {
			continue
		}
		result.Buckets.Bucket = append(result.Buckets.Bucket, xmlBucket{
			Name:         meta.Name,
			CreationDate: meta.CreatedAt,
		})
	}
	writeXML(w, http.StatusOK, result)
}

// ListObjectsV2 handles GET /{bucket}?list-type=2.
func (h *BucketHandler) ListObjectsV2(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "bucket")
	b, err := h.mgr.OpenBucket(r.Context(), name)
	if err == bucket.ErrBucketNotFound {
		WriteS3Error(w, r, ErrNoSuchBucket, name)
		return
	} else if err != nil {
		WriteS3ErrorMessage(w, r, ErrInternalError, name, err.Error())
		return
	}

	q := r.URL.Query()
	prefix := q.Get("prefix")
	delimiter := q.Get("delimiter")
	startAfter := q.Get("start-after")
	continuationToken := q.Get("continuation-token")
	maxKeys := 1000
	if v := q.Get("max-keys"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxKeys = n
		}
	}

	result, err := b.ListObjects(r.Context(), prefix, delimiter, startAfter, continuationToken, maxKeys)
	if err != nil {
		WriteS3ErrorMessage(w, r, ErrInternalError, name, err.Error())
		return
	}

	resp := xmlListBucketResult{
		Xmlns:                 s3Xmlns,
		Name:                  name,
		Prefix:                prefix,
		Delimiter:             delimiter,
		MaxKeys:               maxKeys,
		IsTruncated:           result.IsTruncated,
		NextContinuationToken: result.NextContinuationToken,
		ContinuationToken:     continuationToken,
		StartAfter:            startAfter,
		KeyCount:              len(result.Objects) + len(result.CommonPrefixes),
	}
	for _, obj := range result.Objects {
		resp.Contents = append(resp.Contents, xmlObject{
			Key:          obj.Key,
			LastModified: obj.Metadata.ModifiedAt,
			ETag:         obj.Metadata.ETag,
			Size:         obj.Metadata.Size,
			StorageClass: obj.Metadata.StorageClass,
		})
	}
	for _, cp := range result.CommonPrefixes {
		resp.CommonPrefixes = append(resp.CommonPrefixes, xmlCommonPrefix{Prefix: cp})
	}
	writeXML(w, http.StatusOK, resp)
}
