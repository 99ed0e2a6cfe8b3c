package handlers

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fula-project/gateway/pkg/blockstore"
	"github.com/fula-project/gateway/pkg/bucket"
	"github.com/fula-project/gateway/pkg/metrics"
)

// ObjectHandler serves the object-level S3 surface: PutObject,
// GetObject, HeadObject, DeleteObject, CopyObject, multi-object delete, and
// a minimal multipart-upload handshake.
type ObjectHandler struct {
	mgr     *bucket.Manager
	store   blockstore.BlockStore
	metrics metrics.APIMetrics

	uploads *uploadTracker
}

// NewObjectHandler builds an ObjectHandler over mgr/store. m may be nil.
func NewObjectHandler(mgr *bucket.Manager, store blockstore.BlockStore, m metrics.APIMetrics) *ObjectHandler {
	return &ObjectHandler{mgr: mgr, store: store, metrics: m, uploads: newUploadTracker()}
}

func objectRouteParams(r *http.Request) (bucketName, key string) {
	bucketName = chi.URLParam(r, "bucket")
	key = chi.URLParam(r, "*")
	return
}

func (h *ObjectHandler) openBucket(w http.ResponseWriter, r *http.Request, name string) (*bucket.Bucket, bool) {
	b, err := h.mgr.OpenBucket(r.Context(), name)
	if err == bucket.ErrBucketNotFound {
		WriteS3Error(w, r, ErrNoSuchBucket, name)
		return nil, false
	}
	if err != nil {
		WriteS3ErrorMessage(w, r, ErrInternalError, name, err.Error())
		return nil, false
	}
	return b, true
}

// PutObject handles PUT /{bucket}/{key} (ordinary, non-multipart upload).
func (h *ObjectHandler) PutObject(w http.ResponseWriter, r *http.Request) {
	bucketName, key := objectRouteParams(r)
	resource := bucketName + "/" + key

	b, ok := h.openBucket(w, r, bucketName)
	if !ok {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		WriteS3ErrorMessage(w, r, ErrInvalidArgument, resource, "failed to read request body")
		return
	}

	if expected := r.Header.Get("Content-MD5"); expected != "" {
		if !validContentMD5(expected, body) {
			WriteS3Error(w, r, ErrInvalidDigest, resource)
			return
		}
	}

	addr, etag, err := putObjectBody(r.Context(), h.store, body)
	if err != nil {
		WriteS3ErrorMessage(w, r, ErrInternalError, resource, err.Error())
		return
	}

	meta := bucket.ObjectMetadata{
		ContentAddress: addr,
		Size:           uint64(len(body)),
		ETag:           etag,
		StorageClass:   "STANDARD",
		ContentType:    r.Header.Get("Content-Type"),
		OwnerID:        ownerID(r),
		UserMetadata:   userMetadataFromHeaders(r),
	}
	if _, err := b.PutObject(r.Context(), key, meta); err != nil {
		WriteS3ErrorMessage(w, r, ErrInternalError, resource, err.Error())
		return
	}

	if h.metrics != nil {
		h.metrics.RecordBytesTransferred("PutObject", bucketName, "write", uint64(len(body)))
	}
	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusOK)
}

// GetObject handles GET /{bucket}/{key}, including Range and conditional
// requests.
func (h *ObjectHandler) GetObject(w http.ResponseWriter, r *http.Request) {
	bucketName, key := objectRouteParams(r)
	resource := bucketName + "/" + key

	b, ok := h.openBucket(w, r, bucketName)
	if !ok {
		return
	}

	meta, found, err := b.GetObject(r.Context(), key)
	if err != nil {
		WriteS3ErrorMessage(w, r, ErrInternalError, resource, err.Error())
		return
	}
	if !found {
		WriteS3Error(w, r, ErrNoSuchKey, resource)
		return
	}

	if notModified(r, meta) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	writeObjectHeaders(w, meta)

	if rangeHeader := r.Header.Get("Range"); rangeHeader != "" {
		offset, length, ok := parseRange(rangeHeader, meta.Size)
		if !ok {
			w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", meta.Size))
			WriteS3Error(w, r, ErrInvalidRange, resource)
			return
		}
		data, err := getObjectBodyRange(r.Context(), h.store, meta.ContentAddress, meta.Size, offset, length)
		if err != nil {
			WriteS3ErrorMessage(w, r, ErrInternalError, resource, err.Error())
			return
		}
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, offset+uint64(len(data))-1, meta.Size))
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write(data)
		if h.metrics != nil {
			h.metrics.RecordBytesTransferred("GetObject", bucketName, "read", uint64(len(data)))
		}
		return
	}

	data, err := getObjectBody(r.Context(), h.store, meta.ContentAddress, meta.Size)
	if err != nil {
		WriteS3ErrorMessage(w, r, ErrInternalError, resource, err.Error())
		return
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
	if h.metrics != nil {
		h.metrics.RecordBytesTransferred("GetObject", bucketName, "read", uint64(len(data)))
	}
}

// HeadObject handles HEAD /{bucket}/{key}.
func (h *ObjectHandler) HeadObject(w http.ResponseWriter, r *http.Request) {
	bucketName, key := objectRouteParams(r)
	resource := bucketName + "/" + key

	b, ok := h.openBucket(w, r, bucketName)
	if !ok {
		return
	}

	meta, found, err := b.GetObject(r.Context(), key)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if !found {
		WriteS3Error(w, r, ErrNoSuchKey, resource)
		return
	}
	if notModified(r, meta) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeObjectHeaders(w, meta)
	w.Header().Set("Content-Length", strconv.FormatUint(meta.Size, 10))
	w.WriteHeader(http.StatusOK)
}

// DeleteObject handles DELETE /{bucket}/{key}. Deleting a missing key is
// not an error, matching S3 semantics.
func (h *ObjectHandler) DeleteObject(w http.ResponseWriter, r *http.Request) {
	bucketName, key := objectRouteParams(r)
	resource := bucketName + "/" + key

	b, ok := h.openBucket(w, r, bucketName)
	if !ok {
		return
	}

	meta, found, _ := b.GetObject(r.Context(), key)
	if err := b.DeleteObject(r.Context(), key); err != nil {
		WriteS3ErrorMessage(w, r, ErrInternalError, resource, err.Error())
		return
	}
	if found {
		_ = deleteObjectBody(r.Context(), h.store, meta.ContentAddress, meta.Size)
	}
	w.WriteHeader(http.StatusNoContent)
}

// CopyObject handles PUT /{bucket}/{key} with an x-amz-copy-source header.
func (h *ObjectHandler) CopyObject(w http.ResponseWriter, r *http.Request) {
	bucketName, dstKey := objectRouteParams(r)
	resource := bucketName + "/" + dstKey

	srcBucket, srcKey, ok := parseCopySource(r.Header.Get("X-Amz-Copy-Source"))
	if !ok {
		WriteS3Error(w, r, ErrInvalidArgument, resource)
		return
	}

	src, ok := h.openBucket(w, r, srcBucket)
	if !ok {
		return
	}

	var dst *bucket.Bucket
	if srcBucket == bucketName {
		dst = src
	} else {
		dst, ok = h.openBucket(w, r, bucketName)
		if !ok {
			return
		}
	}

	if src == dst {
		meta, err := src.CopyObject(r.Context(), srcKey, dstKey)
		if err == bucket.ErrObjectNotFound {
			WriteS3Error(w, r, ErrNoSuchKey, srcBucket+"/"+srcKey)
			return
		}
		if err != nil {
			WriteS3ErrorMessage(w, r, ErrInternalError, resource, err.Error())
			return
		}
		writeXML(w, http.StatusOK, xmlCopyObjectResult{ETag: meta.ETag, LastModified: meta.ModifiedAt})
		return
	}

	meta, found, err := src.GetObject(r.Context(), srcKey)
	if err != nil {
		WriteS3ErrorMessage(w, r, ErrInternalError, resource, err.Error())
		return
	}
	if !found {
		WriteS3Error(w, r, ErrNoSuchKey, srcBucket+"/"+srcKey)
		return
	}
	meta.CreatedAt, meta.ModifiedAt = time.Time{}, time.Time{}
	if _, err := dst.PutObject(r.Context(), dstKey, meta); err != nil {
		WriteS3ErrorMessage(w, r, ErrInternalError, resource, err.Error())
		return
	}
	copied, _, _ := dst.GetObject(r.Context(), dstKey)
	writeXML(w, http.StatusOK, xmlCopyObjectResult{ETag: copied.ETag, LastModified: copied.ModifiedAt})
}

// DeleteMultiple handles POST /{bucket}?delete.
func (h *ObjectHandler) DeleteMultiple(w http.ResponseWriter, r *http.Request) {
	bucketName := chi.URLParam(r, "bucket")

	b, ok := h.openBucket(w, r, bucketName)
	if !ok {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		WriteS3ErrorMessage(w, r, ErrInvalidArgument, bucketName, "failed to read request body")
		return
	}
	var req xmlDeleteRequest
	if err := xml.Unmarshal(body, &req); err != nil {
		WriteS3ErrorMessage(w, r, ErrInvalidArgument, bucketName, "malformed delete request")
		return
	}

	result := xmlDeleteResult{Xmlns: s3Xmlns}
	for _, obj := range req.Objects {
		meta, found, _ := b.GetObject(r.Context(), obj.Key)
		if err := b.DeleteObject(r.Context(), obj.Key); err != nil {
			result.Errors = append(result.Errors, xmlDeleteErr{Key: obj.Key, Code: ErrInternalError.Code, Message: err.Error()})
			continue
		}
		if found {
			_ = deleteObjectBody(r.Context(), h.store, meta.ContentAddress, meta.Size)
		}
		if !req.Quiet {
			result.Deleted = append(result.Deleted, xmlDeleted{Key: obj.Key})
		}
	}
	writeXML(w, http.StatusOK, result)
}

func userMetadataFromHeaders(r *http.Request) map[string]string {
	const prefix = "X-Amz-Meta-"
	meta := map[string]string{}
	for k, v := range r.Header {
		if len(v) == 0 {
			continue
		}
		if strings.HasPrefix(strings.ToLower(k), strings.ToLower(prefix)) {
			name := strings.ToLower(strings.TrimPrefix(k, k[:len(prefix)]))
			meta[name] = v[0]
		}
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

func writeObjectHeaders(w http.ResponseWriter, meta bucket.ObjectMetadata) {
	w.Header().Set("ETag", meta.ETag)
	w.Header().Set("Last-Modified", meta.ModifiedAt.UTC().Format(http.TimeFormat))
	w.Header().Set("Accept-Ranges", "bytes")
	if meta.ContentType != "" {
		w.Header().Set("Content-Type", meta.ContentType)
	}
	if meta.ContentEncoding != "" {
		w.Header().Set("Content-Encoding", meta.ContentEncoding)
	}
	if meta.CacheControl != "" {
		w.Header().Set("Cache-Control", meta.CacheControl)
	}
	if meta.ContentDisposition != "" {
		w.Header().Set("Content-Disposition", meta.ContentDisposition)
	}
	for k, v := range meta.UserMetadata {
		w.Header().Set("x-amz-meta-"+k, v)
	}
}

func notModified(r *http.Request, meta bucket.ObjectMetadata) bool {
	if inm := r.Header.Get("If-None-Match"); inm != "" {
		return inm == meta.ETag || inm == "*"
	}
	if ims := r.Header.Get("If-Modified-Since"); ims != "" {
		t, err := http.ParseTime(ims)
		if err == nil && !meta.ModifiedAt.After(t) {
			return true
		}
	}
	return false
}

// parseRange parses a single-range "bytes=start-end" header against size.
func parseRange(header string, size uint64) (offset, length uint64, ok bool) {
	spec := strings.TrimPrefix(header, "bytes=")
	if spec == header {
		return 0, 0, false
	}
	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}

	if parts[0] == "" {
		suffix, err := strconv.ParseUint(parts[1], 10, 64)
		if err != nil || suffix == 0 {
			return 0, 0, false
		}
		if suffix > size {
			suffix = size
		}
		return size - suffix, suffix, true
	}

	start, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil || start >= size {
		return 0, 0, false
	}
	if parts[1] == "" {
		return start, size - start, true
	}
	end, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil || end < start {
		return 0, 0, false
	}
	if end >= size {
		end = size - 1
	}
	return start, end - start + 1, true
}

// parseCopySource parses an x-amz-copy-source header of form
// "/bucket/key" or "bucket/key".
func parseCopySource(header string) (bucketName, key string, ok bool) {
	header = strings.TrimPrefix(header, "/")
	idx := strings.Index(header, "/")
	if idx <= 0 {
		return "", "", false
	}
	return header[:idx], header[idx+1:], true
}

// uploadTracker holds the in-progress multipart uploads keyed by
// uploadId. Parts are buffered in
// memory and assembled into a single body on CompleteMultipartUpload;
// there is no cross-process coordination, matching this gateway's
// single-process Manager scope.
type uploadTracker struct {
	mu      sync.Mutex
	nextID  uint64
	uploads map[string]*multipartUpload
}

type multipartUpload struct {
	bucket string
	key    string
	parts  map[int][]byte
}

func newUploadTracker() *uploadTracker {
	return &uploadTracker{uploads: make(map[string]*multipartUpload)}
}

func (t *uploadTracker) create(bucketName, key string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	id := strconv.FormatUint(t.nextID, 10)
	t.uploads[id] = &multipartUpload{bucket: bucketName, key: key, parts: make(map[int][]byte)}
	return id
}

func (t *uploadTracker) putPart(uploadID string, partNumber int, data []byte) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	u, ok := t.uploads[uploadID]
	if !ok {
		return "", false
	}
	u.parts[partNumber] = data
	return contentMD5(data), true
}

func (t *uploadTracker) complete(uploadID string, partNumbers []int) ([]byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	u, ok := t.uploads[uploadID]
	if !ok {
		return nil, false
	}
	var out []byte
	for _, n := range partNumbers {
		out = append(out, u.parts[n]...)
	}
	delete(t.uploads, uploadID)
	return out, true
}

func (t *uploadTracker) abort(uploadID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.uploads, uploadID)
}

// InitiateMultipartUpload handles POST /{bucket}/{key}?uploads.
func (h *ObjectHandler) InitiateMultipartUpload(w http.ResponseWriter, r *http.Request) {
	bucketName, key := objectRouteParams(r)
	if _, ok := h.openBucket(w, r, bucketName); !ok {
		return
	}
	uploadID := h.uploads.create(bucketName, key)
	writeXML(w, http.StatusOK, struct {
		XMLName  xml.Name `xml:"InitiateMultipartUploadResult"`
		Bucket   string   `xml:"Bucket"`
		Key      string   `xml:"Key"`
		UploadID string   `xml:"UploadId"`
	}{Bucket: bucketName, Key: key, UploadID: uploadID})
}

// UploadPart handles PUT /{bucket}/{key}?uploadId=...&partNumber=....
func (h *ObjectHandler) UploadPart(w http.ResponseWriter, r *http.Request) {
	bucketName, key := objectRouteParams(r)
	resource := bucketName + "/" + key

	uploadID := r.URL.Query().Get("uploadId")
	partNumber, err := strconv.Atoi(r.URL.Query().Get("partNumber"))
	if err != nil || partNumber < 1 {
		WriteS3Error(w, r, ErrInvalidArgument, resource)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		WriteS3ErrorMessage(w, r, ErrInvalidArgument, resource, "failed to read part body")
		return
	}

	etag, ok := h.uploads.putPart(uploadID, partNumber, body)
	if !ok {
		WriteS3Error(w, r, ErrNoSuchUpload, resource)
		return
	}
	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusOK)
}

// xmlCompleteMultipartUpload is the POST /{bucket}/{key}?uploadId=...
// request body listing parts in order.
type xmlCompleteMultipartUpload struct {
	XMLName xml.Name `xml:"CompleteMultipartUpload"`
	Parts   []struct {
		PartNumber int    `xml:"PartNumber"`
		ETag       string `xml:"ETag"`
	} `xml:"Part"`
}

// CompleteMultipartUpload handles POST /{bucket}/{key}?uploadId=....
func (h *ObjectHandler) CompleteMultipartUpload(w http.ResponseWriter, r *http.Request) {
	bucketName, key := objectRouteParams(r)
	resource := bucketName + "/" + key

	b, ok := h.openBucket(w, r, bucketName)
	if !ok {
		return
	}

	uploadID := r.URL.Query().Get("uploadId")
	body, err := io.ReadAll(r.Body)
	if err != nil {
		WriteS3ErrorMessage(w, r, ErrInvalidArgument, resource, "failed to read request body")
		return
	}
	var req xmlCompleteMultipartUpload
	if err := xml.Unmarshal(body, &req); err != nil {
		WriteS3ErrorMessage(w, r, ErrInvalidArgument, resource, "malformed complete request")
		return
	}

	partNumbers := make([]int, 0, len(req.Parts))
	for _, p := range req.Parts {
		partNumbers = append(partNumbers, p.PartNumber)
	}

	full, ok := h.uploads.complete(uploadID, partNumbers)
	if !ok {
		WriteS3Error(w, r, ErrNoSuchUpload, resource)
		return
	}

	addr, etag, err := putObjectBody(r.Context(), h.store, full)
	if err != nil {
		WriteS3ErrorMessage(w, r, ErrInternalError, resource, err.Error())
		return
	}
	meta := bucket.ObjectMetadata{
		ContentAddress: addr,
		Size:           uint64(len(full)),
		ETag:           etag,
		StorageClass:   "STANDARD",
		OwnerID:        ownerID(r),
	}
	if _, err := b.PutObject(r.Context(), key, meta); err != nil {
		WriteS3ErrorMessage(w, r, ErrInternalError, resource, err.Error())
		return
	}

	writeXML(w, http.StatusOK, struct {
		XMLName xml.Name `xml:"CompleteMultipartUploadResult"`
		Bucket  string   `xml:"Bucket"`
		Key     string   `xml:"Key"`
		ETag    string   `xml:"ETag"`
	}{Bucket: bucketName, Key: key, ETag: etag})
}

// AbortMultipartUpload handles DELETE /{bucket}/{key}?uploadId=....
func (h *ObjectHandler) AbortMultipartUpload(w http.ResponseWriter, r *http.Request) {
	uploadID := r.URL.Query().Get("uploadId")
	h.uploads.abort(uploadID)
	w.WriteHeader(http.StatusNoContent)
}
