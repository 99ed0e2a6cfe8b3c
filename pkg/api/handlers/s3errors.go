package handlers

import (
	"encoding/xml"
	"net/http"
)

// S3Error is a wire-level S3 error code plus the HTTP status it maps to.
type S3Error struct {
	Code       string
	HTTPStatus int
}

var (
	ErrNoSuchBucket     = S3Error{"NoSuchBucket", http.StatusNotFound}
	ErrNoSuchKey        = S3Error{"NoSuchKey", http.StatusNotFound}
	ErrBucketAlreadyExists = S3Error{"BucketAlreadyExists", http.StatusConflict}
	ErrBucketNotEmpty   = S3Error{"BucketNotEmpty", http.StatusConflict}
	ErrInvalidBucketName = S3Error{"InvalidBucketName", http.StatusBadRequest}
	ErrInvalidDigest    = S3Error{"InvalidDigest", http.StatusBadRequest}
	ErrInvalidRange     = S3Error{"InvalidRange", http.StatusRequestedRangeNotSatisfiable}
	ErrAccessDenied     = S3Error{"AccessDenied", http.StatusForbidden}
	ErrInvalidToken     = S3Error{"InvalidToken", http.StatusForbidden}
	ErrInvalidArgument  = S3Error{"InvalidArgument", http.StatusBadRequest}
	ErrPreconditionFailed = S3Error{"PreconditionFailed", http.StatusPreconditionFailed}
	ErrInternalError    = S3Error{"InternalError", http.StatusInternalServerError}
	ErrNoSuchUpload     = S3Error{"NoSuchUpload", http.StatusNotFound}
	ErrMethodNotAllowed = S3Error{"MethodNotAllowed", http.StatusMethodNotAllowed}
)

// xmlErrorResponse is the S3 XML error body shape.
type xmlErrorResponse struct {
	XMLName   xml.Name `xml:"Error"`
	Code      string   `xml:"Code"`
	Message   string   `xml:"Message"`
	Resource  string   `xml:"Resource,omitempty"`
	RequestID string   `xml:"RequestId,omitempty"`
}

// WriteS3Error writes an S3-compatible XML error response. resource is
// the "{bucket}/{key}" (or "{bucket}") string echoed back to the caller.
func WriteS3Error(w http.ResponseWriter, r *http.Request, e S3Error, resource string) {
	WriteS3ErrorMessage(w, r, e, resource, e.Code)
}

// WriteS3ErrorMessage is WriteS3Error with a caller-supplied message instead
// of the bare error code.
func WriteS3ErrorMessage(w http.ResponseWriter, r *http.Request, e S3Error, resource, message string) {
	body := xmlErrorResponse{
		Code:      e.Code,
		Message:   message,
		Resource:  resource,
		RequestID: r.Header.Get("X-Request-Id"),
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(e.HTTPStatus)
	_, _ = w.Write([]byte(xml.Header))
	_ = xml.NewEncoder(w).Encode(body)
}
