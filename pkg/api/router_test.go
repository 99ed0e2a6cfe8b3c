package api

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apiauth "github.com/fula-project/gateway/pkg/api/auth"
	"github.com/fula-project/gateway/pkg/blockstore/memory"
	"github.com/fula-project/gateway/pkg/bucket"
	"github.com/fula-project/gateway/pkg/config"
)

const testJWTSecret = "test-secret-test-secret-test-secret!"

type gatewayFixture struct {
	router http.Handler
	token  string
}

func newGateway(t *testing.T) *gatewayFixture {
	t.Helper()

	cfg := config.GetDefaultConfig()
	cfg.Auth.Mode = config.AuthModeJWT
	cfg.Auth.JWT.Secret = testJWTSecret
	cfg.Auth.JWT.AccessTokenDuration = time.Hour
	cfg.Server.MaxRequestBodyBytes = 0

	store := memory.New()
	mgr := bucket.NewManager(store, store, bucket.NewMemoryRegistry(), "test-node")
	jwtSvc := apiauth.NewJWTService(cfg.Auth.JWT)

	token, _, err := jwtSvc.IssueAccessToken("test-owner", false)
	require.NoError(t, err)

	return &gatewayFixture{
		router: NewRouter(cfg, store, mgr, jwtSvc, nil),
		token:  token,
	}
}

func (g *gatewayFixture) do(t *testing.T, method, target string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Authorization", "Bearer "+g.token)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	g.router.ServeHTTP(w, req)
	return w
}

func quotedMD5(body []byte) string {
	sum := md5.Sum(body)
	return fmt.Sprintf("%q", hex.EncodeToString(sum[:]))
}

func TestUnauthenticatedRequestRejected(t *testing.T) {
	g := newGateway(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	g.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthNeedsNoAuth(t *testing.T) {
	g := newGateway(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	g.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestPutGetHeadDeleteObject(t *testing.T) {
	g := newGateway(t)
	require.Equal(t, http.StatusOK, g.do(t, http.MethodPut, "/bkt", nil, nil).Code)

	body := []byte("Hello")
	wantETag := quotedMD5(body)

	put := g.do(t, http.MethodPut, "/bkt/hello.txt", body, nil)
	require.Equal(t, http.StatusOK, put.Code)
	require.Equal(t, wantETag, put.Header().Get("ETag"))

	head := g.do(t, http.MethodHead, "/bkt/hello.txt", nil, nil)
	require.Equal(t, http.StatusOK, head.Code)
	require.Equal(t, wantETag, head.Header().Get("ETag"))
	require.Equal(t, "5", head.Header().Get("Content-Length"))

	get := g.do(t, http.MethodGet, "/bkt/hello.txt", nil, nil)
	require.Equal(t, http.StatusOK, get.Code)
	require.Equal(t, "Hello", get.Body.String())

	del := g.do(t, http.MethodDelete, "/bkt/hello.txt", nil, nil)
	require.Equal(t, http.StatusNoContent, del.Code)

	gone := g.do(t, http.MethodGet, "/bkt/hello.txt", nil, nil)
	require.Equal(t, http.StatusNotFound, gone.Code)
	require.Contains(t, gone.Body.String(), "NoSuchKey")
}

func TestGetObjectOnMissingBucket(t *testing.T) {
	g := newGateway(t)
	w := g.do(t, http.MethodGet, "/no-such-bucket/key", nil, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "NoSuchBucket")
}

func TestPutObjectRejectsBadContentMD5(t *testing.T) {
	g := newGateway(t)
	require.Equal(t, http.StatusOK, g.do(t, http.MethodPut, "/bkt", nil, nil).Code)

	w := g.do(t, http.MethodPut, "/bkt/x", []byte("payload"), map[string]string{
		"Content-MD5": "ZmFrZS1kaWdlc3QtZmFrZS1kaWc=",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "InvalidDigest")
}

func TestRangeRequests(t *testing.T) {
	g := newGateway(t)
	require.Equal(t, http.StatusOK, g.do(t, http.MethodPut, "/bkt", nil, nil).Code)

	body := make([]byte, 10000)
	for i := range body {
		body[i] = byte(i % 251)
	}
	require.Equal(t, http.StatusOK, g.do(t, http.MethodPut, "/bkt/data.bin", body, nil).Code)

	t.Run("FirstThousand", func(t *testing.T) {
		w := g.do(t, http.MethodGet, "/bkt/data.bin", nil, map[string]string{"Range": "bytes=0-999"})
		require.Equal(t, http.StatusPartialContent, w.Code)
		require.Equal(t, "bytes 0-999/10000", w.Header().Get("Content-Range"))
		require.Equal(t, body[:1000], w.Body.Bytes())
	})

	t.Run("SuffixRange", func(t *testing.T) {
		w := g.do(t, http.MethodGet, "/bkt/data.bin", nil, map[string]string{"Range": "bytes=-500"})
		require.Equal(t, http.StatusPartialContent, w.Code)
		require.Equal(t, "bytes 9500-9999/10000", w.Header().Get("Content-Range"))
		require.Equal(t, body[9500:], w.Body.Bytes())
	})

	t.Run("OpenEndedRange", func(t *testing.T) {
		w := g.do(t, http.MethodGet, "/bkt/data.bin", nil, map[string]string{"Range": "bytes=9000-"})
		require.Equal(t, http.StatusPartialContent, w.Code)
		require.Equal(t, "bytes 9000-9999/10000", w.Header().Get("Content-Range"))
		require.Equal(t, body[9000:], w.Body.Bytes())
	})

	t.Run("OutOfBoundsRange", func(t *testing.T) {
		w := g.do(t, http.MethodGet, "/bkt/data.bin", nil, map[string]string{"Range": "bytes=20000-30000"})
		require.Equal(t, http.StatusRequestedRangeNotSatisfiable, w.Code)
		require.Contains(t, w.Body.String(), "InvalidRange")
	})
}

func TestConditionalGet(t *testing.T) {
	g := newGateway(t)
	require.Equal(t, http.StatusOK, g.do(t, http.MethodPut, "/bkt", nil, nil).Code)

	body := []byte("cache me")
	put := g.do(t, http.MethodPut, "/bkt/cached", body, nil)
	require.Equal(t, http.StatusOK, put.Code)
	etag := put.Header().Get("ETag")

	w := g.do(t, http.MethodGet, "/bkt/cached", nil, map[string]string{"If-None-Match": etag})
	require.Equal(t, http.StatusNotModified, w.Code)

	future := time.Now().Add(time.Hour).UTC().Format(http.TimeFormat)
	w = g.do(t, http.MethodGet, "/bkt/cached", nil, map[string]string{"If-Modified-Since": future})
	require.Equal(t, http.StatusNotModified, w.Code)
}

type listResult struct {
	XMLName        xml.Name `xml:"ListBucketResult"`
	KeyCount       int      `xml:"KeyCount"`
	IsTruncated    bool     `xml:"IsTruncated"`
	Contents       []struct {
		Key  string `xml:"Key"`
		ETag string `xml:"ETag"`
		Size uint64 `xml:"Size"`
	} `xml:"Contents"`
	CommonPrefixes []struct {
		Prefix string `xml:"Prefix"`
	} `xml:"CommonPrefixes"`
	NextContinuationToken string `xml:"NextContinuationToken"`
}

func TestListObjectsWithDelimiter(t *testing.T) {
	g := newGateway(t)
	require.Equal(t, http.StatusOK, g.do(t, http.MethodPut, "/bkt", nil, nil).Code)

	for _, key := range []string{"photos/a.jpg", "photos/b.jpg", "photos/2024/c.jpg", "docs/r.pdf"} {
		require.Equal(t, http.StatusOK, g.do(t, http.MethodPut, "/bkt/"+key, []byte("x"), nil).Code)
	}

	w := g.do(t, http.MethodGet, "/bkt?list-type=2&prefix=photos/&delimiter=/", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var result listResult
	require.NoError(t, xml.Unmarshal(w.Body.Bytes(), &result))

	var keys []string
	for _, obj := range result.Contents {
		keys = append(keys, obj.Key)
	}
	require.Equal(t, []string{"photos/a.jpg", "photos/b.jpg"}, keys)

	require.Len(t, result.CommonPrefixes, 1)
	require.Equal(t, "photos/2024/", result.CommonPrefixes[0].Prefix)
}

func TestListObjectsPagination(t *testing.T) {
	g := newGateway(t)
	require.Equal(t, http.StatusOK, g.do(t, http.MethodPut, "/bkt", nil, nil).Code)

	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("k%02d", i)
		require.Equal(t, http.StatusOK, g.do(t, http.MethodPut, "/bkt/"+key, []byte("x"), nil).Code)
	}

	w := g.do(t, http.MethodGet, "/bkt?list-type=2&max-keys=2", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page1 listResult
	require.NoError(t, xml.Unmarshal(w.Body.Bytes(), &page1))
	require.True(t, page1.IsTruncated)
	require.Equal(t, 2, page1.KeyCount)
	require.NotEmpty(t, page1.NextContinuationToken)

	var all []string
	for _, obj := range page1.Contents {
		all = append(all, obj.Key)
	}

	token := page1.NextContinuationToken
	for token != "" {
		w = g.do(t, http.MethodGet, "/bkt?list-type=2&max-keys=2&continuation-token="+token, nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var page listResult
		require.NoError(t, xml.Unmarshal(w.Body.Bytes(), &page))
		for _, obj := range page.Contents {
			all = append(all, obj.Key)
		}
		token = page.NextContinuationToken
	}
	require.Equal(t, []string{"k00", "k01", "k02", "k03", "k04"}, all)
}

func TestDeleteBucketSemantics(t *testing.T) {
	g := newGateway(t)
	require.Equal(t, http.StatusOK, g.do(t, http.MethodPut, "/bkt", nil, nil).Code)

	// Duplicate create conflicts.
	dup := g.do(t, http.MethodPut, "/bkt", nil, nil)
	require.Equal(t, http.StatusConflict, dup.Code)

	require.Equal(t, http.StatusOK, g.do(t, http.MethodPut, "/bkt/k", []byte("x"), nil).Code)

	nonEmpty := g.do(t, http.MethodDelete, "/bkt", nil, nil)
	require.Equal(t, http.StatusConflict, nonEmpty.Code)
	require.Contains(t, nonEmpty.Body.String(), "BucketNotEmpty")

	require.Equal(t, http.StatusNoContent, g.do(t, http.MethodDelete, "/bkt/k", nil, nil).Code)
	require.Equal(t, http.StatusNoContent, g.do(t, http.MethodDelete, "/bkt", nil, nil).Code)
	require.Equal(t, http.StatusNotFound, g.do(t, http.MethodHead, "/bkt", nil, nil).Code)
}

func TestInvalidBucketNameRejected(t *testing.T) {
	g := newGateway(t)
	w := g.do(t, http.MethodPut, "/UPPER", nil, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "InvalidBucketName")
}

func TestMultipartUpload(t *testing.T) {
	g := newGateway(t)
	require.Equal(t, http.StatusOK, g.do(t, http.MethodPut, "/bkt", nil, nil).Code)

	initiate := g.do(t, http.MethodPost, "/bkt/big.bin?uploads", nil, nil)
	require.Equal(t, http.StatusOK, initiate.Code)

	var initResult struct {
		UploadID string `xml:"UploadId"`
	}
	require.NoError(t, xml.Unmarshal(initiate.Body.Bytes(), &initResult))
	require.NotEmpty(t, initResult.UploadID)

	part1 := strings.Repeat("a", 1024)
	part2 := strings.Repeat("b", 1024)
	for i, part := range []string{part1, part2} {
		w := g.do(t, http.MethodPut,
			fmt.Sprintf("/bkt/big.bin?uploadId=%s&partNumber=%d", initResult.UploadID, i+1),
			[]byte(part), nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	complete := `<CompleteMultipartUpload>` +
		`<Part><PartNumber>1</PartNumber></Part>` +
		`<Part><PartNumber>2</PartNumber></Part>` +
		`</CompleteMultipartUpload>`
	w := g.do(t, http.MethodPost, "/bkt/big.bin?uploadId="+initResult.UploadID, []byte(complete), nil)
	require.Equal(t, http.StatusOK, w.Code)

	get := g.do(t, http.MethodGet, "/bkt/big.bin", nil, nil)
	require.Equal(t, http.StatusOK, get.Code)
	require.Equal(t, part1+part2, get.Body.String())
}

func TestDeleteMultiple(t *testing.T) {
	g := newGateway(t)
	require.Equal(t, http.StatusOK, g.do(t, http.MethodPut, "/bkt", nil, nil).Code)

	for _, key := range []string{"one", "two", "three"} {
		require.Equal(t, http.StatusOK, g.do(t, http.MethodPut, "/bkt/"+key, []byte("x"), nil).Code)
	}

	body := `<Delete><Object><Key>one</Key></Object><Object><Key>two</Key></Object></Delete>`
	w := g.do(t, http.MethodPost, "/bkt?delete", []byte(body), nil)
	require.Equal(t, http.StatusOK, w.Code)

	require.Equal(t, http.StatusNotFound, g.do(t, http.MethodGet, "/bkt/one", nil, nil).Code)
	require.Equal(t, http.StatusNotFound, g.do(t, http.MethodGet, "/bkt/two", nil, nil).Code)
	require.Equal(t, http.StatusOK, g.do(t, http.MethodGet, "/bkt/three", nil, nil).Code)
}

func TestCopyObject(t *testing.T) {
	g := newGateway(t)
	require.Equal(t, http.StatusOK, g.do(t, http.MethodPut, "/bkt", nil, nil).Code)
	require.Equal(t, http.StatusOK, g.do(t, http.MethodPut, "/bkt/src", []byte("copy me"), nil).Code)

	w := g.do(t, http.MethodPut, "/bkt/dst", nil, map[string]string{"X-Amz-Copy-Source": "/bkt/src"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "CopyObjectResult")

	get := g.do(t, http.MethodGet, "/bkt/dst", nil, nil)
	require.Equal(t, http.StatusOK, get.Code)
	require.Equal(t, "copy me", get.Body.String())
}
