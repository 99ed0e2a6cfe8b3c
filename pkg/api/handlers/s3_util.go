package handlers

import (
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// contentMD5 is the S3-convention ETag for a byte slice: the quoted hex
// MD5 digest, matching putObjectBody's ETag.
func contentMD5(data []byte) string {
	sum := md5.Sum(data)
	return fmt.Sprintf("%q", hex.EncodeToString(sum[:]))
}

// validContentMD5 checks an RFC 1864 Content-MD5 header (base64 of the raw
// digest) against data.
func validContentMD5(header string, data []byte) bool {
	sum := md5.Sum(data)
	return base64.StdEncoding.EncodeToString(sum[:]) == header
}
