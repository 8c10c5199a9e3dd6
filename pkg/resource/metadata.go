package resource

import (
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"
)

const (
	checksumHeader = "X-Checksum-Sha1"
)

// nexusETag matches the ETag form some repository managers use to carry the
// SHA-1 of the content, e.g. {SHA1{2b8c...}}
var nexusETag = regexp.MustCompile(`^"?\{SHA1\{([0-9a-fA-F]+)\}\}"?$`)

// Metadata is a snapshot of a remote resource taken from response headers
type Metadata struct {
	Location     *url.URL
	LastModified time.Time
	// ContentLength is -1 when the server did not send one
	ContentLength int64
	ContentType   string
	ETag          string
	// SHA1 is the hex digest advertised by the server, empty when absent
	SHA1 string
}

// NewMetadata derives metadata from response headers. It never fails:
// values that are missing or malformed are left at their zero value.
func NewMetadata(location *url.URL, header http.Header) Metadata {
	m := Metadata{
		Location:      location,
		ContentLength: -1,
		ContentType:   header.Get("Content-Type"),
		ETag:          header.Get("ETag"),
	}
	if v := header.Get("Last-Modified"); v != "" {
		if t, err := http.ParseTime(v); err == nil {
			m.LastModified = t
		}
	}
	if v := header.Get("Content-Length"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			m.ContentLength = n
		}
	}
	m.SHA1 = checksum(header.Get(checksumHeader), m.ETag)
	return m
}

// checksum prefers the explicit header over the ETag convention
func checksum(header, etag string) string {
	if header != "" {
		return header
	}
	if match := nexusETag.FindStringSubmatch(etag); match != nil {
		return match[1]
	}
	return ""
}

// LastModifiedMillis returns the modification time in milliseconds since the
// epoch, or 0 when unknown.
func (m Metadata) LastModifiedMillis() int64 {
	if m.LastModified.IsZero() {
		return 0
	}
	return m.LastModified.UnixMilli()
}

func (m Metadata) HasChecksum() bool {
	return m.SHA1 != ""
}
