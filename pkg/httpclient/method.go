package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Method is an HTTP request method
type Method string

const (
	MethodGet    Method = http.MethodGet
	MethodHead   Method = http.MethodHead
	MethodPut    Method = http.MethodPut
	MethodDelete Method = http.MethodDelete
	MethodPost   Method = http.MethodPost
	MethodPatch  Method = http.MethodPatch
)

func (m Method) String() string {
	return string(m)
}

// ParseMethod normalizes a method name. Names outside the known set are
// accepted as-is and sent with a body when one is given.
func ParseMethod(name string) Method {
	return Method(strings.ToUpper(strings.TrimSpace(name)))
}

// Body is a repeatable request body. Open is called once per attempt, so a
// redirected request can resend the same bytes.
type Body struct {
	ContentType string
	// Length is the number of bytes Open yields, or -1 when unknown
	Length int64
	Open   func() (io.ReadCloser, error)
}

type requestBuilder func(ctx context.Context, method Method, uri *url.URL, body *Body) (*http.Request, error)

// builders maps each method to the way its request is built.
// Methods missing from the table use withBody.
var builders = map[Method]requestBuilder{
	MethodGet:    bodiless,
	MethodHead:   bodiless,
	MethodDelete: bodiless,
	MethodPut:    withBody,
	MethodPost:   withBody,
	MethodPatch:  withBody,
}

func buildRequest(ctx context.Context, method Method, uri *url.URL, body *Body) (*http.Request, error) {
	build, ok := builders[method]
	if !ok {
		build = withBody
	}
	return build(ctx, method, uri, body)
}

func bodiless(ctx context.Context, method Method, uri *url.URL, _ *Body) (*http.Request, error) {
	return http.NewRequestWithContext(ctx, method.String(), uri.String(), nil)
}

func withBody(ctx context.Context, method Method, uri *url.URL, body *Body) (*http.Request, error) {
	if body == nil || body.Open == nil {
		return bodiless(ctx, method, uri, nil)
	}

	rc, err := body.Open()
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method.String(), uri.String(), rc)
	if err != nil {
		rc.Close()
		return nil, err
	}
	req.GetBody = body.Open
	req.ContentLength = body.Length
	if body.ContentType != "" {
		req.Header.Set("Content-Type", body.ContentType)
	}
	return req, nil
}
