package resource

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicwaller/proxy-fetch/pkg/httpclient"
	"github.com/nicwaller/proxy-fetch/pkg/proxy"
)

func newTestClient(t *testing.T) *httpclient.Client {
	t.Helper()
	c, err := httpclient.New(httpclient.Settings{Proxy: &proxy.Config{}})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

// captureLogs redirects the global logger for the duration of the test
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	previous := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = previous })
	return &buf
}

func repoServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a.jar", "/b.jar":
			w.Header().Set("Content-Type", "application/java-archive")
			w.Header().Set("X-Checksum-Sha1", "abc123")
			w.Header().Set("Last-Modified", "Tue, 15 Nov 1994 08:12:31 GMT")
			w.Write([]byte("contents of " + r.URL.Path))
		case "/broken":
			http.Error(w, "exploded", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestAccessor_Open(t *testing.T) {
	server := repoServer(t)
	accessor := NewAccessor(newTestClient(t))
	ctx := context.Background()

	res, err := accessor.Open(ctx, mustParse(t, server.URL+"/a.jar"))
	require.NoError(t, err)
	require.NotNil(t, res)
	defer accessor.Release(res)

	assert.Equal(t, http.StatusOK, res.StatusCode())
	assert.Equal(t, "OK", res.StatusText())
	assert.Equal(t, httpclient.MethodGet, res.Method())
	assert.Equal(t, "application/java-archive", res.HeaderValue("Content-Type"))
	assert.Equal(t, server.URL+"/a.jar", res.URI().String())
	assert.Equal(t, "abc123", res.Metadata().SHA1)
	assert.Equal(t, int64(len("contents of /a.jar")), res.Metadata().ContentLength)

	stream, err := res.OpenStream()
	require.NoError(t, err)
	body, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, "contents of /a.jar", string(body))

	_, err = res.OpenStream()
	assert.ErrorIs(t, err, ErrAlreadyOpened)
}

func TestAccessor_Missing(t *testing.T) {
	server := repoServer(t)
	accessor := NewAccessor(newTestClient(t))
	ctx := context.Background()

	res, err := accessor.Open(ctx, mustParse(t, server.URL+"/nope.jar"))
	assert.NoError(t, err)
	assert.Nil(t, res)

	metadata, err := accessor.GetMetadata(ctx, mustParse(t, server.URL+"/nope.jar"))
	assert.NoError(t, err)
	assert.Nil(t, metadata)

	assert.Equal(t, 0, accessor.OpenCount())
}

func TestAccessor_Failure(t *testing.T) {
	server := repoServer(t)
	accessor := NewAccessor(newTestClient(t))
	uri := mustParse(t, server.URL+"/broken")

	res, err := accessor.Open(context.Background(), uri)
	assert.Nil(t, res)

	var statusErr *httpclient.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Equal(t, "Internal Server Error", statusErr.Status)
	assert.Equal(t, 0, accessor.OpenCount())
}

func TestAccessor_GetRawResource(t *testing.T) {
	server := repoServer(t)
	accessor := NewAccessor(newTestClient(t))

	res, err := accessor.GetRawResource(context.Background(), mustParse(t, server.URL+"/broken"))
	require.NoError(t, err)
	require.NotNil(t, res)
	defer accessor.Release(res)

	assert.Equal(t, http.StatusInternalServerError, res.StatusCode())
	stream, err := res.OpenStream()
	require.NoError(t, err)
	body, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, "exploded\n", string(body))

	missing, err := accessor.GetRawResource(context.Background(), mustParse(t, server.URL+"/nope"))
	require.NoError(t, err)
	require.NotNil(t, missing)
	defer accessor.Release(missing)
	assert.Equal(t, http.StatusNotFound, missing.StatusCode())
	assert.True(t, res.Closed(), "previous raw resource is pre-empted")
}

func TestAccessor_GetMetadata(t *testing.T) {
	server := repoServer(t)
	accessor := NewAccessor(newTestClient(t))

	metadata, err := accessor.GetMetadata(context.Background(), mustParse(t, server.URL+"/a.jar"))
	require.NoError(t, err)
	require.NotNil(t, metadata)

	assert.Equal(t, "abc123", metadata.SHA1)
	assert.Equal(t, "application/java-archive", metadata.ContentType)
	assert.Equal(t, int64(784887151000), metadata.LastModifiedMillis())
	assert.Equal(t, int64(len("contents of /a.jar")), metadata.ContentLength)
	assert.Equal(t, 0, accessor.OpenCount(), "HEAD responses are not tracked")
}

func TestAccessor_PreemptsAbandonedResource(t *testing.T) {
	logs := captureLogs(t)
	server := repoServer(t)
	accessor := NewAccessor(newTestClient(t))
	ctx := context.Background()

	a, err := accessor.Open(ctx, mustParse(t, server.URL+"/a.jar"))
	require.NoError(t, err)
	streamA, err := a.OpenStream()
	require.NoError(t, err)

	b, err := accessor.Open(ctx, mustParse(t, server.URL+"/b.jar"))
	require.NoError(t, err)
	defer accessor.Release(b)

	assert.True(t, a.Closed())
	assert.False(t, b.Closed())
	assert.Equal(t, 1, accessor.OpenCount())

	_, err = streamA.Read(make([]byte, 8))
	assert.Error(t, err, "reading a pre-empted resource fails")
	assert.Contains(t, logs.String(), "forcing close on abandoned resource")

	streamB, err := b.OpenStream()
	require.NoError(t, err)
	body, err := io.ReadAll(streamB)
	require.NoError(t, err)
	assert.Equal(t, "contents of /b.jar", string(body))
}

func TestAccessor_ReleaseAvoidsForcedClose(t *testing.T) {
	logs := captureLogs(t)
	server := repoServer(t)
	accessor := NewAccessor(newTestClient(t))
	ctx := context.Background()

	a, err := accessor.Open(ctx, mustParse(t, server.URL+"/a.jar"))
	require.NoError(t, err)
	require.NoError(t, accessor.Release(a))
	assert.Equal(t, 0, accessor.OpenCount())

	// closed directly, still tracked, skipped silently
	b, err := accessor.Open(ctx, mustParse(t, server.URL+"/b.jar"))
	require.NoError(t, err)
	require.NoError(t, b.Close())

	_, err = accessor.GetMetadata(ctx, mustParse(t, server.URL+"/a.jar"))
	require.NoError(t, err)
	assert.NotContains(t, logs.String(), "forcing close")
	assert.Equal(t, 0, accessor.OpenCount())
}

func TestResponse_CloseIsIdempotent(t *testing.T) {
	server := repoServer(t)
	accessor := NewAccessor(newTestClient(t))

	res, err := accessor.Open(context.Background(), mustParse(t, server.URL+"/a.jar"))
	require.NoError(t, err)

	assert.NoError(t, res.Close())
	assert.NoError(t, res.Close())
	assert.NoError(t, accessor.Release(res))
	assert.NoError(t, accessor.Release(nil))
	assert.NoError(t, accessor.Close())
}

func TestResponse_CloseDrainsUnreadBody(t *testing.T) {
	body := &trackingBody{Reader: strings.NewReader("unread bytes")}
	res := NewResponse(httpclient.MethodGet, mustParse(t, "http://repo.example.com/x"), &http.Response{
		StatusCode:    http.StatusOK,
		Header:        http.Header{},
		ContentLength: 12,
		Body:          body,
	})

	require.NoError(t, res.Close())
	assert.True(t, body.closed)
	assert.Equal(t, 0, body.Reader.(*strings.Reader).Len())
	assert.Equal(t, int64(12), res.Metadata().ContentLength)
}

type trackingBody struct {
	io.Reader
	closed bool
}

func (b *trackingBody) Close() error {
	b.closed = true
	return nil
}

func TestUploader(t *testing.T) {
	var uploaded []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/moved/lib.jar":
			http.Redirect(w, r, "/releases/lib.jar", http.StatusTemporaryRedirect)
			return
		case "/broken/lib.jar":
			http.Error(w, "disk full", http.StatusInternalServerError)
			return
		}
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))
		uploaded, _ = io.ReadAll(r.Body)
		if r.URL.Path == "/snapshots/lib.jar" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "lib.jar")
	require.NoError(t, os.WriteFile(path, []byte("jar bytes"), 0o644))
	local, err := NewFileResource(path)
	require.NoError(t, err)
	assert.Equal(t, int64(9), local.Size())

	uploader := NewUploader(newTestClient(t))
	ctx := context.Background()

	for _, target := range []string{"/releases/lib.jar", "/snapshots/lib.jar", "/moved/lib.jar"} {
		t.Run(target, func(t *testing.T) {
			uploaded = nil
			require.NoError(t, uploader.Upload(ctx, local, mustParse(t, server.URL+target)))
			assert.Equal(t, "jar bytes", string(uploaded))
		})
	}

	t.Run("server error", func(t *testing.T) {
		destination := mustParse(t, server.URL+"/broken/lib.jar")
		err := uploader.Upload(ctx, local, destination)

		var statusErr *httpclient.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, httpclient.MethodPut, statusErr.Method)
		assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
		assert.Contains(t, err.Error(), destination.String())
		assert.Contains(t, err.Error(), "500")
		assert.Contains(t, err.Error(), "Internal Server Error")
	})
}

// slowResource produces its content one byte at a time
type slowResource struct {
	data  string
	delay time.Duration
}

func (r *slowResource) Size() int64 {
	return int64(len(r.data))
}

func (r *slowResource) Open() (io.ReadCloser, error) {
	pr, pw := io.Pipe()
	go func() {
		for i := 0; i < len(r.data); i++ {
			time.Sleep(r.delay)
			if _, err := pw.Write([]byte{r.data[i]}); err != nil {
				return
			}
		}
		pw.Close()
	}()
	return pr, nil
}

func TestUploader_SlowBodyLongerThanReadTimeout(t *testing.T) {
	var uploaded []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uploaded, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client, err := httpclient.New(httpclient.Settings{
		Proxy:       &proxy.Config{},
		ReadTimeout: 200 * time.Millisecond,
	})
	require.NoError(t, err)
	defer client.Close()

	local := &slowResource{data: "0123456789", delay: 80 * time.Millisecond}
	err = NewUploader(client).Upload(context.Background(), local, mustParse(t, server.URL+"/releases/lib.jar"))
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(uploaded))
}

func TestNewFileResource(t *testing.T) {
	dir := t.TempDir()

	_, err := NewFileResource(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = NewFileResource(dir)
	assert.ErrorContains(t, err, "is a directory")

	path := filepath.Join(dir, "pom.xml")
	require.NoError(t, os.WriteFile(path, []byte("<project/>"), 0o644))
	f, err := NewFileResource(path)
	require.NoError(t, err)
	assert.Equal(t, path, f.Path())

	for i := 0; i < 2; i++ {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		assert.Equal(t, "<project/>", string(data))
	}
}
