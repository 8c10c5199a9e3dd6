package httpclient

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"
)

// ErrReadTimeout is returned by a response body when the server sent
// nothing for longer than the read timeout.
var ErrReadTimeout = errors.New("read timeout waiting for server")

// timeoutBody bounds every Read of a response body. A stalled read cancels
// the request context, which unblocks the read. Closing the body releases
// the context.
type timeoutBody struct {
	body     io.ReadCloser
	timeout  time.Duration
	cancel   context.CancelFunc
	timedOut atomic.Bool
}

func (b *timeoutBody) Read(p []byte) (int, error) {
	timer := time.AfterFunc(b.timeout, func() {
		b.timedOut.Store(true)
		b.cancel()
	})
	n, err := b.body.Read(p)
	timer.Stop()
	if err != nil && b.timedOut.Load() {
		return n, ErrReadTimeout
	}
	return n, err
}

func (b *timeoutBody) Close() error {
	err := b.body.Close()
	b.cancel()
	return err
}
