package telegram

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestShouldRetry(t *testing.T) {
	assert.False(t, shouldRetry(nil))
	assert.False(t, shouldRetry(context.Canceled))
	assert.False(t, shouldRetry(errors.New("bad request")))
	assert.True(t, shouldRetry(&net.OpError{Op: "dial", Err: errors.New("refused")}))
	assert.True(t, shouldRetry(timeoutErr{}))
}

func TestClientTimeoutsCoverLongPoll(t *testing.T) {
	c := BuildHTTPClient(50 * time.Second)
	assert.Greater(t, c.Timeout, 50*time.Second)

	rt := c.Transport.(*retryTransport)
	assert.Greater(t, rt.base.(*http.Transport).ResponseHeaderTimeout, 50*time.Second)

	assert.Equal(t, minClientWait, BuildHTTPClient(0).Timeout)
}

type flakyTransport struct {
	calls int32
	fail  int32
	next  http.RoundTripper
}

func (f *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if atomic.AddInt32(&f.calls, 1) <= f.fail {
		return nil, &net.OpError{Op: "dial", Err: errors.New("refused")}
	}
	return f.next.RoundTrip(req)
}

func TestRetryTransportReplaysBody(t *testing.T) {
	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got.Store(string(body))
	}))
	defer srv.Close()

	flaky := &flakyTransport{fail: 2, next: http.DefaultTransport}
	client := &http.Client{Transport: &retryTransport{base: flaky, attempts: 3, backoff: time.Millisecond}}

	resp, err := client.Post(srv.URL, "text/plain", strings.NewReader("sendMessage"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, int32(3), atomic.LoadInt32(&flaky.calls))
	assert.Equal(t, "sendMessage", got.Load())
}
