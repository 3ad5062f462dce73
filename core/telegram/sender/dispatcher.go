package sender

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/playlistbot/core/logger"
)

var (
	// ErrQueueClosed is returned by Enqueue once the dispatcher is closed.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull is returned when the chat's shard has no free slot.
	ErrQueueFull = errors.New("telegram sender: queue full")

	tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
)

const component = "tg.sender"

// Options tunes the outbound dispatcher. Zero values pick defaults.
type Options struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent on a single job, retries included.
	MaxDuration time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 12 * time.Second
	}
	return o
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

// Dispatcher sends Telegram calls from a fixed pool of workers. Jobs are
// sharded by chat, so replies to one chat leave in the order they were
// enqueued while different chats proceed in parallel.
type Dispatcher struct {
	opts   Options
	shards []chan job

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	failed atomic.Uint64
}

// NewDispatcher starts the worker pool.
func NewDispatcher(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	depth := max(opts.QueueSize/opts.Workers, 1)

	d := &Dispatcher{opts: opts, shards: make([]chan job, opts.Workers)}
	d.wg.Add(len(d.shards))
	for i := range d.shards {
		d.shards[i] = make(chan job, depth)
		go func(q <-chan job) {
			defer d.wg.Done()
			for j := range q {
				d.process(j)
			}
		}(d.shards[i])
	}
	return d
}

// Enqueue schedules run without blocking. run may be called several times
// when the call fails transiently.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.shards[d.shard(ctx)] <- job{ctx: ctx, action: action, endpoint: endpoint, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) shard(ctx context.Context) int {
	key := logger.ChatIDFrom(ctx)
	if key == 0 {
		key = logger.UserIDFrom(ctx)
	}
	if key < 0 {
		key = -key
	}
	return int(key % int64(len(d.shards)))
}

// ErrorCount returns how many jobs were given up on.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.failed.Load()
}

// Close drains the queued jobs and stops the workers. It is safe to call
// more than once.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, q := range d.shards {
			close(q)
		}
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) process(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attrs := jobAttrs(j)
	logger.Debug(j.ctx, component, "send.start", attrs...)

	attempt, err := d.runWithRetry(ctx, j, attrs)
	elapsed := slog.Int64("elapsed_ms", logger.RoundMS(time.Since(start)).Milliseconds())
	if err == nil {
		level := slog.LevelDebug
		if attempt > 1 {
			level = slog.LevelInfo
		}
		logger.Event(j.ctx, component, level, "send.success",
			append(attrs, slog.Int("attempt", attempt), elapsed)...)
		return
	}

	d.failed.Add(1)
	logger.Error(j.ctx, component, "send.fail",
		append(attrs,
			slog.Int("attempt", attempt),
			slog.String("error", sanitizeErrorMessage(err)),
			slog.String("error_kind", string(kindOf(err))),
			elapsed,
		)...)
}

// runWithRetry calls j.run until it succeeds, fails permanently or the
// retry budget runs out. It returns the number of the last attempt.
func (d *Dispatcher) runWithRetry(ctx context.Context, j job, attrs []slog.Attr) (int, error) {
	attempts := d.opts.MaxRetries + 1
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}
		err := j.run()
		if err == nil {
			return attempt, nil
		}
		kind := kindOf(err)
		if !kind.retryable() || attempt == attempts {
			return attempt, err
		}

		delay := d.opts.RetryBackoff * time.Duration(attempt)
		if wait, ok := floodWait(err); ok && wait > delay {
			delay = wait
		}
		logger.Debug(j.ctx, component, "send.retry",
			append(attrs,
				slog.Int("attempt", attempt),
				slog.String("error_kind", string(kind)),
				slog.Duration("delay", delay),
			)...)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, ctx.Err()
		case <-timer.C:
		}
	}
}

func jobAttrs(j job) []slog.Attr {
	attrs := []slog.Attr{slog.String("action", j.action)}
	if j.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.endpoint))
	}
	return attrs
}

// errKind groups send failures for logs and retry decisions.
type errKind string

const (
	kindTimeout  errKind = "timeout"
	kindDial     errKind = "dial"
	kindDNS      errKind = "dns"
	kindTLS      errKind = "tls"
	kindFlood    errKind = "flood"
	kindServer   errKind = "http_5xx"
	kindClient   errKind = "http_4xx"
	kindCanceled errKind = "canceled"
	kindUnknown  errKind = "unknown"
)

func (k errKind) retryable() bool {
	switch k {
	case kindTimeout, kindDial, kindFlood, kindServer:
		return true
	}
	return false
}

func kindOf(err error) errKind {
	var (
		dnsErr   *net.DNSError
		opErr    *net.OpError
		netErr   net.Error
		alertErr tls.AlertError
		apiErr   *tele.Error
	)
	switch {
	case errors.Is(err, context.Canceled):
		return kindCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return kindTimeout
	case errors.As(err, &dnsErr):
		if dnsErr.IsTimeout {
			return kindTimeout
		}
		return kindDNS
	case errors.As(err, &netErr) && netErr.Timeout():
		return kindTimeout
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return kindDial
	case errors.As(err, &alertErr):
		return kindTLS
	}
	if _, ok := floodWait(err); ok {
		return kindFlood
	}
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return kindFlood
		case apiErr.Code >= 500:
			return kindServer
		case apiErr.Code >= 400:
			return kindClient
		}
	}
	return kindUnknown
}

// floodWait extracts the retry_after hint of a 429 answer.
func floodWait(err error) (time.Duration, bool) {
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return time.Duration(flood.RetryAfter) * time.Second, true
	}
	var floodPtr *tele.FloodError
	if errors.As(err, &floodPtr) && floodPtr != nil {
		return time.Duration(floodPtr.RetryAfter) * time.Second, true
	}
	return 0, false
}

// sanitizeErrorMessage masks bot tokens that net/http embeds in URLs.
func sanitizeErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}
