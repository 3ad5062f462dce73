package middleware

import (
	"sync"

	tele "gopkg.in/telebot.v4"
)

const statsKey = "reply_stats"

// ReplyStats counts what a handler sent back for one update.
type ReplyStats struct {
	Messages int
	Keyboard bool
}

// replyCounter is shared with sender workers, which send on the handler's
// behalf.
type replyCounter struct {
	mu    sync.Mutex
	stats ReplyStats
}

func (r *replyCounter) add(n int, opts []interface{}) {
	kb := false
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			kb = kb || (v != nil && v.ReplyMarkup != nil)
		case *tele.ReplyMarkup:
			kb = kb || v != nil
		}
	}
	r.mu.Lock()
	r.stats.Messages += n
	r.stats.Keyboard = r.stats.Keyboard || kb
	r.mu.Unlock()
}

func (r *replyCounter) snapshot() ReplyStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// countingContext counts successful sends and edits.
type countingContext struct {
	tele.Context
	stats *replyCounter
}

func (c countingContext) count(n int, opts []interface{}, err error) error {
	if err == nil {
		c.stats.add(n, opts)
	}
	return err
}

func (c countingContext) Send(what interface{}, opts ...interface{}) error {
	return c.count(1, opts, c.Context.Send(what, opts...))
}

func (c countingContext) SendAlbum(a tele.Album, opts ...interface{}) error {
	return c.count(len(a), nil, c.Context.SendAlbum(a, opts...))
}

func (c countingContext) Reply(what interface{}, opts ...interface{}) error {
	return c.count(1, opts, c.Context.Reply(what, opts...))
}

func (c countingContext) Edit(what interface{}, opts ...interface{}) error {
	return c.count(1, opts, c.Context.Edit(what, opts...))
}

func (c countingContext) EditOrSend(what interface{}, opts ...interface{}) error {
	return c.count(1, opts, c.Context.EditOrSend(what, opts...))
}

func (c countingContext) EditOrReply(what interface{}, opts ...interface{}) error {
	return c.count(1, opts, c.Context.EditOrReply(what, opts...))
}

// MessageMetricsMiddleware hands downstream handlers a context that records
// ReplyStats for the update summary line.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		stats := &replyCounter{}
		c.Set(statsKey, stats)
		return next(countingContext{Context: c, stats: stats})
	}
}

// Stats returns what has been sent for the update so far.
func Stats(c tele.Context) ReplyStats {
	if r, ok := c.Get(statsKey).(*replyCounter); ok && r != nil {
		return r.snapshot()
	}
	return ReplyStats{}
}
