package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/playlistbot/core/logger"
	"github.com/m3rciful/playlistbot/core/telegram/sender"
)

var dispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher routes Send helpers through d. With nil they call Telegram
// synchronously.
func SetDispatcher(d *sender.Dispatcher) {
	dispatcher.Store(d)
}

// enqueue hands run to the dispatcher, or runs it inline when there is none
// or its queue cannot take the job.
func enqueue(c tele.Context, action, endpoint string, run func() error) error {
	d := dispatcher.Load()
	if d == nil {
		return run()
	}
	ctx := BuildContext(c)
	err := d.Enqueue(ctx, action, endpoint, run)
	if !errors.Is(err, sender.ErrQueueFull) && !errors.Is(err, sender.ErrQueueClosed) {
		return err
	}
	logger.Warn(ctx, "tg.sender", "queue.fallback",
		slog.String("action", action),
		slog.String("endpoint", endpoint),
		slog.String("err", err.Error()),
	)
	return run()
}

// SendText sends plain text to the current chat.
func SendText(c tele.Context, text string, opts ...interface{}) error {
	return enqueue(c, "send.text", "sendMessage", func() error {
		return c.Send(text, opts...)
	})
}

// SendSequence sends parts in order as one job. A retry resumes at the first
// part that has not gone out, so nothing is delivered twice.
func SendSequence(c tele.Context, action string, parts ...func() error) error {
	next := 0
	return enqueue(c, action, "sequence", func() error {
		for ; next < len(parts); next++ {
			if err := parts[next](); err != nil {
				return err
			}
		}
		return nil
	})
}
