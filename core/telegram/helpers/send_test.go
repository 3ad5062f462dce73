package helpers

import (
	"testing"
	"time"

	"github.com/m3rciful/playlistbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func offlineContext(t *testing.T) tele.Context {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Offline: true})
	if err != nil {
		t.Fatalf("offline bot: %v", err)
	}
	user := &tele.User{ID: 5}
	return bot.NewContext(tele.Update{ID: 1, Message: &tele.Message{Sender: user, Chat: &tele.Chat{ID: 5}}})
}

func TestSendSequenceResumesAfterFailure(t *testing.T) {
	d := sender.NewDispatcher(sender.Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})
	SetDispatcher(d)
	t.Cleanup(func() { SetDispatcher(nil) })

	var sent []string
	failOnce := true
	err := SendSequence(offlineContext(t), "send.playlist",
		func() error { sent = append(sent, "header"); return nil },
		func() error {
			if failOnce {
				failOnce = false
				return timeoutErr{}
			}
			sent = append(sent, "cover")
			return nil
		},
		func() error { sent = append(sent, "album"); return nil },
	)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	d.Close()

	want := []string{"header", "cover", "album"}
	if len(sent) != len(want) {
		t.Fatalf("sent %v, want %v", sent, want)
	}
	for i := range want {
		if sent[i] != want[i] {
			t.Fatalf("sent %v, want %v", sent, want)
		}
	}
}

func TestSendSequenceWithoutDispatcherRunsInline(t *testing.T) {
	SetDispatcher(nil)
	n := 0
	err := SendSequence(nil, "send.test", func() error { n++; return nil }, func() error { n++; return nil })
	if err != nil || n != 2 {
		t.Fatalf("err=%v n=%d", err, n)
	}
}
