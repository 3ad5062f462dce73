package middleware

import (
	"testing"

	"github.com/m3rciful/playlistbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

func offlineContext(t *testing.T, userID int64) tele.Context {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Offline: true})
	if err != nil {
		t.Fatalf("offline bot: %v", err)
	}
	user := &tele.User{ID: userID}
	return bot.NewContext(tele.Update{ID: 1, Message: &tele.Message{Sender: user, Chat: &tele.Chat{ID: userID}}})
}

func TestRecoverMiddlewareReturnsError(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("nil playlist") })
	if err := h(offlineContext(t, 1)); err == nil {
		t.Fatal("expected panic to surface as error")
	}
}

func TestAdminCheck(t *testing.T) {
	called, rejected := 0, 0
	cmd := commands.Command{
		AdminOnly: true,
		Handler:   func(tele.Context) error { called++; return nil },
	}
	h := WithAdminCheck(AdminOptions{
		AdminID:  100,
		OnReject: func(tele.Context) error { rejected++; return nil },
	}, cmd)

	_ = h(offlineContext(t, 100))
	_ = h(offlineContext(t, 5))
	if called != 1 || rejected != 1 {
		t.Fatalf("called=%d rejected=%d", called, rejected)
	}

	locked := WithAdminCheck(AdminOptions{}, cmd)
	_ = locked(offlineContext(t, 100))
	if called != 1 {
		t.Fatal("admin command must stay locked without admin id")
	}
}
