package cmd

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("BOT_CONFIG", "/etc/bot.yaml")

	if p, _ := ResolveConfigPath("flag.yaml", "BOT_CONFIG", "default.yaml"); p != "flag.yaml" {
		t.Fatalf("explicit path should win, got %s", p)
	}
	if p, _ := ResolveConfigPath("", "BOT_CONFIG", "default.yaml"); p != "/etc/bot.yaml" {
		t.Fatalf("env path should win over default, got %s", p)
	}
	if p, _ := ResolveConfigPath("", "UNSET_CONFIG_VAR", "default.yaml"); p != "default.yaml" {
		t.Fatalf("default expected, got %s", p)
	}
	if _, err := ResolveConfigPath("", "UNSET_CONFIG_VAR", ""); err == nil {
		t.Fatal("expected error without any source")
	}
}

func TestRunGroupStopsServicesWhenBotExits(t *testing.T) {
	stopped := make(chan struct{})
	svc := Service{Name: "janitor", Run: func(ctx context.Context) error {
		<-ctx.Done()
		close(stopped)
		return nil
	}}

	err := runGroup(context.Background(), func(context.Context) error { return nil }, []Service{svc})
	if err != nil {
		t.Fatalf("runGroup: %v", err)
	}
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("service was not stopped")
	}
}

func TestRunGroupPropagatesServiceError(t *testing.T) {
	boom := errors.New("listen failed")
	bot := func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}
	err := runGroup(context.Background(), bot, []Service{{Name: "health", Run: func(context.Context) error { return boom }}})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}
