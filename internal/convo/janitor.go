package convo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/m3rciful/playlistbot/core/logger"
	"github.com/m3rciful/playlistbot/core/telegram/state"
)

// DefaultJanitorSpec runs the sweep once a minute.
const DefaultJanitorSpec = "@every 1m"

const sweepTimeout = 30 * time.Second

// Janitor periodically removes expired add sessions and deletion
// confirmations, so stale windows do not outlive an idle user.
type Janitor struct {
	m    *Machine
	cron *cron.Cron
}

// NewJanitor schedules sweeps of m on spec (standard cron syntax or a
// descriptor such as "@every 30s"). An empty spec means DefaultJanitorSpec.
func NewJanitor(m *Machine, spec string) (*Janitor, error) {
	if spec == "" {
		spec = DefaultJanitorSpec
	}
	j := &Janitor{m: m, cron: cron.New()}
	if _, err := j.cron.AddFunc(spec, j.tick); err != nil {
		return nil, fmt.Errorf("convo: janitor schedule %q: %w", spec, err)
	}
	return j, nil
}

// Run starts the schedule and blocks until ctx is done, then waits for a
// running sweep to finish.
func (j *Janitor) Run(ctx context.Context) error {
	j.cron.Start()
	logger.LogEvent(ctx, logger.Janitor, slog.LevelInfo, "start")
	<-ctx.Done()
	<-j.cron.Stop().Done()
	logger.LogEvent(logger.Background(), logger.Janitor, slog.LevelInfo, "stop")
	return nil
}

// Sweep expires stale data in every stored session and returns how many
// sessions changed.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	return j.m.mgr.Sweep(ctx, func(_ int64, s *state.Session) bool {
		return j.m.wrap(s).Expire()
	})
}

func (j *Janitor) tick() {
	ctx, cancel := context.WithTimeout(logger.Background(), sweepTimeout)
	defer cancel()

	start := time.Now()
	n, err := j.Sweep(ctx)
	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.Int("count", n),
		slog.Duration("duration", logger.Took(start)),
	}
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
	} else if n > 0 {
		level = slog.LevelInfo
	}
	logger.LogEvent(ctx, logger.Janitor, level, "sweep", attrs...)
}
