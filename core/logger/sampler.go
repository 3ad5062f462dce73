package logger

import (
	"strconv"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// debugSampler lets through one high volume debug line out of every n.
type debugSampler struct {
	mu sync.Mutex
	s  *rate.Sometimes
}

func newDebugSampler(every int) *debugSampler {
	d := &debugSampler{}
	d.Set(every)
	return d
}

// Set samples one in every lines; every <= 1 disables sampling.
func (d *debugSampler) Set(every int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if every <= 1 {
		d.s = nil
		return
	}
	d.s = &rate.Sometimes{Every: every}
}

// Allow reports whether the current line should be logged.
func (d *debugSampler) Allow() bool {
	d.mu.Lock()
	s := d.s
	d.mu.Unlock()
	if s == nil {
		return true
	}
	allowed := false
	s.Do(func() { allowed = true })
	return allowed
}

// parseSampleSpec reads "1/50" or "50" as one line in 50. Ratios of one
// or more yield 1, which keeps every line.
func parseSampleSpec(spec string) (int, bool) {
	spec = strings.TrimSpace(spec)
	num, den := 1, 0
	var err error
	if a, b, ok := strings.Cut(spec, "/"); ok {
		if num, err = strconv.Atoi(strings.TrimSpace(a)); err != nil || num <= 0 {
			return 0, false
		}
		spec = b
	}
	if den, err = strconv.Atoi(strings.TrimSpace(spec)); err != nil || den <= 0 {
		return 0, false
	}
	if den <= num {
		return 1, true
	}
	return den / num, true
}
