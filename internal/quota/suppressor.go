package quota

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jittakal/quotaenforcer/pkg/quota"
)

// LogSuppressor rate-limits noisy, repeated conditions to at most one
// non-redundant report per identifier per window. It is meant to be
// constructed once and shared across every enforcer in a process that
// wants the same quiet window, the way the teacher's own collaborators
// (loggers, metrics sinks) are constructed once and passed down rather
// than reached for through a package variable.
//
// Each identifier gets its own single-token bucket that refills once per
// window; IsRedundant drains that token on the first call and reports
// every call for the remainder of the window as redundant.
type LogSuppressor struct {
	window time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

var _ quota.RedundantLogSuppressor = (*LogSuppressor)(nil)

// NewLogSuppressor builds a suppressor with the given quiet window. A
// window of zero or less disables suppression (every call reports as
// non-redundant).
func NewLogSuppressor(window time.Duration) *LogSuppressor {
	return &LogSuppressor{
		window:   window,
		limiters: make(map[string]*rate.Limiter),
	}
}

// IsRedundant reports whether identifier was already seen within the
// suppression window.
func (s *LogSuppressor) IsRedundant(identifier string) bool {
	if s.window <= 0 {
		return false
	}

	s.mu.Lock()
	limiter, ok := s.limiters[identifier]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(s.window), 1)
		s.limiters[identifier] = limiter
	}
	s.mu.Unlock()

	return !limiter.Allow()
}
