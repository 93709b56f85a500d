// Package txcode implements transaction code generation.
//
// Codes look like IN-004821937265: a prefix, a dash and twelve zero-padded digits.
// The digits are drawn at random and checked against existing codes. After
// MaxAttempts collisions (or when the check itself fails) the service falls
// back to a clock-derived value that is strictly increasing within the process.
package txcode

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"stockledger/internal/core/txcode"
	"stockledger/pkg/logger"
)

const modulus int64 = 1_000_000_000_000 // 10^Digits

// Service generates transaction codes.
type Service struct {
	checker txcode.Checker

	randFn func() int64
	nowFn  func() time.Time

	mu   sync.Mutex
	last int64
}

// Option configures Service.
type Option func(*Service)

// WithRand overrides the random source. Tests use it to force collisions.
func WithRand(fn func() int64) Option {
	return func(s *Service) { s.randFn = fn }
}

// WithClock overrides the clock used by the fallback path.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) { s.nowFn = fn }
}

// New creates a code service backed by checker.
func New(checker txcode.Checker, opts ...Option) *Service {
	s := &Service{
		checker: checker,
		randFn:  func() int64 { return rand.Int64N(modulus) },
		nowFn:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate implements txcode.Generator.
func (s *Service) Generate(ctx context.Context, prefix string) string {
	for attempt := 1; attempt <= txcode.MaxAttempts; attempt++ {
		code := Format(prefix, s.randFn())

		exists, err := s.checker.CodeExists(ctx, code)
		if err != nil {
			logger.Warn(ctx, "transaction code check failed, using clock fallback",
				"prefix", prefix, "attempt", attempt, "error", err)
			break
		}
		if !exists {
			return code
		}
		logger.Debug(ctx, "transaction code collision", "code", code, "attempt", attempt)
	}

	// Not re-checked; the unique index rejects the rare clash at insert time.
	code := Format(prefix, s.nextMonotonic())
	logger.Warn(ctx, "transaction code assigned from clock fallback", "code", code)
	return code
}

func (s *Service) nextMonotonic() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.nowFn().UnixNano() % modulus
	if v <= s.last {
		v = s.last + 1
	}
	if v >= modulus {
		v = 0
	}
	s.last = v
	return v
}

// Format renders prefix and number as a code.
func Format(prefix string, n int64) string {
	return fmt.Sprintf("%s-%0*d", prefix, txcode.Digits, n%modulus)
}

var _ txcode.Generator = (*Service)(nil)
