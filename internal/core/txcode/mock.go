package txcode

import (
	"context"
	"fmt"
	"sync/atomic"
)

// MockGenerator is a test implementation of Generator.
// Use in unit tests to get predictable codes.
type MockGenerator struct {
	GenerateFunc func(ctx context.Context, prefix string) string

	seq atomic.Int64
}

// Generate implements Generator.
func (m *MockGenerator) Generate(ctx context.Context, prefix string) string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prefix)
	}
	return fmt.Sprintf("%s-%0*d", prefix, Digits, m.seq.Add(1))
}

// Ensure compile-time interface compliance.
var _ Generator = (*MockGenerator)(nil)
