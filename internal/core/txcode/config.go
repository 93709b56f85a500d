package txcode

const (
	// Digits is the width of the numeric part of a code.
	Digits = 12

	// MaxAttempts bounds random draws before falling back to the clock.
	MaxAttempts = 5

	DefaultInboundPrefix  = "IN"
	DefaultOutboundPrefix = "OUT"
)

// Config holds the code prefixes per movement direction.
type Config struct {
	InboundPrefix  string
	OutboundPrefix string
}

// DefaultConfig returns the standard IN/OUT prefixes.
func DefaultConfig() Config {
	return Config{
		InboundPrefix:  DefaultInboundPrefix,
		OutboundPrefix: DefaultOutboundPrefix,
	}
}
