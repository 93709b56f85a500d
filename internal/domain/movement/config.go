package movement

import "stockledger/internal/core/txcode"

// EntityName is used in errors and audit events.
const EntityName = "movement"

// CodePrefix returns the transaction code prefix for a direction.
func CodePrefix(cfg txcode.Config, d Direction) string {
	if d == Outbound {
		return cfg.OutboundPrefix
	}
	return cfg.InboundPrefix
}
