// Package stock owns the per-variant stock counter.
//
// Counters change only through Service.Apply, which runs inside the
// transaction of a movement submission.
package stock

import (
	"time"

	"stockledger/internal/core/id"
)

// Variant is a catalog product variant with its on-hand quantity.
type Variant struct {
	ID           id.ID     `db:"id" json:"id"`
	ProductID    id.ID     `db:"product_id" json:"productId"`
	SKU          string    `db:"sku" json:"sku"`
	Name         string    `db:"name" json:"name"`
	StockCurrent int64     `db:"stock_current" json:"stockCurrent"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// Adjustment is one signed quantity change for a variant.
// Inbound lines produce positive deltas, outbound lines negative ones.
type Adjustment struct {
	VariantID id.ID
	Delta     int64
}
