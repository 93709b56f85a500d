package catalog_repo

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/template"
	"stockledger/internal/infrastructure/storage/postgres"
)

// TemplateRepo reads the active item template. It implements template.Provider.
type TemplateRepo struct {
	txm *postgres.TxManager
}

// NewTemplateRepo creates a new template repository.
func NewTemplateRepo(txm *postgres.TxManager) *TemplateRepo {
	return &TemplateRepo{txm: txm}
}

type activeTemplateRow struct {
	ID   id.ID  `db:"id"`
	Name string `db:"name"`
}

// ActiveTemplate implements template.Provider.
// At most one template is active; a partial unique index enforces it.
func (r *TemplateRepo) ActiveTemplate(ctx context.Context) (*template.Snapshot, error) {
	querier := r.txm.GetQuerier(ctx)

	var rows []activeTemplateRow
	err := pgxscan.Select(ctx, querier, &rows,
		"SELECT id, name FROM item_templates WHERE is_active LIMIT 1")
	if err != nil {
		return nil, fmt.Errorf("get active template: %w", err)
	}
	if len(rows) == 0 {
		return &template.Snapshot{VariantIDs: []id.ID{}}, nil
	}
	tpl := rows[0]

	variantIDs := []id.ID{}
	err = pgxscan.Select(ctx, querier, &variantIDs,
		"SELECT variant_id FROM item_template_variants WHERE template_id = $1 ORDER BY position",
		tpl.ID)
	if err != nil {
		return nil, fmt.Errorf("get template variants: %w", err)
	}

	return &template.Snapshot{
		TemplateID: &tpl.ID,
		Name:       tpl.Name,
		VariantIDs: variantIDs,
		Active:     true,
	}, nil
}

var _ template.Provider = (*TemplateRepo)(nil)
