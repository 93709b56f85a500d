// Package main provides a CLI tool for seeding the database with a demo catalog.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"stockledger/internal/config"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/auth"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/pkg/logger"
)

type variantSeed struct {
	sku    string
	name   string
	onHand int64
}

type productSeed struct {
	name     string
	variants []variantSeed
}

var demoCatalog = []productSeed{
	{"T-shirt", []variantSeed{
		{"TSHIRT-BLK-S", "T-shirt black S", 30},
		{"TSHIRT-BLK-M", "T-shirt black M", 40},
		{"TSHIRT-BLK-L", "T-shirt black L", 25},
	}},
	{"Hoodie", []variantSeed{
		{"HOODIE-GRY-M", "Hoodie grey M", 10},
		{"HOODIE-GRY-L", "Hoodie grey L", 0},
	}},
}

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	txm := postgres.NewTxManager(pool, postgres.DefaultTxOptions())
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		variantIDs, err := seedCatalog(ctx, txm, log)
		if err != nil {
			return err
		}
		return seedTemplate(ctx, txm, log, variantIDs)
	})
	if err != nil {
		log.Fatalw("failed to seed demo data", "error", err)
	}

	printDevToken(log)
	log.Info("seeding completed successfully")
}

// seedCatalog inserts demo products and variants. Existing SKUs are kept as they are.
func seedCatalog(ctx context.Context, txm *postgres.TxManager, log *logger.Logger) ([]id.ID, error) {
	q := txm.GetQuerier(ctx)
	var variantIDs []id.ID

	for _, p := range demoCatalog {
		productID := id.New()
		err := q.QueryRow(ctx, `
			INSERT INTO products (id, name) VALUES ($1, $2)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		`, productID, p.name).Scan(&productID)
		if err != nil {
			return nil, fmt.Errorf("seed product %s: %w", p.name, err)
		}

		for _, v := range p.variants {
			variantID := id.New()
			err := q.QueryRow(ctx, `
				INSERT INTO product_variants (id, product_id, sku, name, stock_current, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (sku) DO UPDATE SET name = EXCLUDED.name
				RETURNING id
			`, variantID, productID, v.sku, v.name, v.onHand, time.Now().UTC()).Scan(&variantID)
			if err != nil {
				return nil, fmt.Errorf("seed variant %s: %w", v.sku, err)
			}
			variantIDs = append(variantIDs, variantID)
			log.Infow("variant ready", "sku", v.sku, "id", variantID)
		}
	}
	return variantIDs, nil
}

// seedTemplate makes a template with every demo variant the active one.
func seedTemplate(ctx context.Context, txm *postgres.TxManager, log *logger.Logger, variantIDs []id.ID) error {
	q := txm.GetQuerier(ctx)
	const name = "Weekly restock"

	if _, err := q.Exec(ctx, `UPDATE item_templates SET is_active = false WHERE is_active AND name <> $1`, name); err != nil {
		return fmt.Errorf("deactivate templates: %w", err)
	}

	templateID := id.New()
	err := q.QueryRow(ctx, `
		INSERT INTO item_templates (id, name, is_active) VALUES ($1, $2, true)
		ON CONFLICT (name) DO UPDATE SET is_active = true
		RETURNING id
	`, templateID, name).Scan(&templateID)
	if err != nil {
		return fmt.Errorf("seed template: %w", err)
	}

	if _, err := q.Exec(ctx, `DELETE FROM item_template_variants WHERE template_id = $1`, templateID); err != nil {
		return fmt.Errorf("clear template variants: %w", err)
	}

	rows := make([][]any, 0, len(variantIDs))
	for i, vid := range variantIDs {
		rows = append(rows, []any{templateID, vid, int32(i + 1)})
	}
	if _, err := postgres.CopyFromSlice(ctx, txm, "item_template_variants",
		[]string{"template_id", "variant_id", "position"}, rows); err != nil {
		return fmt.Errorf("seed template variants: %w", err)
	}

	log.Infow("active template ready", "id", templateID, "variants", len(variantIDs))
	return nil
}

// printDevToken logs a bearer token for local testing when JWT settings are available.
func printDevToken(log *logger.Logger) {
	cfg, err := config.Load()
	if err != nil || cfg.JWTSecret == "" {
		log.Info("JWT_SECRET not set, skipping dev token")
		return
	}

	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(cfg.JWTSecret, cfg.JWTIssuer))
	token, expiresAt, err := jwtService.GenerateAccessToken("seed-admin", "admin@stockledger.local", []string{"admin"})
	if err != nil {
		log.Warnw("failed to issue dev token", "error", err)
		return
	}
	log.Infow("dev token issued", "token", token, "expires_at", expiresAt)
}
