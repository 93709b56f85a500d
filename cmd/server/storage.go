package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"stockledger/internal/config"
	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/internal/domain/audit"
	"stockledger/internal/domain/movement"
	"stockledger/internal/domain/stock"
	"stockledger/internal/domain/template"
	"stockledger/internal/infrastructure/cache"
	"stockledger/internal/infrastructure/http/v1/handlers"
	"stockledger/internal/infrastructure/storage/memory"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/internal/infrastructure/storage/postgres/catalog_repo"
	"stockledger/internal/infrastructure/storage/postgres/document_repo"
	"stockledger/pkg/logger"
)

// storage bundles the repositories of the selected driver.
type storage struct {
	txManager tx.Manager
	movements movement.Repository
	variants  stock.Repository
	templates template.Provider
	audit     audit.Sink
	history   audit.HistoryReader
	checks    map[string]handlers.Pinger

	// pool is nil for the memory driver.
	pool *postgres.Pool
}

// Close releases the database pool, if any.
func (s *storage) Close() {
	if s.pool != nil {
		postgres.LogPoolStats(context.Background(), s.pool)
		s.pool.Close()
	}
}

func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage, error) {
	switch cfg.StorageDriver {
	case config.DriverMemory:
		return openMemory(log), nil
	case config.DriverPostgres:
		return openPostgres(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func openPostgres(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage, error) {
	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.MaxConns = cfg.DBMaxConns
	poolCfg.MinConns = cfg.DBMinConns

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	log.Info("database connection established")
	postgres.LogPoolStats(ctx, pool)

	txOpts := postgres.DefaultTxOptions()
	txOpts.StatementTimeout = cfg.TxStatementTimeout
	txManager := postgres.NewTxManager(pool, txOpts)

	sink, err := postgres.NewAuditSink(txManager)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &storage{
		txManager: txManager,
		movements: document_repo.NewMovementRepo(txManager),
		variants:  catalog_repo.NewVariantRepo(txManager),
		templates: catalog_repo.NewTemplateRepo(txManager),
		audit:     sink,
		history:   sink,
		checks:    map[string]handlers.Pinger{"database": pool},
		pool:      pool,
	}, nil
}

// openMemory builds the in-process driver with a small demo catalog,
// since the catalog itself is managed outside this service.
func openMemory(log *logger.Logger) *storage {
	store := memory.New()

	variantIDs := make([]id.ID, 0, len(demoVariants))
	for _, v := range demoVariants {
		variant := stock.Variant{
			ID:           id.New(),
			ProductID:    id.New(),
			SKU:          v.sku,
			Name:         v.name,
			StockCurrent: v.onHand,
		}
		store.PutVariant(variant)
		variantIDs = append(variantIDs, variant.ID)
		log.Infow("demo variant", "id", variant.ID, "sku", variant.SKU, "on_hand", variant.StockCurrent)
	}
	store.PutTemplate(memory.ItemTemplate{
		ID:         id.New(),
		Name:       "Weekly restock",
		VariantIDs: variantIDs,
		Active:     true,
	})

	history := audit.NewMemorySink()
	return &storage{
		txManager: store,
		movements: store.Movements(),
		variants:  store.Variants(),
		templates: store,
		audit:     audit.MultiSink{audit.NewLogSink(log), history},
		history:   history,
		checks:    map[string]handlers.Pinger{},
	}
}

var demoVariants = []struct {
	sku    string
	name   string
	onHand int64
}{
	{"TSHIRT-BLK-M", "T-shirt black M", 40},
	{"TSHIRT-BLK-L", "T-shirt black L", 25},
	{"HOODIE-GRY-M", "Hoodie grey M", 10},
}

func openRedis(ctx context.Context, cfg *config.Config) (*cache.RedisStore, func(), error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	store := cache.NewRedisStore(client)
	if err := store.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return store, func() { _ = client.Close() }, nil
}
