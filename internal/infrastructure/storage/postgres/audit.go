package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/audit"
)

// CompressionAlgo specifies the compression algorithm used for stored details.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// DefaultCompressThreshold is the details size above which entries are compressed.
const DefaultCompressThreshold = 10 * 1024

// auditRow mirrors a sys_audit row.
type auditRow struct {
	ID                id.ID           `db:"id"`
	EntityType        string          `db:"entity_type"`
	EntityID          string          `db:"entity_id"`
	Action            string          `db:"action"`
	UserID            string          `db:"user_id"`
	Details           json.RawMessage `db:"details"`
	DetailsCompressed []byte          `db:"details_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

// AuditSink writes audit events into sys_audit. It implements audit.Sink.
type AuditSink struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewAuditSink creates a new audit sink.
func NewAuditSink(txManager *TxManager) (*AuditSink, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditSink{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: DefaultCompressThreshold,
	}, nil
}

// encodeDetails marshals details and compresses them when they exceed the threshold.
func (s *AuditSink) encodeDetails(details map[string]any) (plain json.RawMessage, compressed []byte, algo CompressionAlgo, err error) {
	if len(details) == 0 {
		return nil, nil, CompressionNone, nil
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return nil, nil, "", fmt.Errorf("marshal details: %w", err)
	}
	if len(raw) > s.compressThreshold {
		return nil, s.encoder.EncodeAll(raw, nil), CompressionZstd, nil
	}
	return raw, nil, CompressionNone, nil
}

// decodeDetails reverses encodeDetails.
func (s *AuditSink) decodeDetails(row auditRow) (map[string]any, error) {
	raw := []byte(row.Details)
	if row.CompressionAlgo == CompressionZstd && len(row.DetailsCompressed) > 0 {
		decompressed, err := s.decoder.DecodeAll(row.DetailsCompressed, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress details: %w", err)
		}
		raw = decompressed
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var details map[string]any
	if err := json.Unmarshal(raw, &details); err != nil {
		return nil, fmt.Errorf("unmarshal details: %w", err)
	}
	return details, nil
}

// Record implements audit.Sink.
func (s *AuditSink) Record(ctx context.Context, event audit.Event) error {
	details, compressed, algo, err := s.encodeDetails(event.Details)
	if err != nil {
		return err
	}

	createdAt := event.OccurredAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	sql := `
		INSERT INTO sys_audit (
			id, entity_type, entity_id, action, user_id,
			details, details_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = s.txManager.GetQuerier(ctx).Exec(ctx, sql,
		id.New(), event.EntityType, event.EntityID, string(event.Action), event.ActorID,
		details, compressed, string(algo), createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return nil
}

// History implements audit.HistoryReader. Newest entries come first.
func (s *AuditSink) History(ctx context.Context, entityType, entityID string, limit int) ([]audit.Event, error) {
	sql := `
		SELECT id, entity_type, entity_id, action, user_id,
			   details, details_compressed, compression_algo, created_at
		FROM sys_audit
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := s.txManager.GetQuerier(ctx).Query(ctx, sql, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	events := []audit.Event{}
	for rows.Next() {
		var r auditRow
		err := rows.Scan(
			&r.ID, &r.EntityType, &r.EntityID, &r.Action, &r.UserID,
			&r.Details, &r.DetailsCompressed, &r.CompressionAlgo, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}

		details, err := s.decodeDetails(r)
		if err != nil {
			return nil, err
		}

		events = append(events, audit.Event{
			Action:     audit.Action(r.Action),
			ActorID:    r.UserID,
			EntityType: r.EntityType,
			EntityID:   r.EntityID,
			Details:    details,
			OccurredAt: r.CreatedAt,
		})
	}

	return events, rows.Err()
}

var (
	_ audit.Sink          = (*AuditSink)(nil)
	_ audit.HistoryReader = (*AuditSink)(nil)
)
