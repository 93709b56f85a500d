package movement

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/internal/core/txcode"
	"stockledger/internal/domain"
	"stockledger/internal/domain/audit"
	"stockledger/internal/domain/stock"
	"stockledger/internal/domain/template"
	"stockledger/pkg/logger"
)

var tracer = otel.Tracer("stockledger/movement")

// StockApplier applies signed adjustments to variant counters.
type StockApplier interface {
	Apply(ctx context.Context, adjustments []stock.Adjustment) error
}

// TemplateCache serves the active template snapshot.
type TemplateCache interface {
	GetOrRefresh(ctx context.Context) (*template.Snapshot, error)
	Invalidate(ctx context.Context) error
}

// ServiceConfig wires the movement service.
type ServiceConfig struct {
	Repo      Repository
	Stock     StockApplier
	Codes     txcode.Generator
	Templates TemplateCache
	Audit     audit.Sink
	TxManager tx.Manager
	Prefixes  txcode.Config

	// History is optional; without it History returns an empty trail.
	History audit.HistoryReader
}

// Service provides business operations for movement records.
type Service struct {
	repo      Repository
	stock     StockApplier
	codes     txcode.Generator
	templates TemplateCache
	audit     audit.Sink
	history   audit.HistoryReader
	txManager tx.Manager
	prefixes  txcode.Config
	hooks     *domain.HookRegistry[*Record]
}

// NewService creates a new movement service.
func NewService(cfg ServiceConfig) *Service {
	prefixes := cfg.Prefixes
	if prefixes.InboundPrefix == "" || prefixes.OutboundPrefix == "" {
		prefixes = txcode.DefaultConfig()
	}

	s := &Service{
		repo:      cfg.Repo,
		stock:     cfg.Stock,
		codes:     cfg.Codes,
		templates: cfg.Templates,
		audit:     cfg.Audit,
		history:   cfg.History,
		txManager: cfg.TxManager,
		prefixes:  prefixes,
		hooks:     domain.NewHookRegistry[*Record](),
	}

	if s.templates != nil {
		s.hooks.On(domain.AfterCreate, func(ctx context.Context, _ *Record) error {
			return s.templates.Invalidate(ctx)
		})
	}

	return s
}

// Hooks returns the hook registry for external registration.
// Hooks run after commit; their failures are logged only.
func (s *Service) Hooks() *domain.HookRegistry[*Record] {
	return s.hooks
}

// CreateInput describes a new draft.
type CreateInput struct {
	Direction Direction
	Date      time.Time
	Note      string
	Lines     []LineInput
}

// UpdateInput replaces the editable parts of a draft.
type UpdateInput struct {
	Date  time.Time
	Note  string
	Lines []LineInput
}

// Create persists a new draft record with its lines. Stock is not touched.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Record, error) {
	if !in.Direction.IsValid() {
		return nil, apperror.NewValidation("direction is required").WithDetail("field", "direction")
	}
	if in.Date.IsZero() {
		return nil, apperror.NewValidation("date is required").WithDetail("field", "date")
	}
	if err := ValidateLines(in.Lines, false); err != nil {
		return nil, err
	}

	rec := NewRecord(in.Direction, in.Date, in.Note, appctx.GetUserID(ctx))
	rec.TransactionCode = s.codes.Generate(ctx, CodePrefix(s.prefixes, in.Direction))
	rec.SetLines(in.Lines)

	if err := rec.Validate(ctx); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, rec); err != nil {
			return fmt.Errorf("create record: %w", err)
		}
		if len(rec.Lines) > 0 {
			if err := s.repo.ReplaceLines(ctx, rec.ID, rec.Lines); err != nil {
				return fmt.Errorf("save lines: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "movement created",
		"id", rec.ID, "code", rec.TransactionCode, "direction", rec.Direction, "lines", rec.ItemCount)

	s.afterCommit(ctx, domain.AfterCreate, rec)
	s.emit(ctx, audit.ActionCreate, rec, nil)

	return rec, nil
}

// Get returns a record with its lines.
func (s *Service) Get(ctx context.Context, recID id.ID) (*Record, error) {
	rec, err := s.repo.GetByID(ctx, recID)
	if err != nil {
		return nil, err
	}
	return s.withLines(ctx, rec)
}

// GetByCode returns the record carrying a transaction code.
func (s *Service) GetByCode(ctx context.Context, code string) (*Record, error) {
	rec, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.withLines(ctx, rec)
}

func (s *Service) withLines(ctx context.Context, rec *Record) (*Record, error) {
	lines, err := s.repo.GetLines(ctx, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	rec.Lines = lines
	rec.RecalculateTotals()
	return rec, nil
}

// Update replaces date, note and the whole line set of a draft.
func (s *Service) Update(ctx context.Context, recID id.ID, in UpdateInput) (*Record, error) {
	if in.Date.IsZero() {
		return nil, apperror.NewValidation("date is required").WithDetail("field", "date")
	}
	if err := ValidateLines(in.Lines, true); err != nil {
		return nil, err
	}

	var rec *Record
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		rec, err = s.repo.GetForUpdate(ctx, recID)
		if err != nil {
			return err
		}
		if err := rec.CanModify(); err != nil {
			return err
		}

		rec.Date = entity.TruncateDate(in.Date)
		rec.Note = in.Note
		rec.SetLines(in.Lines)
		rec.Touch(appctx.GetUserID(ctx))

		if err := s.repo.Update(ctx, rec); err != nil {
			return fmt.Errorf("update record: %w", err)
		}
		if err := s.repo.ReplaceLines(ctx, rec.ID, rec.Lines); err != nil {
			return fmt.Errorf("replace lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, domain.AfterUpdate, rec)
	s.emit(ctx, audit.ActionUpdate, rec, nil)
	return rec, nil
}

// UpdateNote changes only the note. Allowed for drafts and submitted records alike.
func (s *Service) UpdateNote(ctx context.Context, recID id.ID, note string) (*Record, error) {
	var rec *Record
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		rec, err = s.repo.GetForUpdate(ctx, recID)
		if err != nil {
			return err
		}
		rec.Note = note
		rec.Touch(appctx.GetUserID(ctx))
		if err := s.repo.Update(ctx, rec); err != nil {
			return fmt.Errorf("update note: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, domain.AfterUpdate, rec)
	rec, err = s.withLines(ctx, rec)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, audit.ActionUpdateNote, rec, nil)
	return rec, nil
}

// Submit finalizes a draft: its lines are replaced with lines, stock is
// adjusted and the status becomes submitted, all in one transaction.
//
// Submitting an already submitted record fails with ALREADY_SUBMITTED and
// changes nothing. For outbound records every line is checked against the
// stock left by the lines before it; a shortfall aborts the whole submission.
func (s *Service) Submit(ctx context.Context, recID id.ID, lines []LineInput) (*Record, error) {
	if err := ValidateLines(lines, true); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "movement.submit",
		trace.WithAttributes(
			attribute.String("movement.id", recID.String()),
			attribute.Int("movement.lines", len(lines)),
		))
	defer span.End()

	var rec *Record
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		rec, err = s.repo.GetForUpdate(ctx, recID)
		if err != nil {
			return err
		}
		if err := rec.CanModify(); err != nil {
			return err
		}

		rec.SetLines(lines)
		if err := s.repo.ReplaceLines(ctx, rec.ID, rec.Lines); err != nil {
			return fmt.Errorf("replace lines: %w", err)
		}

		stored, err := s.repo.GetLines(ctx, rec.ID)
		if err != nil {
			return fmt.Errorf("reload lines: %w", err)
		}
		rec.Lines = stored
		rec.RecalculateTotals()

		if err := s.stock.Apply(ctx, Adjustments(rec.Direction, stored)); err != nil {
			return err
		}

		rec.MarkSubmitted(appctx.GetUserID(ctx))
		if err := s.repo.Update(ctx, rec); err != nil {
			return fmt.Errorf("mark submitted: %w", err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("movement.code", rec.TransactionCode))
	logger.Info(ctx, "movement submitted",
		"id", rec.ID, "code", rec.TransactionCode, "direction", rec.Direction,
		"lines", rec.ItemCount, "quantity", rec.TotalQuantity)

	s.afterCommit(ctx, domain.AfterSubmit, rec)
	s.emit(ctx, audit.ActionSubmit, rec, map[string]any{"total_quantity": rec.TotalQuantity})
	return rec, nil
}

// Delete removes a draft and its lines.
func (s *Service) Delete(ctx context.Context, recID id.ID) error {
	var rec *Record
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		rec, err = s.repo.GetForUpdate(ctx, recID)
		if err != nil {
			return err
		}
		if err := rec.CanModify(); err != nil {
			return err
		}
		// Counted before the cascade so the audit trail keeps it.
		if rec, err = s.withLines(ctx, rec); err != nil {
			return err
		}
		return s.repo.Delete(ctx, recID)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "movement deleted", "id", recID, "code", rec.TransactionCode)
	s.afterCommit(ctx, domain.AfterDelete, rec)
	s.emit(ctx, audit.ActionDelete, rec, nil)
	return nil
}

// List returns one page of records and statistics over the same filter.
func (s *Service) List(ctx context.Context, filter ListFilter) (*ListPage, error) {
	filter.Normalize()
	if filter.OrderBy == "" {
		filter.OrderBy = DefaultOrder
	}
	if filter.Direction != nil && !filter.Direction.IsValid() {
		return nil, apperror.NewValidation("unknown direction").WithDetail("field", "direction")
	}
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, apperror.NewValidation("unknown status").WithDetail("field", "status")
	}
	if _, _, err := ParseOrder(filter.OrderBy); err != nil {
		return nil, err
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateTo.Before(*filter.DateFrom) {
		return nil, apperror.NewValidation("dateTo must not precede dateFrom").WithDetail("field", "dateTo")
	}

	page, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	stats, err := s.repo.Stats(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("record stats: %w", err)
	}

	return &ListPage{ListResult: page, Stats: stats}, nil
}

// TemplateVariants returns the active template so callers can pre-fill a draft.
func (s *Service) TemplateVariants(ctx context.Context) (*template.Snapshot, error) {
	if s.templates == nil {
		return &template.Snapshot{VariantIDs: []id.ID{}}, nil
	}
	return s.templates.GetOrRefresh(ctx)
}

// History returns the audit trail of an existing record, newest first.
func (s *Service) History(ctx context.Context, recID id.ID, limit int) ([]audit.Event, error) {
	if _, err := s.repo.GetByID(ctx, recID); err != nil {
		return nil, err
	}
	if s.history == nil {
		return []audit.Event{}, nil
	}
	if limit <= 0 || limit > domain.MaxLimit {
		limit = domain.DefaultLimit
	}
	events, err := s.history.History(ctx, EntityName, recID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("audit history: %w", err)
	}
	return events, nil
}

func (s *Service) afterCommit(ctx context.Context, event domain.HookEvent, rec *Record) {
	for _, err := range s.hooks.Run(ctx, event, rec) {
		logger.Warn(ctx, "post-commit hook failed", "event", event, "id", rec.ID, "error", err)
	}
}

// auditDetails is the payload every movement event carries.
func auditDetails(rec *Record) map[string]any {
	return map[string]any{
		"date":             rec.Date.Format(time.DateOnly),
		"transaction_code": rec.TransactionCode,
		"direction":        string(rec.Direction),
		"item_count":       rec.ItemCount,
	}
}

func (s *Service) emit(ctx context.Context, action audit.Action, rec *Record, extra map[string]any) {
	details := auditDetails(rec)
	for k, v := range extra {
		details[k] = v
	}
	audit.Emit(ctx, s.audit, audit.Event{
		Action:     action,
		EntityType: EntityName,
		EntityID:   rec.ID.String(),
		Details:    details,
	})
}
