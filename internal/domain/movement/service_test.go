package movement_test

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/txcode"
	"stockledger/internal/domain"
	"stockledger/internal/domain/audit"
	"stockledger/internal/domain/movement"
	"stockledger/internal/domain/stock"
	"stockledger/internal/domain/template"
	"stockledger/internal/infrastructure/storage/memory"
	txcodesvc "stockledger/pkg/txcode"
)

type fixture struct {
	store *memory.Store
	audit *audit.MemorySink
	svc   *movement.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.New()
	sink := audit.NewMemorySink()
	svc := movement.NewService(movement.ServiceConfig{
		Repo:      store.Movements(),
		Stock:     stock.NewService(store.Variants()),
		Codes:     txcodesvc.New(store.Movements()),
		Templates: template.NewCache(store, template.NewMemoryStore(), time.Minute),
		Audit:     sink,
		TxManager: store,
		Prefixes:  txcode.DefaultConfig(),
		History:   sink,
	})
	return &fixture{store: store, audit: sink, svc: svc}
}

func (f *fixture) variant(t *testing.T, onHand int64) id.ID {
	t.Helper()
	v := stock.Variant{ID: id.New(), ProductID: id.New(), SKU: "SKU-" + id.New().String()[:8], Name: "Widget", StockCurrent: onHand}
	f.store.PutVariant(v)
	return v.ID
}

func (f *fixture) onHand(t *testing.T, variantID id.ID) int64 {
	t.Helper()
	v, err := f.store.Variants().GetVariant(context.Background(), variantID)
	require.NoError(t, err)
	return v.StockCurrent
}

func (f *fixture) draft(t *testing.T, dir movement.Direction, lines ...movement.LineInput) *movement.Record {
	t.Helper()
	rec, err := f.svc.Create(userCtx(), movement.CreateInput{
		Direction: dir,
		Date:      time.Date(2026, 5, 14, 15, 30, 0, 0, time.UTC),
		Lines:     lines,
	})
	require.NoError(t, err)
	return rec
}

func userCtx() context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "clerk-1"})
}

func line(v id.ID, qty int64) movement.LineInput {
	return movement.LineInput{VariantID: v, Quantity: qty}
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	require.Equal(t, code, appErr.Code)
}

func actions(events []audit.Event) []audit.Action {
	out := make([]audit.Action, 0, len(events))
	for _, e := range events {
		out = append(out, e.Action)
	}
	return out
}

// --- Create ---

func TestCreate_Draft(t *testing.T) {
	f := newFixture(t)
	v := f.variant(t, 5)

	rec := f.draft(t, movement.Inbound, line(v, 3), line(v, 2))

	assert.Regexp(t, regexp.MustCompile(`^IN-\d{12}$`), rec.TransactionCode)
	assert.Equal(t, entity.StatusDraft, rec.Status)
	assert.Equal(t, time.Date(2026, 5, 14, 0, 0, 0, 0, time.UTC), rec.Date)
	assert.Equal(t, "clerk-1", rec.CreatedBy)
	assert.Equal(t, int64(5), f.onHand(t, v), "drafts never move stock")

	got, err := f.svc.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 2)
	assert.Equal(t, 1, got.Lines[0].LineNo)
	assert.Equal(t, int64(3), got.Lines[0].Quantity)
	assert.Equal(t, 2, got.ItemCount)
	assert.Equal(t, int64(5), got.TotalQuantity)

	events := f.audit.Events()
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionCreate, events[0].Action)
	assert.Equal(t, "clerk-1", events[0].ActorID)
	assert.Equal(t, rec.ID.String(), events[0].EntityID)
}

func TestCreate_OutboundPrefix(t *testing.T) {
	f := newFixture(t)
	rec := f.draft(t, movement.Outbound)
	assert.Regexp(t, regexp.MustCompile(`^OUT-\d{12}$`), rec.TransactionCode)
	assert.Empty(t, rec.Lines)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	v := f.variant(t, 0)
	date := time.Now()

	cases := []struct {
		name string
		in   movement.CreateInput
	}{
		{"zero quantity", movement.CreateInput{Direction: movement.Inbound, Date: date, Lines: []movement.LineInput{line(v, 0)}}},
		{"negative quantity", movement.CreateInput{Direction: movement.Inbound, Date: date, Lines: []movement.LineInput{line(v, -1)}}},
		{"missing variant", movement.CreateInput{Direction: movement.Inbound, Date: date, Lines: []movement.LineInput{{Quantity: 1}}}},
		{"missing date", movement.CreateInput{Direction: movement.Inbound}},
		{"bad direction", movement.CreateInput{Direction: "sideways", Date: date}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), tc.in)
			assert.True(t, apperror.IsValidation(err), "got %v", err)
		})
	}

	page, err := f.svc.List(context.Background(), movement.ListFilter{})
	require.NoError(t, err)
	assert.Zero(t, page.TotalCount)
	assert.Empty(t, f.audit.Events())
}

func TestCreate_UnknownVariantRollsBack(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), movement.CreateInput{
		Direction: movement.Inbound,
		Date:      time.Now(),
		Lines:     []movement.LineInput{line(id.New(), 1)},
	})
	assert.True(t, apperror.IsNotFound(err))

	page, err := f.svc.List(context.Background(), movement.ListFilter{})
	require.NoError(t, err)
	assert.Zero(t, page.TotalCount, "header insert rolled back with the lines")
}

func TestCreate_InvalidatesTemplateCache(t *testing.T) {
	f := newFixture(t)
	first, second := f.variant(t, 0), f.variant(t, 0)
	f.store.PutTemplate(memory.ItemTemplate{ID: id.New(), Name: "A", VariantIDs: []id.ID{first}, Active: true})

	snap, err := f.svc.TemplateVariants(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []id.ID{first}, snap.VariantIDs)

	f.store.PutTemplate(memory.ItemTemplate{ID: id.New(), Name: "B", VariantIDs: []id.ID{second}, Active: true})

	snap, err = f.svc.TemplateVariants(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []id.ID{first}, snap.VariantIDs, "still cached")

	f.draft(t, movement.Inbound)

	snap, err = f.svc.TemplateVariants(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []id.ID{second}, snap.VariantIDs)
	assert.Equal(t, "B", snap.Name)
}

func TestCreate_AuditFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.audit.FailWith(errors.New("audit down"))

	rec := f.draft(t, movement.Inbound)

	_, err := f.svc.Get(context.Background(), rec.ID)
	assert.NoError(t, err)
}

// --- Update ---

func TestUpdate_ReplacesLines(t *testing.T) {
	f := newFixture(t)
	a, b := f.variant(t, 0), f.variant(t, 0)
	rec := f.draft(t, movement.Inbound, line(a, 1), line(a, 1), line(a, 1))

	updated, err := f.svc.Update(userCtx(), rec.ID, movement.UpdateInput{
		Date:  time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		Note:  "recount",
		Lines: []movement.LineInput{line(b, 7)},
	})
	require.NoError(t, err)
	assert.Equal(t, rec.TransactionCode, updated.TransactionCode, "code is never reassigned")

	got, err := f.svc.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, b, got.Lines[0].VariantID)
	assert.Equal(t, int64(7), got.Lines[0].Quantity)
	assert.Equal(t, "recount", got.Note)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, int64(0), f.onHand(t, b))
}

func TestUpdate_RequiresLines(t *testing.T) {
	f := newFixture(t)
	rec := f.draft(t, movement.Inbound)

	_, err := f.svc.Update(context.Background(), rec.ID, movement.UpdateInput{Date: time.Now()})
	assert.True(t, apperror.IsValidation(err))
}

func TestUpdate_SubmittedRejected(t *testing.T) {
	f := newFixture(t)
	v := f.variant(t, 0)
	rec := f.draft(t, movement.Inbound, line(v, 4))
	_, err := f.svc.Submit(context.Background(), rec.ID, []movement.LineInput{line(v, 4)})
	require.NoError(t, err)

	_, err = f.svc.Update(context.Background(), rec.ID, movement.UpdateInput{
		Date:  time.Now(),
		Lines: []movement.LineInput{line(v, 100)},
	})
	requireCode(t, err, apperror.CodeAlreadySubmitted)

	got, err := f.svc.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.Lines[0].Quantity)
	assert.Equal(t, int64(4), f.onHand(t, v))
}

func TestUpdate_NotFound(t *testing.T) {
	f := newFixture(t)
	v := f.variant(t, 0)
	_, err := f.svc.Update(context.Background(), id.New(), movement.UpdateInput{
		Date:  time.Now(),
		Lines: []movement.LineInput{line(v, 1)},
	})
	assert.True(t, apperror.IsNotFound(err))
}

func TestUpdateNote_AllowedAfterSubmit(t *testing.T) {
	f := newFixture(t)
	v := f.variant(t, 0)
	rec := f.draft(t, movement.Inbound, line(v, 1))
	_, err := f.svc.Submit(context.Background(), rec.ID, []movement.LineInput{line(v, 1)})
	require.NoError(t, err)

	got, err := f.svc.UpdateNote(userCtx(), rec.ID, "pallet damaged on arrival")
	require.NoError(t, err)
	assert.Equal(t, "pallet damaged on arrival", got.Note)
	assert.Equal(t, entity.StatusSubmitted, got.Status)
	assert.Len(t, got.Lines, 1)
	assert.Equal(t, int64(1), f.onHand(t, v))
	assert.Contains(t, actions(f.audit.Events()), audit.ActionUpdateNote)
}

// --- Submit ---

func TestSubmit_InboundAddsStock(t *testing.T) {
	f := newFixture(t)
	a, b := f.variant(t, 2), f.variant(t, 0)
	rec := f.draft(t, movement.Inbound, line(a, 1))

	submitted, err := f.svc.Submit(userCtx(), rec.ID, []movement.LineInput{line(a, 3), line(b, 4), line(a, 5)})
	require.NoError(t, err)

	assert.Equal(t, entity.StatusSubmitted, submitted.Status)
	assert.Equal(t, "clerk-1", submitted.SubmittedBy)
	assert.NotNil(t, submitted.SubmittedAt)
	assert.Equal(t, int64(10), f.onHand(t, a))
	assert.Equal(t, int64(4), f.onHand(t, b))
	assert.Equal(t, 3, submitted.ItemCount)
	assert.Equal(t, int64(12), submitted.TotalQuantity)

	got, err := f.svc.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 3, "final line set replaced the draft lines")
	assert.Equal(t, []audit.Action{audit.ActionCreate, audit.ActionSubmit}, actions(f.audit.Events()))
}

func TestSubmit_OutboundRemovesStock(t *testing.T) {
	f := newFixture(t)
	v := f.variant(t, 10)
	rec := f.draft(t, movement.Outbound, line(v, 4))

	_, err := f.svc.Submit(context.Background(), rec.ID, []movement.LineInput{line(v, 4), line(v, 6)})
	require.NoError(t, err)
	assert.Equal(t, int64(0), f.onHand(t, v))
}

func TestSubmit_InsufficientStockRollsBack(t *testing.T) {
	f := newFixture(t)
	a, b := f.variant(t, 10), f.variant(t, 1)
	rec := f.draft(t, movement.Outbound, line(a, 1))

	_, err := f.svc.Submit(context.Background(), rec.ID, []movement.LineInput{line(a, 5), line(b, 2)})

	requireCode(t, err, apperror.CodeInsufficientStock)
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, b.String(), appErr.Details["variant_id"])
	assert.Equal(t, int64(1), appErr.Details["available"])
	assert.Equal(t, int64(2), appErr.Details["requested"])

	assert.Equal(t, int64(10), f.onHand(t, a))
	assert.Equal(t, int64(1), f.onHand(t, b))

	got, err := f.svc.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusDraft, got.Status)
	require.Len(t, got.Lines, 1, "line replacement rolled back")
	assert.Equal(t, int64(1), got.Lines[0].Quantity)
	assert.Equal(t, []audit.Action{audit.ActionCreate}, actions(f.audit.Events()))
}

func TestSubmit_ChecksFinalLinesNotDraft(t *testing.T) {
	f := newFixture(t)
	v := f.variant(t, 3)
	rec := f.draft(t, movement.Outbound, line(v, 50))

	_, err := f.svc.Submit(context.Background(), rec.ID, []movement.LineInput{line(v, 3)})
	require.NoError(t, err)
	assert.Equal(t, int64(0), f.onHand(t, v))
}

func TestSubmit_Twice(t *testing.T) {
	f := newFixture(t)
	v := f.variant(t, 0)
	rec := f.draft(t, movement.Inbound, line(v, 5))

	_, err := f.svc.Submit(context.Background(), rec.ID, []movement.LineInput{line(v, 5)})
	require.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), rec.ID, []movement.LineInput{line(v, 5)})
	requireCode(t, err, apperror.CodeAlreadySubmitted)
	assert.Equal(t, int64(5), f.onHand(t, v), "applied exactly once")
}

func TestSubmit_Validation(t *testing.T) {
	f := newFixture(t)
	v := f.variant(t, 5)
	rec := f.draft(t, movement.Inbound, line(v, 1))

	_, err := f.svc.Submit(context.Background(), rec.ID, nil)
	assert.True(t, apperror.IsValidation(err))

	_, err = f.svc.Submit(context.Background(), rec.ID, []movement.LineInput{line(v, 0)})
	assert.True(t, apperror.IsValidation(err))

	got, err := f.svc.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusDraft, got.Status)
	assert.Equal(t, int64(5), f.onHand(t, v))
}

func TestSubmit_UnknownVariant(t *testing.T) {
	f := newFixture(t)
	rec := f.draft(t, movement.Inbound)

	_, err := f.svc.Submit(context.Background(), rec.ID, []movement.LineInput{line(id.New(), 1)})
	assert.True(t, apperror.IsNotFound(err))

	got, err := f.svc.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusDraft, got.Status)
}

func TestSubmit_ConcurrentSameRecord(t *testing.T) {
	f := newFixture(t)
	v := f.variant(t, 0)
	rec := f.draft(t, movement.Inbound, line(v, 1))

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Submit(context.Background(), rec.ID, []movement.LineInput{line(v, 3)})
		}(i)
	}
	wg.Wait()

	var ok, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apperror.IsAlreadySubmitted(err):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, rejected)
	assert.Equal(t, int64(3), f.onHand(t, v))
}

func TestSubmit_ConcurrentOutboundNeverOversells(t *testing.T) {
	f := newFixture(t)
	v := f.variant(t, 5)

	const n = 6
	recs := make([]*movement.Record, n)
	for i := range recs {
		recs[i] = f.draft(t, movement.Outbound, line(v, 2))
	}

	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Submit(context.Background(), recs[i].ID, []movement.LineInput{line(v, 2)})
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t, apperror.IsInsufficientStock(err), "got %v", err)
	}
	assert.Equal(t, 2, ok)
	assert.Equal(t, int64(1), f.onHand(t, v))
}

func TestSubmit_OutboundBoundary(t *testing.T) {
	tests := []struct {
		name      string
		qty       int64
		wantErr   bool
		wantStock int64
	}{
		{name: "exactly on hand", qty: 5, wantStock: 0},
		{name: "one over", qty: 6, wantErr: true, wantStock: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			v := f.variant(t, 5)
			rec := f.draft(t, movement.Outbound, line(v, tt.qty))

			_, err := f.svc.Submit(context.Background(), rec.ID, []movement.LineInput{line(v, tt.qty)})
			if tt.wantErr {
				requireCode(t, err, apperror.CodeInsufficientStock)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantStock, f.onHand(t, v))
		})
	}
}

func TestScenario_InboundSubmitThenResubmit(t *testing.T) {
	f := newFixture(t)
	a := f.variant(t, 7)
	rec := f.draft(t, movement.Inbound, line(a, 10))

	submitted, err := f.svc.Submit(context.Background(), rec.ID, []movement.LineInput{line(a, 10)})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusSubmitted, submitted.Status)
	assert.Equal(t, int64(17), f.onHand(t, a))

	_, err = f.svc.Submit(context.Background(), rec.ID, []movement.LineInput{line(a, 10)})
	requireCode(t, err, apperror.CodeAlreadySubmitted)
	assert.Equal(t, int64(17), f.onHand(t, a))
}

func TestScenario_OutboundShortStaysDraft(t *testing.T) {
	f := newFixture(t)
	b := f.variant(t, 2)
	rec := f.draft(t, movement.Outbound, line(b, 3))

	_, err := f.svc.Submit(context.Background(), rec.ID, []movement.LineInput{line(b, 3)})
	requireCode(t, err, apperror.CodeInsufficientStock)

	assert.Equal(t, int64(2), f.onHand(t, b))
	got, err := f.svc.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusDraft, got.Status)
}

func TestScenario_UpdateReplacesWholeLineSet(t *testing.T) {
	f := newFixture(t)
	a, b := f.variant(t, 0), f.variant(t, 0)
	rec := f.draft(t, movement.Inbound, line(a, 1))

	_, err := f.svc.Update(context.Background(), rec.ID, movement.UpdateInput{
		Date:  rec.Date,
		Lines: []movement.LineInput{line(a, 2), line(b, 1)},
	})
	require.NoError(t, err)

	got, err := f.svc.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 2)
	assert.Equal(t, a, got.Lines[0].VariantID)
	assert.Equal(t, int64(2), got.Lines[0].Quantity)
	assert.Equal(t, b, got.Lines[1].VariantID)
	assert.Equal(t, int64(1), got.Lines[1].Quantity)
}

// --- Audit ---

func TestAudit_DetailsOnEveryAction(t *testing.T) {
	f := newFixture(t)
	v := f.variant(t, 0)
	ctx := userCtx()

	kept := f.draft(t, movement.Inbound, line(v, 1))
	_, err := f.svc.Update(ctx, kept.ID, movement.UpdateInput{
		Date:  kept.Date,
		Lines: []movement.LineInput{line(v, 2), line(v, 3)},
	})
	require.NoError(t, err)
	_, err = f.svc.UpdateNote(ctx, kept.ID, "checked")
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, kept.ID, []movement.LineInput{line(v, 2), line(v, 3)})
	require.NoError(t, err)

	dropped := f.draft(t, movement.Outbound, line(v, 1))
	require.NoError(t, f.svc.Delete(ctx, dropped.ID))

	events := f.audit.Events()
	require.Equal(t, []audit.Action{
		audit.ActionCreate, audit.ActionUpdate, audit.ActionUpdateNote, audit.ActionSubmit,
		audit.ActionCreate, audit.ActionDelete,
	}, actions(events))

	wantItems := []int{1, 2, 2, 2, 1, 1}
	for i, e := range events {
		rec := kept
		if i >= 4 {
			rec = dropped
		}
		assert.Equal(t, "2026-05-14", e.Details["date"], "event %d", i)
		assert.Equal(t, rec.TransactionCode, e.Details["transaction_code"], "event %d", i)
		assert.Equal(t, wantItems[i], e.Details["item_count"], "event %d", i)
	}
	assert.Equal(t, int64(5), events[3].Details["total_quantity"])
}

// --- Delete ---

func TestDelete_Draft(t *testing.T) {
	f := newFixture(t)
	v := f.variant(t, 0)
	rec := f.draft(t, movement.Inbound, line(v, 1))

	require.NoError(t, f.svc.Delete(userCtx(), rec.ID))

	_, err := f.svc.Get(context.Background(), rec.ID)
	assert.True(t, apperror.IsNotFound(err))
	_, err = f.svc.GetByCode(context.Background(), rec.TransactionCode)
	assert.True(t, apperror.IsNotFound(err))
	assert.Equal(t, audit.ActionDelete, f.audit.Events()[1].Action)
}

func TestDelete_SubmittedRejected(t *testing.T) {
	f := newFixture(t)
	v := f.variant(t, 0)
	rec := f.draft(t, movement.Inbound, line(v, 1))
	_, err := f.svc.Submit(context.Background(), rec.ID, []movement.LineInput{line(v, 1)})
	require.NoError(t, err)

	err = f.svc.Delete(context.Background(), rec.ID)
	requireCode(t, err, apperror.CodeAlreadySubmitted)

	_, err = f.svc.Get(context.Background(), rec.ID)
	assert.NoError(t, err)
}

// --- Read ---

func TestGetByCode(t *testing.T) {
	f := newFixture(t)
	v := f.variant(t, 0)
	rec := f.draft(t, movement.Inbound, line(v, 2))

	got, err := f.svc.GetByCode(context.Background(), rec.TransactionCode)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Len(t, got.Lines, 1)
}

func TestList_FilterAndStats(t *testing.T) {
	f := newFixture(t)
	v := f.variant(t, 100)

	in1 := f.draft(t, movement.Inbound, line(v, 1), line(v, 2))
	f.draft(t, movement.Inbound, line(v, 4))
	f.draft(t, movement.Outbound, line(v, 8))
	_, err := f.svc.Submit(context.Background(), in1.ID, []movement.LineInput{line(v, 1), line(v, 2)})
	require.NoError(t, err)

	inbound := movement.Inbound
	page, err := f.svc.List(context.Background(), movement.ListFilter{
		Direction: &inbound,
		Page:      domain.Page{Limit: 1},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2), page.TotalCount)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, movement.Stats{Draft: 1, Submitted: 1, Lines: 3, Quantity: 7}, page.Stats,
		"stats cover the whole filter, not the page")

	submitted := entity.StatusSubmitted
	page, err = f.svc.List(context.Background(), movement.ListFilter{Status: &submitted})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, in1.ID, page.Items[0].ID)
	assert.Equal(t, 2, page.Items[0].ItemCount)
	assert.Equal(t, int64(3), page.Items[0].TotalQuantity)
}

func TestList_SearchAndDates(t *testing.T) {
	f := newFixture(t)
	rec := f.draft(t, movement.Outbound)
	f.draft(t, movement.Inbound)

	page, err := f.svc.List(context.Background(), movement.ListFilter{Search: rec.TransactionCode[4:10]})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, rec.ID, page.Items[0].ID)

	page, err = f.svc.List(context.Background(), movement.ListFilter{Search: "_"})
	require.NoError(t, err)
	assert.Zero(t, page.TotalCount, "search text is literal, not a pattern")

	from := time.Date(2026, 5, 15, 0, 0, 0, 0, time.UTC)
	page, err = f.svc.List(context.Background(), movement.ListFilter{DateFrom: &from})
	require.NoError(t, err)
	assert.Zero(t, page.TotalCount)

	to := time.Date(2026, 5, 14, 0, 0, 0, 0, time.UTC)
	page, err = f.svc.List(context.Background(), movement.ListFilter{DateTo: &to})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.TotalCount)
}

func TestList_RejectsBadInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.List(context.Background(), movement.ListFilter{Page: domain.Page{OrderBy: "password"}})
	assert.True(t, apperror.IsValidation(err))

	from := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	_, err = f.svc.List(context.Background(), movement.ListFilter{DateFrom: &from, DateTo: &to})
	assert.True(t, apperror.IsValidation(err))
}

func TestTemplateVariants_NoActive(t *testing.T) {
	f := newFixture(t)

	snap, err := f.svc.TemplateVariants(context.Background())
	require.NoError(t, err)
	assert.False(t, snap.Active)
	assert.Empty(t, snap.VariantIDs)
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	v := f.variant(t, 0)
	rec := f.draft(t, movement.Inbound, line(v, 1))

	_, err := f.svc.UpdateNote(userCtx(), rec.ID, "checked")
	require.NoError(t, err)
	_, err = f.svc.Submit(userCtx(), rec.ID, []movement.LineInput{line(v, 2)})
	require.NoError(t, err)

	history, err := f.svc.History(context.Background(), rec.ID, 0)
	require.NoError(t, err)
	assert.Equal(t,
		[]audit.Action{audit.ActionSubmit, audit.ActionUpdateNote, audit.ActionCreate},
		actions(history))

	_, err = f.svc.History(context.Background(), id.New(), 0)
	assert.True(t, apperror.IsNotFound(err))
}
