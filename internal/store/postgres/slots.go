package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"counsel/backend/internal/domain"
	"counsel/backend/internal/store"
)

func (q queries) GetSlot(ctx context.Context, slotID uuid.UUID) (domain.Slot, error) {
	var slot domain.Slot
	err := q.db.NewSelect().
		Model(&slot).
		Where("id = ?", slotID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return domain.Slot{}, store.ErrNotFound
		}
		return domain.Slot{}, store.Unavailable("get slot", err)
	}
	return slot, nil
}

func (q queries) ListSlots(ctx context.Context, f store.SlotFilter) ([]domain.Slot, error) {
	rows := make([]domain.Slot, 0)
	query := q.db.NewSelect().
		Model(&rows).
		Where("provider_id = ?", f.ProviderID)
	if f.Range != nil {
		query = inRange(query, *f.Range)
	}
	if f.AvailableOnly {
		query = query.
			Where("booked_count < total_capacity").
			Where("NOT blacked")
	}
	err := query.
		OrderExpr("date ASC, start_minute ASC, created_at ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, store.Unavailable("list slots", err)
	}
	return rows, nil
}

func inRange(q *bun.SelectQuery, r domain.DateRange) *bun.SelectQuery {
	return q.
		Where("date >= ?", domain.FormatDate(r.From)).
		Where("date <= ?", domain.FormatDate(r.To))
}

func (t *pgTx) CreateSlot(ctx context.Context, slot domain.Slot) (domain.Slot, error) {
	m := slot
	if _, err := t.tx.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.Slot{}, store.Unavailable("create slot", err)
	}
	return m, nil
}

func (t *pgTx) DeleteSlot(ctx context.Context, providerID string, slotID uuid.UUID) error {
	res, err := t.tx.NewDelete().
		Model((*domain.Slot)(nil)).
		Where("id = ?", slotID).
		Where("provider_id = ?", providerID).
		Where("booked_count = 0").
		Exec(ctx)
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return store.ErrSlotHasBookings
		}
		return store.Unavailable("delete slot", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return store.Unavailable("delete slot", err)
	}
	if affected > 0 {
		return nil
	}
	return t.explainMiss(ctx, providerID, slotID)
}

// explainMiss turns a guarded write that matched nothing into the reason it
// did not apply.
func (t *pgTx) explainMiss(ctx context.Context, providerID string, slotID uuid.UUID) error {
	slot, err := t.GetSlot(ctx, slotID)
	if err != nil {
		return err
	}
	if slot.ProviderID != providerID {
		return store.ErrNotFound
	}
	if slot.BookedCount > 0 {
		return store.ErrSlotHasBookings
	}
	return store.ErrNotFound
}

func (t *pgTx) UpdateCapacity(ctx context.Context, providerID string, slotID uuid.UUID, totalCapacity int) (domain.Slot, error) {
	var slot domain.Slot
	err := t.tx.NewUpdate().
		Model(&slot).
		Set("total_capacity = ?", totalCapacity).
		Set("updated_at = now()").
		Where("id = ?", slotID).
		Where("provider_id = ?", providerID).
		Where("booked_count = 0").
		Returning("*").
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return domain.Slot{}, t.explainMiss(ctx, providerID, slotID)
		}
		return domain.Slot{}, store.Unavailable("update capacity", err)
	}
	return slot, nil
}

func (t *pgTx) ReserveCapacity(ctx context.Context, slotID uuid.UUID) (domain.Slot, error) {
	var slot domain.Slot
	err := t.tx.NewUpdate().
		Model(&slot).
		Set("booked_count = booked_count + 1").
		Set("updated_at = now()").
		Where("id = ?", slotID).
		Where("booked_count < total_capacity").
		Where("NOT blacked").
		Returning("*").
		Scan(ctx)
	if err == nil {
		return slot, nil
	}
	if pgCode(err) == pgCheckViolation {
		return domain.Slot{}, store.ErrSlotFull
	}
	if !isNoRows(err) {
		return domain.Slot{}, store.Unavailable("reserve capacity", err)
	}

	current, err := t.GetSlot(ctx, slotID)
	if err != nil {
		return domain.Slot{}, err
	}
	if current.Blacked {
		return domain.Slot{}, store.ErrSlotBlacked
	}
	return domain.Slot{}, store.ErrSlotFull
}

func (t *pgTx) ReleaseCapacity(ctx context.Context, slotID uuid.UUID) error {
	_, err := t.tx.NewUpdate().
		Model((*domain.Slot)(nil)).
		Set("booked_count = GREATEST(booked_count - 1, 0)").
		Set("updated_at = now()").
		Where("id = ?", slotID).
		Exec(ctx)
	return store.Unavailable("release capacity", err)
}

func (t *pgTx) SetBlackout(ctx context.Context, providerID string, r domain.DateRange, blacked bool) (int, error) {
	res, err := t.tx.NewUpdate().
		Model((*domain.Slot)(nil)).
		Set("blacked = ?", blacked).
		Set("updated_at = now()").
		Where("provider_id = ?", providerID).
		Where("date >= ?", domain.FormatDate(r.From)).
		Where("date <= ?", domain.FormatDate(r.To)).
		Exec(ctx)
	if err != nil {
		return 0, store.Unavailable("set blackout", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, store.Unavailable("set blackout", err)
	}
	return int(affected), nil
}

func (t *pgTx) DeleteEmptySlots(ctx context.Context, providerID string, r domain.DateRange) (int, int, error) {
	res, err := t.tx.NewDelete().
		Model((*domain.Slot)(nil)).
		Where("provider_id = ?", providerID).
		Where("date >= ?", domain.FormatDate(r.From)).
		Where("date <= ?", domain.FormatDate(r.To)).
		Where("booked_count = 0").
		Exec(ctx)
	if err != nil {
		return 0, 0, store.Unavailable("clear slots", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, 0, store.Unavailable("clear slots", err)
	}

	skipped, err := inRange(t.tx.NewSelect().Model((*domain.Slot)(nil)), r).
		Where("provider_id = ?", providerID).
		Where("booked_count > 0").
		Count(ctx)
	if err != nil {
		return 0, 0, store.Unavailable("count booked slots", err)
	}
	return int(deleted), skipped, nil
}
