package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"counsel/backend/internal/domain"
	"counsel/backend/internal/store"
)

func (q queries) GetBooking(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error) {
	var booking domain.Booking
	err := q.db.NewSelect().
		Model(&booking).
		Where("id = ?", bookingID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return domain.Booking{}, store.ErrNotFound
		}
		return domain.Booking{}, store.Unavailable("get booking", err)
	}
	return booking, nil
}

func (q queries) ListBookingsForSlot(ctx context.Context, slotID uuid.UUID) ([]domain.Booking, error) {
	rows := make([]domain.Booking, 0)
	err := q.db.NewSelect().
		Model(&rows).
		Where("slot_id = ?", slotID).
		OrderExpr("created_at ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, store.Unavailable("list bookings", err)
	}
	return rows, nil
}

func (t *pgTx) CountSubjectBookings(ctx context.Context, subjectID string, date time.Time) (int, error) {
	n, err := t.tx.NewSelect().
		Model((*domain.Booking)(nil)).
		Where("subject_id = ?", subjectID).
		Where("date = ?", domain.FormatDate(date)).
		Count(ctx)
	if err != nil {
		return 0, store.Unavailable("count subject bookings", err)
	}
	return n, nil
}

func (t *pgTx) InsertBooking(ctx context.Context, booking domain.Booking) (domain.Booking, error) {
	m := booking
	if _, err := t.tx.NewInsert().Model(&m).Exec(ctx); err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return domain.Booking{}, store.ErrNotFound
		}
		return domain.Booking{}, store.Unavailable("insert booking", err)
	}
	return m, nil
}

func (t *pgTx) DeleteBooking(ctx context.Context, subjectID string, bookingID uuid.UUID) (domain.Booking, error) {
	var booking domain.Booking
	err := t.tx.NewDelete().
		Model(&booking).
		Where("id = ?", bookingID).
		Where("subject_id = ?", subjectID).
		Returning("*").
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return domain.Booking{}, store.ErrNotFound
		}
		return domain.Booking{}, store.Unavailable("delete booking", err)
	}
	return booking, nil
}
