package postgres

import (
	"context"

	"github.com/google/uuid"

	"counsel/backend/internal/domain"
	"counsel/backend/internal/store"
)

func (q queries) ListVacations(ctx context.Context, providerID string) ([]domain.VacationRange, error) {
	rows := make([]domain.VacationRange, 0)
	err := q.db.NewSelect().
		Model(&rows).
		Where("provider_id = ?", providerID).
		OrderExpr("start_date ASC, end_date ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, store.Unavailable("list vacations", err)
	}
	return rows, nil
}

func (t *pgTx) InsertVacation(ctx context.Context, v domain.VacationRange) (domain.VacationRange, error) {
	m := v
	if _, err := t.tx.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.VacationRange{}, store.Unavailable("insert vacation", err)
	}
	return m, nil
}

func (t *pgTx) DeleteVacation(ctx context.Context, providerID string, vacationID uuid.UUID) (domain.VacationRange, error) {
	var v domain.VacationRange
	err := t.tx.NewDelete().
		Model(&v).
		Where("id = ?", vacationID).
		Where("provider_id = ?", providerID).
		Returning("*").
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return domain.VacationRange{}, store.ErrNotFound
		}
		return domain.VacationRange{}, store.Unavailable("delete vacation", err)
	}
	return v, nil
}
