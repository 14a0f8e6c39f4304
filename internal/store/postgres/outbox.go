package postgres

import (
	"context"

	"github.com/google/uuid"

	"counsel/backend/internal/domain"
	"counsel/backend/internal/store"
)

func (t *pgTx) AppendEvent(ctx context.Context, event domain.Event) error {
	m := event
	_, err := t.tx.NewInsert().Model(&m).Exec(ctx)
	return store.Unavailable("append event", err)
}

// FetchPending returns undelivered events oldest first. Rows are not locked;
// a second deliverer may publish the same event, which consumers tolerate.
func (s *Store) FetchPending(ctx context.Context, limit int) ([]domain.Event, error) {
	rows := make([]domain.Event, 0, limit)
	err := s.db.NewSelect().
		Model(&rows).
		Where("delivered_at IS NULL").
		OrderExpr("created_at ASC, id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, store.Unavailable("fetch outbox", err)
	}
	return rows, nil
}

func (s *Store) MarkDelivered(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.db.NewUpdate().
		Model((*domain.Event)(nil)).
		Set("delivered_at = now()").
		Where("id = ?", id).
		Where("delivered_at IS NULL").
		Exec(ctx)
	if err != nil {
		return false, store.Unavailable("mark delivered", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, store.Unavailable("mark delivered", err)
	}
	return n > 0, nil
}
