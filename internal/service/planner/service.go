package planner

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"counsel/backend/internal/domain"
	"counsel/backend/internal/store"
)

var tracer = otel.Tracer("counsel.internal.service.planner")

// Metrics is satisfied by *metrics.SchedulingMetrics.
type Metrics interface {
	ObservePlanner(operation string, slots int)
}

type Service struct {
	store   store.Store
	metrics Metrics
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(st store.Store, metrics Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   st,
		metrics: metrics,
		logger:  logger.With("component", "planner"),
		now:     time.Now,
	}
}

func (s *Service) today() time.Time {
	return domain.DateOf(s.now())
}

func (s *Service) observe(operation string, n int) {
	if s.metrics != nil {
		s.metrics.ObservePlanner(operation, n)
	}
}

type CopyWeekInput struct {
	ProviderID string
	// From defaults to seven days before today.
	From time.Time
	// To defaults to From plus seven days.
	To time.Time
}

type weekPayload struct {
	From    string `json:"from"`
	To      string `json:"to,omitempty"`
	Count   int    `json:"count"`
	Skipped int    `json:"skipped,omitempty"`
}

// CopyWeek copies every slot dated in [From, From+6] to the same weekday
// and time in the target week. Copies start unbooked; they are blacked when
// a vacation range covers their new date. Repeated calls duplicate slots.
func (s *Service) CopyWeek(ctx context.Context, in CopyWeekInput) (int, error) {
	providerID := strings.TrimSpace(in.ProviderID)
	if providerID == "" {
		return 0, domain.Invalid("provider_id is required")
	}

	from := domain.DateOf(in.From)
	if in.From.IsZero() {
		from = s.today().AddDate(0, 0, -7)
	}
	to := domain.DateOf(in.To)
	if in.To.IsZero() {
		to = from.AddDate(0, 0, 7)
	}
	offset := daysBetween(from, to)
	if offset == 0 || offset%7 != 0 {
		return 0, domain.NewValidationError(domain.ErrInvalidRange, "target week must start a whole number of weeks from the source week")
	}

	ctx, span := tracer.Start(ctx, "planner.copy_week")
	defer span.End()
	span.SetAttributes(
		attribute.String("counsel.provider_id", providerID),
		attribute.Int("counsel.offset_days", offset),
	)

	created := 0
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Lock(ctx, store.ProviderLockKey(providerID)); err != nil {
			return err
		}

		week := domain.WeekFrom(from)
		source, err := tx.ListSlots(ctx, store.SlotFilter{ProviderID: providerID, Range: &week})
		if err != nil {
			return err
		}
		vacations, err := tx.ListVacations(ctx, providerID)
		if err != nil {
			return err
		}
		ranges := domain.VacationRanges(vacations)

		for _, src := range source {
			cp := src.CopyTo(src.Date.AddDate(0, 0, offset))
			cp.Blacked = domain.Covered(ranges, cp.Date)
			if _, err := tx.CreateSlot(ctx, cp); err != nil {
				return err
			}
			created++
		}

		event, err := domain.NewEvent(providerID, domain.EventWeekCopied, weekPayload{
			From:  domain.FormatDate(from),
			To:    domain.FormatDate(to),
			Count: created,
		})
		if err != nil {
			return err
		}
		return tx.AppendEvent(ctx, event)
	})
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	s.observe("copy_week", created)
	s.logger.Info("week copied",
		"provider_id", providerID,
		"from", domain.FormatDate(from),
		"to", domain.FormatDate(to),
		"created", created,
	)
	return created, nil
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

type ClearResult struct {
	Deleted int `json:"deleted"`
	// Skipped counts slots left in place because they have bookings.
	Skipped int `json:"skipped"`
}

// ClearWeek deletes the unbooked slots dated in [weekStart, weekStart+6].
// A zero weekStart means today.
func (s *Service) ClearWeek(ctx context.Context, providerID string, weekStart time.Time) (ClearResult, error) {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return ClearResult{}, domain.Invalid("provider_id is required")
	}
	start := domain.DateOf(weekStart)
	if weekStart.IsZero() {
		start = s.today()
	}

	ctx, span := tracer.Start(ctx, "planner.clear_week")
	defer span.End()
	span.SetAttributes(attribute.String("counsel.provider_id", providerID))

	var res ClearResult
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Lock(ctx, store.ProviderLockKey(providerID)); err != nil {
			return err
		}
		deleted, skipped, err := tx.DeleteEmptySlots(ctx, providerID, domain.WeekFrom(start))
		if err != nil {
			return err
		}
		res = ClearResult{Deleted: deleted, Skipped: skipped}

		event, err := domain.NewEvent(providerID, domain.EventWeekCleared, weekPayload{
			From:    domain.FormatDate(start),
			Count:   deleted,
			Skipped: skipped,
		})
		if err != nil {
			return err
		}
		return tx.AppendEvent(ctx, event)
	})
	if err != nil {
		span.RecordError(err)
		return ClearResult{}, err
	}

	s.observe("clear_week", res.Deleted)
	s.logger.Info("week cleared",
		"provider_id", providerID,
		"week_start", domain.FormatDate(start),
		"deleted", res.Deleted,
		"skipped", res.Skipped,
	)
	return res, nil
}

type VacationResult struct {
	Vacation domain.VacationRange
	// Affected counts the provider's slots dated inside the range.
	Affected int
}

type vacationPayload struct {
	VacationID uuid.UUID `json:"vacation_id"`
	Start      string    `json:"start"`
	End        string    `json:"end"`
	Affected   int       `json:"affected"`
}

// SetVacation records a blackout range and blacks out the provider's slots
// inside it. Existing bookings on those slots are kept.
func (s *Service) SetVacation(ctx context.Context, providerID string, start, end time.Time) (VacationResult, error) {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return VacationResult{}, domain.Invalid("provider_id is required")
	}
	r, err := domain.NewDateRange(start, end)
	if err != nil {
		return VacationResult{}, err
	}

	ctx, span := tracer.Start(ctx, "planner.set_vacation")
	defer span.End()
	span.SetAttributes(attribute.String("counsel.provider_id", providerID))

	var res VacationResult
	err = s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Lock(ctx, store.ProviderLockKey(providerID)); err != nil {
			return err
		}
		v, err := tx.InsertVacation(ctx, domain.VacationRange{
			ProviderID: providerID,
			Start:      r.From,
			End:        r.To,
		})
		if err != nil {
			return err
		}
		affected, err := tx.SetBlackout(ctx, providerID, r, true)
		if err != nil {
			return err
		}
		res = VacationResult{Vacation: v, Affected: affected}

		event, err := domain.NewEvent(providerID, domain.EventVacationSet, vacationPayload{
			VacationID: v.ID,
			Start:      domain.FormatDate(r.From),
			End:        domain.FormatDate(r.To),
			Affected:   affected,
		})
		if err != nil {
			return err
		}
		return tx.AppendEvent(ctx, event)
	})
	if err != nil {
		span.RecordError(err)
		return VacationResult{}, err
	}

	s.observe("set_vacation", res.Affected)
	s.logger.Info("vacation set",
		"provider_id", providerID,
		"start", domain.FormatDate(r.From),
		"end", domain.FormatDate(r.To),
		"affected", res.Affected,
	)
	return res, nil
}

// EndVacation removes a vacation range and lifts the blackout on dates that
// no remaining range still covers. It returns how many slots were lifted.
func (s *Service) EndVacation(ctx context.Context, providerID string, vacationID uuid.UUID) (int, error) {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return 0, domain.Invalid("provider_id is required")
	}
	if vacationID == uuid.Nil {
		return 0, domain.Invalid("vacation_id is required")
	}

	ctx, span := tracer.Start(ctx, "planner.end_vacation")
	defer span.End()

	lifted := 0
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Lock(ctx, store.ProviderLockKey(providerID)); err != nil {
			return err
		}
		v, err := tx.DeleteVacation(ctx, providerID, vacationID)
		if err != nil {
			return err
		}
		remaining, err := tx.ListVacations(ctx, providerID)
		if err != nil {
			return err
		}
		for _, gap := range v.Range().Subtract(domain.VacationRanges(remaining)) {
			n, err := tx.SetBlackout(ctx, providerID, gap, false)
			if err != nil {
				return err
			}
			lifted += n
		}

		event, err := domain.NewEvent(providerID, domain.EventVacationEnded, vacationPayload{
			VacationID: v.ID,
			Start:      domain.FormatDate(v.Start),
			End:        domain.FormatDate(v.End),
			Affected:   lifted,
		})
		if err != nil {
			return err
		}
		return tx.AppendEvent(ctx, event)
	})
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	s.logger.Info("vacation ended",
		"provider_id", providerID,
		"vacation_id", vacationID.String(),
		"lifted", lifted,
	)
	return lifted, nil
}

func (s *Service) ListVacations(ctx context.Context, providerID string) ([]domain.VacationRange, error) {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return nil, domain.Invalid("provider_id is required")
	}
	return s.store.ListVacations(ctx, providerID)
}
