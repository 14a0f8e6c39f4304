package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/cors"

	"counsel/backend/internal/domain"
	"counsel/backend/internal/service/planner"
	"counsel/backend/internal/service/slots"
	"counsel/backend/internal/service/summary"
)

type slotsService interface {
	Create(ctx context.Context, in slots.CreateInput) (domain.Slot, error)
	Get(ctx context.Context, slotID uuid.UUID) (domain.Slot, error)
	List(ctx context.Context, providerID string, r *domain.DateRange) ([]domain.Slot, error)
	ListAvailable(ctx context.Context, providerID string, r *domain.DateRange) ([]domain.Slot, error)
	Delete(ctx context.Context, providerID string, slotID uuid.UUID) error
	UpdateCapacity(ctx context.Context, providerID string, slotID uuid.UUID, totalCapacity int) (domain.Slot, error)
}

type ledgerService interface {
	Book(ctx context.Context, slotID uuid.UUID, subjectID string) (domain.Booking, error)
	Cancel(ctx context.Context, subjectID string, bookingID uuid.UUID) (domain.Booking, error)
	Get(ctx context.Context, callerID string, bookingID uuid.UUID) (domain.Booking, error)
	ListForSlot(ctx context.Context, providerID string, slotID uuid.UUID) ([]domain.Booking, error)
}

type plannerService interface {
	CopyWeek(ctx context.Context, in planner.CopyWeekInput) (int, error)
	ClearWeek(ctx context.Context, providerID string, weekStart time.Time) (planner.ClearResult, error)
	SetVacation(ctx context.Context, providerID string, start, end time.Time) (planner.VacationResult, error)
	EndVacation(ctx context.Context, providerID string, vacationID uuid.UUID) (int, error)
	ListVacations(ctx context.Context, providerID string) ([]domain.VacationRange, error)
}

type summaryService interface {
	Weekly(ctx context.Context, providerID string, weekStart time.Time) (summary.Weekly, error)
}

type Services struct {
	Slots   slotsService
	Ledger  ledgerService
	Planner plannerService
	Summary summaryService
}

type Config struct {
	Services Services
	Logger   *slog.Logger

	// CORSOrigins enables browser access when non-empty. "*" allows any.
	CORSOrigins []string
	// RateLimit and RateBurst bound booking and cancellation per caller.
	RateLimit float64
	RateBurst int

	// Ready backs /healthz. Nil always reports healthy.
	Ready          func(ctx context.Context) error
	MetricsHandler http.Handler
}

// NewRouter builds the HTTP/JSON API. Scheduling routes live under /api/v1
// and require the X-User-ID header.
func NewRouter(cfg Config) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "http"))
	h := &handlers{svc: cfg.Services, log: log}

	rateLimit := cfg.RateLimit
	if rateLimit <= 0 {
		rateLimit = 5
	}
	limiter := newCallerLimiter(rateLimit, cfg.RateBurst)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", UserHeader},
			MaxAge:         600,
		}).Handler)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Ready != nil {
			if err := cfg.Ready(r.Context()); err != nil {
				log.Warn("health check failed", slog.Any("err", err))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("unavailable"))
				return
			}
		}
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(requireCaller)

		api.Get("/providers/{providerID}/slots", h.listProviderSlots)

		api.Route("/slots", func(sr chi.Router) {
			sr.Get("/", h.listOwnSlots)
			sr.Post("/", h.createSlot)
			sr.Route("/{slotID}", func(one chi.Router) {
				one.Get("/", h.getSlot)
				one.Patch("/", h.updateCapacity)
				one.Delete("/", h.deleteSlot)
				one.Get("/bookings", h.listSlotBookings)
				one.With(limiter.middleware).Post("/bookings", h.bookSlot)
			})
		})
		api.Get("/bookings/{bookingID}", h.getBooking)
		api.With(limiter.middleware).Delete("/bookings/{bookingID}", h.cancelBooking)

		api.Post("/weeks/copy", h.copyWeek)
		api.Post("/weeks/clear", h.clearWeek)

		api.Get("/vacations", h.listVacations)
		api.Post("/vacations", h.setVacation)
		api.Delete("/vacations/{vacationID}", h.endVacation)

		api.Get("/summary/weekly", h.weeklySummary)
	})

	return r
}
