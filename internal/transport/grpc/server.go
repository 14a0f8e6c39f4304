package grpc

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"counsel/backend/internal/domain"
	"counsel/backend/internal/service/planner"
	"counsel/backend/internal/service/slots"
	"counsel/backend/internal/service/summary"
	"counsel/backend/internal/transport/wire"
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

// SchedulingServer serves ServiceName. Caller identity comes from the
// x-user-id metadata set by the authenticating proxy in front of it.
type SchedulingServer struct {
	svc Services
	log *slog.Logger
}

var _ SchedulingServiceServer = (*SchedulingServer)(nil)

func NewSchedulingServer(svc Services, log *slog.Logger) *SchedulingServer {
	if log == nil {
		log = slog.Default()
	}
	return &SchedulingServer{
		svc: svc,
		log: log.With(slog.String("component", "grpc.scheduling")),
	}
}

func callerID(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", wire.ErrUnauthenticated
	}
	values := md.Get("x-user-id")
	if len(values) == 0 || strings.TrimSpace(values[0]) == "" {
		return "", wire.ErrUnauthenticated
	}
	return strings.TrimSpace(values[0]), nil
}

var kindCodes = map[wire.Kind]codes.Code{
	wire.KindInvalidRange:    codes.InvalidArgument,
	wire.KindInvalidCapacity: codes.InvalidArgument,
	wire.KindValidation:      codes.InvalidArgument,
	wire.KindUnauthenticated: codes.Unauthenticated,
	wire.KindNotFound:        codes.NotFound,
	wire.KindSlotFull:        codes.ResourceExhausted,
	wire.KindSlotBlacked:     codes.FailedPrecondition,
	wire.KindSlotHasBookings: codes.FailedPrecondition,
	wire.KindDailyLimit:      codes.FailedPrecondition,
	wire.KindUnavailable:     codes.Unavailable,
	wire.KindInternal:        codes.Internal,
}

// fail converts err to a status and logs it at a level matching its kind.
// The kind is also sent in the error-kind trailer.
func fail(ctx context.Context, log *slog.Logger, op string, err error) error {
	kind, msg := wire.Classify(err)
	code := kindCodes[kind]

	switch code {
	case codes.Internal, codes.Unavailable:
		log.Error(op+" failed", slog.Any("err", err), slog.String("kind", string(kind)))
	case codes.InvalidArgument, codes.Unauthenticated:
		log.Warn("invalid request", slog.Any("err", err), slog.String("kind", string(kind)))
	default:
		log.Info(op+" rejected", slog.String("kind", string(kind)))
	}

	_ = grpc.SetTrailer(ctx, metadata.Pairs("error-kind", string(kind)))
	return status.Error(code, msg)
}

func (s *SchedulingServer) CreateSlot(ctx context.Context, req *CreateSlotRequest) (*SlotResponse, error) {
	log := s.log.With(slog.String("rpc", "CreateSlot"))

	providerID, err := callerID(ctx)
	if err != nil {
		return nil, fail(ctx, log, "slot create", err)
	}
	in, err := parseCreateSlot(providerID, req)
	if err != nil {
		return nil, fail(ctx, log, "slot create", err)
	}

	slot, err := s.svc.Slots.Create(ctx, in)
	if err != nil {
		return nil, fail(ctx, log, "slot create", err)
	}
	return &SlotResponse{Slot: wire.SlotFrom(slot)}, nil
}

func parseCreateSlot(providerID string, req *CreateSlotRequest) (slots.CreateInput, error) {
	date, err := wire.RequiredDate("date", req.Date)
	if err != nil {
		return slots.CreateInput{}, err
	}
	start, err := wire.Clock("start_time", req.StartTime)
	if err != nil {
		return slots.CreateInput{}, err
	}
	end, err := wire.Clock("end_time", req.EndTime)
	if err != nil {
		return slots.CreateInput{}, err
	}
	return slots.CreateInput{
		ProviderID:    providerID,
		Date:          date,
		StartTime:     start,
		EndTime:       end,
		TotalCapacity: wire.Capacity(req.TotalCapacity, req.TotalSlots),
	}, nil
}

func (s *SchedulingServer) GetSlot(ctx context.Context, req *SlotRef) (*SlotResponse, error) {
	log := s.log.With(slog.String("rpc", "GetSlot"))

	if _, err := callerID(ctx); err != nil {
		return nil, fail(ctx, log, "slot get", err)
	}
	slotID, err := wire.ID("slot_id", req.SlotID)
	if err != nil {
		return nil, fail(ctx, log, "slot get", err)
	}
	slot, err := s.svc.Slots.Get(ctx, slotID)
	if err != nil {
		return nil, fail(ctx, log, "slot get", err)
	}
	return &SlotResponse{Slot: wire.SlotFrom(slot)}, nil
}

func (s *SchedulingServer) ListSlots(ctx context.Context, req *ListSlotsRequest) (*ListSlotsResponse, error) {
	log := s.log.With(slog.String("rpc", "ListSlots"))

	providerID := strings.TrimSpace(req.ProviderID)
	if providerID == "" {
		caller, err := callerID(ctx)
		if err != nil {
			return nil, fail(ctx, log, "slots list", err)
		}
		providerID = caller
	}
	r, err := wire.OptionalRange(req.From, req.To)
	if err != nil {
		return nil, fail(ctx, log, "slots list", err)
	}

	list := s.svc.Slots.List
	if req.AvailableOnly {
		list = s.svc.Slots.ListAvailable
	}
	rows, err := list(ctx, providerID, r)
	if err != nil {
		return nil, fail(ctx, log, "slots list", err)
	}

	log.Debug("slots listed", slog.String("provider_id", providerID), slog.Int("count", len(rows)))
	return &ListSlotsResponse{Slots: wire.SlotsFrom(rows)}, nil
}

func (s *SchedulingServer) DeleteSlot(ctx context.Context, req *SlotRef) (*Empty, error) {
	log := s.log.With(slog.String("rpc", "DeleteSlot"))

	providerID, err := callerID(ctx)
	if err != nil {
		return nil, fail(ctx, log, "slot delete", err)
	}
	slotID, err := wire.ID("slot_id", req.SlotID)
	if err != nil {
		return nil, fail(ctx, log, "slot delete", err)
	}
	if err := s.svc.Slots.Delete(ctx, providerID, slotID); err != nil {
		return nil, fail(ctx, log, "slot delete", err)
	}
	return &Empty{}, nil
}

func (s *SchedulingServer) UpdateSlotCapacity(ctx context.Context, req *UpdateCapacityRequest) (*SlotResponse, error) {
	log := s.log.With(slog.String("rpc", "UpdateSlotCapacity"))

	providerID, err := callerID(ctx)
	if err != nil {
		return nil, fail(ctx, log, "capacity update", err)
	}
	slotID, err := wire.ID("slot_id", req.SlotID)
	if err != nil {
		return nil, fail(ctx, log, "capacity update", err)
	}
	slot, err := s.svc.Slots.UpdateCapacity(ctx, providerID, slotID, req.TotalCapacity)
	if err != nil {
		return nil, fail(ctx, log, "capacity update", err)
	}
	return &SlotResponse{Slot: wire.SlotFrom(slot)}, nil
}

func (s *SchedulingServer) BookSlot(ctx context.Context, req *SlotRef) (*BookingResponse, error) {
	log := s.log.With(slog.String("rpc", "BookSlot"))

	subjectID, err := callerID(ctx)
	if err != nil {
		return nil, fail(ctx, log, "booking", err)
	}
	slotID, err := wire.ID("slot_id", req.SlotID)
	if err != nil {
		return nil, fail(ctx, log, "booking", err)
	}
	booking, err := s.svc.Ledger.Book(ctx, slotID, subjectID)
	if err != nil {
		return nil, fail(ctx, log, "booking", err)
	}
	return &BookingResponse{Booking: wire.BookingFrom(booking)}, nil
}

func (s *SchedulingServer) CancelBooking(ctx context.Context, req *BookingRef) (*Empty, error) {
	log := s.log.With(slog.String("rpc", "CancelBooking"))

	subjectID, err := callerID(ctx)
	if err != nil {
		return nil, fail(ctx, log, "cancel", err)
	}
	bookingID, err := wire.ID("booking_id", req.BookingID)
	if err != nil {
		return nil, fail(ctx, log, "cancel", err)
	}
	if _, err := s.svc.Ledger.Cancel(ctx, subjectID, bookingID); err != nil {
		return nil, fail(ctx, log, "cancel", err)
	}
	return &Empty{}, nil
}

func (s *SchedulingServer) GetBooking(ctx context.Context, req *BookingRef) (*BookingResponse, error) {
	log := s.log.With(slog.String("rpc", "GetBooking"))

	caller, err := callerID(ctx)
	if err != nil {
		return nil, fail(ctx, log, "booking get", err)
	}
	bookingID, err := wire.ID("booking_id", req.BookingID)
	if err != nil {
		return nil, fail(ctx, log, "booking get", err)
	}
	b, err := s.svc.Ledger.Get(ctx, caller, bookingID)
	if err != nil {
		return nil, fail(ctx, log, "booking get", err)
	}
	return &BookingResponse{Booking: wire.BookingFrom(b)}, nil
}

func (s *SchedulingServer) ListSlotBookings(ctx context.Context, req *SlotRef) (*ListBookingsResponse, error) {
	log := s.log.With(slog.String("rpc", "ListSlotBookings"))

	providerID, err := callerID(ctx)
	if err != nil {
		return nil, fail(ctx, log, "bookings list", err)
	}
	slotID, err := wire.ID("slot_id", req.SlotID)
	if err != nil {
		return nil, fail(ctx, log, "bookings list", err)
	}
	rows, err := s.svc.Ledger.ListForSlot(ctx, providerID, slotID)
	if err != nil {
		return nil, fail(ctx, log, "bookings list", err)
	}
	return &ListBookingsResponse{Bookings: wire.BookingsFrom(rows)}, nil
}

func (s *SchedulingServer) CopyWeek(ctx context.Context, req *CopyWeekRequest) (*CountResponse, error) {
	log := s.log.With(slog.String("rpc", "CopyWeek"))

	providerID, err := callerID(ctx)
	if err != nil {
		return nil, fail(ctx, log, "copy week", err)
	}
	from, err := wire.OptionalDate("from", req.From)
	if err != nil {
		return nil, fail(ctx, log, "copy week", err)
	}
	to, err := wire.OptionalDate("to", req.To)
	if err != nil {
		return nil, fail(ctx, log, "copy week", err)
	}
	n, err := s.svc.Planner.CopyWeek(ctx, planner.CopyWeekInput{ProviderID: providerID, From: from, To: to})
	if err != nil {
		return nil, fail(ctx, log, "copy week", err)
	}
	return &CountResponse{Count: n}, nil
}

func (s *SchedulingServer) ClearWeek(ctx context.Context, req *ClearWeekRequest) (*ClearWeekResponse, error) {
	log := s.log.With(slog.String("rpc", "ClearWeek"))

	providerID, err := callerID(ctx)
	if err != nil {
		return nil, fail(ctx, log, "clear week", err)
	}
	start, err := wire.OptionalDate("week_start", req.WeekStart)
	if err != nil {
		return nil, fail(ctx, log, "clear week", err)
	}
	res, err := s.svc.Planner.ClearWeek(ctx, providerID, start)
	if err != nil {
		return nil, fail(ctx, log, "clear week", err)
	}
	return &res, nil
}

func (s *SchedulingServer) SetVacation(ctx context.Context, req *SetVacationRequest) (*VacationResponse, error) {
	log := s.log.With(slog.String("rpc", "SetVacation"))

	providerID, err := callerID(ctx)
	if err != nil {
		return nil, fail(ctx, log, "set vacation", err)
	}
	start, err := wire.RequiredDate("start", req.Start)
	if err != nil {
		return nil, fail(ctx, log, "set vacation", err)
	}
	end, err := wire.RequiredDate("end", req.End)
	if err != nil {
		return nil, fail(ctx, log, "set vacation", err)
	}
	res, err := s.svc.Planner.SetVacation(ctx, providerID, start, end)
	if err != nil {
		return nil, fail(ctx, log, "set vacation", err)
	}
	return &VacationResponse{Vacation: wire.VacationFrom(res.Vacation), Affected: res.Affected}, nil
}

func (s *SchedulingServer) EndVacation(ctx context.Context, req *VacationRef) (*CountResponse, error) {
	log := s.log.With(slog.String("rpc", "EndVacation"))

	providerID, err := callerID(ctx)
	if err != nil {
		return nil, fail(ctx, log, "end vacation", err)
	}
	vacationID, err := wire.ID("vacation_id", req.VacationID)
	if err != nil {
		return nil, fail(ctx, log, "end vacation", err)
	}
	n, err := s.svc.Planner.EndVacation(ctx, providerID, vacationID)
	if err != nil {
		return nil, fail(ctx, log, "end vacation", err)
	}
	return &CountResponse{Count: n}, nil
}

func (s *SchedulingServer) ListVacations(ctx context.Context, _ *Empty) (*ListVacationsResponse, error) {
	log := s.log.With(slog.String("rpc", "ListVacations"))

	providerID, err := callerID(ctx)
	if err != nil {
		return nil, fail(ctx, log, "vacations list", err)
	}
	rows, err := s.svc.Planner.ListVacations(ctx, providerID)
	if err != nil {
		return nil, fail(ctx, log, "vacations list", err)
	}
	return &ListVacationsResponse{Vacations: wire.VacationsFrom(rows)}, nil
}

func (s *SchedulingServer) WeeklySummary(ctx context.Context, req *WeeklySummaryRequest) (*WeeklySummaryResponse, error) {
	log := s.log.With(slog.String("rpc", "WeeklySummary"))

	providerID, err := callerID(ctx)
	if err != nil {
		return nil, fail(ctx, log, "weekly summary", err)
	}
	start, err := wire.OptionalDate("week_start", req.WeekStart)
	if err != nil {
		return nil, fail(ctx, log, "weekly summary", err)
	}
	w, err := s.svc.Summary.Weekly(ctx, providerID, start)
	if err != nil {
		return nil, fail(ctx, log, "weekly summary", err)
	}
	out := wire.WeeklySummaryFrom(w)
	return &out, nil
}
