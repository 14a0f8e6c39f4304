package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"counsel/backend/internal/domain"
	"counsel/backend/internal/service/planner"
	"counsel/backend/internal/service/slots"
	"counsel/backend/internal/transport/wire"
)

type handlers struct {
	svc Services
	log *slog.Logger
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	kind, msg := wire.Classify(err)
	switch kind {
	case wire.KindInternal, wire.KindUnavailable:
		h.log.Error(op+" failed", slog.Any("err", err), slog.String("kind", string(kind)),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	case wire.KindValidation, wire.KindInvalidRange, wire.KindInvalidCapacity:
		h.log.Warn("invalid request", slog.String("op", op), slog.Any("err", err))
	default:
		h.log.Info(op+" rejected", slog.String("kind", string(kind)))
	}
	writeKind(w, kind, msg)
}

type createSlotBody struct {
	Date          string `json:"date" validate:"required"`
	StartTime     string `json:"start_time" validate:"required"`
	EndTime       string `json:"end_time" validate:"required"`
	TotalCapacity *int   `json:"total_capacity"`
	TotalSlots    *int   `json:"total_slots"`
}

func (h *handlers) createSlot(w http.ResponseWriter, r *http.Request) {
	var body createSlotBody
	if err := decode(w, r, &body); err != nil {
		h.fail(w, r, "slot create", err)
		return
	}
	date, err := wire.RequiredDate("date", body.Date)
	if err != nil {
		h.fail(w, r, "slot create", err)
		return
	}
	start, err := wire.Clock("start_time", body.StartTime)
	if err != nil {
		h.fail(w, r, "slot create", err)
		return
	}
	end, err := wire.Clock("end_time", body.EndTime)
	if err != nil {
		h.fail(w, r, "slot create", err)
		return
	}

	slot, err := h.svc.Slots.Create(r.Context(), slots.CreateInput{
		ProviderID:    callerFrom(r.Context()),
		Date:          date,
		StartTime:     start,
		EndTime:       end,
		TotalCapacity: wire.Capacity(body.TotalCapacity, body.TotalSlots),
	})
	if err != nil {
		h.fail(w, r, "slot create", err)
		return
	}
	writeJSON(w, http.StatusCreated, wire.SlotFrom(slot))
}

// listProviderSlots is the booking view of another provider's calendar:
// only slots that can still be booked, unless ?available=false.
func (h *handlers) listProviderSlots(w http.ResponseWriter, r *http.Request) {
	providerID := strings.TrimSpace(chi.URLParam(r, "providerID"))
	availableOnly := true
	if v := r.URL.Query().Get("available"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			h.fail(w, r, "slots list", domain.Invalid("available must be true or false"))
			return
		}
		availableOnly = b
	}
	h.listSlots(w, r, providerID, availableOnly)
}

func (h *handlers) listOwnSlots(w http.ResponseWriter, r *http.Request) {
	h.listSlots(w, r, callerFrom(r.Context()), false)
}

func (h *handlers) listSlots(w http.ResponseWriter, r *http.Request, providerID string, availableOnly bool) {
	q := r.URL.Query()
	rng, err := wire.OptionalRange(q.Get("from"), q.Get("to"))
	if err != nil {
		h.fail(w, r, "slots list", err)
		return
	}
	list := h.svc.Slots.List
	if availableOnly {
		list = h.svc.Slots.ListAvailable
	}
	rows, err := list(r.Context(), providerID, rng)
	if err != nil {
		h.fail(w, r, "slots list", err)
		return
	}
	writeJSON(w, http.StatusOK, wire.SlotsFrom(rows))
}

func (h *handlers) getSlot(w http.ResponseWriter, r *http.Request) {
	slotID, err := wire.ID("slotID", chi.URLParam(r, "slotID"))
	if err != nil {
		h.fail(w, r, "slot get", err)
		return
	}
	slot, err := h.svc.Slots.Get(r.Context(), slotID)
	if err != nil {
		h.fail(w, r, "slot get", err)
		return
	}
	writeJSON(w, http.StatusOK, wire.SlotFrom(slot))
}

type updateCapacityBody struct {
	TotalCapacity int `json:"total_capacity"`
}

func (h *handlers) updateCapacity(w http.ResponseWriter, r *http.Request) {
	slotID, err := wire.ID("slotID", chi.URLParam(r, "slotID"))
	if err != nil {
		h.fail(w, r, "capacity update", err)
		return
	}
	var body updateCapacityBody
	if err := decode(w, r, &body); err != nil {
		h.fail(w, r, "capacity update", err)
		return
	}
	slot, err := h.svc.Slots.UpdateCapacity(r.Context(), callerFrom(r.Context()), slotID, body.TotalCapacity)
	if err != nil {
		h.fail(w, r, "capacity update", err)
		return
	}
	writeJSON(w, http.StatusOK, wire.SlotFrom(slot))
}

func (h *handlers) deleteSlot(w http.ResponseWriter, r *http.Request) {
	slotID, err := wire.ID("slotID", chi.URLParam(r, "slotID"))
	if err != nil {
		h.fail(w, r, "slot delete", err)
		return
	}
	if err := h.svc.Slots.Delete(r.Context(), callerFrom(r.Context()), slotID); err != nil {
		h.fail(w, r, "slot delete", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": slotID.String()})
}

func (h *handlers) listSlotBookings(w http.ResponseWriter, r *http.Request) {
	slotID, err := wire.ID("slotID", chi.URLParam(r, "slotID"))
	if err != nil {
		h.fail(w, r, "bookings list", err)
		return
	}
	rows, err := h.svc.Ledger.ListForSlot(r.Context(), callerFrom(r.Context()), slotID)
	if err != nil {
		h.fail(w, r, "bookings list", err)
		return
	}
	writeJSON(w, http.StatusOK, wire.BookingsFrom(rows))
}

func (h *handlers) bookSlot(w http.ResponseWriter, r *http.Request) {
	slotID, err := wire.ID("slotID", chi.URLParam(r, "slotID"))
	if err != nil {
		h.fail(w, r, "booking", err)
		return
	}
	b, err := h.svc.Ledger.Book(r.Context(), slotID, callerFrom(r.Context()))
	if err != nil {
		h.fail(w, r, "booking", err)
		return
	}
	writeJSON(w, http.StatusCreated, wire.BookingFrom(b))
}

func (h *handlers) getBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, err := wire.ID("bookingID", chi.URLParam(r, "bookingID"))
	if err != nil {
		h.fail(w, r, "booking get", err)
		return
	}
	b, err := h.svc.Ledger.Get(r.Context(), callerFrom(r.Context()), bookingID)
	if err != nil {
		h.fail(w, r, "booking get", err)
		return
	}
	writeJSON(w, http.StatusOK, wire.BookingFrom(b))
}

func (h *handlers) cancelBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, err := wire.ID("bookingID", chi.URLParam(r, "bookingID"))
	if err != nil {
		h.fail(w, r, "cancel", err)
		return
	}
	b, err := h.svc.Ledger.Cancel(r.Context(), callerFrom(r.Context()), bookingID)
	if err != nil {
		h.fail(w, r, "cancel", err)
		return
	}
	writeJSON(w, http.StatusOK, wire.BookingFrom(b))
}

type copyWeekBody struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (h *handlers) copyWeek(w http.ResponseWriter, r *http.Request) {
	var body copyWeekBody
	if err := decode(w, r, &body); err != nil {
		h.fail(w, r, "copy week", err)
		return
	}
	from, err := wire.OptionalDate("from", body.From)
	if err != nil {
		h.fail(w, r, "copy week", err)
		return
	}
	to, err := wire.OptionalDate("to", body.To)
	if err != nil {
		h.fail(w, r, "copy week", err)
		return
	}
	n, err := h.svc.Planner.CopyWeek(r.Context(), planner.CopyWeekInput{
		ProviderID: callerFrom(r.Context()),
		From:       from,
		To:         to,
	})
	if err != nil {
		h.fail(w, r, "copy week", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"created": n})
}

type weekBody struct {
	WeekStart string `json:"week_start"`
}

func (h *handlers) clearWeek(w http.ResponseWriter, r *http.Request) {
	var body weekBody
	if err := decode(w, r, &body); err != nil {
		h.fail(w, r, "clear week", err)
		return
	}
	start, err := wire.OptionalDate("week_start", body.WeekStart)
	if err != nil {
		h.fail(w, r, "clear week", err)
		return
	}
	res, err := h.svc.Planner.ClearWeek(r.Context(), callerFrom(r.Context()), start)
	if err != nil {
		h.fail(w, r, "clear week", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type vacationBody struct {
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
}

type vacationResponse struct {
	Vacation wire.Vacation `json:"vacation"`
	Affected int           `json:"affected"`
}

func (h *handlers) setVacation(w http.ResponseWriter, r *http.Request) {
	var body vacationBody
	if err := decode(w, r, &body); err != nil {
		h.fail(w, r, "set vacation", err)
		return
	}
	start, err := wire.RequiredDate("start", body.Start)
	if err != nil {
		h.fail(w, r, "set vacation", err)
		return
	}
	end, err := wire.RequiredDate("end", body.End)
	if err != nil {
		h.fail(w, r, "set vacation", err)
		return
	}
	res, err := h.svc.Planner.SetVacation(r.Context(), callerFrom(r.Context()), start, end)
	if err != nil {
		h.fail(w, r, "set vacation", err)
		return
	}
	writeJSON(w, http.StatusCreated, vacationResponse{Vacation: wire.VacationFrom(res.Vacation), Affected: res.Affected})
}

func (h *handlers) listVacations(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.Planner.ListVacations(r.Context(), callerFrom(r.Context()))
	if err != nil {
		h.fail(w, r, "vacations list", err)
		return
	}
	writeJSON(w, http.StatusOK, wire.VacationsFrom(rows))
}

func (h *handlers) endVacation(w http.ResponseWriter, r *http.Request) {
	vacationID, err := wire.ID("vacationID", chi.URLParam(r, "vacationID"))
	if err != nil {
		h.fail(w, r, "end vacation", err)
		return
	}
	n, err := h.svc.Planner.EndVacation(r.Context(), callerFrom(r.Context()), vacationID)
	if err != nil {
		h.fail(w, r, "end vacation", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"lifted": n})
}

func (h *handlers) weeklySummary(w http.ResponseWriter, r *http.Request) {
	start, err := wire.OptionalDate("week_start", r.URL.Query().Get("week_start"))
	if err != nil {
		h.fail(w, r, "weekly summary", err)
		return
	}
	res, err := h.svc.Summary.Weekly(r.Context(), callerFrom(r.Context()), start)
	if err != nil {
		h.fail(w, r, "weekly summary", err)
		return
	}
	writeJSON(w, http.StatusOK, wire.WeeklySummaryFrom(res))
}
