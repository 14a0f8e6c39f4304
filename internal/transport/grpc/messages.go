package grpc

import (
	"counsel/backend/internal/service/planner"
	"counsel/backend/internal/transport/wire"
)

type Empty struct{}

type CreateSlotRequest struct {
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	// TotalCapacity defaults to 1 when unset. TotalSlots is accepted as an
	// alias.
	TotalCapacity *int `json:"total_capacity,omitempty"`
	TotalSlots    *int `json:"total_slots,omitempty"`
}

type SlotResponse struct {
	Slot wire.Slot `json:"slot"`
}

type ListSlotsRequest struct {
	// ProviderID defaults to the caller.
	ProviderID    string `json:"provider_id,omitempty"`
	From          string `json:"from,omitempty"`
	To            string `json:"to,omitempty"`
	AvailableOnly bool   `json:"available_only,omitempty"`
}

type ListSlotsResponse struct {
	Slots []wire.Slot `json:"slots"`
}

type SlotRef struct {
	SlotID string `json:"slot_id"`
}

type UpdateCapacityRequest struct {
	SlotID        string `json:"slot_id"`
	TotalCapacity int    `json:"total_capacity"`
}

type BookingResponse struct {
	Booking wire.Booking `json:"booking"`
}

type BookingRef struct {
	BookingID string `json:"booking_id"`
}

type ListBookingsResponse struct {
	Bookings []wire.Booking `json:"bookings"`
}

type CopyWeekRequest struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

type CountResponse struct {
	Count int `json:"count"`
}

type ClearWeekRequest struct {
	WeekStart string `json:"week_start,omitempty"`
}

type ClearWeekResponse = planner.ClearResult

type SetVacationRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type VacationResponse struct {
	Vacation wire.Vacation `json:"vacation"`
	Affected int           `json:"affected"`
}

type VacationRef struct {
	VacationID string `json:"vacation_id"`
}

type ListVacationsResponse struct {
	Vacations []wire.Vacation `json:"vacations"`
}

type WeeklySummaryRequest struct {
	WeekStart string `json:"week_start,omitempty"`
}

type WeeklySummaryResponse = wire.WeeklySummary
