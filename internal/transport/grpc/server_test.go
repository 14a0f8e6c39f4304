package grpc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"counsel/backend/internal/domain"
	"counsel/backend/internal/service/ledger"
	"counsel/backend/internal/service/planner"
	"counsel/backend/internal/service/slots"
	"counsel/backend/internal/service/summary"
	"counsel/backend/internal/store"
	"counsel/backend/internal/store/memory"
)

type fakeLedger struct {
	bookFn   func(ctx context.Context, slotID uuid.UUID, subjectID string) (domain.Booking, error)
	cancelFn func(ctx context.Context, subjectID string, bookingID uuid.UUID) (domain.Booking, error)
	listFn   func(ctx context.Context, providerID string, slotID uuid.UUID) ([]domain.Booking, error)
	getFn    func(ctx context.Context, callerID string, bookingID uuid.UUID) (domain.Booking, error)
}

func (f *fakeLedger) Book(ctx context.Context, slotID uuid.UUID, subjectID string) (domain.Booking, error) {
	if f.bookFn == nil {
		panic("Book not configured")
	}
	return f.bookFn(ctx, slotID, subjectID)
}

func (f *fakeLedger) Cancel(ctx context.Context, subjectID string, bookingID uuid.UUID) (domain.Booking, error) {
	if f.cancelFn == nil {
		panic("Cancel not configured")
	}
	return f.cancelFn(ctx, subjectID, bookingID)
}

func (f *fakeLedger) Get(ctx context.Context, callerID string, bookingID uuid.UUID) (domain.Booking, error) {
	if f.getFn == nil {
		panic("Get not configured")
	}
	return f.getFn(ctx, callerID, bookingID)
}

func (f *fakeLedger) ListForSlot(ctx context.Context, providerID string, slotID uuid.UUID) ([]domain.Booking, error) {
	if f.listFn == nil {
		panic("ListForSlot not configured")
	}
	return f.listFn(ctx, providerID, slotID)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func asUser(id string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-user-id", id))
}

func TestBookSlot_MapsErrorsToCodes(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{store.ErrSlotFull, codes.ResourceExhausted},
		{store.ErrSlotBlacked, codes.FailedPrecondition},
		{store.ErrDailyLimit, codes.FailedPrecondition},
		{store.ErrNotFound, codes.NotFound},
		{store.Unavailable("reserve capacity", errors.New("conn reset")), codes.Unavailable},
		{errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		srv := NewSchedulingServer(Services{Ledger: &fakeLedger{
			bookFn: func(ctx context.Context, slotID uuid.UUID, subjectID string) (domain.Booking, error) {
				return domain.Booking{}, tt.err
			},
		}}, quietLogger())

		_, err := srv.BookSlot(asUser("s1"), &SlotRef{SlotID: uuid.NewString()})
		if status.Code(err) != tt.code {
			t.Fatalf("err %v -> code %s, want %s", tt.err, status.Code(err), tt.code)
		}
	}
}

func TestBookSlot_UsesCallerAsSubject(t *testing.T) {
	slotID := uuid.New()
	var gotSubject string
	srv := NewSchedulingServer(Services{Ledger: &fakeLedger{
		bookFn: func(ctx context.Context, id uuid.UUID, subjectID string) (domain.Booking, error) {
			gotSubject = subjectID
			return domain.Booking{ID: uuid.New(), SlotID: id, SubjectID: subjectID, Date: domain.MustDate("2025-03-10")}, nil
		},
	}}, quietLogger())

	resp, err := srv.BookSlot(asUser(" s1 "), &SlotRef{SlotID: slotID.String()})
	if err != nil {
		t.Fatalf("BookSlot error: %v", err)
	}
	if gotSubject != "s1" {
		t.Fatalf("subject = %q, want %q", gotSubject, "s1")
	}
	if resp.Booking.SlotID != slotID.String() || resp.Booking.Date != "2025-03-10" {
		t.Fatalf("booking = %+v", resp.Booking)
	}
}

func TestBookSlot_RejectsMissingIdentityAndBadID(t *testing.T) {
	srv := NewSchedulingServer(Services{Ledger: &fakeLedger{}}, quietLogger())

	_, err := srv.BookSlot(context.Background(), &SlotRef{SlotID: uuid.NewString()})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.Unauthenticated)
	}

	_, err = srv.BookSlot(asUser("s1"), &SlotRef{SlotID: "nope"})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.InvalidArgument)
	}
	if got := status.Convert(err).Message(); got != "slot_id must be a UUID" {
		t.Fatalf("message = %q", got)
	}
}

func TestGetBooking_PassesCallerThrough(t *testing.T) {
	bookingID := uuid.New()
	var gotCaller string
	srv := NewSchedulingServer(Services{Ledger: &fakeLedger{
		getFn: func(ctx context.Context, callerID string, id uuid.UUID) (domain.Booking, error) {
			gotCaller = callerID
			if id != bookingID {
				return domain.Booking{}, store.ErrNotFound
			}
			return domain.Booking{ID: id, SubjectID: "s1", Date: domain.MustDate("2025-03-10")}, nil
		},
	}}, quietLogger())

	resp, err := srv.GetBooking(asUser("c1"), &BookingRef{BookingID: bookingID.String()})
	if err != nil {
		t.Fatalf("GetBooking error: %v", err)
	}
	if gotCaller != "c1" || resp.Booking.ID != bookingID.String() {
		t.Fatalf("caller = %q, booking = %+v", gotCaller, resp.Booking)
	}

	_, err = srv.GetBooking(asUser("c1"), &BookingRef{BookingID: uuid.NewString()})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.NotFound)
	}
}

func TestUnavailableHidesCause(t *testing.T) {
	srv := NewSchedulingServer(Services{Ledger: &fakeLedger{
		cancelFn: func(ctx context.Context, subjectID string, bookingID uuid.UUID) (domain.Booking, error) {
			return domain.Booking{}, store.Unavailable("delete booking", errors.New("pq: password authentication failed"))
		},
	}}, quietLogger())

	_, err := srv.CancelBooking(asUser("s1"), &BookingRef{BookingID: uuid.NewString()})
	st := status.Convert(err)
	if st.Code() != codes.Unavailable {
		t.Fatalf("code = %s", st.Code())
	}
	if st.Message() != "Scheduling is temporarily unavailable. Please retry." {
		t.Fatalf("message leaks cause: %q", st.Message())
	}
}

func TestDefaultTimeoutInterceptor(t *testing.T) {
	ic := DefaultTimeoutInterceptor(50 * time.Millisecond)

	_, err := ic(context.Background(), nil, &grpc.UnaryServerInfo{}, func(ctx context.Context, req any) (any, error) {
		if _, ok := ctx.Deadline(); !ok {
			t.Fatalf("expected deadline")
		}
		return nil, nil
	})
	if err != nil {
		t.Fatalf("interceptor error: %v", err)
	}

	parent, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()
	want, _ := parent.Deadline()
	_, _ = ic(parent, nil, &grpc.UnaryServerInfo{}, func(ctx context.Context, req any) (any, error) {
		got, _ := ctx.Deadline()
		if !got.Equal(want) {
			t.Fatalf("deadline replaced: %v vs %v", got, want)
		}
		return nil, nil
	})
}

func newBufServer(t *testing.T) *grpc.ClientConn {
	t.Helper()
	st := memory.New()
	svc := Services{
		Slots:   slots.NewService(st, quietLogger()),
		Ledger:  ledger.NewService(st, ledger.Config{OnePerDay: true, Logger: quietLogger()}),
		Planner: planner.NewService(st, nil, quietLogger()),
		Summary: summary.NewService(st),
	}

	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer(grpc.UnaryInterceptor(DefaultTimeoutInterceptor(time.Second)))
	RegisterSchedulingServiceServer(server, NewSchedulingServer(svc, quietLogger()))
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	)
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func invoke(ctx context.Context, conn *grpc.ClientConn, method string, req, resp any) error {
	return conn.Invoke(ctx, "/"+ServiceName+"/"+method, req, resp)
}

func TestSchedulingService_EndToEndOverJSONCodec(t *testing.T) {
	conn := newBufServer(t)
	provider := metadata.AppendToOutgoingContext(context.Background(), "x-user-id", "c1")

	capacity := 2
	var created SlotResponse
	err := invoke(provider, conn, "CreateSlot", &CreateSlotRequest{
		Date: "2025-03-10", StartTime: "09:00", EndTime: "10:00", TotalCapacity: &capacity,
	}, &created)
	if err != nil {
		t.Fatalf("CreateSlot error: %v", err)
	}
	if created.Slot.Weekday != "Monday" || created.Slot.Remaining != 2 {
		t.Fatalf("slot = %+v", created.Slot)
	}

	var fetched SlotResponse
	if err := invoke(provider, conn, "GetSlot", &SlotRef{SlotID: created.Slot.ID}, &fetched); err != nil {
		t.Fatalf("GetSlot error: %v", err)
	}
	if fetched.Slot.ID != created.Slot.ID || fetched.Slot.TotalCapacity != 2 {
		t.Fatalf("fetched slot = %+v", fetched.Slot)
	}

	for _, subject := range []string{"s1", "s2"} {
		ctx := metadata.AppendToOutgoingContext(context.Background(), "x-user-id", subject)
		var booked BookingResponse
		if err := invoke(ctx, conn, "BookSlot", &SlotRef{SlotID: created.Slot.ID}, &booked); err != nil {
			t.Fatalf("BookSlot(%s) error: %v", subject, err)
		}
	}

	var trailer metadata.MD
	ctx := metadata.AppendToOutgoingContext(context.Background(), "x-user-id", "s3")
	err = conn.Invoke(ctx, "/"+ServiceName+"/BookSlot", &SlotRef{SlotID: created.Slot.ID}, &BookingResponse{}, grpc.Trailer(&trailer))
	if status.Code(err) != codes.ResourceExhausted {
		t.Fatalf("third BookSlot code = %s, want %s", status.Code(err), codes.ResourceExhausted)
	}
	if got := trailer.Get("error-kind"); len(got) != 1 || got[0] != "SlotFull" {
		t.Fatalf("error-kind trailer = %v", got)
	}

	var summaryResp WeeklySummaryResponse
	if err := invoke(provider, conn, "WeeklySummary", &WeeklySummaryRequest{WeekStart: "2025-03-10"}, &summaryResp); err != nil {
		t.Fatalf("WeeklySummary error: %v", err)
	}
	if len(summaryResp.Days) != 7 || summaryResp.Days[0].TotalCapacity != 2 || summaryResp.Days[0].BookedCount != 2 {
		t.Fatalf("summary = %+v", summaryResp)
	}

	var vacation VacationResponse
	if err := invoke(provider, conn, "SetVacation", &SetVacationRequest{Start: "2025-03-10", End: "2025-03-14"}, &vacation); err != nil {
		t.Fatalf("SetVacation error: %v", err)
	}
	if vacation.Affected != 1 {
		t.Fatalf("affected = %d, want 1", vacation.Affected)
	}

	var cleared ClearWeekResponse
	if err := invoke(provider, conn, "ClearWeek", &ClearWeekRequest{WeekStart: "2025-03-10"}, &cleared); err != nil {
		t.Fatalf("ClearWeek error: %v", err)
	}
	if cleared.Deleted != 0 || cleared.Skipped != 1 {
		t.Fatalf("cleared = %+v", cleared)
	}
}
