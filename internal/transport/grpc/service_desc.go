package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "counsel.v1.SchedulingService"

// SchedulingServiceServer is the set of RPCs registered under ServiceName.
type SchedulingServiceServer interface {
	CreateSlot(context.Context, *CreateSlotRequest) (*SlotResponse, error)
	GetSlot(context.Context, *SlotRef) (*SlotResponse, error)
	ListSlots(context.Context, *ListSlotsRequest) (*ListSlotsResponse, error)
	DeleteSlot(context.Context, *SlotRef) (*Empty, error)
	UpdateSlotCapacity(context.Context, *UpdateCapacityRequest) (*SlotResponse, error)
	BookSlot(context.Context, *SlotRef) (*BookingResponse, error)
	CancelBooking(context.Context, *BookingRef) (*Empty, error)
	GetBooking(context.Context, *BookingRef) (*BookingResponse, error)
	ListSlotBookings(context.Context, *SlotRef) (*ListBookingsResponse, error)
	CopyWeek(context.Context, *CopyWeekRequest) (*CountResponse, error)
	ClearWeek(context.Context, *ClearWeekRequest) (*ClearWeekResponse, error)
	SetVacation(context.Context, *SetVacationRequest) (*VacationResponse, error)
	EndVacation(context.Context, *VacationRef) (*CountResponse, error)
	ListVacations(context.Context, *Empty) (*ListVacationsResponse, error)
	WeeklySummary(context.Context, *WeeklySummaryRequest) (*WeeklySummaryResponse, error)
}

func RegisterSchedulingServiceServer(s grpc.ServiceRegistrar, srv SchedulingServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func unary[Req, Resp any](method string, call func(SchedulingServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			server := srv.(SchedulingServiceServer)
			if interceptor == nil {
				return call(server, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(server, ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SchedulingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateSlot", SchedulingServiceServer.CreateSlot),
		unary("GetSlot", SchedulingServiceServer.GetSlot),
		unary("ListSlots", SchedulingServiceServer.ListSlots),
		unary("DeleteSlot", SchedulingServiceServer.DeleteSlot),
		unary("UpdateSlotCapacity", SchedulingServiceServer.UpdateSlotCapacity),
		unary("BookSlot", SchedulingServiceServer.BookSlot),
		unary("CancelBooking", SchedulingServiceServer.CancelBooking),
		unary("GetBooking", SchedulingServiceServer.GetBooking),
		unary("ListSlotBookings", SchedulingServiceServer.ListSlotBookings),
		unary("CopyWeek", SchedulingServiceServer.CopyWeek),
		unary("ClearWeek", SchedulingServiceServer.ClearWeek),
		unary("SetVacation", SchedulingServiceServer.SetVacation),
		unary("EndVacation", SchedulingServiceServer.EndVacation),
		unary("ListVacations", SchedulingServiceServer.ListVacations),
		unary("WeeklySummary", SchedulingServiceServer.WeeklySummary),
	},
	Streams: []grpc.StreamDesc{},
}
