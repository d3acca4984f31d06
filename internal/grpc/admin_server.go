package grpcserver

import (
	"context"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"groceryFulfillment/internal/auth"
	"groceryFulfillment/internal/fulfillment"
	"groceryFulfillment/internal/storefront"
	"groceryFulfillment/repository"
)

const adminServiceName = "grocery.admin.v1.AdminService"

// AdminService is the operator back-office.
type AdminService interface {
	ListOrders(context.Context, *structpb.Struct) (*structpb.Struct, error)
	WatchOrders(*structpb.Struct, grpc.ServerStream) error
	SetOrderStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EditOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetStats(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddCategory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteCategory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddProduct(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteProduct(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListUsers(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// AdminServer implements AdminService.
type AdminServer struct {
	Users   *repository.UserRepository
	Board   *fulfillment.Board
	Catalog *storefront.Catalog
	Log     *slog.Logger
}

// Authentication is centralized in internal/auth.

// ListOrders returns the latest resolved order table with its stats.
// A failed pass is reported as Unavailable rather than as a partial table.
func (s *AdminServer) ListOrders(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if _, err := auth.RequireAdmin(ctx, s.Users); err != nil {
		return nil, err
	}
	v, ok := s.Board.Latest()
	if !ok {
		return nil, status.Error(codes.Unavailable, "order board is still loading")
	}
	if v.Err != nil {
		return nil, toStatus(v.Err)
	}
	return newStruct(viewMap(v))
}

// WatchOrders streams every new view of the order table until the client
// goes away. Table-wide errors are sent in the "error" field.
func (s *AdminServer) WatchOrders(_ *structpb.Struct, stream grpc.ServerStream) error {
	ctx := stream.Context()
	if _, err := auth.RequireAdmin(ctx, s.Users); err != nil {
		return err
	}
	for v := range s.Board.Watch(ctx) {
		msg, err := newStruct(viewMap(v))
		if err != nil {
			return err
		}
		if err := stream.SendMsg(msg); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// SetOrderStatus applies an operator status change: {id, status}.
func (s *AdminServer) SetOrderStatus(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	p, err := auth.RequireAdmin(ctx, s.Users)
	if err != nil {
		return nil, err
	}
	id, err := required(in, "id")
	if err != nil {
		return nil, err
	}
	st, err := fulfillment.ParseStatus(str(in, "status"))
	if err != nil {
		return nil, toStatus(err)
	}
	if err := s.Board.SetStatus(ctx, id, st); err != nil {
		return nil, toStatus(err)
	}
	s.logger().Info("status set by operator", "order_id", id, "status", st, "operator", p.UserID)
	return newStruct(map[string]any{"id": id, "status": string(st)})
}

// EditOrder changes operator-editable fields:
// {id, notes?, pickupDate?, pickupTime?, items?}. Absent fields are kept;
// new items replace the list and the total.
func (s *AdminServer) EditOrder(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	p, err := auth.RequireAdmin(ctx, s.Users)
	if err != nil {
		return nil, err
	}
	id, err := required(in, "id")
	if err != nil {
		return nil, err
	}
	items, err := orderItems(in, "items")
	if err != nil {
		return nil, err
	}
	o, err := s.Board.EditOrder(ctx, id, fulfillment.OrderEdit{
		Notes:      optStr(in, "notes"),
		PickupDate: optStr(in, "pickupDate"),
		PickupTime: optStr(in, "pickupTime"),
		Items:      items,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	s.logger().Info("order edited by operator", "order_id", id, "operator", p.UserID)
	return newStruct(orderMap(*o))
}

// DeleteOrder removes an order: {id}.
func (s *AdminServer) DeleteOrder(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if _, err := auth.RequireAdmin(ctx, s.Users); err != nil {
		return nil, err
	}
	id, err := required(in, "id")
	if err != nil {
		return nil, err
	}
	if err := s.Board.DeleteOrder(ctx, id); err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{"id": id})
}

func (s *AdminServer) GetStats(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if _, err := auth.RequireAdmin(ctx, s.Users); err != nil {
		return nil, err
	}
	return newStruct(statsMap(s.Board.Stats()))
}

// AddCategory: {name, description, image}.
func (s *AdminServer) AddCategory(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if _, err := auth.RequireAdmin(ctx, s.Users); err != nil {
		return nil, err
	}
	c, err := s.Catalog.AddCategory(ctx, str(in, "name"), str(in, "description"), str(in, "image"))
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(categoryMap(*c))
}

func (s *AdminServer) DeleteCategory(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if _, err := auth.RequireAdmin(ctx, s.Users); err != nil {
		return nil, err
	}
	id, err := required(in, "id")
	if err != nil {
		return nil, err
	}
	if err := s.Catalog.DeleteCategory(ctx, id); err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{"id": id})
}

// AddProduct: {name, description, image, price, stock, unit, categoryId}.
func (s *AdminServer) AddProduct(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if _, err := auth.RequireAdmin(ctx, s.Users); err != nil {
		return nil, err
	}
	price, err := money(in, "price")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid price: %v", err)
	}
	stock, err := integer(in, "stock")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	p, err := s.Catalog.AddProduct(ctx, storefront.NewProduct{
		Name:        str(in, "name"),
		Description: str(in, "description"),
		Image:       str(in, "image"),
		Price:       price,
		Stock:       stock,
		Unit:        str(in, "unit"),
		CategoryID:  str(in, "categoryId"),
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(productMap(*p))
}

func (s *AdminServer) DeleteProduct(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if _, err := auth.RequireAdmin(ctx, s.Users); err != nil {
		return nil, err
	}
	id, err := required(in, "id")
	if err != nil {
		return nil, err
	}
	if err := s.Catalog.DeleteProduct(ctx, id); err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{"id": id})
}

// ListUsers pages through customer records: {pageSize, offset}.
func (s *AdminServer) ListUsers(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if _, err := auth.RequireAdmin(ctx, s.Users); err != nil {
		return nil, err
	}
	size, err := integer(in, "pageSize")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	offset, err := integer(in, "offset")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	list, err := s.Users.List(ctx, size, offset)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "list users: %v", err)
	}
	users := make([]any, 0, len(list))
	for _, u := range list {
		users = append(users, userMap(u))
	}
	return newStruct(map[string]any{"users": users})
}

func (s *AdminServer) logger() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}

func adminMethod(name string, pick func(*AdminServer) unaryFunc) grpc.MethodDesc {
	full := "/" + adminServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler:    unaryHandler(full, func(srv any) unaryFunc { return pick(srv.(*AdminServer)) }),
	}
}

var adminServiceDesc = grpc.ServiceDesc{
	ServiceName: adminServiceName,
	HandlerType: (*AdminService)(nil),
	Methods: []grpc.MethodDesc{
		adminMethod("ListOrders", func(s *AdminServer) unaryFunc { return s.ListOrders }),
		adminMethod("SetOrderStatus", func(s *AdminServer) unaryFunc { return s.SetOrderStatus }),
		adminMethod("EditOrder", func(s *AdminServer) unaryFunc { return s.EditOrder }),
		adminMethod("DeleteOrder", func(s *AdminServer) unaryFunc { return s.DeleteOrder }),
		adminMethod("GetStats", func(s *AdminServer) unaryFunc { return s.GetStats }),
		adminMethod("AddCategory", func(s *AdminServer) unaryFunc { return s.AddCategory }),
		adminMethod("DeleteCategory", func(s *AdminServer) unaryFunc { return s.DeleteCategory }),
		adminMethod("AddProduct", func(s *AdminServer) unaryFunc { return s.AddProduct }),
		adminMethod("DeleteProduct", func(s *AdminServer) unaryFunc { return s.DeleteProduct }),
		adminMethod("ListUsers", func(s *AdminServer) unaryFunc { return s.ListUsers }),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchOrders",
			ServerStreams: true,
			Handler: func(srv any, stream grpc.ServerStream) error {
				in := new(structpb.Struct)
				if err := stream.RecvMsg(in); err != nil {
					return err
				}
				return srv.(*AdminServer).WatchOrders(in, stream)
			},
		},
	},
	Metadata: "grocery/admin/v1/admin.proto",
}
