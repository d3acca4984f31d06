package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"groceryFulfillment/internal/auth"
	"groceryFulfillment/internal/storefront"
	"groceryFulfillment/models"
)

const storefrontServiceName = "grocery.storefront.v1.StorefrontService"

// StorefrontService is what the customer-facing shop calls.
type StorefrontService interface {
	ListCatalog(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PlaceOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MyOrders(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SaveProfile(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// CustomerOrders lists a customer's own orders.
type CustomerOrders interface {
	ListByUserID(ctx context.Context, userID string) ([]models.Order, error)
}

// StorefrontServer implements StorefrontService.
type StorefrontServer struct {
	Catalog  *storefront.Catalog
	Checkout *storefront.Checkout
	Orders   CustomerOrders
	Profiles storefront.ProfileStore
}

// ListCatalog: {query, categoryId}. Open to anonymous callers.
func (s *StorefrontServer) ListCatalog(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	cats, rows, err := s.Catalog.Browse(ctx, str(in, "query"), str(in, "categoryId"))
	if err != nil {
		return nil, toStatus(err)
	}
	categories := make([]any, 0, len(cats))
	for _, c := range cats {
		categories = append(categories, categoryMap(c))
	}
	products := make([]any, 0, len(rows))
	for _, r := range rows {
		products = append(products, productRowMap(r))
	}
	return newStruct(map[string]any{"categories": categories, "products": products})
}

// PlaceOrder: {items: [{productId, quantity}], pickupDate, pickupTime, notes}.
// Names, units and prices come from the catalog, not from the request.
func (s *StorefrontServer) PlaceOrder(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	p, err := auth.RequireCustomer(ctx)
	if err != nil {
		return nil, err
	}
	var cart storefront.Cart
	for i, v := range in.GetFields()["items"].GetListValue().GetValues() {
		line := v.GetStructValue()
		if line == nil {
			return nil, status.Errorf(codes.InvalidArgument, "items[%d] must be an object", i)
		}
		productID, err := required(line, "productId")
		if err != nil {
			return nil, err
		}
		qty, err := integer(line, "quantity")
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "items[%d]: %v", i, err)
		}
		if qty < 1 {
			return nil, status.Errorf(codes.InvalidArgument, "items[%d]: quantity must be at least 1", i)
		}
		product, err := s.Catalog.Product(ctx, productID)
		if err != nil {
			return nil, toStatus(err)
		}
		if err := cart.Add(*product, qty); err != nil {
			return nil, toStatus(err)
		}
	}
	o, err := s.Checkout.PlaceOrder(ctx, storefront.CheckoutRequest{
		UserID:     p.UserID,
		UserEmail:  p.Email,
		Cart:       &cart,
		PickupDate: str(in, "pickupDate"),
		PickupTime: str(in, "pickupTime"),
		Notes:      str(in, "notes"),
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(orderMap(*o))
}

// MyOrders returns the caller's orders, newest first.
func (s *StorefrontServer) MyOrders(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	p, err := auth.RequireCustomer(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.Orders.ListByUserID(ctx, p.UserID)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "list orders: %v", err)
	}
	orders := make([]any, 0, len(list))
	for _, o := range list {
		orders = append(orders, orderMap(o))
	}
	return newStruct(map[string]any{"orders": orders})
}

// SaveProfile: {name, email, phone, address}. Email defaults to the sign-in email.
func (s *StorefrontServer) SaveProfile(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	p, err := auth.RequireCustomer(ctx)
	if err != nil {
		return nil, err
	}
	email := str(in, "email")
	if email == "" {
		email = p.Email
	}
	u, err := storefront.SaveProfile(ctx, s.Profiles, p.UserID, storefront.Profile{
		Name:    str(in, "name"),
		Email:   email,
		Phone:   str(in, "phone"),
		Address: str(in, "address"),
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(userMap(*u))
}

func storefrontMethod(name string, pick func(*StorefrontServer) unaryFunc) grpc.MethodDesc {
	full := "/" + storefrontServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler:    unaryHandler(full, func(srv any) unaryFunc { return pick(srv.(*StorefrontServer)) }),
	}
}

var storefrontServiceDesc = grpc.ServiceDesc{
	ServiceName: storefrontServiceName,
	HandlerType: (*StorefrontService)(nil),
	Methods: []grpc.MethodDesc{
		storefrontMethod("ListCatalog", func(s *StorefrontServer) unaryFunc { return s.ListCatalog }),
		storefrontMethod("PlaceOrder", func(s *StorefrontServer) unaryFunc { return s.PlaceOrder }),
		storefrontMethod("MyOrders", func(s *StorefrontServer) unaryFunc { return s.MyOrders }),
		storefrontMethod("SaveProfile", func(s *StorefrontServer) unaryFunc { return s.SaveProfile }),
	},
	Metadata: "grocery/storefront/v1/storefront.proto",
}
