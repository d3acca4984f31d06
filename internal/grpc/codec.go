package grpcserver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"groceryFulfillment/internal/fulfillment"
	"groceryFulfillment/internal/storefront"
	"groceryFulfillment/models"
)

// Messages on the wire are google.protobuf.Struct documents, so the services
// need no generated code. unaryFunc is the shape of every unary method.
type unaryFunc func(context.Context, *structpb.Struct) (*structpb.Struct, error)

// unaryHandler adapts a unaryFunc picked from the service implementation to a grpc.MethodDesc handler.
func unaryHandler(fullMethod string, pick func(srv any) unaryFunc) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		fn := pick(srv)
		if interceptor == nil {
			return fn(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return fn(ctx, req.(*structpb.Struct))
		})
	}
}

// request field readers; absent fields read as zero values

func str(in *structpb.Struct, key string) string {
	return strings.TrimSpace(in.GetFields()[key].GetStringValue())
}

// optStr is nil when key is absent, so "" can mean "clear this field".
func optStr(in *structpb.Struct, key string) *string {
	if _, ok := in.GetFields()[key]; !ok {
		return nil
	}
	v := str(in, key)
	return &v
}

// orderItems reads [{productId, name, quantity, unit, price}]. It is nil when
// key is absent.
func orderItems(in *structpb.Struct, key string) ([]models.OrderItem, error) {
	v, ok := in.GetFields()[key]
	if !ok {
		return nil, nil
	}
	list := v.GetListValue()
	if list == nil {
		return nil, status.Errorf(codes.InvalidArgument, "%s must be a list", key)
	}
	items := make([]models.OrderItem, 0, len(list.GetValues()))
	for i, lv := range list.GetValues() {
		line := lv.GetStructValue()
		if line == nil {
			return nil, status.Errorf(codes.InvalidArgument, "%s[%d] must be an object", key, i)
		}
		qty, err := integer(line, "quantity")
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "%s[%d]: %v", key, i, err)
		}
		price, err := money(line, "price")
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "%s[%d]: invalid price: %v", key, i, err)
		}
		items = append(items, models.OrderItem{
			ProductID: str(line, "productId"),
			Name:      str(line, "name"),
			Quantity:  qty,
			Unit:      str(line, "unit"),
			Price:     price,
		})
	}
	return items, nil
}

func integer(in *structpb.Struct, key string) (int, error) {
	v, ok := in.GetFields()[key]
	if !ok {
		return 0, nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		f := k.NumberValue
		if f != float64(int(f)) {
			return 0, fmt.Errorf("%s must be an integer", key)
		}
		return int(f), nil
	case *structpb.Value_StringValue:
		d, err := decimal.NewFromString(strings.TrimSpace(k.StringValue))
		if err != nil || !d.IsInteger() {
			return 0, fmt.Errorf("%s must be an integer", key)
		}
		return int(d.IntPart()), nil
	}
	return 0, fmt.Errorf("%s must be an integer", key)
}

// money accepts "2.40" or 2.4.
func money(in *structpb.Struct, key string) (decimal.Decimal, error) {
	v, ok := in.GetFields()[key]
	if !ok {
		return decimal.Zero, nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		return decimal.NewFromFloat(k.NumberValue), nil
	case *structpb.Value_StringValue:
		d, err := decimal.NewFromString(strings.TrimSpace(strings.ReplaceAll(k.StringValue, ",", ".")))
		if err != nil {
			return decimal.Zero, fmt.Errorf("%s: %w", key, err)
		}
		return d, nil
	}
	return decimal.Zero, fmt.Errorf("%s must be a number", key)
}

func required(in *structpb.Struct, key string) (string, error) {
	v := str(in, key)
	if v == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", key)
	}
	return v, nil
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return s, nil
}

func ts(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func orderMap(o models.Order) map[string]any {
	items := make([]any, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, map[string]any{
			"productId": it.ProductID,
			"name":      it.Name,
			"quantity":  it.Quantity,
			"unit":      it.Unit,
			"price":     it.Price.StringFixed(2),
		})
	}
	return map[string]any{
		"id":            o.ID,
		"userId":        o.UserID,
		"userEmail":     o.UserEmail,
		"items":         items,
		"totalAmount":   o.TotalAmount.StringFixed(2),
		"status":        string(o.Status),
		"pickupDateRaw": o.PickupDateRaw,
		"pickupTime":    o.PickupTime,
		"pickupDate":    o.PickupDate,
		"notes":         o.Notes,
		"createdAt":     ts(o.CreatedAt),
		"updatedAt":     ts(o.UpdatedAt),
	}
}

func resolvedMap(r fulfillment.ResolvedOrder) map[string]any {
	m := orderMap(r.Order)
	items := make([]any, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, map[string]any{
			"productId": it.ProductID,
			"name":      it.Name,
			"quantity":  it.Quantity,
			"unit":      it.Unit,
			"price":     it.Price.StringFixed(2),
			"subtotal":  it.Subtotal.StringFixed(2),
		})
	}
	m["items"] = items
	m["customerName"] = r.CustomerName
	m["customerEmail"] = r.CustomerEmail
	m["customerPhone"] = r.CustomerPhone
	m["customerAddress"] = r.CustomerAddress
	m["pickupDisplay"] = r.PickupDisplay
	m["itemsSummary"] = r.ItemsSummary
	m["computedTotal"] = r.ComputedTotal.StringFixed(2)
	m["totalMismatch"] = r.TotalMismatch
	if r.LookupErr != nil {
		m["lookupError"] = r.LookupErr.Reason.String()
	}
	return m
}

func statsMap(s fulfillment.Stats) map[string]any {
	return map[string]any{
		"totalOrders":      s.TotalOrders,
		"totalRevenue":     s.TotalRevenue.StringFixed(2),
		"activeProducts":   s.ActiveProducts,
		"pendingOrders":    s.PendingOrders,
		"cancelledRevenue": s.CancelledRevenue.StringFixed(2),
	}
}

func viewMap(v fulfillment.View) map[string]any {
	rows := make([]any, 0, len(v.Orders))
	for _, r := range v.Orders {
		rows = append(rows, resolvedMap(r))
	}
	m := map[string]any{
		"seq":    int64(v.Seq),
		"orders": rows,
		"stats":  statsMap(v.Stats),
	}
	if v.Err != nil {
		m["error"] = v.Err.Error()
	}
	return m
}

func categoryMap(c models.Category) map[string]any {
	return map[string]any{
		"id":          c.ID,
		"name":        c.Name,
		"description": c.Description,
		"image":       c.Image,
		"createdAt":   ts(c.CreatedAt),
	}
}

func productMap(p models.Product) map[string]any {
	return map[string]any{
		"id":          p.ID,
		"name":        p.Name,
		"description": p.Description,
		"image":       p.Image,
		"price":       p.Price.StringFixed(2),
		"stock":       p.Stock,
		"unit":        p.Unit,
		"available":   p.Available,
		"categoryId":  p.CategoryID,
		"createdAt":   ts(p.CreatedAt),
	}
}

func productRowMap(r storefront.ProductRow) map[string]any {
	m := productMap(r.Product)
	m["categoryName"] = r.CategoryName
	return m
}

func userMap(u models.User) map[string]any {
	return map[string]any{
		"id":      u.ID,
		"name":    u.Name,
		"email":   u.Email,
		"phone":   u.Phone,
		"address": u.Address,
		"role":    u.Role,
	}
}

// toStatus maps domain errors to gRPC status codes.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	var aggErr *fulfillment.AggregationError
	switch {
	case errors.Is(err, fulfillment.ErrInvalidStatus),
		errors.Is(err, fulfillment.ErrInvalidEdit),
		errors.Is(err, storefront.ErrInvalidCategory),
		errors.Is(err, storefront.ErrInvalidProduct),
		errors.Is(err, storefront.ErrInvalidProfile),
		errors.Is(err, storefront.ErrInvalidPickup),
		errors.Is(err, storefront.ErrEmptyCart),
		errors.Is(err, storefront.ErrInvalidQuantity):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, fulfillment.ErrOrderNotFound), errors.Is(err, storefront.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, fulfillment.ErrIllegalTransition), errors.Is(err, storefront.ErrUnavailable):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, storefront.ErrNotSignedIn):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.As(err, &aggErr):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
