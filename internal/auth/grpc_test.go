package auth

import (
	"context"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"groceryFulfillment/internal/testutil"
	"groceryFulfillment/models"
	"groceryFulfillment/repository"
)

func TestRequireKindAndHelpers(t *testing.T) {
	ctx := WithPrincipal(context.Background(), &Principal{UserID: "u1", Kind: KindCustomer})
	if _, err := RequireCustomer(ctx); err != nil {
		t.Fatalf("RequireCustomer: %v", err)
	}
	if _, err := RequireKind(ctx, KindAdmin); status.Code(err) != codes.PermissionDenied {
		t.Fatalf("expected PermissionDenied, got %v", err)
	}
	if _, err := RequireCustomer(context.Background()); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated without principal, got %v", err)
	}
}

func TestRequireAdmin_WithDBRoleCheck(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "authadmin")
	users := repository.NewUserRepository(d, nil)
	ctx := context.Background()
	if _, err := users.Save(ctx, &models.User{ID: "alice", Name: "Alice"}); err != nil {
		t.Fatalf("save alice: %v", err)
	}
	// Spoofed principal kind=admin but DB role is customer
	pctx := WithPrincipal(ctx, &Principal{UserID: "alice", Kind: KindAdmin})
	if _, err := RequireAdmin(pctx, users); status.Code(err) != codes.PermissionDenied {
		t.Fatalf("expected PermissionDenied for non-admin role, got %v", err)
	}
	// Unknown user
	ghost := WithPrincipal(ctx, &Principal{UserID: "ghost", Kind: KindAdmin})
	if _, err := RequireAdmin(ghost, users); status.Code(err) != codes.PermissionDenied {
		t.Fatalf("expected PermissionDenied for unknown user, got %v", err)
	}

	if err := users.UpdateRole(ctx, "alice", models.RoleAdmin); err != nil {
		t.Fatalf("update role: %v", err)
	}
	if _, err := RequireAdmin(pctx, users); err != nil {
		t.Fatalf("RequireAdmin real admin: %v", err)
	}
}

func TestUnaryAuthInterceptor(t *testing.T) {
	secret := "s3cr3t"
	interceptor := NewUnaryAuthInterceptor(secret, "/grocery.Storefront/ListCatalog")

	hCalled := false
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/grocery.Storefront/ListCatalog"}, func(ctx context.Context, req any) (any, error) {
		hCalled = true
		if _, ok := FromContext(ctx); ok {
			t.Fatalf("expected no principal on allowlisted path")
		}
		return 123, nil
	})
	if err != nil || !hCalled {
		t.Fatalf("allowlisted handler err=%v called=%v", err, hCalled)
	}

	_, err = interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Op"}, func(ctx context.Context, req any) (any, error) {
		t.Fatalf("handler must not run without a token")
		return nil, nil
	})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}

	tok := testutil.GenerateJWTHS256(t, secret, "bob", "bob@shop.it", "customer")
	ctx := testutil.CtxWithBearer(context.Background(), tok)
	_, err = interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Op"}, func(ctx context.Context, req any) (any, error) {
		p, ok := FromContext(ctx)
		if !ok || p.UserID != "bob" || p.Kind != KindCustomer {
			t.Fatalf("principal not injected: %+v ok=%v", p, ok)
		}
		return nil, nil
	})
	if err != nil {
		t.Fatalf("interceptor auth path: %v", err)
	}
}

type fakeStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (f *fakeStream) Context() context.Context { return f.ctx }

func TestStreamAuthInterceptor(t *testing.T) {
	secret := "s3cr3t"
	interceptor := NewStreamAuthInterceptor(secret)
	info := &grpc.StreamServerInfo{FullMethod: "/grocery.Admin/WatchOrders", IsServerStream: true}

	err := interceptor(nil, &fakeStream{ctx: context.Background()}, info, func(any, grpc.ServerStream) error {
		t.Fatalf("handler must not run without a token")
		return nil
	})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}

	tok := testutil.GenerateJWTHS256(t, secret, "op", "", "admin")
	ss := &fakeStream{ctx: testutil.CtxWithBearer(context.Background(), tok)}
	err = interceptor(nil, ss, info, func(_ any, s grpc.ServerStream) error {
		p, ok := FromContext(s.Context())
		if !ok || p.UserID != "op" || p.Kind != KindAdmin {
			t.Fatalf("principal not injected: %+v ok=%v", p, ok)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("stream interceptor: %v", err)
	}
}
