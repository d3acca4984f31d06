package auth

import (
	"context"
	"testing"
	"time"

	"groceryFulfillment/internal/testutil"
)

const testSecret = "test-secret"

func TestParseFromMD_ValidBearer(t *testing.T) {
	tok := testutil.GenerateJWTHS256(t, testSecret, "uid-1", "alice@shop.it", "customer")
	ctx := testutil.CtxWithBearer(context.Background(), tok)
	p, err := ParseFromMD(ctx, testSecret)
	if err != nil {
		t.Fatalf("ParseFromMD: %v", err)
	}
	if p.UserID != "uid-1" || p.Email != "alice@shop.it" || p.Kind != KindCustomer {
		t.Fatalf("principal mismatch: %+v", p)
	}
}

func TestParseFromMD_MissingHeader(t *testing.T) {
	if _, err := ParseFromMD(context.Background(), testSecret); err == nil {
		t.Fatalf("expected error for missing metadata")
	}
}

func TestParseJWT_WrongSecret(t *testing.T) {
	tok := testutil.GenerateJWTHS256(t, testSecret, "uid-1", "", "admin")
	if _, err := parseJWT(tok, "wrong"); err == nil {
		t.Fatalf("expected error for wrong secret")
	}
}

func TestParseJWT_ClaimsValidation(t *testing.T) {
	tok := testutil.GenerateJWTHS256(t, testSecret, "", "", "")
	if _, err := parseJWT(tok, testSecret); err == nil {
		t.Fatalf("expected invalid claims error")
	}
}

func TestIssueToken_RoundTrip(t *testing.T) {
	tok, err := IssueToken(testSecret, "uid-9", "op@shop.it", "Admin", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	p, err := parseJWT(tok, testSecret)
	if err != nil {
		t.Fatalf("parse issued token: %v", err)
	}
	if p.UserID != "uid-9" || p.Kind != KindAdmin || p.Email != "op@shop.it" {
		t.Fatalf("principal mismatch: %+v", p)
	}

	if _, err := IssueToken(testSecret, "uid-9", "", "courier", time.Hour); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
	if _, err := IssueToken("", "uid-9", "", "admin", time.Hour); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}

func TestIssueToken_Expired(t *testing.T) {
	tok, err := IssueToken(testSecret, "uid-1", "", "customer", time.Nanosecond)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	time.Sleep(1100 * time.Millisecond)
	if _, err := parseJWT(tok, testSecret); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}
