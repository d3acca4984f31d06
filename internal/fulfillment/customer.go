package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"groceryFulfillment/internal/metrics"
	"groceryFulfillment/models"
)

// Display markers shown in place of missing customer data.
const (
	UnknownUser  = "Utente sconosciuto"
	NotAvailable = "Non disponibile"
	NotSpecified = "Non specificato"
	errorPrefix  = "Errore: "
)

// UserDirectory reads customer records. A missing record is (nil, nil).
type UserDirectory interface {
	FetchUser(ctx context.Context, userID string) (*models.User, error)
}

// Customer is the display-ready contact block of one order.
type Customer struct {
	Name    string
	Email   string
	Phone   string
	Address string
	// Err is set when the directory read failed; all four fields then hold the error marker.
	Err *LookupError
}

// CustomerResolver turns a user reference into a Customer. It never fails.
type CustomerResolver struct {
	Directory UserDirectory
	Log       *slog.Logger
	Metrics   *metrics.Metrics
}

// ResolveCustomer resolves one customer with the default logger and no metrics.
func ResolveCustomer(ctx context.Context, dir UserDirectory, userID, userEmail string) Customer {
	r := &CustomerResolver{Directory: dir}
	return r.Resolve(ctx, userID, userEmail)
}

// Resolve returns once the directory answers or ctx ends, whichever comes
// first. A directory that ignores ctx is abandoned at the deadline and the
// lookup reports a network error.
func (r *CustomerResolver) Resolve(ctx context.Context, userID, userEmail string) Customer {
	log := r.Log
	if log == nil {
		log = slog.Default()
	}
	if !validUserID(userID) || r.Directory == nil {
		r.count("anonymous")
		return anonymousCustomer(userEmail)
	}

	u, err := r.fetch(ctx, userID)
	if err != nil {
		lerr := &LookupError{UserID: userID, Reason: Classify(err), Err: err}
		var pe *lookupPanic
		if errors.As(err, &pe) {
			log.Error("customer lookup panicked", "user_id", userID, "panic", pe.value)
		} else {
			log.Warn("customer lookup failed", "user_id", userID, "reason", lerr.Reason.String(), "err", err)
		}
		r.countError(lerr.Reason)
		return failedCustomer(lerr)
	}
	if u == nil {
		log.Warn("customer record missing", "user_id", userID)
		r.count("missing")
		return anonymousCustomer(userEmail)
	}
	r.count("found")

	email := firstNonBlank(u.Email, userEmail)
	c := Customer{
		Name:    firstNonBlank(u.Name, u.DisplayName, nameFromEmail(email)),
		Email:   email,
		Phone:   specifiedOr(u.Phone),
		Address: specifiedOr(u.Address),
	}
	if c.Email == "" {
		c.Email = NotAvailable
	}
	return c
}

type lookupPanic struct{ value any }

func (p *lookupPanic) Error() string { return fmt.Sprintf("panic: %v", p.value) }

type fetchResult struct {
	user *models.User
	err  error
}

func (r *CustomerResolver) fetch(ctx context.Context, userID string) (*models.User, error) {
	done := make(chan fetchResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- fetchResult{err: &lookupPanic{value: p}}
			}
		}()
		u, err := r.Directory.FetchUser(ctx, userID)
		done <- fetchResult{user: u, err: err}
	}()
	select {
	case res := <-done:
		return res.user, res.err
	case <-ctx.Done():
		select {
		case res := <-done:
			return res.user, res.err
		default:
		}
		return nil, ctx.Err()
	}
}

func (r *CustomerResolver) count(outcome string) {
	if r.Metrics != nil {
		r.Metrics.Lookups.WithLabelValues(outcome).Inc()
	}
}

func (r *CustomerResolver) countError(reason LookupReason) {
	if r.Metrics != nil {
		r.Metrics.Lookups.WithLabelValues("error").Inc()
		r.Metrics.LookupErrors.WithLabelValues(reason.String()).Inc()
	}
}

// Classify maps a directory error to a LookupReason.
func Classify(err error) LookupReason {
	switch {
	case err == nil:
		return ReasonOther
	case errors.Is(err, ErrPermissionDenied):
		return ReasonPermissionDenied
	case errors.Is(err, ErrNetwork), errors.Is(err, context.DeadlineExceeded):
		return ReasonNetwork
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.PermissionDenied, codes.Unauthenticated:
			return ReasonPermissionDenied
		case codes.Unavailable, codes.DeadlineExceeded:
			return ReasonNetwork
		}
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ReasonNetwork
	}
	return ReasonOther
}

// ErrorMarker is the text shown in every customer field after a failed lookup.
func ErrorMarker(reason LookupReason) string {
	return errorPrefix + reason.Text()
}

func anonymousCustomer(userEmail string) Customer {
	email := strings.TrimSpace(userEmail)
	c := Customer{
		Name:    nameFromEmail(email),
		Email:   email,
		Phone:   NotSpecified,
		Address: NotSpecified,
	}
	if c.Email == "" {
		c.Email = NotAvailable
	}
	return c
}

func failedCustomer(err *LookupError) Customer {
	marker := ErrorMarker(err.Reason)
	return Customer{Name: marker, Email: marker, Phone: marker, Address: marker, Err: err}
}

// nameFromEmail returns the text before '@', the whole address when it has
// no '@', or UnknownUser when nothing usable is left.
func nameFromEmail(email string) string {
	email = strings.TrimSpace(email)
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return UnknownUser
	}
	return local
}

// validUserID rejects blank ids and ids that cannot address a record key.
func validUserID(id string) bool {
	if strings.TrimSpace(id) == "" {
		return false
	}
	return !strings.ContainsAny(id, ".#$[]/")
}

func specifiedOr(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, "N/A") {
		return NotSpecified
	}
	return v
}

func firstNonBlank(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
