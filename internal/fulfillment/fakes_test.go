package fulfillment

import (
	"context"
	"sync"
	"sync/atomic"

	"groceryFulfillment/models"
)

// fakeDirectory serves users from memory. A gated id blocks until its gate
// is closed or the caller's context ends.
type fakeDirectory struct {
	mu     sync.Mutex
	users  map[string]*models.User
	errs   map[string]error
	panics map[string]bool
	gates  map[string]chan struct{}
	calls  atomic.Int32
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		users:  map[string]*models.User{},
		errs:   map[string]error{},
		panics: map[string]bool{},
		gates:  map[string]chan struct{}{},
	}
}

func (f *fakeDirectory) gate(id string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := make(chan struct{})
	f.gates[id] = g
	return g
}

func (f *fakeDirectory) setUser(u *models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = u
}

// deafDirectory never looks at ctx; reads block until release is closed.
type deafDirectory struct {
	release chan struct{}
}

func (d *deafDirectory) FetchUser(_ context.Context, id string) (*models.User, error) {
	<-d.release
	return &models.User{ID: id, Name: "late"}, nil
}

func (f *fakeDirectory) FetchUser(ctx context.Context, id string) (*models.User, error) {
	f.calls.Add(1)
	f.mu.Lock()
	g := f.gates[id]
	u, err, p := f.users[id], f.errs[id], f.panics[id]
	f.mu.Unlock()
	if g != nil {
		select {
		case <-g:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p {
		panic("directory exploded")
	}
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}
