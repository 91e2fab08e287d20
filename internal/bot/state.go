package bot

import (
	"context"
	"net/url"
	"sync"
	"time"

	"salonbook/internal/api"
	"salonbook/internal/booking"
	"salonbook/internal/calendar"
	"salonbook/internal/gallery"
	"salonbook/internal/session"
)

type inputStep string

const (
	inputNone    inputStep = "none"
	inputName    inputStep = "name"
	inputEmail   inputStep = "email"
	inputPhone   inputStep = "phone"
	inputNotes   inputStep = "notes"
	inputTerms   inputStep = "terms"
	inputConfirm inputStep = "confirm"
)

// flow is everything one Telegram user owns: a session, a booking controller and a calendar.
type flow struct {
	userID int64
	chatID int64

	session *session.Store
	client  *api.Client
	booking *booking.Controller
	gallery *gallery.Gallery

	// ready is closed once the persisted session has been restored.
	ready chan struct{}

	mu        sync.Mutex
	cal       *calendar.Calendar
	input     inputStep
	form      booking.DetailsForm
	services  []api.Service
	admin     url.Values
	updatedAt time.Time
}

// wait blocks until the flow's session is restored or ctx is done.
func (f *flow) wait(ctx context.Context) {
	if f.ready == nil {
		return
	}
	select {
	case <-f.ready:
	case <-ctx.Done():
	}
}

func (f *flow) touch(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updatedAt = now
}

func (f *flow) idleSince(now time.Time) time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return now.Sub(f.updatedAt)
}

func (f *flow) setInput(s inputStep) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.input = s
}

func (f *flow) currentInput() inputStep {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.input
}

func (f *flow) service(id int64) (api.Service, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.services {
		if s.ID == id {
			return s, true
		}
	}
	return api.Service{}, false
}

func (f *flow) serviceList() []api.Service {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.services
}

func (f *flow) setServices(list []api.Service) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.services = list
}

// setAdminFilter remembers the staff list query so paging and updates keep it.
func (f *flow) setAdminFilter(q url.Values) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.admin = q
}

func (f *flow) adminFilterValues() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(url.Values, len(f.admin))
	for k, v := range f.admin {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func (f *flow) calendar() *calendar.Calendar {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cal
}

func (f *flow) setCalendar(c *calendar.Calendar) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cal = c
}

func (f *flow) details() booking.DetailsForm {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.form
}

func (f *flow) updateDetails(fn func(*booking.DetailsForm)) booking.DetailsForm {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(&f.form)
	return f.form
}

// resetBooking drops the booking in progress. The session is kept.
func (f *flow) resetBooking() {
	f.booking.Reset()
	f.mu.Lock()
	f.input = inputNone
	f.form = booking.DetailsForm{}
	f.cal = nil
	f.mu.Unlock()
}

type flowStore struct {
	mu      sync.Mutex
	m       map[int64]*flow
	timeout time.Duration
}

func newFlowStore(timeout time.Duration) *flowStore {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &flowStore{m: make(map[int64]*flow), timeout: timeout}
}

func (s *flowStore) get(userID int64) *flow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m[userID]
}

func (s *flowStore) put(f *flow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[f.userID] = f
}

// getOrCreate returns the flow of userID. create runs under the store lock when none
// exists, so exactly one caller sees created == true.
func (s *flowStore) getOrCreate(userID int64, create func() *flow) (f *flow, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f := s.m[userID]; f != nil {
		return f, false
	}
	f = create()
	s.m[userID] = f
	return f, true
}

func (s *flowStore) all() []*flow {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*flow, 0, len(s.m))
	for _, f := range s.m {
		out = append(out, f)
	}
	return out
}

// cleanup drops idle flows. Their tokens stay persisted, so the next message restores the session.
func (s *flowStore) cleanup(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, f := range s.m {
		if f.idleSince(now) > s.timeout {
			delete(s.m, id)
			removed++
		}
	}
	return removed
}
