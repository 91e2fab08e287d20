package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonbook/internal/api"
)

type staffReply struct {
	staff []api.StaffMember
	err   error
}

type fakeBackend struct {
	mu      sync.Mutex
	replies map[int64]chan staffReply
	created []api.AppointmentRequest
	results []error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{replies: make(map[int64]chan staffReply)}
}

func (f *fakeBackend) replyFor(serviceID int64) chan staffReply {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.replies[serviceID]
	if !ok {
		ch = make(chan staffReply, 1)
		f.replies[serviceID] = ch
	}
	return ch
}

func (f *fakeBackend) reply(serviceID int64, r staffReply) {
	f.replyFor(serviceID) <- r
}

func (f *fakeBackend) GetEligibleStaff(ctx context.Context, serviceID int64) ([]api.StaffMember, error) {
	select {
	case r := <-f.replyFor(serviceID):
		return r.staff, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeBackend) CreateAppointment(_ context.Context, req api.AppointmentRequest) (*api.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	if len(f.results) > 0 {
		err := f.results[0]
		f.results = f.results[1:]
		if err != nil {
			return nil, err
		}
	}
	return &api.Appointment{ID: 100, ServiceID: req.ServiceID, StaffID: req.StaffID, Status: api.StatusPending}, nil
}

func (f *fakeBackend) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

type recorder struct {
	mu        sync.Mutex
	successes []string
	errors    []string
	paths     []string
}

func (r *recorder) Success(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successes = append(r.successes, msg)
}

func (r *recorder) Error(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, msg)
}

func (r *recorder) Navigate(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

var (
	braids   = api.Service{ID: 1, Name: "Box braids", Duration: 240}
	twists   = api.Service{ID: 2, Name: "Senegalese twists", Duration: 180}
	amara    = api.StaffMember{ID: 10, Title: "Senior braider"}
	kemi     = api.StaffMember{ID: 11, Title: "Stylist"}
	goodForm = DetailsForm{Name: "Ada Obi", Email: "ada@example.com", Phone: "+1 555 0100", AcceptTerms: true}
)

func newController() (*Controller, *fakeBackend, *recorder) {
	f := newFakeBackend()
	r := &recorder{}
	c := NewController(f, Options{Notifier: r, Navigator: r})
	return c, f, r
}

func toDetails(t *testing.T, c *Controller, f *fakeBackend) {
	t.Helper()
	f.reply(braids.ID, staffReply{staff: []api.StaffMember{amara, kemi}})
	require.NoError(t, <-c.SelectService(context.Background(), braids))
	require.NoError(t, c.Next())
	require.NoError(t, c.SelectStaff(amara))
	require.NoError(t, c.Next())
	require.Equal(t, StepDetails, c.Step())
}

func TestController_StepGuards(t *testing.T) {
	c, f, _ := newController()

	var verr *ValidationError
	require.ErrorAs(t, c.Next(), &verr)
	assert.Equal(t, "service", verr.Field)
	assert.Equal(t, StepService, c.Step())

	f.reply(braids.ID, staffReply{staff: []api.StaffMember{amara}})
	require.NoError(t, <-c.SelectService(context.Background(), braids))
	assert.Equal(t, StepService, c.Step())
	require.NoError(t, c.Next())

	require.ErrorAs(t, c.Next(), &verr)
	assert.Equal(t, "staff", verr.Field)

	require.NoError(t, c.SelectStaff(amara))
	require.NoError(t, c.Next())
	assert.Equal(t, StepDetails, c.Step())
	assert.ErrorIs(t, c.Next(), ErrNoTransition)
}

func TestController_BackAndGoTo(t *testing.T) {
	c, f, _ := newController()
	toDetails(t, c, f)

	assert.ErrorIs(t, c.GoTo(StepDetails), ErrNoTransition)
	require.NoError(t, c.GoTo(StepService))
	assert.Equal(t, StepService, c.Step())
	assert.ErrorIs(t, c.GoTo(StepStaff), ErrNoTransition)

	sel := c.Draft()
	require.NotNil(t, sel.Service)
	require.NotNil(t, sel.Staff)

	require.NoError(t, c.Next())
	require.True(t, c.Back())
	assert.False(t, c.Back())
	assert.Equal(t, StepService, c.Step())
	assert.NotNil(t, c.Draft().Staff)
}

func TestController_StaleStaffResponseDiscarded(t *testing.T) {
	c, f, _ := newController()
	ctx := context.Background()

	first := c.SelectService(ctx, braids)
	second := c.SelectService(ctx, twists)

	f.reply(twists.ID, staffReply{staff: []api.StaffMember{kemi}})
	require.NoError(t, <-second)

	f.reply(braids.ID, staffReply{staff: []api.StaffMember{amara}})
	assert.ErrorIs(t, <-first, ErrStale)

	staff, loaded := c.EligibleStaff()
	assert.True(t, loaded)
	assert.Equal(t, []api.StaffMember{kemi}, staff)
	assert.Equal(t, twists.ID, c.Draft().Service.ID)
	assert.False(t, c.StaffLoading())
}

func TestController_PreselectedStaffDropped(t *testing.T) {
	c, f, _ := newController()
	c.Preselect(amara)
	require.NotNil(t, c.Draft().Staff)

	f.reply(twists.ID, staffReply{staff: []api.StaffMember{kemi}})
	require.NoError(t, <-c.SelectService(context.Background(), twists))
	assert.Nil(t, c.Draft().Staff)

	c.Preselect(amara)
	assert.Nil(t, c.Draft().Staff)

	c.Preselect(kemi)
	require.NotNil(t, c.Draft().Staff)
	assert.Equal(t, kemi.ID, c.Draft().Staff.ID)
}

func TestController_PreselectedStaffKept(t *testing.T) {
	c, f, _ := newController()
	c.Preselect(amara)

	f.reply(braids.ID, staffReply{staff: []api.StaffMember{amara, kemi}})
	require.NoError(t, <-c.SelectService(context.Background(), braids))
	require.NotNil(t, c.Draft().Staff)
	assert.Equal(t, amara.ID, c.Draft().Staff.ID)
}

func TestController_SelectStaffOutsideEligible(t *testing.T) {
	c, f, _ := newController()
	f.reply(twists.ID, staffReply{staff: []api.StaffMember{kemi}})
	require.NoError(t, <-c.SelectService(context.Background(), twists))

	var verr *ValidationError
	require.ErrorAs(t, c.SelectStaff(amara), &verr)
	assert.Nil(t, c.Draft().Staff)
}

func TestController_StaffLoadFailure(t *testing.T) {
	c, f, r := newController()
	f.reply(braids.ID, staffReply{err: &api.RequestFailedError{Status: 500}})

	assert.Error(t, <-c.SelectService(context.Background(), braids))
	assert.Equal(t, []string{MsgStaffLoadFailed}, r.errors)
	assert.Equal(t, braids.ID, c.Draft().Service.ID)
	assert.Equal(t, StepService, c.Step())

	_, loaded := c.EligibleStaff()
	assert.False(t, loaded)
}

func TestController_StaffLoadAuthExpiredIsQuiet(t *testing.T) {
	c, f, r := newController()
	f.reply(braids.ID, staffReply{err: api.ErrAuthExpired})

	assert.ErrorIs(t, <-c.SelectService(context.Background(), braids), api.ErrAuthExpired)
	assert.Empty(t, r.errors)
}

func TestController_SameServiceDoesNotRefetch(t *testing.T) {
	c, f, _ := newController()
	f.reply(braids.ID, staffReply{staff: []api.StaffMember{amara}})
	require.NoError(t, <-c.SelectService(context.Background(), braids))

	select {
	case err := <-c.SelectService(context.Background(), braids):
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reselecting the same service should not fetch")
	}
}

func TestController_SubmitIncompleteIsLocal(t *testing.T) {
	c, f, r := newController()
	f.reply(braids.ID, staffReply{staff: []api.StaffMember{amara}})
	require.NoError(t, <-c.SelectService(context.Background(), braids))

	_, err := c.Submit(context.Background(), goodForm)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "incomplete booking", verr.Message)
	assert.Zero(t, f.createdCount())
	assert.Equal(t, []string{MsgIncomplete}, r.errors)
}

func TestController_SubmitInvalidFormIsLocal(t *testing.T) {
	c, f, _ := newController()
	toDetails(t, c, f)

	form := goodForm
	form.Email = "not-an-email"
	_, err := c.Submit(context.Background(), form)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "email", verr.Field)
	assert.Zero(t, f.createdCount())
}

func TestController_SubmitFailureKeepsDraft(t *testing.T) {
	c, f, r := newController()
	toDetails(t, c, f)
	c.SelectDate(time.Date(2024, time.March, 16, 0, 0, 0, 0, time.Local))
	require.NoError(t, c.SelectTime("14:30"))
	before := c.Draft()

	f.results = []error{&api.RequestFailedError{Status: 400, Message: "This slot is no longer available"}, nil}

	_, err := c.Submit(context.Background(), goodForm)
	require.Error(t, err)
	assert.Equal(t, []string{"This slot is no longer available"}, r.errors)
	assert.Equal(t, before, c.Draft())
	assert.Equal(t, StepDetails, c.Step())
	assert.False(t, c.Submitting())

	appt, err := c.Submit(context.Background(), goodForm)
	require.NoError(t, err)
	assert.Equal(t, int64(100), appt.ID)
	assert.Equal(t, []string{MsgBooked}, r.successes)
	assert.Equal(t, []string{DefaultCompletionPath}, r.paths)
	assert.Equal(t, StepService, c.Step())
	assert.Nil(t, c.Draft().Service)

	require.Len(t, f.created, 2)
	assert.Equal(t, api.AppointmentRequest{
		ServiceID:       braids.ID,
		StaffID:         amara.ID,
		AppointmentDate: "2024-03-16",
		StartTime:       "14:30",
	}, f.created[1])
}

func TestController_SubmitFallbackMessage(t *testing.T) {
	c, f, r := newController()
	toDetails(t, c, f)
	f.results = []error{errors.New("connection reset")}

	_, err := c.Submit(context.Background(), goodForm)
	require.Error(t, err)
	assert.Equal(t, []string{MsgBookingFailed}, r.errors)
}

func TestController_SubmitAuthExpiredIsQuiet(t *testing.T) {
	c, f, r := newController()
	toDetails(t, c, f)
	f.results = []error{api.ErrAuthExpired}

	_, err := c.Submit(context.Background(), goodForm)
	assert.ErrorIs(t, err, api.ErrAuthExpired)
	assert.Empty(t, r.errors)
}

func TestController_OnCompleteReplacesNavigation(t *testing.T) {
	f := newFakeBackend()
	r := &recorder{}
	var got *api.Appointment
	c := NewController(f, Options{Notifier: r, Navigator: r, OnComplete: func(a *api.Appointment) { got = a }})
	toDetails(t, c, f)

	_, err := c.Submit(context.Background(), goodForm)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, r.paths)
	assert.Empty(t, f.created[0].AppointmentDate)
}

func TestController_ResetInvalidatesPendingFetch(t *testing.T) {
	c, f, _ := newController()
	pending := c.SelectService(context.Background(), braids)
	c.Reset()

	f.reply(braids.ID, staffReply{staff: []api.StaffMember{amara}})
	assert.ErrorIs(t, <-pending, ErrStale)
	_, loaded := c.EligibleStaff()
	assert.False(t, loaded)
	assert.Nil(t, c.Draft().Service)
}

func TestController_Prefill(t *testing.T) {
	c, _, _ := newController()
	c.Prefill(&api.User{Email: "ada@example.com", FirstName: "Ada", LastName: "Obi", Phone: "5550100"})
	assert.Equal(t, DetailsForm{Name: "Ada Obi", Email: "ada@example.com", Phone: "5550100"}, c.Form())

	c.Prefill(nil)
	assert.Equal(t, DetailsForm{}, c.Form())
}
