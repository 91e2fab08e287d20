// Package booking implements the multi-step booking flow.
package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"salonbook/internal/api"
	"salonbook/internal/metrics"
)

// Step is a screen of the booking flow.
type Step int

const (
	StepService Step = iota + 1
	StepStaff
	StepDetails
)

func (s Step) String() string {
	switch s {
	case StepService:
		return "service"
	case StepStaff:
		return "staff"
	case StepDetails:
		return "details"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// Notification texts.
const (
	MsgBooked          = "Appointment booked successfully!"
	MsgBookingFailed   = "Failed to book appointment"
	MsgStaffLoadFailed = "Failed to load available staff"
	MsgIncomplete      = "Please complete all booking steps"
)

// DefaultCompletionPath is where the user lands after booking when no OnComplete is set.
const DefaultCompletionPath = "/dashboard"

var (
	// ErrNoTransition is returned for a step change the flow does not allow.
	ErrNoTransition = errors.New("step transition not allowed")
	// ErrStale reports an async result that arrived after the selection changed.
	ErrStale = errors.New("stale response discarded")
	// ErrSubmitInFlight is returned while a submission is pending.
	ErrSubmitInFlight = errors.New("submission already in progress")
)

var transitions = map[Step][]Step{
	StepService: {StepStaff},
	StepStaff:   {StepDetails, StepService},
	StepDetails: {StepStaff, StepService},
}

func canTransition(from, to Step) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// BookingAPI is the backend subset the flow needs.
type BookingAPI interface {
	GetEligibleStaff(ctx context.Context, serviceID int64) ([]api.StaffMember, error)
	CreateAppointment(ctx context.Context, req api.AppointmentRequest) (*api.Appointment, error)
}

// Notifier shows transient messages.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Navigator changes the current page.
type Navigator interface {
	Navigate(path string)
}

// Options configure a Controller.
type Options struct {
	Notifier   Notifier
	Navigator  Navigator
	OnComplete func(*api.Appointment)
	Logger     *zerolog.Logger
}

// Controller drives one booking flow.
type Controller struct {
	mu     sync.Mutex
	api    BookingAPI
	notify Notifier
	nav    Navigator
	done   func(*api.Appointment)
	logger zerolog.Logger

	draft *Draft
	step  Step
	form  DetailsForm

	token        uint64
	eligible     []api.StaffMember
	staffLoaded  bool
	staffLoading bool
	submitting   bool
}

// NewController creates a flow at StepService with an empty draft.
func NewController(client BookingAPI, opts Options) *Controller {
	l := zerolog.Nop()
	if opts.Logger != nil {
		l = opts.Logger.With().Str("component", "booking").Logger()
	}
	return &Controller{
		api:    client,
		notify: opts.Notifier,
		nav:    opts.Navigator,
		done:   opts.OnComplete,
		logger: l,
		draft:  NewDraft(),
		step:   StepService,
	}
}

// Step returns the current step.
func (c *Controller) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// Draft returns the selection snapshot.
func (c *Controller) Draft() Selection {
	return c.draft.Snapshot()
}

// EligibleStaff returns the staff list for the selected service and whether it has loaded.
func (c *Controller) EligibleStaff() ([]api.StaffMember, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]api.StaffMember(nil), c.eligible...), c.staffLoaded
}

// StaffLoading reports whether a staff fetch is outstanding.
func (c *Controller) StaffLoading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.staffLoading
}

// Submitting reports whether a submission is outstanding.
func (c *Controller) Submitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitting
}

// Next advances one step. The current step must be filled in.
func (c *Controller) Next() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.step {
	case StepService:
		if c.draft.Service() == nil {
			return &ValidationError{Field: "service", Message: "Please select a service"}
		}
	case StepStaff:
		if c.draft.Staff() == nil {
			return &ValidationError{Field: "staff", Message: "Please select a staff member"}
		}
	}
	next := c.step + 1
	if !canTransition(c.step, next) {
		return ErrNoTransition
	}
	c.step = next
	return nil
}

// Back returns to the previous step, keeping the draft. It reports whether the step changed.
func (c *Controller) Back() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !canTransition(c.step, c.step-1) {
		return false
	}
	c.step--
	return true
}

// GoTo jumps to an already completed step.
func (c *Controller) GoTo(step Step) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if step >= c.step || !canTransition(c.step, step) {
		return ErrNoTransition
	}
	c.step = step
	return nil
}

// SelectService sets the service and loads its staff in the background.
// The returned channel yields the fetch outcome once; ErrStale means a newer
// selection superseded it and nothing was applied.
func (c *Controller) SelectService(ctx context.Context, svc api.Service) <-chan error {
	out := make(chan error, 1)

	c.mu.Lock()
	if cur := c.draft.Service(); cur != nil && cur.ID == svc.ID && (c.staffLoaded || c.staffLoading) {
		c.draft.SetService(svc)
		c.mu.Unlock()
		out <- nil
		close(out)
		return out
	}
	c.draft.SetService(svc)
	c.token++
	token := c.token
	c.eligible = nil
	c.staffLoaded = false
	c.staffLoading = true
	c.mu.Unlock()

	go func() {
		defer close(out)
		staff, err := c.api.GetEligibleStaff(ctx, svc.ID)
		out <- c.applyStaff(ctx, token, staff, err)
	}()
	return out
}

func (c *Controller) applyStaff(ctx context.Context, token uint64, staff []api.StaffMember, err error) error {
	c.mu.Lock()
	if token != c.token {
		c.mu.Unlock()
		metrics.IncStaleResponse("staff")
		zerolog.Ctx(ctx).Debug().Uint64("token", token).Msg("stale staff response dropped")
		return ErrStale
	}
	c.staffLoading = false
	if err != nil {
		notify := c.notify
		c.mu.Unlock()
		c.logger.Warn().Err(err).Msg("load eligible staff")
		if notify != nil && !errors.Is(err, api.ErrAuthExpired) {
			notify.Error(MsgStaffLoadFailed)
		}
		return err
	}

	c.eligible = append([]api.StaffMember(nil), staff...)
	c.staffLoaded = true
	if cur := c.draft.Staff(); cur != nil && !containsStaff(c.eligible, cur.ID) {
		c.draft.ClearStaff()
	}
	c.mu.Unlock()
	return nil
}

// SelectStaff sets the staff member. Once the eligible list is loaded it must contain s.
func (c *Controller) SelectStaff(s api.StaffMember) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.staffLoaded && !containsStaff(c.eligible, s.ID) {
		return &ValidationError{Field: "staff", Message: "This staff member does not offer the selected service"}
	}
	c.draft.SetStaff(s)
	return nil
}

// Preselect stores a staff member picked before the service, e.g. from a staff page.
// It is dropped if the service's staff list does not contain it.
func (c *Controller) Preselect(s api.StaffMember) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.staffLoaded && !containsStaff(c.eligible, s.ID) {
		return
	}
	c.draft.SetStaff(s)
}

// SelectDate stores the appointment day.
func (c *Controller) SelectDate(d time.Time) {
	c.draft.SetDate(d)
}

// ClearDate drops the day and the time.
func (c *Controller) ClearDate() {
	c.draft.ClearDate()
}

// SelectTime stores the slot start time.
func (c *Controller) SelectTime(slot string) error {
	return c.draft.SetTime(slot)
}

// Prefill loads contact fields from the signed-in user.
func (c *Controller) Prefill(u *api.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := FormFromIdentity(u)
	f.Notes, f.SpecialRequests, f.AcceptTerms = c.form.Notes, c.form.SpecialRequests, c.form.AcceptTerms
	c.form = f
}

// Form returns the prefilled contact fields.
func (c *Controller) Form() DetailsForm {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

// Submit validates the draft and form and creates the appointment.
// On failure the draft and step are kept so the user can retry.
func (c *Controller) Submit(ctx context.Context, form DetailsForm) (*api.Appointment, error) {
	l := zerolog.Ctx(ctx)

	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	sel := c.draft.Snapshot()
	notify := c.notify
	if !sel.Complete() {
		c.mu.Unlock()
		if notify != nil {
			notify.Error(MsgIncomplete)
		}
		return nil, &ValidationError{Field: "booking", Message: "incomplete booking"}
	}
	if err := form.Validate(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.submitting = true
	c.form = form
	c.mu.Unlock()

	req := api.AppointmentRequest{
		ServiceID:       sel.Service.ID,
		StaffID:         sel.Staff.ID,
		Notes:           form.Notes,
		SpecialRequests: form.SpecialRequests,
	}
	if sel.HasDate() {
		req.AppointmentDate = sel.Date.Format("2006-01-02")
		req.StartTime = sel.Time
	}

	appt, err := c.api.CreateAppointment(ctx, req)

	c.mu.Lock()
	c.submitting = false
	if err != nil {
		c.mu.Unlock()
		metrics.IncBookingSubmitted("failed")
		l.Warn().Err(err).Int64("service_id", req.ServiceID).Int64("staff_id", req.StaffID).Msg("booking failed")
		if notify != nil && !errors.Is(err, api.ErrAuthExpired) {
			notify.Error(api.Message(err, MsgBookingFailed))
		}
		return nil, err
	}
	c.resetLocked()
	done, nav := c.done, c.nav
	c.mu.Unlock()

	metrics.IncBookingSubmitted("success")
	l.Info().Int64("appointment_id", appt.ID).Msg("booking created")
	if notify != nil {
		notify.Success(MsgBooked)
	}
	switch {
	case done != nil:
		done(appt)
	case nav != nil:
		nav.Navigate(DefaultCompletionPath)
	}
	return appt, nil
}

// Reset clears the draft and returns to the first step.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *Controller) resetLocked() {
	c.draft.Reset()
	c.step = StepService
	c.token++
	c.eligible = nil
	c.staffLoaded = false
	c.staffLoading = false
	c.form = DetailsForm{Name: c.form.Name, Email: c.form.Email, Phone: c.form.Phone}
}

func containsStaff(list []api.StaffMember, id int64) bool {
	for _, s := range list {
		if s.ID == id {
			return true
		}
	}
	return false
}
