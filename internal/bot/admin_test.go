package bot

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonbook/internal/api"
)

func staffBackend() *salonBackend {
	return &salonBackend{staff: true, appts: []api.Appointment{
		{ID: 7, Service: &api.Service{Name: "Haircut"}, AppointmentDate: "2024-03-16", StartTime: "10:00:00", Status: api.StatusPending},
		{ID: 8, AppointmentDate: "2024-03-16", StartTime: "12:00:00", Status: api.StatusConfirmed},
		{ID: 9, AppointmentDate: "2024-03-01", Status: api.StatusCompleted},
	}}
}

func TestAdminBookings_FilterAndStatusChanges(t *testing.T) {
	backend := staffBackend()
	b, tg := newTestBot(t, backend, nil)
	ctx := context.Background()

	b.handleUpdate(ctx, text("/login staff@example.com secret"))
	b.handleUpdate(ctx, text("/admin_bookings 2024-03-16 Pending"))
	assert.Contains(t, tg.lastText(), "🗂 Appointments · pending · 2024-03-16")
	assert.Equal(t, []string{
		"adm:confirmed:7", "adm:cancel:7",
		"adm:completed:8", "adm:cancel:8",
	}, callbacks(tg.lastKeyboard()))
	backend.mu.Lock()
	assert.Equal(t, url.Values{"status": {"pending"}, "appointment_date": {"2024-03-16"}}, backend.apptQuery)
	backend.mu.Unlock()

	b.handleUpdate(ctx, press("adm:confirmed:7"))
	assert.True(t, tg.hasText("Appointment #7 is now confirmed."))
	assert.Contains(t, tg.lastText(), "#7 Haircut\n📅 2024-03-16 10:00\nStatus: confirmed")

	b.handleUpdate(ctx, press("adm:cancel:8"))
	assert.True(t, tg.hasText("Appointment #8 is now cancelled."))

	b.handleUpdate(ctx, press("adm:deleted:7"))

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Equal(t, []string{"PATCH /bookings/7/", "DELETE /bookings/8/"}, backend.adminCalls)
	assert.Equal(t, map[string]any{"status": "confirmed"}, backend.adminBodies[0])
	assert.Equal(t, url.Values{"status": {"pending"}, "appointment_date": {"2024-03-16"}}, backend.apptQuery, "redraw keeps the filter")
	assert.Equal(t, api.StatusCancelled, backend.appts[1].Status)
}

func TestAdminBookings_Validation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		ok   bool
	}{
		{"no filter", nil, true},
		{"status only", []string{"completed"}, true},
		{"date only", []string{"2024-03-16"}, true},
		{"unknown word", []string{"someday"}, false},
		{"two statuses", []string{"pending", "confirmed"}, false},
		{"two dates", []string{"2024-03-16", "2024-03-17"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := parseAdminFilter(tt.args)
			assert.Equal(t, tt.ok, ok)
		})
	}

	b, tg := newTestBot(t, staffBackend(), nil)
	ctx := context.Background()
	b.handleUpdate(ctx, text("/login staff@example.com secret"))
	b.handleUpdate(ctx, text("/admin_bookings tomorrow"))
	assert.Equal(t, usageAdminBookings, tg.lastText())
}

func TestAdmin_StaffOnly(t *testing.T) {
	backend := &salonBackend{appts: []api.Appointment{{ID: 7, Status: api.StatusPending}}}
	b, tg := newTestBot(t, backend, nil)
	ctx := context.Background()

	b.handleUpdate(ctx, text("/admin_bookings"))
	assert.Equal(t, msgSignInFirst, tg.lastText())

	b.handleUpdate(ctx, text("/login anna@example.com secret"))
	for _, u := range []string{"/admin_bookings", "/admin_service 1 delete"} {
		b.handleUpdate(ctx, text(u))
		assert.Equal(t, "This command is available to staff only.", tg.lastText(), u)
	}
	b.handleUpdate(ctx, press("adm:confirmed:7"))
	assert.Equal(t, "This command is available to staff only.", tg.lastText())

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Empty(t, backend.adminCalls)
	assert.Equal(t, api.StatusPending, backend.appts[0].Status)
}

func TestAdminService_EditsInvalidateCatalog(t *testing.T) {
	mr := miniredis.RunT(t)
	backend := staffBackend()
	b, tg := newTestBot(t, backend, nil)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	b.api.UseRedisCache(rc, time.Minute)
	ctx := context.Background()

	b.handleUpdate(ctx, text("/login staff@example.com secret"))
	hits := func() int {
		backend.mu.Lock()
		defer backend.mu.Unlock()
		return backend.serviceHits
	}
	b.handleUpdate(ctx, text("/book"))
	b.handleUpdate(ctx, text("/book"))
	assert.Equal(t, 1, hits(), "second listing is cached")

	b.handleUpdate(ctx, text("/admin_service new 45 60 Silk press"))
	assert.Equal(t, "Service #21 Silk press created.", tg.lastText())
	b.handleUpdate(ctx, text("/book"))
	assert.Equal(t, 2, hits())

	b.handleUpdate(ctx, text("/admin_service 1 price 35.5"))
	assert.Equal(t, "Service #1 now costs 35.50.", tg.lastText())
	b.handleUpdate(ctx, text("/admin_service 1 duration 90"))
	assert.Equal(t, "Service #1 now takes 90 minutes.", tg.lastText())
	b.handleUpdate(ctx, text("/admin_service 1 delete"))
	assert.Equal(t, "Service #1 deleted.", tg.lastText())
	b.handleUpdate(ctx, text("/book"))
	assert.Equal(t, 3, hits())

	for _, bad := range []string{
		"/admin_service",
		"/admin_service new abc 60 Name",
		"/admin_service new 45 0 Name",
		"/admin_service 1 duration 0",
		"/admin_service x delete",
		"/admin_service 1 rename Foo",
	} {
		b.handleUpdate(ctx, text(bad))
		assert.Equal(t, usageAdminService, tg.lastText(), bad)
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Equal(t, []string{
		"POST /services/", "PATCH /services/1/", "PATCH /services/1/", "DELETE /services/1/",
	}, backend.adminCalls)
	assert.Equal(t, map[string]any{"name": "Silk press", "price": "45.00", "duration": float64(60), "is_active": true}, backend.adminBodies[0])
	assert.Equal(t, map[string]any{"price": "35.50"}, backend.adminBodies[1])
	assert.Equal(t, map[string]any{"duration": float64(90)}, backend.adminBodies[2])
}

func TestCategories_NarrowBooking(t *testing.T) {
	b, tg := newTestBot(t, &salonBackend{}, nil)
	ctx := context.Background()

	b.handleUpdate(ctx, text("/login anna@example.com secret"))
	b.handleUpdate(ctx, text("/categories"))
	assert.Equal(t, "Choose a category:", tg.lastText())
	assert.Equal(t, []string{"cat:3"}, callbacks(tg.lastKeyboard()))

	b.handleUpdate(ctx, press("cat:3"))
	assert.Equal(t, []string{"svc:4"}, callbacks(tg.lastKeyboard()))

	b.handleUpdate(ctx, text("/book 3"))
	assert.Equal(t, []string{"svc:4"}, callbacks(tg.lastKeyboard()))

	b.handleUpdate(ctx, text("/book braids"))
	assert.Equal(t, "Usage: /book [category id]. See /categories.", tg.lastText())
}

func TestPasswordReset(t *testing.T) {
	backend := &salonBackend{}
	b, tg := newTestBot(t, backend, nil)
	ctx := context.Background()

	b.handleUpdate(ctx, text("/forgot nobody"))
	assert.Equal(t, "Usage: /forgot <email>", tg.lastText())

	b.handleUpdate(ctx, text("/forgot anna@example.com"))
	assert.Contains(t, tg.lastText(), "Password reset instructions sent to your email.")

	b.handleUpdate(ctx, text("/reset tok n3w-secret"))
	assert.Equal(t, "Password changed. Sign in with /login <email> <password>.", tg.lastText())
	tg.mu.Lock()
	require.NotEmpty(t, tg.requests)
	tg.mu.Unlock()

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Equal(t, []string{"POST /auth/forgot-password/", "POST /auth/reset-password/"}, backend.adminCalls)
	assert.Equal(t, map[string]any{"email": "anna@example.com"}, backend.adminBodies[0])
	assert.Equal(t, map[string]any{"token": "tok", "password": "n3w-secret"}, backend.adminBodies[1])
}

func TestAdminStaffAndImages(t *testing.T) {
	backend := staffBackend()
	b, tg := newTestBot(t, backend, nil)
	ctx := context.Background()

	b.handleUpdate(ctx, text("/login staff@example.com secret"))
	b.handleUpdate(ctx, text("/admin_service 1"))
	assert.Equal(t, "#1 Haircut\nPrice: 30.00\nDuration: 45 min\nStatus: active", tg.lastText())

	b.handleUpdate(ctx, text("/admin_staff 5 off"))
	assert.Equal(t, "Jane Doe no longer takes bookings.", tg.lastText())
	b.handleUpdate(ctx, text("/admin_staff 5 on"))
	assert.Equal(t, "Jane Doe now takes bookings.", tg.lastText())
	b.handleUpdate(ctx, text("/admin_staff 5 maybe"))
	assert.Equal(t, usageAdminStaff, tg.lastText())

	b.handleUpdate(ctx, text("/admin_image 12 feature"))
	assert.Equal(t, "Image #12: feature done.", tg.lastText())
	b.handleUpdate(ctx, text("/admin_image 12 delete"))
	assert.Equal(t, "Image #12: delete done.", tg.lastText())
	b.handleUpdate(ctx, text("/admin_image 12 rotate"))
	assert.Equal(t, usageAdminImage, tg.lastText())

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Equal(t, []string{
		"PATCH /staff/5/", "PATCH /staff/5/",
		"PATCH /gallery/images/12/", "DELETE /gallery/images/12/",
	}, backend.adminCalls)
	assert.Equal(t, map[string]any{"is_active": false}, backend.adminBodies[0])
	assert.Equal(t, map[string]any{"is_featured": true}, backend.adminBodies[2])
}
