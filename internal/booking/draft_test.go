package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraft_TimeRequiresDate(t *testing.T) {
	d := NewDraft()
	assert.ErrorIs(t, d.SetTime("10:00"), ErrNoDate)

	d.SetDate(time.Date(2024, time.March, 16, 15, 4, 0, 0, time.Local))
	require.NoError(t, d.SetTime("10:00"))

	sel := d.Snapshot()
	assert.True(t, sel.HasDate())
	assert.Equal(t, 0, sel.Date.Hour())
	assert.Equal(t, "10:00", sel.Time)
}

func TestDraft_ClearDateCascades(t *testing.T) {
	d := NewDraft()
	d.SetDate(time.Date(2024, time.March, 16, 0, 0, 0, 0, time.Local))
	require.NoError(t, d.SetTime("10:00"))

	d.ClearDate()
	sel := d.Snapshot()
	assert.False(t, sel.HasDate())
	assert.Empty(t, sel.Time)
}

func TestDraft_ChangingDayDropsTime(t *testing.T) {
	d := NewDraft()
	d.SetDate(time.Date(2024, time.March, 16, 9, 0, 0, 0, time.Local))
	require.NoError(t, d.SetTime("10:00"))

	d.SetDate(time.Date(2024, time.March, 16, 18, 0, 0, 0, time.Local))
	assert.Equal(t, "10:00", d.Snapshot().Time)

	d.SetDate(time.Date(2024, time.March, 17, 0, 0, 0, 0, time.Local))
	assert.Empty(t, d.Snapshot().Time)
}

func TestDraft_SnapshotIsCopy(t *testing.T) {
	d := NewDraft()
	d.SetService(braids)
	sel := d.Snapshot()
	sel.Service.Name = "changed"
	assert.Equal(t, "Box braids", d.Service().Name)

	d.Reset()
	assert.Equal(t, Selection{}, d.Snapshot())
}

func TestDetailsForm_Validate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*DetailsForm)
		field string
	}{
		{name: "ok", edit: func(*DetailsForm) {}},
		{name: "missing name", edit: func(f *DetailsForm) { f.Name = "  " }, field: "name"},
		{name: "missing email", edit: func(f *DetailsForm) { f.Email = "" }, field: "email"},
		{name: "bad email", edit: func(f *DetailsForm) { f.Email = "ada@example" }, field: "email"},
		{name: "uppercase email", edit: func(f *DetailsForm) { f.Email = "ADA@EXAMPLE.COM" }},
		{name: "missing phone", edit: func(f *DetailsForm) { f.Phone = "" }, field: "phone"},
		{name: "terms", edit: func(f *DetailsForm) { f.AcceptTerms = false }, field: "terms"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := goodForm
			tt.edit(&f)
			err := f.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "+1 (555) 010-0100", want: "+15550100100", ok: true},
		{in: "555.0100", want: "5550100", ok: true},
		{in: "12345", ok: false},
		{in: "call me", ok: false},
		{in: "", ok: false},
	}
	for _, tt := range tests {
		got, ok := NormalizePhone(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
