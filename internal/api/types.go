package api

import (
	"encoding/json"
	"fmt"
	"time"

	"salonbook/internal/calendar"
)

const dateLayout = "2006-01-02"

// User is the account returned by the auth endpoints.
type User struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone,omitempty"`
	IsStaff   bool   `json:"is_staff"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// Service is a bookable salon service. Prices are decimal strings as sent by the backend.
type Service struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Duration    int    `json:"duration"` // minutes
	Price       string `json:"price,omitempty"`
	FinalPrice  string `json:"final_price"`
	IsPopular   bool   `json:"is_popular"`
	IsActive    bool   `json:"is_active"`
}

// Category groups services on the menu.
type Category struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	DisplayOrder int    `json:"display_order"`
	IsActive     bool   `json:"is_active"`
}

// StaffUser is the short user record nested in staff responses.
type StaffUser struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// StaffMember is a stylist.
type StaffMember struct {
	ID              int64     `json:"id"`
	User            StaffUser `json:"user"`
	FullName        string    `json:"full_name,omitempty"`
	Title           string    `json:"title"`
	Bio             string    `json:"bio,omitempty"`
	ExperienceYears int       `json:"experience_years"`
	IsActive        bool      `json:"is_active"`
}

// DisplayName returns the best available name.
func (s StaffMember) DisplayName() string {
	if s.FullName != "" {
		return s.FullName
	}
	name := User{FirstName: s.User.FirstName, LastName: s.User.LastName}.FullName()
	if name == "" {
		return fmt.Sprintf("#%d", s.ID)
	}
	return name
}

// Image is a gallery entry.
type Image struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image"`
	Views       int    `json:"views"`
	Likes       int    `json:"likes"`
	IsFeatured  bool   `json:"is_featured"`
	ServiceID   int64  `json:"service_id,omitempty"`
	StaffID     int64  `json:"staff_id,omitempty"`
}

// ImageFilter narrows the gallery listing.
type ImageFilter struct {
	Category  string
	ImageType string
	Service   int64
	Staff     int64
	Featured  bool
}

// Appointment is a booking as returned by the backend.
type Appointment struct {
	ID              int64        `json:"id"`
	Service         *Service     `json:"service,omitempty"`
	Staff           *StaffMember `json:"staff,omitempty"`
	ServiceID       int64        `json:"service_id,omitempty"`
	StaffID         int64        `json:"staff_id,omitempty"`
	AppointmentDate string       `json:"appointment_date"`
	StartTime       string       `json:"start_time"`
	EndTime         string       `json:"end_time,omitempty"`
	Status          string       `json:"status"`
	TotalAmount     string       `json:"total_amount,omitempty"`
	Notes           string       `json:"notes,omitempty"`
	SpecialRequests string       `json:"special_requests,omitempty"`
}

// Appointment statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// AppointmentRequest is the body of POST /bookings/.
// Date and time are sent only when the draft holds them.
type AppointmentRequest struct {
	ServiceID       int64  `json:"service_id"`
	StaffID         int64  `json:"staff_id"`
	AppointmentDate string `json:"appointment_date,omitempty"`
	StartTime       string `json:"start_time,omitempty"`
	Notes           string `json:"notes"`
	SpecialRequests string `json:"special_requests"`
}

// TimeSlot is one entry of /bookings/available-times/.
// GetAvailableTimes fills Date from the request when the backend omits it.
type TimeSlot struct {
	Date        string `json:"date,omitempty"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time,omitempty"`
	IsAvailable bool   `json:"is_available"`
}

// ToCalendarSlots converts wire slots to calendar slots, skipping unparsable dates.
// Slots from GetAvailableTimes always carry a valid date.
func ToCalendarSlots(slots []TimeSlot, loc *time.Location) []calendar.TimeSlot {
	if loc == nil {
		loc = time.Local
	}
	out := make([]calendar.TimeSlot, 0, len(slots))
	for _, s := range slots {
		d, err := time.ParseInLocation(dateLayout, s.Date, loc)
		if err != nil {
			continue
		}
		out = append(out, calendar.TimeSlot{Date: d, StartTime: s.StartTime, IsAvailable: s.IsAvailable})
	}
	return out
}

// StatCard is one tile of /dashboard/stats/.
type StatCard struct {
	Title string `json:"title"`
	Value any    `json:"value"`
	Icon  string `json:"icon,omitempty"`
	Color string `json:"color,omitempty"`
}

// TokenPair holds JWT credentials.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	TokenPair
	User User `json:"user"`
}

// RegisterRequest is the body of POST /auth/register/.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone,omitempty"`
}

// ProfileUpdate is the body of PATCH /auth/users/update_me/. Empty fields are left untouched.
type ProfileUpdate struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// Page is the paginated list envelope. Decoding fails unless "results" is present.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

type pageEnvelope[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  *[]T    `json:"results"`
}

func (p *Page[T]) UnmarshalJSON(data []byte) error {
	var env pageEnvelope[T]
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	if env.Results == nil {
		return fmt.Errorf("missing results")
	}
	p.Count = env.Count
	p.Next = env.Next
	p.Previous = env.Previous
	p.Results = *env.Results
	return nil
}
