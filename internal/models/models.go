package models

import "time"

type UserRole string

const (
	RoleAdmin  UserRole = "Admin"
	RoleUser   UserRole = "User"
	RoleStaff  UserRole = "Staff"
	RoleLawyer UserRole = "Lawyer"
)

// Roles is the closed set of roles the backend can assign.
var Roles = []UserRole{RoleAdmin, RoleUser, RoleStaff, RoleLawyer}

func (r UserRole) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

const (
	AppointmentStatusPending  = "pending"
	AppointmentStatusApproved = "approved"
	AppointmentStatusCanceled = "canceled"
)

const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusCanceled = "canceled"
)

type User struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	FullName string   `json:"fullName"`
	Phone    string   `json:"phone,omitempty"`
	Role     UserRole `json:"role"`
	IsActive bool     `json:"isActive"`
}

// Appointment dates and clock times are kept as the backend's literal
// strings ("2006-01-02" and "15:04"); the agenda package parses them.
type Appointment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	LawyerID  string    `json:"lawyerId,omitempty"`
	ServiceID string    `json:"serviceId,omitempty"`
	Date      string    `json:"date"`
	StartTime string    `json:"startTime"`
	EndsAt    string    `json:"endsAt,omitempty"`
	Status    string    `json:"status"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

type Service struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
	Price       int64  `json:"price"`
	Currency    string `json:"currency,omitempty"`
}

type Payment struct {
	ID            string    `json:"id"`
	OrderCode     string    `json:"orderCode"`
	AppointmentID string    `json:"appointmentId,omitempty"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
	CheckoutURL   string    `json:"checkoutUrl,omitempty"`
	CreatedAt     time.Time `json:"createdAt,omitempty"`
}
