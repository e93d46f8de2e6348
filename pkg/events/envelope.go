package events

import "github.com/go-playground/validator/v10"

// EventType discriminates every inbound queue message. The set is closed:
// a message whose eventType is not listed here is rejected before dispatch.
type EventType string

const (
	EventUserRegistered            EventType = "USER_REGISTERED"
	EventStudentMagicLinkRequested EventType = "STUDENT_MAGIC_LINK_REQUESTED"
)

// Envelope is a validated, typed queue message. Exactly one concrete
// variant exists per EventType.
type Envelope interface {
	Kind() EventType
}

// Keys identifies the storage record that produced the event.
type Keys struct {
	Pk string `json:"Pk" validate:"required"`
	Sk string `json:"Sk" validate:"required"`
}

type UserRole string

const (
	RoleMerchant UserRole = "merchant"
	RoleStudent  UserRole = "student"
	RoleAdmin    UserRole = "admin"
	RoleSponsor  UserRole = "sponsor"
)

// User is the sub-entity carried by USER_REGISTERED events.
type User struct {
	ID            string   `json:"id" validate:"required"`
	Email         string   `json:"email" validate:"required,email"`
	Role          UserRole `json:"role" validate:"omitempty,oneof=merchant student admin sponsor"`
	FirstName     string   `json:"firstName"`
	LastName      string   `json:"lastName"`
	StudentNumber string   `json:"studentNumber"`
	IsActive      *bool    `json:"is_active"`
	CreatedAt     string   `json:"created_at"`
}

// DisplayName composes "First Last", a single present name, or "".
func (u User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.LastName
	}
}

// UserRegistered is emitted by the main backend when a user record is
// created. It triggers the welcome email and provider-side provisioning.
type UserRegistered struct {
	EventType EventType `json:"eventType" validate:"required"`
	Timestamp string    `json:"timestamp" validate:"required"`
	User      User      `json:"user" validate:"required"`
	Keys      Keys      `json:"keys" validate:"required"`
	Table     string    `json:"table" validate:"required"`
	Source    string    `json:"source" validate:"required"`
}

func (UserRegistered) Kind() EventType { return EventUserRegistered }

func (e *UserRegistered) Validate() error {
	validate := validator.New()
	return validate.Struct(e)
}

// StudentMagicLinkRequested is emitted when a student asks for a login link.
type StudentMagicLinkRequested struct {
	EventType  EventType `json:"eventType" validate:"required"`
	Timestamp  string    `json:"timestamp" validate:"required"`
	Email      string    `json:"email" validate:"required,email"`
	MagicToken string    `json:"magicToken" validate:"required"`
	LinkURL    string    `json:"linkUrl"`
	Source     string    `json:"source"`
}

func (StudentMagicLinkRequested) Kind() EventType { return EventStudentMagicLinkRequested }

func (e *StudentMagicLinkRequested) Validate() error {
	validate := validator.New()
	return validate.Struct(e)
}
