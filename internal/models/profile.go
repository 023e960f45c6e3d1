package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Gender string

const (
	Male   Gender = "male"
	Female Gender = "female"
)

type MaritalStatus string

const (
	Married   MaritalStatus = "married"
	Single    MaritalStatus = "single"
	Divorced  MaritalStatus = "divorced"
	Widowed   MaritalStatus = "widowed"
	Separated MaritalStatus = "separated"
	Unknown   MaritalStatus = "unknown"
)

// Profile holds the personal details a user submits before their default
// account is provisioned. The user identity itself lives with the external
// identity provider; only its opaque id and display name are kept here.
type Profile struct {
	UserID        uuid.UUID     `json:"user_id" db:"user_id"`
	FullName      string        `json:"full_name" db:"full_name"`
	Gender        Gender        `json:"gender" db:"gender"`
	MaritalStatus MaritalStatus `json:"marital_status" db:"marital_status"`
	PhoneNumber   string        `json:"phone_number" db:"phone_number"`
	DateOfBirth   time.Time     `json:"date_of_birth" db:"date_of_birth"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}

func (g Gender) Validate() error {
	switch g {
	case Male, Female:
		return nil
	}
	return fmt.Errorf("%w: gender %q", ErrInvalidEnumValue, string(g))
}

func (m MaritalStatus) Validate() error {
	switch m {
	case Married, Single, Divorced, Widowed, Separated, Unknown:
		return nil
	}
	return fmt.Errorf("%w: marital status %q", ErrInvalidEnumValue, string(m))
}

// Validate checks the profile's closed enum fields and required identity.
func (p *Profile) Validate() error {
	if p.UserID == uuid.Nil {
		return fmt.Errorf("profile requires a user id")
	}
	if err := p.Gender.Validate(); err != nil {
		return err
	}
	return p.MaritalStatus.Validate()
}

// represents the request to update a user's profile
type ProfileUpdateRequest struct {
	FullName      string        `json:"full_name"`
	Gender        Gender        `json:"gender"`
	MaritalStatus MaritalStatus `json:"marital_status"`
	PhoneNumber   string        `json:"phone_number"`
	DateOfBirth   time.Time     `json:"date_of_birth"`
}
