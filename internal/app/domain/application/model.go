package application

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a membership application.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Terminal reports whether no further decision transitions are permitted.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Payload holds the fields the applicant filled in. The lifecycle treats it
// as opaque; it is only rendered for reviewers.
type Payload struct {
	Nickname   string `json:"nickname"`
	Age        string `json:"age,omitempty"`
	Experience string `json:"experience,omitempty"`
	Playstyle  string `json:"playstyle,omitempty"`
	Contact    string `json:"telegram,omitempty"`
	About      string `json:"about,omitempty"`
}

// Application is a single membership request record. JSON tags follow the
// persisted collection layout consumed by the web client.
type Application struct {
	ID          string     `json:"id"`
	SubmitterID string     `json:"userId"`
	Payload     Payload    `json:"payload"`
	Status      Status     `json:"status"`
	Reviewer    string     `json:"reviewedBy,omitempty"`
	DecidedAt   *time.Time `json:"reviewedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	Deleted     bool       `json:"deleted,omitempty"`
}

// NewID generates an application id that is unique and roughly ordered by
// submission time.
func NewID() string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("app_%d_%s", time.Now().UnixMilli(), suffix)
}
