package domain

import "time"

type MandateStatus string

const (
	MandateOpen   MandateStatus = "OPEN"
	MandateClosed MandateStatus = "CLOSED"
)

// Mandate is the accountable unit. Owner and backup owner are both
// authorized to manage its certifications.
type Mandate struct {
	MandateID     string        `json:"mandate_id"`
	Title         string        `json:"title"`
	OwnerID       string        `json:"owner_id"`
	BackupOwnerID string        `json:"backup_owner_id,omitempty"`
	Status        MandateStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
}

// ManagedBy reports whether userID is the owner or backup owner.
func (m Mandate) ManagedBy(userID string) bool {
	return userID != "" && (userID == m.OwnerID || userID == m.BackupOwnerID)
}

type CertificationStatus string

const (
	CertificationDraft  CertificationStatus = "DRAFT"
	CertificationOpen   CertificationStatus = "OPEN"
	CertificationClosed CertificationStatus = "CLOSED"
)

// Certification is one attestation campaign under a mandate. Closed is
// terminal: no further mutation to questions, assignments, or responses.
type Certification struct {
	CertificationID string              `json:"certification_id"`
	MandateID       string              `json:"mandate_id"`
	Title           string              `json:"title"`
	Description     string              `json:"description,omitempty"`
	Questions       []Question          `json:"questions"`
	Deadline        *time.Time          `json:"deadline,omitempty"`
	Status          CertificationStatus `json:"status"`
	PublishedAt     *time.Time          `json:"published_at,omitempty"`
	ClosedAt        *time.Time          `json:"closed_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

const (
	Level1 = 1
	Level2 = 2
)

// Assignment links an attester to a certification at level 1 or 2. GroupID
// ties level-1 attesters to exactly one level-2 reviewer; a standalone
// level-1 attester has an empty GroupID. One row per (certification,
// attester) pair.
type Assignment struct {
	CertificationID string    `json:"certification_id"`
	AttesterID      string    `json:"attester_id"`
	Level           int       `json:"level"`
	GroupID         string    `json:"group_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type ResponseStatus string

const (
	ResponseInProgress ResponseStatus = "IN_PROGRESS"
	ResponseSubmitted  ResponseStatus = "SUBMITTED"
)

// Response is one attester's full answer set for one certification.
// Once submitted it is immutable and SubmittedAt is fixed.
type Response struct {
	CertificationID string         `json:"certification_id"`
	AttesterID      string         `json:"attester_id"`
	Answers         []Answer       `json:"answers"`
	Status          ResponseStatus `json:"status"`
	LastSavedAt     time.Time      `json:"last_saved_at"`
	SubmittedAt     *time.Time     `json:"submitted_at,omitempty"`
}

// Answer holds one question's value. Value is a bool for YES_NO, a string
// for DROPDOWN/TEXT/DATE, and a []string (decoded as []any) for
// MULTIPLE_CHOICE.
type Answer struct {
	QuestionID string `json:"question_id"`
	Value      any    `json:"answer"`
	Comments   string `json:"comments,omitempty"`
}

type NotificationType string

const (
	NotifyCertificationAssigned NotificationType = "certification_assigned"
	NotifyLevelUnlocked         NotificationType = "level_unlocked"
	NotifyAttestationSubmitted  NotificationType = "attestation_submitted"
)

// Notification is an output event for the external sink; the workflow only
// enqueues these and never reads them back.
type Notification struct {
	RecipientUserID string           `json:"user_id"`
	Type            NotificationType `json:"type"`
	Title           string           `json:"title"`
	Message         string           `json:"message"`
	Link            string           `json:"link,omitempty"`
}
