package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// CallOutcome is the result a dialer agent reports for a call attempt.
type CallOutcome string

const (
	OutcomeAnswered      CallOutcome = "ANSWERED"
	OutcomeNoAnswer      CallOutcome = "NO_ANSWER"
	OutcomeBusy          CallOutcome = "BUSY"
	OutcomeVoicemail     CallOutcome = "VOICEMAIL"
	OutcomeInvalidNumber CallOutcome = "INVALID_NUMBER"
	OutcomeCallback      CallOutcome = "CALLBACK"
)

// ValidOutcome reports whether o is a known call outcome.
func ValidOutcome(o CallOutcome) bool {
	switch o {
	case OutcomeAnswered, OutcomeNoAnswer, OutcomeBusy,
		OutcomeVoicemail, OutcomeInvalidNumber, OutcomeCallback:
		return true
	}
	return false
}

type CompanyInput struct {
	CompanyName      string   `json:"companyName"`
	OrgNumber        string   `json:"orgNumber"`
	Role             *string  `json:"role"`
	ShareCapitalPaid *float64 `json:"shareCapitalPaid"`
}

type CreateProspectRequest struct {
	FirstName  string         `json:"firstName"`
	LastName   string         `json:"lastName"`
	Email      *string        `json:"email"`
	Phone      *string        `json:"phone"`
	Phone2     *string        `json:"phone2"`
	Address    *string        `json:"address"`
	PostalCode *string        `json:"postalCode"`
	City       *string        `json:"city"`
	Source     string         `json:"source"`
	Companies  []CompanyInput `json:"companies"`
}

// UpdateProspectRequest carries optional fields; nil means leave unchanged.
type UpdateProspectRequest struct {
	FirstName       *string    `json:"firstName"`
	LastName        *string    `json:"lastName"`
	Email           *string    `json:"email"`
	Phone           *string    `json:"phone"`
	Phone2          *string    `json:"phone2"`
	Address         *string    `json:"address"`
	PostalCode      *string    `json:"postalCode"`
	City            *string    `json:"city"`
	Status          *Status    `json:"status"`
	CurrentStep     *int       `json:"currentStep"`
	TaxSystemUserID *string    `json:"taxSystemUserId"`
	TaxSystemStatus *string    `json:"taxSystemStatus"`
	LastCalledAt    *time.Time `json:"lastCalledAt"`
}

type ListProspectRequest struct {
	Statuses       []Status
	HasPhone       *bool
	NotCalledSince *time.Time
	Search         string
	SortBy         string
	SortOrder      string
	Limit          int
	Offset         int
}

type ListProspectResponse struct {
	Prospects []Prospect `json:"prospects"`
	Total     int64      `json:"total"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
}

type RecordCallRequest struct {
	ProspectID      string      `json:"-"`
	Outcome         CallOutcome `json:"outcome"`
	DurationSeconds *int        `json:"durationSeconds"`
	Notes           string      `json:"notes"`
	CallbackAt      *time.Time  `json:"callbackAt"`
	NewStatus       *Status     `json:"newStatus"`
	SourceName      string      `json:"-"`
}

type CallResult struct {
	Prospect       Prospect `json:"prospect"`
	PreviousStatus Status   `json:"previousStatus"`
	TaskCreated    bool     `json:"taskCreated"`
}

type AddNoteRequest struct {
	ProspectID string `json:"-"`
	Content    string `json:"content"`
}

type AddTaskRequest struct {
	ProspectID  string    `json:"-"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	DueDate     time.Time `json:"dueDate"`
}

type Service interface {
	Create(context.Context, CreateProspectRequest) (Prospect, error)
	GetByID(ctx context.Context, id string) (Prospect, error)
	Update(ctx context.Context, id string, req UpdateProspectRequest) (Prospect, error)
	Delete(ctx context.Context, id string) error
	List(context.Context, ListProspectRequest) (ListProspectResponse, error)
	RecordCallOutcome(context.Context, RecordCallRequest) (CallResult, error)
	AddNote(context.Context, AddNoteRequest) (Note, error)
	AddTask(context.Context, AddTaskRequest) (Task, error)
	CompleteTask(ctx context.Context, prospectID, taskID string) (Task, error)
	Activities(ctx context.Context, prospectID string) ([]Activity, error)
	LogActivity(ctx context.Context, prospectID snowflake.ID, activityType, subject string, description *string, metadata map[string]interface{}) error
}

var (
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidID      = errors.New("invalid_id")
	ErrInvalidStatus  = errors.New("invalid_status")
	ErrInvalidOutcome = errors.New("invalid_outcome")
	ErrInvalidSort    = errors.New("invalid_sort")
	ErrEmptyContent   = errors.New("empty_content")
	ErrInvalidDueDate = errors.New("invalid_due_date")
	ErrNotFound       = errors.New("not_found")
)
