package domain

import "time"

// Status of an appointment. Transitions are driven by user action and are not
// restricted to a state machine; the only automatic transitions happen in the
// expiry reconciliation sweep (past-dated pending -> not_attended, past-dated
// confirmed -> attended).
type Status string

const (
	StatusPending     Status = "pending"
	StatusConfirmed   Status = "confirmed"
	StatusAttended    Status = "attended"
	StatusNotAttended Status = "not_attended"
	StatusCancelled   Status = "cancelled"
)

// Terminal reports whether the status ends the appointment's live lifecycle.
// Terminal appointments are moved to the historical collection.
func (s Status) Terminal() bool {
	return s == StatusAttended || s == StatusNotAttended || s == StatusCancelled
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusAttended, StatusNotAttended, StatusCancelled:
		return true
	}
	return false
}

// Origin records which channel created the appointment.
type Origin string

const (
	OriginManual    Origin = "manual"
	OriginAutomated Origin = "automated"
)

// Appointment is one requested meeting between a person and a pastor.
// Dates are calendar dates ("2006-01-02") and times are wall-clock minutes
// ("15:04"); both are kept as strings because that is the remote store's
// column representation and the slot arithmetic works on the same strings.
type Appointment struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"nome"`
	Phone        string `json:"telefone"`
	Email        string `json:"email,omitempty"`
	Type         string `json:"tipo_agendamento,omitempty"`
	PastorName   string `json:"pastor,omitempty"`
	Date         string `json:"data,omitempty"`
	Time         string `json:"horario,omitempty"`
	Notes        string `json:"observacoes,omitempty"`
	SessionNotes string `json:"anotacoes_pastor,omitempty"`
	Status       Status `json:"status"`
	Origin       Origin `json:"origem"`
	EventID      string `json:"google_event_id,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

// HistoryRecord is the archived copy of a terminal appointment.
type HistoryRecord struct {
	Appointment
	MovedToHistoryAt string `json:"moved_to_history_at"`
	Reason           string `json:"motivo"`
}

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// PastDate reports whether the appointment's date is strictly before today
// in the given location. Appointments without a date never expire.
func (a Appointment) PastDate(now time.Time, loc *time.Location) bool {
	if a.Date == "" {
		return false
	}
	d, err := time.ParseInLocation(DateLayout, a.Date, loc)
	if err != nil {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	return d.Before(today)
}
