package domain

import "time"

type JobKind string

const (
	JobFull      JobKind = "full"
	JobGmail     JobKind = "gmail"
	JobCalendar  JobKind = "calendar"
	JobReconcile JobKind = "reconcile"
)

// Valid reports whether k is a known kind.
func (k JobKind) Valid() bool {
	switch k {
	case JobFull, JobGmail, JobCalendar, JobReconcile:
		return true
	}
	return false
}

type JobState string

const (
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

// Terminal reports whether the job will not change state again.
func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// SyncJob tracks one background sync run.
type SyncJob struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	Kind      JobKind     `json:"kind"`
	State     JobState    `json:"state"`
	Result    *SyncResult `json:"result,omitempty"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// SyncResult summarizes what one sync pass did.
type SyncResult struct {
	EventsFound      int      `json:"events_found"`
	EventsStored     int      `json:"events_stored"`
	MessagesFound    int      `json:"messages_found"`
	MessagesStored   int      `json:"messages_stored"`
	RecordsFailed    int      `json:"records_failed"`
	ContactsUpserted int      `json:"contacts_upserted"`
	Reconciled       bool     `json:"reconciled"`
	Errors           []string `json:"errors,omitempty"`
}
