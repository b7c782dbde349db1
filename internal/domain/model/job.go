package model

import "time"

type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusPartial   JobStatus = "partial"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusPartial, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

type SectionStatus string

const (
	SectionStatusWaiting    SectionStatus = "waiting"
	SectionStatusAllocating SectionStatus = "allocating"
	SectionStatusGenerating SectionStatus = "generating"
	SectionStatusCompleted  SectionStatus = "completed"
	SectionStatusFailed     SectionStatus = "failed"
)

func (s SectionStatus) Terminal() bool {
	return s == SectionStatusCompleted || s == SectionStatusFailed
}

// SectionProgress is owned by exactly one section task; nothing else writes it.
type SectionProgress struct {
	Section    SectionType   `json:"section"`
	Status     SectionStatus `json:"status"`
	Percentage int           `json:"percentage"`
	Message    string        `json:"message,omitempty"`
	Error      string        `json:"error,omitempty"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Job is one user-initiated multi-section generation request. The section key
// set is fixed at creation and never grows or shrinks afterward.
type Job struct {
	ID              string                           `json:"id"`
	UserID          string                           `json:"user_id"`
	Status          JobStatus                        `json:"status"`
	CancelRequested bool                             `json:"cancel_requested"`
	Difficulty      string                           `json:"difficulty,omitempty"`
	Sections        map[SectionType]*SectionProgress `json:"sections"`
	Results         map[SectionType][]PoolItem       `json:"results,omitempty"`
	Error           string                           `json:"error,omitempty"`
	CreatedAt       time.Time                        `json:"created_at"`
	UpdatedAt       time.Time                        `json:"updated_at"`
}

// NewJob builds a job with every requested section in waiting state at 0%.
func NewJob(id, userID, difficulty string, sections []SectionType, now time.Time) *Job {
	j := &Job{
		ID:         id,
		UserID:     userID,
		Status:     JobStatusRunning,
		Difficulty: difficulty,
		Sections:   make(map[SectionType]*SectionProgress, len(sections)),
		Results:    make(map[SectionType][]PoolItem, len(sections)),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, s := range sections {
		j.Sections[s] = &SectionProgress{
			Section:   s,
			Status:    SectionStatusWaiting,
			Message:   "waiting",
			UpdatedAt: now,
		}
	}
	return j
}

// AggregateStatus derives the job status from the section statuses and the
// cancellation flag. It is the only place job status is computed:
//   - completed   when every section completed
//   - partial     when all sections are terminal with a mix of outcomes
//   - failed      when every section failed
//   - cancelled   when cancellation was requested and nothing is still
//     actively generating (waiting sections will never start)
//   - running     otherwise
func AggregateStatus(sections map[SectionType]*SectionProgress, cancelRequested bool) JobStatus {
	var completed, failed, generating int
	for _, p := range sections {
		switch p.Status {
		case SectionStatusCompleted:
			completed++
		case SectionStatusFailed:
			failed++
		case SectionStatusGenerating:
			generating++
		}
	}
	total := len(sections)

	switch {
	case total > 0 && completed == total:
		return JobStatusCompleted
	case completed+failed == total && completed > 0 && failed > 0:
		return JobStatusPartial
	case total > 0 && failed == total:
		return JobStatusFailed
	case cancelRequested && generating == 0:
		return JobStatusCancelled
	default:
		return JobStatusRunning
	}
}

// Progress summarises completed sections against the total.
func (j *Job) Progress() (completed, total, percentage int) {
	total = len(j.Sections)
	if total == 0 {
		return 0, 0, 0
	}
	sum := 0
	for _, p := range j.Sections {
		if p.Status == SectionStatusCompleted {
			completed++
		}
		sum += p.Percentage
	}
	return completed, total, sum / total
}
