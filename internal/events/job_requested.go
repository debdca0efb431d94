package events

import "time"

const JobRequestedTopic = "twk.jobs.requested.v1"

const JobRequestedEventType = "twk.job.requested"

type JobRequestedEvent struct {
	EventType   string    `json:"event_type"`
	JobID       string    `json:"job_id"`
	Kind        string    `json:"kind"`
	CompanyID   string    `json:"company_id"`
	ScenarioID  string    `json:"scenario_id"`
	RequestedBy string    `json:"requested_by"`
	RequestID   string    `json:"request_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}
