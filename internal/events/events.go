package events

import (
	"encoding/json"
	"time"

	"talentscout-engine/internal/domain"
)

type Event struct {
	Type  string          `json:"type"`
	At    time.Time       `json:"at"`
	JobID string          `json:"job_id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func Make(jobID, typ string, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	e := Event{
		Type:  typ,
		At:    time.Now().UTC(),
		JobID: jobID,
		Data:  raw,
	}
	b, _ := json.Marshal(e)
	return string(b)
}

// StateChanged is the SSE payload emitted on every pipeline transition.
func StateChanged(jobID string, state domain.JobState) string {
	return Make(jobID, "job_state", map[string]string{"state": string(state)})
}
