// Package events carries run progress to observers as JSON lines.
package events

import (
	"encoding/json"
	"time"
)

const (
	TypeRun       = "run"
	TypeCandidate = "candidate"
	TypeJob       = "job"
	TypeFormStep  = "form_step"
)

type Event struct {
	Type    string          `json:"type"`
	Version int             `json:"v"`
	At      time.Time       `json:"at"`
	RunID   string          `json:"run_id,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func MakeEvent(runID, typ string, v int, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	e := Event{
		Type:    typ,
		Version: v,
		At:      time.Now().UTC(),
		RunID:   runID,
		Data:    raw,
	}
	b, _ := json.Marshal(e)
	return string(b)
}

type RunEvent struct {
	Phase      string `json:"phase"` // started | finished
	Candidates int    `json:"candidates,omitempty"`
	Applied    int    `json:"applied,omitempty"`
	Error      string `json:"error,omitempty"`
}

type CandidateEvent struct {
	Candidate string `json:"candidate"`
	State     string `json:"state"`
	Applied   int    `json:"applied"`
	Error     string `json:"error,omitempty"`
}

type JobEvent struct {
	Candidate string `json:"candidate"`
	JobID     string `json:"job_id"`
	Title     string `json:"title"`
	Tier      string `json:"tier"`
	Outcome   string `json:"outcome,omitempty"` // empty when skipped as already handled
	Skipped   bool   `json:"skipped,omitempty"`
}

type FormStepEvent struct {
	Candidate string `json:"candidate"`
	JobID     string `json:"job_id"`
	Step      string `json:"step"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}
