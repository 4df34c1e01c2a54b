// Package session holds per-conversation state: message history, interview
// phase, the uploaded risk summary and the prompt and model chosen for the
// conversation.
package session

import (
	"time"

	"longevity-advisor/internal/llm"
	"longevity-advisor/internal/report"
)

// Phase is the interview progress of a conversation.
type Phase string

const (
	PhaseInterviewing Phase = "interviewing"
	PhaseFinalReport  Phase = "final_report_emitted"
)

// History limits. Once more than HistoryCap turns are stored the history is
// cut back to the most recent HistoryKeep turns.
const (
	HistoryCap  = 50
	HistoryKeep = 30
)

// State is everything the orchestrator knows about one conversation.
type State struct {
	ID      string        `json:"id"`
	UserID  string        `json:"user_id,omitempty"`
	History []llm.Message `json:"history"`
	Phase   Phase         `json:"phase"`

	// Set by an upload; replaced wholesale by the next one.
	Summary    report.RiskSummary `json:"summary,omitempty"`
	ResultPath string             `json:"result_path,omitempty"`
	SourceFile string             `json:"source_file,omitempty"`

	Prompt    string    `json:"prompt,omitempty"`
	Model     string    `json:"model,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New returns an empty interviewing state.
func New(id string) *State {
	return &State{ID: id, Phase: PhaseInterviewing, UpdatedAt: time.Now()}
}

// Append adds a turn and enforces the history limits.
func (s *State) Append(role, content string) {
	s.History = append(s.History, llm.Message{Role: role, Content: content})
	if len(s.History) > HistoryCap {
		s.History = append([]llm.Message(nil), s.History[len(s.History)-HistoryKeep:]...)
	}
	s.UpdatedAt = time.Now()
}

// Messages returns the model input: the system prompt (if any) followed by
// the stored turns.
func (s *State) Messages() []llm.Message {
	msgs := make([]llm.Message, 0, len(s.History)+1)
	if s.Prompt != "" {
		msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: s.Prompt})
	}
	return append(msgs, s.History...)
}

// Restart clears the conversation but keeps the uploaded data, prompt and
// model.
func (s *State) Restart() {
	s.History = nil
	s.Phase = PhaseInterviewing
	s.UpdatedAt = time.Now()
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := *s
	c.History = append([]llm.Message(nil), s.History...)
	if s.Summary != nil {
		c.Summary = make(report.RiskSummary, len(s.Summary))
		for k, v := range s.Summary {
			c.Summary[k] = v
		}
	}
	return &c
}
