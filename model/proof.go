package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusPreparing  Status = "preparing"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusTimedOut   Status = "timed-out"
	StatusCancelled  Status = "cancelled"
)

// ParseStatus normalizes the spellings the proof backend has used
// ("InProgress", "in_progress", "in-progress") to a Status.
func ParseStatus(s string) (Status, bool) {
	key := strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(s))
	switch key {
	case "preparing":
		return StatusPreparing, true
	case "inprogress":
		return StatusInProgress, true
	case "completed":
		return StatusCompleted, true
	case "failed":
		return StatusFailed, true
	case "timedout":
		return StatusTimedOut, true
	case "cancelled", "canceled":
		return StatusCancelled, true
	default:
		return Status(strings.ToLower(s)), false
	}
}

func (s *Status) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == "" {
		*s = StatusPreparing
		return nil
	}
	*s, _ = ParseStatus(raw)
	return nil
}

// Terminal reports whether the backend will not update the session again.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusTimedOut, StatusCancelled:
		return true
	default:
		return false
	}
}

// RecordID is the backend's record identifier. It is either a plain string
// or a table/id pair, which is flattened to "table:id".
type RecordID string

func (r *RecordID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*r = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = RecordID(s)
		return nil
	}
	var thing struct {
		TB string          `json:"tb"`
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(b, &thing); err == nil && thing.TB != "" {
		if id := thingKey(thing.ID); id != "" {
			*r = RecordID(thing.TB + ":" + id)
			return nil
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, b); err != nil {
		return err
	}
	*r = RecordID(buf.String())
	return nil
}

func thingKey(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var tagged map[string]json.RawMessage
	if json.Unmarshal(raw, &tagged) != nil || len(tagged) != 1 {
		return ""
	}
	for _, v := range tagged {
		var str string
		if json.Unmarshal(v, &str) == nil {
			return str
		}
		var n json.Number
		if json.Unmarshal(v, &n) == nil {
			return n.String()
		}
	}
	return ""
}

// ProofRecord is a proof session as reported by the backend. Receipt and
// completion fields stay empty until the session completes.
type ProofRecord struct {
	ID          RecordID `json:"id"`
	SessionID   string   `json:"session_id"`
	ImageCID    string   `json:"image_cid,omitempty"`
	Status      Status   `json:"status"`
	ReceiptCID  string   `json:"receipt_cid,omitempty"`
	CreatedAt   string   `json:"created_at"`
	CompletedAt string   `json:"completed_at,omitempty"`
}

// Started parses CreatedAt.
func (p ProofRecord) Started() (time.Time, bool) { return parseTimestamp(p.CreatedAt) }

// Completed parses CompletedAt.
func (p ProofRecord) Completed() (time.Time, bool) { return parseTimestamp(p.CompletedAt) }

// Duration is the wall time between creation and completion, truncated to
// whole seconds. ok is false while the session is still running.
func (p ProofRecord) Duration() (time.Duration, bool) {
	start, ok := p.Started()
	if !ok {
		return 0, false
	}
	end, ok := p.Completed()
	if !ok {
		return 0, false
	}
	return end.Sub(start).Truncate(time.Second), true
}

func (p ProofRecord) StartLabel() string {
	t, ok := p.Started()
	if !ok {
		return p.CreatedAt
	}
	return t.Format("Jan 2, 2006 3:04 PM")
}

func (p ProofRecord) DurationLabel() string {
	d, ok := p.Duration()
	if !ok {
		return "N/A"
	}
	return fmt.Sprintf("%ds", int64(d/time.Second))
}

func (p ProofRecord) ReceiptLabel() string {
	if p.ReceiptCID == "" {
		return "N/A"
	}
	return ShortenString(p.ReceiptCID)
}

func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Argument is one proof input as submitted to the backend.
type Argument struct {
	Value   string `json:"value"`
	ArgType string `json:"arg_type"`
}

// ProofRequest is the body of a proof creation request.
type ProofRequest struct {
	ImageCID  string     `json:"image_cid"`
	Arguments []Argument `json:"arguments"`
}

// Verification is the backend's answer to a receipt verification request.
type Verification struct {
	Verified bool            `json:"verified"`
	Result   json.RawMessage `json:"result,omitempty"`
}
