package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind is the lifecycle state reported by the job backend.
type Kind string

const (
	KindQueued    Kind = "queued"
	KindRunning   Kind = "running"
	KindCompleted Kind = "completed"
	KindFailed    Kind = "failed"
)

var (
	// ErrUnknownStatus is returned for a well-formed status document whose
	// status string is not one of the known kinds.
	ErrUnknownStatus = errors.New("unknown job status")
	// ErrMalformedStatus is returned when the status document fails validation.
	ErrMalformedStatus = errors.New("malformed job status")
)

// Result locates the generated files of a completed job.
type Result struct {
	PDFURL string `json:"pdf_url"`
	TexURL string `json:"tex_url"`
}

// Status is the parsed job-status document.
type Status struct {
	Kind Kind
	// Result is set only for KindCompleted, and only when both URLs are present.
	Result *Result
	// Reason carries the backend's failure message for KindFailed.
	Reason string
	// Payload is the raw payload object, if any.
	Payload json.RawMessage
	// Raw is the whole document as received.
	Raw json.RawMessage
}

// Terminal reports whether no further polling is needed.
func (s Status) Terminal() bool {
	return s.Kind == KindCompleted || s.Kind == KindFailed
}

type wireStatus struct {
	Status  string          `json:"status"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type failurePayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ParseStatus validates a job-status document and maps it to Status.
func ParseStatus(body []byte) (Status, error) {
	if err := validate(statusSchema, body); err != nil {
		return Status{}, fmt.Errorf("%w: %v", ErrMalformedStatus, err)
	}
	var w wireStatus
	if err := json.Unmarshal(body, &w); err != nil {
		return Status{}, fmt.Errorf("%w: %v", ErrMalformedStatus, err)
	}
	payload := w.Payload
	if string(payload) == "null" {
		payload = nil
	}
	st := Status{
		Kind:    Kind(strings.ToLower(strings.TrimSpace(w.Status))),
		Payload: payload,
		Raw:     append(json.RawMessage(nil), body...),
	}

	switch st.Kind {
	case KindQueued, KindRunning:
		return st, nil
	case KindCompleted:
		// A completion without both file URLs still ends the job; the result
		// view reports the missing files.
		var res Result
		if len(payload) > 0 && json.Unmarshal(payload, &res) == nil && res.PDFURL != "" && res.TexURL != "" {
			st.Result = &res
		}
		return st, nil
	case KindFailed:
		st.Reason = failureReason(payload)
		return st, nil
	default:
		return Status{}, fmt.Errorf("%w: %q", ErrUnknownStatus, w.Status)
	}
}

func failureReason(payload json.RawMessage) string {
	if len(payload) == 0 {
		return "Job failed"
	}
	var fp failurePayload
	if err := json.Unmarshal(payload, &fp); err == nil {
		if fp.Error != "" {
			return fp.Error
		}
		if fp.Message != "" {
			return fp.Message
		}
	}
	var s string
	if err := json.Unmarshal(payload, &s); err == nil && s != "" {
		return s
	}
	return "Job failed"
}
