package mapping

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
)

// MatchesTable is the distinguished table with a validated schema. Every other
// table gets an identity wrap of the submitted payload.
const MatchesTable = "Matches"

// SlotList accepts either a single string or a list of strings on the wire.
// The intake webhook sends a bare string when only one slot is selected.
type SlotList []string

func (s *SlotList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*s = SlotList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*s = SlotList(many)
		return nil
	}
	return fmt.Errorf("time slots must be a string or list of strings")
}

// MatchInput is the raw Matches submission.
type MatchInput struct {
	ApprovalStatus string   `json:"Approval Status" validate:"required"`
	Learner        string   `json:"Learner" validate:"required"`
	Tutor          string   `json:"Tutor" validate:"required"`
	LearnerSlots   SlotList `json:"Learner Available Time Slots" validate:"required"`
	TutorSlots     SlotList `json:"Tutor Available Time Slots" validate:"required"`
}

// Record is a single downstream record.
type Record struct {
	Fields map[string]interface{} `json:"fields"`
}

// RecordBody is the downstream record API envelope.
type RecordBody struct {
	Records []Record `json:"records"`
}

// ValidationError reports a payload that fails the target table's schema.
type ValidationError struct {
	Fields []string // wire-level names of the fields that failed
	Reason string   // set when the payload shape itself is invalid
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return "missing or invalid fields: " + strings.Join(e.Fields, ", ")
}

// newValidator returns a validator that reports wire-level field names
// (json tags) so FAILED entries name the field the submitter actually sent.
func newValidator() *validatorv10.Validate {
	v := validatorv10.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
