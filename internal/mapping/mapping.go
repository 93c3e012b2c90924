package mapping

import (
	"encoding/json"
	"fmt"

	validatorv10 "github.com/go-playground/validator/v10"
)

var validate = newValidator()

// Map converts a raw submission into the downstream record envelope for
// tableName. Matches payloads are schema-validated and reshaped; any other
// table wraps the payload unchanged.
func Map(tableName string, payload map[string]interface{}) (*RecordBody, error) {
	if tableName != MatchesTable {
		return wrap(payload), nil
	}
	return mapMatches(payload)
}

func wrap(fields map[string]interface{}) *RecordBody {
	return &RecordBody{
		Records: []Record{
			{Fields: fields},
		},
	}
}

func mapMatches(payload map[string]interface{}) (*RecordBody, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	var in MatchInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("invalid Matches payload: %v", err)}
	}

	if err := validate.Struct(in); err != nil {
		if ve, ok := err.(validatorv10.ValidationErrors); ok {
			fields := make([]string, 0, len(ve))
			for _, fe := range ve {
				fields = append(fields, fe.Field())
			}
			return nil, &ValidationError{Fields: fields}
		}
		return nil, fmt.Errorf("validate payload: %w", err)
	}

	// Learner and Tutor become single-element record links; the overlap of the
	// two slot lists is derived here so the downstream table never stores the
	// raw per-party availability.
	fields := map[string]interface{}{
		"Approval Status":                  in.ApprovalStatus,
		"Learner":                          []string{in.Learner},
		"Tutor":                            []string{in.Tutor},
		"Overlapping Available Time Slots": overlappingSlots(in.LearnerSlots, in.TutorSlots),
	}
	return wrap(fields), nil
}

// overlappingSlots returns the set intersection of the two slot lists.
// Input order is irrelevant and duplicates collapse; first-seen order of the
// learner list is kept so the result is deterministic.
func overlappingSlots(learner, tutor SlotList) []string {
	inTutor := make(map[string]bool, len(tutor))
	for _, s := range tutor {
		inTutor[s] = true
	}
	overlap := []string{}
	seen := map[string]bool{}
	for _, s := range learner {
		if inTutor[s] && !seen[s] {
			overlap = append(overlap, s)
			seen[s] = true
		}
	}
	return overlap
}
