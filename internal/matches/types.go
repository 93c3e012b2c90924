package matches

// Match request statuses. PENDING and PROCESSING block readmission of the
// same key; COMPLETED and FAILED are terminal.
const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// KeySeparator joins the learner and tutor ids into a dedup key.
const KeySeparator = "#"

// DedupKey derives the deduplication key for a learner/tutor pair.
// The key is directional: DedupKey(a, b) != DedupKey(b, a). The intake treats
// the pair as ordered, so swapped submissions are admitted as distinct requests.
func DedupKey(learner, tutor string) string {
	return learner + KeySeparator + tutor
}

// IsTerminal reports whether status no longer blocks a new submission under
// the same key.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}

// MatchRequest is the item stored in the match status DynamoDB table.
type MatchRequest struct {
	MatchComboID string                 `dynamodbav:"MatchComboId"`           // PK: learner#tutor
	Timestamp    string                 `dynamodbav:"MatchTimestamp"`         // RFC3339 UTC
	Status       string                 `dynamodbav:"Status"`                 // PENDING | PROCESSING | COMPLETED | FAILED
	TableName    string                 `dynamodbav:"TableName"`              // downstream table the payload targets
	RequestBody  map[string]interface{} `dynamodbav:"RequestBody"`            // original submission, replayed by the worker
	ErrorMessage string                 `dynamodbav:"ErrorMessage,omitempty"` // set only when Status is FAILED
	Expiry       int64                  `dynamodbav:"MatchRequestExpiry"`     // TTL epoch seconds, reclaimed by DynamoDB
}
