package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/aws/aws-lambda-go/events"

	"github.com/tutormatch/match-pipeline/internal/mapping"
	"github.com/tutormatch/match-pipeline/internal/matches"
	"github.com/tutormatch/match-pipeline/internal/metrics"
)

// recordCreator is the downstream record API surface the processor needs.
type recordCreator interface {
	CreateRecord(ctx context.Context, tableName string, body *mapping.RecordBody) ([]byte, error)
}

// Processor consumes match work items and drives each status entry to a
// terminal state.
type Processor struct {
	store   *matches.Store
	records recordCreator
	metrics *metrics.Emitter
}

// NewProcessor creates a worker processor with its collaborators injected.
func NewProcessor(store *matches.Store, records recordCreator, em *metrics.Emitter) *Processor {
	return &Processor{
		store:   store,
		records: records,
		metrics: em,
	}
}

// Handle receives an SQS batch and processes each message independently.
// Only messages that hit a transient store failure are reported back for
// redelivery; everything else is consumed, with its outcome recorded in the
// status table. One item's failure never aborts its siblings.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	log.Printf("[worker] received %d SQS messages", len(ev.Records))

	var resp events.SQSEventResponse
	for _, rec := range ev.Records {
		retry, err := p.processMessage(ctx, rec)
		if err != nil {
			log.Printf("[worker] message=%s: %v", rec.MessageId, err)
		}
		if retry {
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{
				ItemIdentifier: rec.MessageId,
			})
		}
	}
	return resp, nil
}

func messageAttr(rec events.SQSMessage, name string) string {
	if a, ok := rec.MessageAttributes[name]; ok && a.StringValue != nil {
		return *a.StringValue
	}
	return ""
}

// processMessage handles a single work item. retry=true leaves the message on
// the queue for redelivery; retry=false consumes it regardless of outcome.
func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) (retry bool, err error) {
	matchID := messageAttr(rec, "MatchComboId")
	tableName := messageAttr(rec, "TableName")
	if matchID == "" || tableName == "" {
		// malformed message: nothing to transition, consume it
		return false, fmt.Errorf("missing MatchComboId/TableName attributes, skipping")
	}

	log.Printf("[worker] received match=%s table=%s corr=%s", matchID, tableName, messageAttr(rec, "CorrelationId"))

	// Step 1: claim the entry, PENDING -> PROCESSING
	terr := p.store.Transition(ctx, matchID, matches.StatusPending, matches.StatusProcessing, "")
	if errors.Is(terr, matches.ErrStatusMismatch) {
		cur, gerr := p.store.Get(ctx, matchID)
		if gerr != nil {
			return true, fmt.Errorf("failed to read status for match=%s: %w", matchID, gerr)
		}
		switch {
		case cur == nil:
			return false, fmt.Errorf("no status entry for match=%s", matchID)
		case cur.Status == matches.StatusCompleted, cur.Status == matches.StatusFailed:
			// redelivery of an already finished item
			log.Printf("[worker] match=%s already %s, dropping redelivery", matchID, cur.Status)
			return false, nil
		case cur.Status == matches.StatusProcessing:
			// a previous worker died mid-processing and the visibility timeout
			// expired; resume from PROCESSING
			log.Printf("[worker] resuming match=%s from PROCESSING", matchID)
		default:
			return false, fmt.Errorf("unexpected status %s for match=%s", cur.Status, matchID)
		}
	} else if terr != nil {
		// store unavailable: leave the item for redelivery, no external call
		return true, fmt.Errorf("failed to move match=%s to PROCESSING: %w", matchID, terr)
	}

	// Step 2: map the payload for the target table
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(rec.Body), &payload); err != nil {
		p.fail(ctx, matchID, tableName, fmt.Sprintf("invalid message body: %v", err))
		return false, fmt.Errorf("invalid body for match=%s: %w", matchID, err)
	}

	body, err := mapping.Map(tableName, payload)
	if err != nil {
		p.fail(ctx, matchID, tableName, err.Error())
		return false, fmt.Errorf("mapping failed for match=%s: %w", matchID, err)
	}

	// Step 3: create the downstream record
	if _, err := p.records.CreateRecord(ctx, tableName, body); err != nil {
		p.fail(ctx, matchID, tableName, err.Error())
		return false, fmt.Errorf("record creation failed for match=%s: %w", matchID, err)
	}

	// Step 4: finalize. A failed write here is logged but the item is still
	// consumed; the queue's own redelivery policy decides whether to retry.
	if terr := p.store.Transition(ctx, matchID, matches.StatusProcessing, matches.StatusCompleted, ""); terr != nil {
		return false, fmt.Errorf("record created but failed to mark match=%s COMPLETED: %w", matchID, terr)
	}

	p.metrics.Count(ctx, metrics.MatchCompleted, map[string]string{"Table": tableName})
	log.Printf("[worker] completed match=%s", matchID)
	return false, nil
}

// fail moves the entry to FAILED and records why. Transition errors are logged
// only: the item is being consumed either way.
func (p *Processor) fail(ctx context.Context, matchID, tableName, msg string) {
	if err := p.store.Transition(ctx, matchID, matches.StatusProcessing, matches.StatusFailed, msg); err != nil {
		log.Printf("[worker] failed to mark match=%s FAILED: %v", matchID, err)
		return
	}
	p.metrics.Count(ctx, metrics.MatchFailed, map[string]string{"Table": tableName})
}
