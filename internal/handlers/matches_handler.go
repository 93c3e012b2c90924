package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tutormatch/match-pipeline/internal/aws"
	"github.com/tutormatch/match-pipeline/internal/matches"
	"github.com/tutormatch/match-pipeline/internal/metrics"
)

// HandlerConfig groups dependencies for the match intake API.
type HandlerConfig struct {
	DynamoDBClient   aws.DynamoDBAPI
	SQSClient        aws.SQSAPI
	CloudWatchClient aws.CloudWatchAPI
	MatchesTable     string
	QueueURL         string
	TTLWindow        time.Duration
	MetricsNamespace string
}

// RegisterMatchRoutes registers the match submission route.
func RegisterMatchRoutes(r *gin.Engine, cfg HandlerConfig) {
	store := matches.NewStore(cfg.DynamoDBClient, cfg.MatchesTable, cfg.TTLWindow)
	publisher := aws.NewPublisher(cfg.SQSClient, cfg.QueueURL)
	emitter := metrics.NewEmitter(cfg.CloudWatchClient, cfg.MetricsNamespace)

	r.POST("/matches/:tableName", func(c *gin.Context) {
		submitMatch(c, store, publisher, emitter)
	})
}

// MethodNotAllowed is the NoMethod handler: only POST submissions are supported.
func MethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{
		"message": fmt.Sprintf("Method %s not allowed. Only POST requests are supported.", c.Request.Method),
		"error":   "METHOD_NOT_ALLOWED",
	})
}

func submitMatch(c *gin.Context, store *matches.Store, publisher *aws.Publisher, emitter *metrics.Emitter) {
	ctx := c.Request.Context()
	tableName := c.Param("tableName")

	var payload map[string]interface{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "Invalid JSON in request body",
			"error":   "INVALID_JSON",
		})
		return
	}

	// Learner and Tutor are the identity fields the dedup key derives from;
	// without both there is nothing to admit, so no store or queue interaction.
	learner, _ := payload["Learner"].(string)
	tutor, _ := payload["Tutor"].(string)
	if learner == "" || tutor == "" {
		emitter.Count(ctx, metrics.AdmissionRejected, map[string]string{"Table": tableName})
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "Missing required fields: Learner and Tutor",
			"error":   "MISSING_FIELDS",
		})
		return
	}

	matchID := matches.DedupKey(learner, tutor)

	// Duplicate check. The read is advisory; the conditional write below is
	// what actually serializes concurrent admissions for the same key.
	existing, err := store.Get(ctx, matchID)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"message": "Error checking match request store",
			"matchId": matchID,
			"status":  matches.StatusFailed,
			"error":   err.Error(),
		})
		return
	}
	if existing != nil && !matches.IsTerminal(existing.Status) {
		emitter.Count(ctx, metrics.AdmissionDuplicate, map[string]string{"Table": tableName})
		c.JSON(http.StatusConflict, gin.H{
			"message": "Match request already exists",
			"matchId": matchID,
			"status":  matches.StatusFailed,
			"error":   "DUPLICATE_REQUEST",
		})
		return
	}

	entry := store.NewPending(matchID, tableName, payload)
	if err := store.PutPending(ctx, entry); err != nil {
		if errors.Is(err, matches.ErrDuplicateInFlight) {
			// a concurrent submission won the conditional write
			emitter.Count(ctx, metrics.AdmissionDuplicate, map[string]string{"Table": tableName})
			c.JSON(http.StatusConflict, gin.H{
				"message": "Match request already exists",
				"matchId": matchID,
				"status":  matches.StatusFailed,
				"error":   "DUPLICATE_REQUEST",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"message": "Internal server error",
			"error":   err.Error(),
		})
		return
	}

	correlationID := c.GetHeader("X-Request-Id")
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"message": "Internal server error",
			"error":   err.Error(),
		})
		return
	}

	msgID, err := publisher.SendMatchMessage(ctx, string(bodyBytes), map[string]string{
		"MatchComboId":  matchID,
		"TableName":     tableName,
		"CorrelationId": correlationID,
	})
	if err != nil {
		// the PENDING entry must not keep blocking the key once the hand-off failed
		if terr := store.Transition(ctx, matchID, matches.StatusPending, matches.StatusFailed,
			fmt.Sprintf("enqueue failed: %v", err)); terr != nil {
			log.Printf("failed to mark match=%s FAILED after enqueue error: %v", matchID, terr)
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"message": "Failed to queue match request",
			"error":   err.Error(),
		})
		return
	}

	log.Printf("queued match=%s table=%s sqs_message=%s corr=%s", matchID, tableName, msgID, correlationID)
	emitter.Count(ctx, metrics.AdmissionAccepted, map[string]string{"Table": tableName})

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Request queued successfully",
		"matchId": matchID,
		"status":  matches.StatusPending,
	})
}
