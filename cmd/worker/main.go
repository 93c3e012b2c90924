package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/tutormatch/match-pipeline/internal/airtable"
	"github.com/tutormatch/match-pipeline/internal/aws"
	"github.com/tutormatch/match-pipeline/internal/matches"
	"github.com/tutormatch/match-pipeline/internal/metrics"
)

func main() {
	ctx := context.Background()

	clients, err := aws.NewAWSClients(ctx)
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}

	secretName := os.Getenv("AIRTABLE_SECRET_NAME")
	if secretName == "" {
		secretName = "/api/token/airtable"
	}
	// missing credentials are a fatal precondition: no processing without them
	airtableCfg, err := aws.NewSecretsProvider(clients.SecretsManager).AirtableConfig(ctx, secretName)
	if err != nil {
		log.Fatalf("failed to load airtable config: %v", err)
	}

	store := matches.NewStore(clients.DynamoDB, os.Getenv("MATCHES_TABLE"), 24*time.Hour)
	records := airtable.NewClient(airtableCfg.Token, airtableCfg.BaseID)
	em := metrics.NewEmitter(clients.CloudWatch, "MatchPipeline")

	p := NewProcessor(store, records, em)

	// If RUN_LOCAL=true, simulate a single SQS event for local testing.
	if os.Getenv("RUN_LOCAL") == "true" {
		body := os.Getenv("LOCAL_SQS_BODY")
		if body == "" {
			body = `{"Learner":"local-learner","Tutor":"local-tutor","Approval Status":"Requested","Learner Available Time Slots":["A"],"Tutor Available Time Slots":["A"]}`
		}
		event := events.SQSEvent{
			Records: []events.SQSMessage{
				{
					MessageId: "local-1",
					Body:      body,
					MessageAttributes: map[string]events.SQSMessageAttribute{
						"MatchComboId": {DataType: "String", StringValue: strPtr("local-learner#local-tutor")},
						"TableName":    {DataType: "String", StringValue: strPtr("Matches")},
					},
				},
			},
		}
		resp, err := p.Handle(ctx, event)
		if err != nil {
			log.Fatalf("local handler error: %v", err)
		}
		log.Printf("local run done, %d item failures", len(resp.BatchItemFailures))
		return
	}

	lambda.Start(p.Handle)
}

func strPtr(s string) *string { return &s }
