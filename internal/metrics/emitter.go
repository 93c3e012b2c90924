package metrics

import (
	"context"
	"log"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/tutormatch/match-pipeline/internal/aws"
)

// Metric names published by the pipeline.
const (
	AdmissionAccepted  = "AdmissionAccepted"
	AdmissionDuplicate = "AdmissionDuplicate"
	AdmissionRejected  = "AdmissionRejected"
	MatchCompleted     = "MatchCompleted"
	MatchFailed        = "MatchFailed"
)

// Emitter publishes best-effort counters to CloudWatch. Publish failures are
// logged and never propagated: metrics must not fail a request or work item.
type Emitter struct {
	client    aws.CloudWatchAPI
	namespace string
}

// NewEmitter returns an Emitter for the given namespace. A nil client yields
// a no-op emitter, which tests rely on.
func NewEmitter(client aws.CloudWatchAPI, namespace string) *Emitter {
	return &Emitter{client: client, namespace: namespace}
}

// Count emits a single count datapoint for name, dimensioned by dims.
func (e *Emitter) Count(ctx context.Context, name string, dims map[string]string) {
	if e == nil || e.client == nil {
		return
	}

	datum := cwtypes.MetricDatum{
		MetricName: &name,
		Unit:       cwtypes.StandardUnitCount,
		Value:      float64Ptr(1),
	}
	for k, v := range dims {
		datum.Dimensions = append(datum.Dimensions, cwtypes.Dimension{
			Name:  stringPtr(k),
			Value: stringPtr(v),
		})
	}

	_, err := e.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  &e.namespace,
		MetricData: []cwtypes.MetricDatum{datum},
	})
	if err != nil {
		log.Printf("metrics: put %s: %v", name, err)
	}
}

func stringPtr(s string) *string    { return &s }
func float64Ptr(f float64) *float64 { return &f }
