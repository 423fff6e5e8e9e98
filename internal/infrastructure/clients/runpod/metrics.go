package runpod

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type llmMetrics struct {
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestErrors   metric.Int64Counter
}

var (
	llmMetricsOnce sync.Once
	llmMetricsInit bool
	metrics        llmMetrics
)

func ensureLLMMetrics() {
	llmMetricsOnce.Do(func() {
		meter := otel.Meter("github.com/sooahkim/childcenter-chat/runpod")

		requestCount, err := meter.Int64Counter(
			"ai.runpod.request.count",
			metric.WithDescription("Number of RunPod generation requests"),
		)
		if err != nil {
			return
		}
		requestDuration, err := meter.Float64Histogram(
			"ai.runpod.request.duration",
			metric.WithDescription("RunPod request duration in milliseconds"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			return
		}
		requestErrors, err := meter.Int64Counter(
			"ai.runpod.request.errors",
			metric.WithDescription("Number of RunPod request errors"),
		)
		if err != nil {
			return
		}

		metrics = llmMetrics{
			requestCount:    requestCount,
			requestDuration: requestDuration,
			requestErrors:   requestErrors,
		}
		llmMetricsInit = true
	})
}

func recordLLMMetric(ctx context.Context, modelKey string, statusCode int, duration time.Duration, err error) {
	ensureLLMMetrics()
	if !llmMetricsInit {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", "runpod"),
		attribute.String("ai.model_key", modelKey),
	}
	if statusCode > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", statusCode))
	}

	metrics.requestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	metrics.requestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		metrics.requestErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}
