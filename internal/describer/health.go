package describer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/localrivet/cratescribe/internal/telemetry"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	// StatusHealthy indicates the provider answered the probe
	StatusHealthy HealthStatus = "healthy"

	// StatusDegraded indicates the provider answers but recent calls fail often
	StatusDegraded HealthStatus = "degraded"

	// StatusUnhealthy indicates the provider did not answer
	StatusUnhealthy HealthStatus = "unhealthy"
)

// degradedSuccessRate is the success rate below which a reachable
// provider is reported as degraded.
const degradedSuccessRate = 50.0

// HealthReport contains information about the current health of the AI describer
type HealthReport struct {
	Status        HealthStatus       `json:"status"`
	Timestamp     time.Time          `json:"timestamp"`
	Providers     map[string]bool    `json:"providers"`
	ResponseTimes map[string]float64 `json:"response_times_ms"`
	FailureKinds  map[string]int64   `json:"failure_kinds"`
	SuccessRate   float64            `json:"success_rate"`
	TotalRequests int64              `json:"total_requests"`
	PromptStats   map[string]int64   `json:"prompt_stats"`
}

// CreateHealthReport probes the describer's provider and summarises its call metrics
func CreateHealthReport(ctx context.Context, d *AIDescriber) (*HealthReport, error) {
	if d == nil {
		return nil, fmt.Errorf("describer is nil")
	}

	m := d.GetMetrics()
	if m == nil {
		return nil, fmt.Errorf("metrics collector is nil")
	}

	providerHealth := d.CheckProviderHealth(ctx)

	totalSuccess := m.GetCounter(telemetry.MetricCallsSuccess)
	totalFailure := m.GetCounter(telemetry.MetricCallsFailure)
	totalRequests := totalSuccess + totalFailure

	var successRate float64
	if totalRequests > 0 {
		successRate = float64(totalSuccess) / float64(totalRequests) * 100.0
	}

	status := StatusUnhealthy
	for _, healthy := range providerHealth {
		if healthy {
			status = StatusHealthy
		}
	}
	if status == StatusHealthy && totalRequests > 0 && successRate < degradedSuccessRate {
		status = StatusDegraded
	}

	responseTimes := map[string]float64{
		"total": float64(m.GetTimerAverage(telemetry.MetricDescribeTime)) / float64(time.Millisecond),
	}
	for name := range providerHealth {
		responseTimes[name] = float64(m.GetTimerAverage(telemetry.ResponseTimeMetric(name))) / float64(time.Millisecond)
	}

	failureKinds := make(map[string]int64)
	for _, kind := range []string{"network", "auth", "quota", "malformed_response", "api"} {
		if n := m.GetCounter(telemetry.FailureKindMetric(kind)); n > 0 {
			failureKinds[kind] = n
		}
	}

	return &HealthReport{
		Status:        status,
		Timestamp:     time.Now(),
		Providers:     providerHealth,
		ResponseTimes: responseTimes,
		FailureKinds:  failureKinds,
		SuccessRate:   successRate,
		TotalRequests: totalRequests,
		PromptStats: map[string]int64{
			"tokens":            m.GetCounter(telemetry.MetricPromptTokens),
			"optimized":         m.GetCounter(telemetry.MetricPromptsOptimized),
			"budget_rejections": m.GetCounter(telemetry.MetricBudgetRejections),
		},
	}, nil
}

// CreateHealthReportJSON generates a JSON health report for the AI describer
func CreateHealthReportJSON(ctx context.Context, d *AIDescriber) (string, error) {
	report, err := CreateHealthReport(ctx, d)
	if err != nil {
		return "", err
	}

	reportJSON, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal health report: %w", err)
	}

	return string(reportJSON), nil
}

// ResetMetrics resets all metrics for the AI describer
func ResetMetrics(d *AIDescriber) error {
	if d == nil {
		return fmt.Errorf("describer is nil")
	}

	m := d.GetMetrics()
	if m == nil {
		return fmt.Errorf("metrics collector is nil")
	}

	m.Reset()
	return nil
}
