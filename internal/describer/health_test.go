package describer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/localrivet/cratescribe/internal/describer/providers"
	"github.com/localrivet/cratescribe/internal/telemetry"
)

func TestCreateHealthReport(t *testing.T) {
	d := NewAIDescriberWithProvider(providers.NewTestProvider("mock", "OK", nil), nil)

	m := d.GetMetrics()
	m.IncrementCounter(telemetry.MetricCallsSuccess, 80)
	m.IncrementCounter(telemetry.MetricCallsFailure, 20)
	m.IncrementCounter(telemetry.FailureKindMetric("quota"), 15)
	m.IncrementCounter(telemetry.FailureKindMetric("network"), 5)
	m.IncrementCounter(telemetry.MetricPromptsOptimized, 3)
	m.RecordTimer(telemetry.ResponseTimeMetric("mock"), 500*time.Millisecond)

	report, err := CreateHealthReport(context.Background(), d)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if report.Status != StatusHealthy {
		t.Errorf("Expected status to be healthy, got %s", report.Status)
	}
	if report.TotalRequests != 100 {
		t.Errorf("Expected 100 total requests, got %d", report.TotalRequests)
	}
	if report.SuccessRate != 80.0 {
		t.Errorf("Expected 80%% success rate, got %.1f%%", report.SuccessRate)
	}
	if report.FailureKinds["quota"] != 15 || report.FailureKinds["network"] != 5 {
		t.Errorf("Unexpected failure kinds: %v", report.FailureKinds)
	}
	if _, ok := report.FailureKinds["auth"]; ok {
		t.Error("Expected kinds without failures to be omitted")
	}
	if report.ResponseTimes["mock"] != 500 {
		t.Errorf("Expected 500ms response time, got %v", report.ResponseTimes["mock"])
	}
	if report.PromptStats["optimized"] != 3 {
		t.Errorf("Expected 3 optimized prompts, got %d", report.PromptStats["optimized"])
	}
}

func TestCreateHealthReport_Degraded(t *testing.T) {
	d := NewAIDescriberWithProvider(providers.NewTestProvider("mock", "OK", nil), nil)
	d.GetMetrics().IncrementCounter(telemetry.MetricCallsSuccess, 1)
	d.GetMetrics().IncrementCounter(telemetry.MetricCallsFailure, 9)

	report, err := CreateHealthReport(context.Background(), d)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if report.Status != StatusDegraded {
		t.Errorf("Expected degraded, got %s", report.Status)
	}
}

func TestCreateHealthReport_Unhealthy(t *testing.T) {
	d := NewAIDescriberWithProvider(providers.NewTestProvider("mock", "", errors.New("down")), nil)

	report, err := CreateHealthReport(context.Background(), d)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if report.Status != StatusUnhealthy {
		t.Errorf("Expected unhealthy, got %s", report.Status)
	}
	if report.Providers["mock"] {
		t.Error("Expected mock provider to be reported down")
	}
}

func TestCreateHealthReportJSON(t *testing.T) {
	d := NewAIDescriberWithProvider(providers.NewTestProvider("mock", "OK", nil), nil)

	out, err := CreateHealthReportJSON(context.Background(), d)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("Report is not valid JSON: %v", err)
	}
	if decoded["status"] != string(StatusHealthy) {
		t.Errorf("Unexpected status %v", decoded["status"])
	}
}

func TestHealthHelpers_NilDescriber(t *testing.T) {
	if _, err := CreateHealthReport(context.Background(), nil); err == nil {
		t.Error("Expected error for nil describer")
	}
	if err := ResetMetrics(nil); err == nil {
		t.Error("Expected error for nil describer")
	}
}

func TestResetMetrics(t *testing.T) {
	d := NewAIDescriberWithProvider(providers.NewTestProvider("mock", "OK", nil), nil)
	d.GetMetrics().IncrementCounter(telemetry.MetricCallsSuccess, 5)

	if err := ResetMetrics(d); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := d.GetMetrics().GetCounter(telemetry.MetricCallsSuccess); got != 0 {
		t.Errorf("Expected counter reset, got %d", got)
	}
}
