package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestReadinessReportsReadyWhenAllHealthy(t *testing.T) {
	checker := NewChecker(250*time.Millisecond, Probe{
		Name:  "artifacts",
		Check: func(context.Context) error { return nil },
	})

	report := checker.Readiness(context.Background())
	if report.Status != "ready" {
		t.Fatalf("expected ready status, got %s", report.Status)
	}
	if len(report.Probes) != 1 {
		t.Fatalf("expected 1 probe, got %d", len(report.Probes))
	}
	if !report.Probes[0].Healthy {
		t.Fatalf("expected probe healthy")
	}
}

func TestReadinessReportsDegradedOnFailure(t *testing.T) {
	checker := NewChecker(250*time.Millisecond,
		Probe{Name: "ok", Check: func(context.Context) error { return nil }},
		Probe{Name: "broken", Check: func(context.Context) error { return errors.New("boom") }},
	)

	report := checker.Readiness(context.Background())
	if report.Status != "degraded" {
		t.Fatalf("expected degraded status, got %s", report.Status)
	}
	if report.Probes[0].Name != "ok" || report.Probes[1].Name != "broken" {
		t.Fatalf("expected probe order preserved, got %+v", report.Probes)
	}
	if report.Probes[1].Error != "boom" {
		t.Fatalf("expected probe error message, got %q", report.Probes[1].Error)
	}
}

func TestReadinessTimesOutSlowProbe(t *testing.T) {
	checker := NewChecker(20*time.Millisecond, Probe{
		Name: "slow",
		Check: func(ctx context.Context) error {
			<-ctx.Done()
			time.Sleep(10 * time.Millisecond)
			return nil
		},
	})

	report := checker.Readiness(context.Background())
	if report.Status != "degraded" {
		t.Fatalf("expected degraded status, got %s", report.Status)
	}
	if report.Probes[0].Error != context.DeadlineExceeded.Error() {
		t.Fatalf("expected deadline error, got %q", report.Probes[0].Error)
	}
}

func TestReadinessWithoutProbes(t *testing.T) {
	if report := NewChecker(0).Readiness(context.Background()); report.Status != "ready" {
		t.Fatalf("expected ready status, got %s", report.Status)
	}
}

func TestGenerationTracksOutcome(t *testing.T) {
	gen := NewGeneration()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	gen.now = func() time.Time { return fixed }

	if err := gen.Err(); !errors.Is(err, ErrNotGenerated) {
		t.Fatalf("expected ErrNotGenerated before first run, got %v", err)
	}

	gen.Record(4, nil)
	if err := gen.Err(); err != nil {
		t.Fatalf("expected ready after success, got %v", err)
	}
	status := gen.Status()
	if status.Runs != 1 || status.Routes != 4 || !status.LastSuccess.Equal(fixed) {
		t.Fatalf("unexpected status %+v", status)
	}

	failure := errors.New("no routes")
	gen.Record(0, failure)
	if err := gen.Err(); !errors.Is(err, failure) {
		t.Fatalf("expected wrapped failure, got %v", err)
	}
	status = gen.Status()
	if status.Routes != 4 || status.LastError != "no routes" || status.Runs != 2 {
		t.Fatalf("expected previous route count kept, got %+v", status)
	}

	report := NewChecker(time.Second, gen.Probe()).Readiness(context.Background())
	if report.Status != "degraded" {
		t.Fatalf("expected degraded readiness, got %s", report.Status)
	}
}
