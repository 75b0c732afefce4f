package health

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotGenerated is reported by a Generation probe until the first run
// completes.
var ErrNotGenerated = errors.New("no documentation generated yet")

// Probe identifies a readiness condition to evaluate.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// ProbeReport captures the outcome of evaluating a single probe.
type ProbeReport struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checkedAt"`
}

// Report aggregates readiness across probes.
type Report struct {
	Status    string        `json:"status"`
	CheckedAt time.Time     `json:"checkedAt"`
	Probes    []ProbeReport `json:"probes"`
}

// Checker evaluates readiness probes.
type Checker struct {
	probes  []Probe
	timeout time.Duration
}

// NewChecker returns a checker evaluating the given probes.
func NewChecker(timeout time.Duration, probes ...Probe) *Checker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Checker{
		probes:  probes,
		timeout: timeout,
	}
}

// Readiness evaluates configured probes concurrently and returns an
// aggregated report.
func (c *Checker) Readiness(ctx context.Context) Report {
	if len(c.probes) == 0 {
		return Report{Status: "ready", CheckedAt: time.Now().UTC()}
	}

	results := make([]ProbeReport, len(c.probes))
	var wg sync.WaitGroup

	for idx, probe := range c.probes {
		wg.Add(1)
		go func(i int, p Probe) {
			defer wg.Done()
			results[i] = c.evaluate(ctx, p)
		}(idx, probe)
	}

	wg.Wait()

	report := Report{
		CheckedAt: time.Now().UTC(),
		Probes:    results,
	}

	report.Status = "ready"
	for _, r := range results {
		if !r.Healthy {
			report.Status = "degraded"
			break
		}
	}

	return report
}

func (c *Checker) evaluate(ctx context.Context, probe Probe) ProbeReport {
	report := ProbeReport{
		Name:      probe.Name,
		CheckedAt: time.Now().UTC(),
	}
	if probe.Check == nil {
		report.Error = "probe has no check"
		return report
	}

	probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- probe.Check(probeCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			report.Error = err.Error()
			return report
		}
		report.Healthy = true
	case <-probeCtx.Done():
		report.Error = probeCtx.Err().Error()
	}
	return report
}

// Status is a snapshot of the most recent generation run.
type Status struct {
	Runs        uint64    `json:"runs"`
	Routes      int       `json:"routes"`
	LastRun     time.Time `json:"lastRun"`
	LastError   string    `json:"lastError,omitempty"`
	LastSuccess time.Time `json:"lastSuccess"`
}

// Generation tracks the outcome of documentation runs so readiness can
// reflect whether artifacts are current.
type Generation struct {
	mu     sync.RWMutex
	now    func() time.Time
	status Status
	err    error
}

// NewGeneration constructs an empty tracker.
func NewGeneration() *Generation {
	return &Generation{now: time.Now}
}

// Record stores the outcome of a run.
func (g *Generation) Record(routes int, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now().UTC()
	g.status.Runs++
	g.status.LastRun = now
	g.err = err
	if err != nil {
		g.status.LastError = err.Error()
		return
	}
	g.status.LastError = ""
	g.status.Routes = routes
	g.status.LastSuccess = now
}

// Status returns a copy of the current snapshot.
func (g *Generation) Status() Status {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.status
}

// Err reports why the tracker is not ready, or nil.
func (g *Generation) Err() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.status.Runs == 0 {
		return ErrNotGenerated
	}
	if g.err != nil {
		return fmt.Errorf("last generation failed: %w", g.err)
	}
	return nil
}

// Probe exposes the tracker as a readiness probe.
func (g *Generation) Probe() Probe {
	return Probe{
		Name: "generation",
		Check: func(context.Context) error {
			return g.Err()
		},
	}
}
