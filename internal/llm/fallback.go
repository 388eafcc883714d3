// Package llm provides chat completion drivers (Ollama, OpenAI, Anthropic)
// and a fallback chain that fails over between them.
package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/answerdesk/answerdesk/pkg/contracts"
)

// FallbackDriver tries each driver in order until one succeeds. Latency is
// tracked per driver as an exponential moving average for observability.
type FallbackDriver struct {
	drivers []contracts.CompletionDriver
	logger  zerolog.Logger

	latencyMu sync.RWMutex
	latencies map[string]int64
}

// NewFallbackDriver creates a fallback chain. The first driver is primary.
func NewFallbackDriver(logger zerolog.Logger, drivers ...contracts.CompletionDriver) *FallbackDriver {
	return &FallbackDriver{
		drivers:   drivers,
		logger:    logger.With().Str("component", "llm").Logger(),
		latencies: make(map[string]int64),
	}
}

func (f *FallbackDriver) Name() string { return "fallback" }

// Complete tries each driver in order, returning the first success.
func (f *FallbackDriver) Complete(ctx context.Context, req contracts.CompletionRequest) (string, error) {
	if len(f.drivers) == 0 {
		return "", fmt.Errorf("no completion drivers configured")
	}

	var lastErr error
	for _, driver := range f.drivers {
		start := time.Now()
		out, err := driver.Complete(ctx, req)
		if err != nil {
			f.logger.Warn().Str("driver", driver.Name()).Err(err).Msg("Completion failed, trying next driver")
			lastErr = err
			continue
		}
		f.trackLatency(driver.Name(), time.Since(start).Milliseconds())
		return out, nil
	}
	return "", fmt.Errorf("all completion drivers failed, last error: %w", lastErr)
}

// HealthCheck passes when at least one driver is healthy.
func (f *FallbackDriver) HealthCheck(ctx context.Context) error {
	var lastErr error
	for _, driver := range f.drivers {
		if err := driver.HealthCheck(ctx); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no completion drivers configured")
	}
	return lastErr
}

// Latency returns the rolling average latency for a driver in milliseconds.
func (f *FallbackDriver) Latency(name string) int64 {
	f.latencyMu.RLock()
	defer f.latencyMu.RUnlock()
	return f.latencies[name]
}

func (f *FallbackDriver) trackLatency(name string, ms int64) {
	f.latencyMu.Lock()
	defer f.latencyMu.Unlock()
	prev := f.latencies[name]
	if prev == 0 {
		f.latencies[name] = ms
		return
	}
	// Exponential moving average
	f.latencies[name] = (prev*7 + ms*3) / 10
}
