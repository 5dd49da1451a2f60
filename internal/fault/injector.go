package fault

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/haibadguy/websocket-vs-sse/internal/domain"
)

// DropReason says why a delivery was suppressed.
type DropReason string

const (
	DropNone   DropReason = ""
	DropOutage DropReason = "outage"
	DropLoss   DropReason = "loss"
)

// Outcome is the decision for one delivery attempt.
// Drop == DropNone means pass after Delay.
type Outcome struct {
	Drop  DropReason
	Delay time.Duration
}

// Dropped reports whether the delivery must be skipped.
func (o Outcome) Dropped() bool {
	return o.Drop != DropNone
}

// Injector holds the process-wide simulation parameters.
type Injector struct {
	mu     sync.RWMutex
	params domain.SimulationParameters

	randMu sync.Mutex
	rnd    RandomSource
}

// NewInjector validates the initial parameters and returns an injector drawing from src.
func NewInjector(params domain.SimulationParameters, src RandomSource) (*Injector, error) {
	if err := validateRange(params.LatencyMinMs, params.LatencyMaxMs); err != nil {
		return nil, err
	}
	if err := validateLoss(params.LossPercent); err != nil {
		return nil, err
	}
	return &Injector{params: params, rnd: src}, nil
}

// Decide draws an independent outcome for one recipient.
func (i *Injector) Decide(_ domain.Transport) Outcome {
	p := i.Params()

	if p.Outage {
		return Outcome{Drop: DropOutage}
	}

	i.randMu.Lock()
	defer i.randMu.Unlock()

	if i.rnd.Float64()*100 < p.LossPercent {
		return Outcome{Drop: DropLoss}
	}

	delayMs := p.LatencyMinMs
	if span := p.LatencyMaxMs - p.LatencyMinMs; span > 0 {
		delayMs += i.rnd.IntN(span + 1)
	}
	return Outcome{Delay: time.Duration(delayMs) * time.Millisecond}
}

// Params returns a consistent copy of the current parameters.
func (i *Injector) Params() domain.SimulationParameters {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.params
}

// SetOutage sets the outage flag and returns the new parameters.
func (i *Injector) SetOutage(outage bool) domain.SimulationParameters {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.params.Outage = outage
	return i.params
}

// ToggleOutage flips the outage flag and returns its new value.
func (i *Injector) ToggleOutage() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.params.Outage = !i.params.Outage
	return i.params.Outage
}

// SetLatencyRange replaces the delay bounds. Invalid bounds leave the state untouched.
func (i *Injector) SetLatencyRange(minMs, maxMs int) (domain.SimulationParameters, error) {
	if err := validateRange(minMs, maxMs); err != nil {
		return i.Params(), err
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.params.LatencyMinMs = minMs
	i.params.LatencyMaxMs = maxMs
	return i.params, nil
}

// SetLossPercent replaces the loss probability. Invalid values leave the state untouched.
func (i *Injector) SetLossPercent(percent float64) (domain.SimulationParameters, error) {
	if err := validateLoss(percent); err != nil {
		return i.Params(), err
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.params.LossPercent = percent
	return i.params, nil
}

func validateRange(minMs, maxMs int) error {
	if minMs < 0 || maxMs < 0 {
		return fmt.Errorf("%w: bounds must be non-negative (min=%d, max=%d)", domain.ErrInvalidRange, minMs, maxMs)
	}
	if minMs > maxMs {
		return fmt.Errorf("%w: min %d exceeds max %d", domain.ErrInvalidRange, minMs, maxMs)
	}
	return nil
}

func validateLoss(percent float64) error {
	if math.IsNaN(percent) || percent < 0 || percent > 100 {
		return fmt.Errorf("%w: %v not in [0,100]", domain.ErrInvalidLossPercent, percent)
	}
	return nil
}
