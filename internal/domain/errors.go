package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDeliveryFailure        = errors.New("delivery failed")
	ErrConnectionClosed       = errors.New("connection closed")
	ErrEngineStopped          = errors.New("engine stopped")
	ErrInvalidSimulationInput = errors.New("invalid simulation input")

	ErrInvalidRange       = fmt.Errorf("%w: latency range", ErrInvalidSimulationInput)
	ErrInvalidLossPercent = fmt.Errorf("%w: loss percent", ErrInvalidSimulationInput)
)
