package rng

import "go.uber.org/zap"

// Logged wraps a Policy and logs every roll at debug level.
type Logged struct {
	p      Policy
	logger *zap.Logger
}

// NewLogged creates a Logged policy.
//
// Precondition: p and logger must be non-nil.
func NewLogged(p Policy, logger *zap.Logger) *Logged {
	return &Logged{p: p, logger: logger}
}

// Roll delegates to the wrapped policy and logs the result.
func (l *Logged) Roll() float64 {
	r := l.p.Roll()
	l.logger.Debug("rng roll", zap.Float64("roll", r))
	return r
}
