package services

import (
	"context"
)

// Provider is a backing service the engine depends on
type Provider interface {
	// Type returns the service type name
	Type() string

	// HealthCheck checks if the service is available
	HealthCheck(ctx context.Context) error

	// Close releases the connection
	Close() error
}

// BaseProvider provides common functionality for providers
type BaseProvider struct {
	serviceType string
}

// Type returns the service type
func (p *BaseProvider) Type() string {
	return p.serviceType
}

// CheckFunc adapts a ping function into a Provider
type CheckFunc struct {
	BaseProvider
	check func(ctx context.Context) error
}

// NewCheckFunc wraps check as a provider of the given type
func NewCheckFunc(serviceType string, check func(ctx context.Context) error) *CheckFunc {
	return &CheckFunc{BaseProvider: BaseProvider{serviceType: serviceType}, check: check}
}

// HealthCheck runs the wrapped check
func (p *CheckFunc) HealthCheck(ctx context.Context) error {
	return p.check(ctx)
}

// Close is a no-op
func (p *CheckFunc) Close() error { return nil }
