package config

import (
	"jdroaster/internal/errors"

	"github.com/hashicorp/vault/api"
	"github.com/sony/gobreaker/v2"
)

// vaultBreaker guards Vault reads. A nil breaker runs calls directly.
type vaultBreaker struct {
	cb *gobreaker.CircuitBreaker[*api.Secret]
}

func newVaultBreaker(cfg CircuitBreakerConfig, logger *errors.Logger) *vaultBreaker {
	if !cfg.Enabled {
		return nil
	}

	settings := gobreaker.Settings{
		Name:        "vault",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests &&
				failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
				"failure_threshold", cfg.FailureThreshold)
		},
	}

	return &vaultBreaker{cb: gobreaker.NewCircuitBreaker[*api.Secret](settings)}
}

// Execute runs fn under the breaker
func (b *vaultBreaker) Execute(fn func() (*api.Secret, error)) (*api.Secret, error) {
	if b == nil || b.cb == nil {
		return fn()
	}
	return b.cb.Execute(fn)
}

// Stats returns circuit breaker statistics
func (b *vaultBreaker) Stats() map[string]any {
	if b == nil || b.cb == nil {
		return map[string]any{"enabled": false}
	}
	return map[string]any{
		"name":    b.cb.Name(),
		"state":   b.cb.State().String(),
		"counts":  b.cb.Counts(),
		"enabled": true,
	}
}
