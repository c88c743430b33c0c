// Package health composes dependency checks into a readiness verdict.
package health

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// CheckFunc returns nil when the dependency is usable.
type CheckFunc func(ctx context.Context) error

// Check is a named dependency check.
type Check struct {
	Name string
	Run  CheckFunc
}

// Verdict is the outcome of one readiness probe.
type Verdict struct {
	Ready bool
	Cause string
}

// Aggregator runs its checks in order on every probe. Nothing is cached.
type Aggregator struct {
	checks []Check
	log    *zap.Logger
}

func NewAggregator(log *zap.Logger, checks ...Check) *Aggregator {
	return &Aggregator{checks: checks, log: log.Named("health")}
}

// Liveness only proves the process is serving.
func (a *Aggregator) Liveness() map[string]string {
	a.log.Info("Liveness probe called")
	return map[string]string{"status": "Live"}
}

// Readiness stops at the first failing check; its name and error become the
// cause.
func (a *Aggregator) Readiness(ctx context.Context) Verdict {
	a.log.Info("Readiness probe called")

	for _, c := range a.checks {
		if err := c.Run(ctx); err != nil {
			cause := fmt.Sprintf("%s: %v", c.Name, err)
			a.log.Error("Readiness probe failed", zap.String("check", c.Name), zap.Error(err))
			return Verdict{Ready: false, Cause: cause}
		}
		a.log.Debug("Dependency is ready", zap.String("check", c.Name))
	}

	a.log.Info("Dependencies are ready")
	return Verdict{Ready: true}
}
