// Package health reports liveness and readiness of the ledger service.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger probes one dependency. *pgxpool.Pool satisfies it directly;
// PingFunc adapts anything else.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to the Pinger interface.
type PingFunc func(ctx context.Context) error

// Ping implements Pinger.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Checker aggregates dependency probes into readiness. Probes are run
// on demand per /readyz request, each with a short timeout.
type Checker struct {
	probes map[string]Pinger
	logger *zap.Logger
}

// NewChecker creates a Checker with no probes registered.
func NewChecker(logger *zap.Logger) *Checker {
	return &Checker{probes: make(map[string]Pinger), logger: logger}
}

// Add registers a named dependency probe.
func (c *Checker) Add(name string, p Pinger) {
	c.probes[name] = p
}

// Check probes every dependency and returns per-component status
// strings ("ok" or the error text) plus overall health.
func (c *Checker) Check(ctx context.Context) (map[string]string, bool) {
	components := make(map[string]string, len(c.probes))
	healthy := true

	for name, p := range c.probes {
		probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := p.Ping(probeCtx)
		cancel()

		if err != nil {
			c.logger.Warn("readiness probe failed",
				zap.String("component", name),
				zap.Error(err),
			)
			components[name] = err.Error()
			healthy = false
			continue
		}
		components[name] = "ok"
	}
	return components, healthy
}

// Register mounts /healthz (liveness) and /readyz (readiness) on the
// given router.
func (c *Checker) Register(r *gin.Engine) {
	r.GET("/healthz", func(gc *gin.Context) {
		gc.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(gc *gin.Context) {
		components, healthy := c.Check(gc.Request.Context())
		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		gc.JSON(status, gin.H{"healthy": healthy, "components": components})
	})
}
