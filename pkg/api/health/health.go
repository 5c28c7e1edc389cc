// Package health serves liveness and readiness over HTTP.
//
// Liveness is unconditional: the process answering is alive. Readiness
// tracks work actually progressing: each worker marks progress after a
// successful pass, and goes stale when nothing happened for too long.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

type Probe struct {
	name  string
	stale time.Duration

	mu   sync.Mutex
	last time.Time
}

// NewProbe builds a probe that reports ready while progress keeps being
// marked at least every stale interval. The probe starts fresh so that
// a worker is ready during its first pass.
func NewProbe(name string, stale time.Duration) *Probe {
	return &Probe{name: name, stale: stale, last: time.Now()}
}

func (p *Probe) MarkProgress() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = time.Now()
}

func (p *Probe) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Since(p.last) <= p.stale
}

func (p *Probe) Name() string {
	return p.name
}

// Routes registers /healthz and /readyz on e.
func Routes(e *echo.Echo, probes ...*Probe) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/readyz", func(c echo.Context) error {
		stalled := []string{}
		for _, p := range probes {
			if !p.Ready() {
				stalled = append(stalled, p.Name())
			}
		}
		if len(stalled) != 0 {
			return c.JSON(http.StatusServiceUnavailable, map[string]any{
				"status":  "stalled",
				"stalled": stalled,
			})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
	})
}

// Serve runs the health endpoint until ctx is done, then shuts down.
// It never reports the server's own close as an error.
func Serve(ctx context.Context, addr string, probes ...*Probe) error {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	Routes(e, probes...)

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Start(addr)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
