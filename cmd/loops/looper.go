package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/poddle/poddle/cmd/loops/loop/recurring"
	"github.com/poddle/poddle/cmd/loops/tasks/accrual"
	"github.com/poddle/poddle/cmd/loops/tasks/metrics"
	"github.com/poddle/poddle/cmd/loops/tasks/reconcile"
	"github.com/poddle/poddle/pkg/api/health"
	"github.com/poddle/poddle/pkg/configs/backend"
	"github.com/poddle/poddle/pkg/conn/amqp"
	bildb "github.com/poddle/poddle/pkg/domain/billing/db"
	depdb "github.com/poddle/poddle/pkg/domain/deployment/db"
	"github.com/poddle/poddle/pkg/domain/deployment/k8s"
	"github.com/poddle/poddle/pkg/event"
	"github.com/poddle/poddle/pkg/loop"
	metricsrc "github.com/poddle/poddle/pkg/metrics"
)

// LoopType selects which recurring worker this process runs.
type LoopType string

const (
	ReconcileLoop LoopType = "reconcile"
	MetricsLoop   LoopType = "metrics"
	AccrualLoop   LoopType = "accrual"
)

func (lt LoopType) String() string {
	return string(lt)
}

func AsLoopType(s string) (LoopType, error) {
	switch LoopType(s) {
	case ReconcileLoop, MetricsLoop, AccrualLoop:
		return LoopType(s), nil
	}
	return "", fmt.Errorf("unknown loop type: %s (should be one of -- reconcile|metrics|accrual)", s)
}

// ProbeStale is how long a loop may go without completing a pass before
// its readiness probe reports it stalled.
func ProbeStale(conf *backend.BackendConfig, t LoopType) time.Duration {
	switch t {
	case ReconcileLoop:
		return 5 * conf.Loops().Reconcile().Timeout()
	case MetricsLoop:
		return 5 * conf.Loops().Metrics().Interval()
	case AccrualLoop:
		// hourly cadence plus slack for one missed pass.
		return 2 * time.Hour
	}
	return time.Minute
}

type LoggerOptions func(*log.Logger) *log.Logger

func byLogger(l *log.Logger, opt ...LoggerOptions) *log.Logger {
	for _, o := range opt {
		l = o(l)
	}
	return l
}

func Copied() LoggerOptions {
	return func(l *log.Logger) *log.Logger {
		return log.New(l.Writer(), l.Prefix(), l.Flags())
	}
}

func WithPrefix(pre string) LoggerOptions {
	return func(l *log.Logger) *log.Logger {
		l.SetPrefix(pre)
		return l
	}
}

func WithTimestamp() LoggerOptions {
	return func(l *log.Logger) *log.Logger {
		l.SetFlags(l.Flags() | log.Ldate | log.Ltime | log.Lmicroseconds)
		return l
	}
}

// Wrapper for monitoring loop tasks
//
//	Log the start and end of each time a task is executed. Essentially, it
//	executes a task. Every completed pass also feeds the readiness probe.
func monitor[T any](logger *log.Logger, probe *health.Probe, task loop.Task[T]) loop.Task[T] {
	// counter for execution of the task
	var counter uint64
	return func(ctx context.Context, t T) (ret T, next loop.Next) {
		counter += 1
		timestamp := time.Now()

		logger.Printf("task start: #0x%X: ", counter)

		defer func() {
			probe.MarkProgress()
			logger.Printf(
				"task end: #0x%X (takes %s): %s\n with value = %#v",
				counter, time.Since(timestamp), next, ret,
			)
		}()

		ret, next = task(ctx, t)
		return
	}
}

// Manifest for starting a loop, which determines how the loop should behave.
type LoopManifest struct {
	Type LoopType

	// Policy for the looping
	Policy recurring.Policy
}

// Deps are the connected backends the loops draw on. Each loop uses a
// subset; main wires all of them from one config.
type Deps struct {
	Deployments depdb.Interface
	Billing     bildb.Interface
	Provisioner k8s.Interface
	Cache       event.Cache
	Publisher   event.Publisher
	Source      metricsrc.Source
	Sender      amqp.Sender
}

func StartLoop(
	ctx context.Context,
	logger *log.Logger,
	conf *backend.BackendConfig,
	deps Deps,
	probe *health.Probe,
	manifest LoopManifest,
) error {
	switch manifest.Type {
	case ReconcileLoop:
		return startReconcileLoop(ctx, logger, conf, deps, probe, manifest)
	case MetricsLoop:
		return startMetricsLoop(ctx, logger, conf, deps, probe, manifest)
	case AccrualLoop:
		return startAccrualLoop(ctx, logger, conf, deps, probe, manifest)
	}
	return fmt.Errorf("unknown loop type: %s", manifest.Type)
}

func startReconcileLoop(
	ctx context.Context,
	logger *log.Logger,
	conf *backend.BackendConfig,
	deps Deps,
	probe *health.Probe,
	manifest LoopManifest,
) error {
	l := byLogger(logger, Copied(), WithPrefix("[reconcile loop]"))
	_, err := loop.Start(
		ctx, reconcile.Seed(conf.Loops().Reconcile().PageSize()),
		monitor(
			l, probe,
			reconcile.Task(
				l, deps.Deployments, deps.Provisioner, deps.Cache, deps.Publisher,
			).Applied(manifest.Policy),
		),
		loop.WithTimeout(conf.Loops().Reconcile().Timeout()),
	)
	return err
}

func startMetricsLoop(
	ctx context.Context,
	logger *log.Logger,
	conf *backend.BackendConfig,
	deps Deps,
	probe *health.Probe,
	manifest LoopManifest,
) error {
	l := byLogger(logger, Copied(), WithPrefix("[metrics loop]"))
	_, err := loop.Start(
		ctx, metrics.Seed(),
		monitor(
			l, probe,
			metrics.Task(
				l, deps.Source, deps.Cache, deps.Publisher,
				conf.Loops().Metrics().Interval(),
				conf.Loops().Metrics().Retention(),
			).Applied(manifest.Policy),
		),
	)
	return err
}

func startAccrualLoop(
	ctx context.Context,
	logger *log.Logger,
	conf *backend.BackendConfig,
	deps Deps,
	probe *health.Probe,
	manifest LoopManifest,
) error {
	l := byLogger(logger, Copied(), WithPrefix("[accrual loop]"))
	_, err := loop.Start(
		ctx, accrual.Seed(),
		monitor(
			l, probe,
			accrual.Task(
				l, deps.Deployments, deps.Billing, deps.Sender,
				conf.Billing().Rate(),
				conf.Loops().Accrual().PageSize(),
			).Applied(manifest.Policy),
		),
	)
	return err
}
