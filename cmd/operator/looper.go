package main

import (
	"context"
	"log"
	"time"

	"github.com/opst/datahub-operator/cmd/operator/pass"
	"github.com/opst/datahub-operator/cmd/operator/recurring"
	"github.com/opst/datahub-operator/cmd/operator/status"
	"github.com/opst/datahub-operator/cmd/operator/tasks/audit"
	"github.com/opst/datahub-operator/cmd/operator/tasks/reconcile"
	"github.com/opst/datahub-operator/pkg/domain"
	regdb "github.com/opst/datahub-operator/pkg/domain/registry/db"
	"github.com/opst/datahub-operator/pkg/domain/secrets"
	"github.com/opst/datahub-operator/pkg/domain/supervisor"
	"github.com/opst/datahub-operator/pkg/loop"
)

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

// Wrapper for monitoring loop tasks.
//
// Log the start and end of each time a task is executed. Essentially, it
// executes a task.
func monitor[T any](logger *log.Logger, task loop.Task[T]) loop.Task[T] {
	var counter uint64
	return func(ctx context.Context, t T) (ret T, next loop.Next) {
		counter += 1
		timestamp := time.Now()

		logger.Printf("task start: #0x%X: ", counter)

		defer func() {
			logger.Printf(
				"task end: #0x%X (takes %s): %s\n with value = %#v",
				counter, time.Since(timestamp), next, ret,
			)
		}()

		ret, next = task(ctx, t)
		return
	}
}

// logged reports task errors before the policy decides what to do with them.
// Forever retries regardless of error, which would otherwise swallow it.
func logged[T any](l *log.Logger, task recurring.Task[T]) recurring.Task[T] {
	return func(ctx context.Context, t T) (T, bool, error) {
		ret, ok, err := task(ctx, t)
		if err != nil {
			l.Printf("pass failed (will retry): %s", err)
		}
		return ret, ok, err
	}
}

// Everything the loops reconcile and audit against.
type Cluster struct {
	Registry   regdb.Interface
	Secrets    secrets.Interface
	Supervisor supervisor.Interface
}

// StartReconcileLoop runs the reconcile pass until ctx is cancelled.
//
// A send on wakeup cuts the interval short; the web handlers and the audit
// loop use it to react to relation events and drift.
func StartReconcileLoop(
	ctx context.Context,
	logger *log.Logger,
	cluster Cluster,
	params pass.Params,
	keeper *status.Keeper,
	wakeup <-chan struct{},
	interval time.Duration,
) error {
	l := byLogger(logger, Copied(), WithPrefix("[reconcile loop]"))
	_, err := loop.Start(
		ctx, keeper.Get(),
		monitor(
			l,
			logged(l, reconcile.Task(
				l, params, cluster.Registry, cluster.Secrets, cluster.Supervisor, keeper,
			)).Applied(recurring.Forever(interval)),
		),
		loop.WithWakeup(wakeup),
	)
	return err
}

// StartAuditLoop runs the audit pass until ctx is cancelled.
func StartAuditLoop(
	ctx context.Context,
	logger *log.Logger,
	cluster Cluster,
	params pass.Params,
	keeper *status.Keeper,
	wakeReconcile func(),
	interval time.Duration,
) error {
	l := byLogger(logger, Copied(), WithPrefix("[audit loop]"))
	_, err := loop.Start(
		ctx, domain.Status{},
		monitor(
			l,
			logged(l, audit.Task(
				l, params, cluster.Registry, cluster.Secrets, cluster.Supervisor, keeper, wakeReconcile,
			)).Applied(recurring.Forever(interval)),
		),
	)
	return err
}
