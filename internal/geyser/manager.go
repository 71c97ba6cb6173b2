package geyser

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/0xdmtry/dex-indexer/pkg/types"
)

// stabilityTimeout bounds how long a new subscription may take to produce its
// stability signal before the swap is abandoned.
const stabilityTimeout = 10 * time.Second

// ErrStability is returned when a new subscription fails to stabilize in
// time. The previous subscription keeps running.
var ErrStability = errors.New("subscription failed to reach stability")

type command struct {
	tracked  map[string]types.Platform
	shutdown bool
	resp     chan error
}

// subscriptionTask is one running account consumer with its cancellation
// handle.
type subscriptionTask struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager owns at most one live account subscription and serves Update and
// Shutdown commands sequentially. An Update builds a fresh consumer, waits
// for its stability signal, and only then cancels and joins the previous
// task — so a successful swap never leaves an interval with no subscription.
type Manager struct {
	client Client
	events chan<- types.Event
	logger *slog.Logger

	cmds    chan command
	current *subscriptionTask

	// stabilityWait is stabilityTimeout outside of tests.
	stabilityWait time.Duration
}

// NewManager builds a subscription manager publishing decoded events to the
// given channel.
func NewManager(client Client, events chan<- types.Event, logger *slog.Logger) *Manager {
	return &Manager{
		client: client,
		events: events,
		logger: logger.With("component", "subscription_manager"),
		cmds:   make(chan command, 32),

		stabilityWait: stabilityTimeout,
	}
}

// Run serves commands until ctx is cancelled or Shutdown is received.
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			m.stopCurrent()
			return
		case cmd := <-m.cmds:
			if cmd.shutdown {
				m.stopCurrent()
				cmd.resp <- nil
				return
			}
			cmd.resp <- m.swap(ctx, cmd.tracked)
		}
	}
}

// Update swaps the subscription to the given tracked accounts. It returns
// once the new subscription is stable and installed, or with an error if it
// failed to stabilize (the prior subscription is preserved).
func (m *Manager) Update(ctx context.Context, tracked map[string]types.Platform) error {
	cmd := command{tracked: tracked, resp: make(chan error, 1)}
	select {
	case m.cmds <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.resp:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown cancels and joins the current subscription and stops the manager.
func (m *Manager) Shutdown(ctx context.Context) error {
	cmd := command{shutdown: true, resp: make(chan error, 1)}
	select {
	case m.cmds <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.resp:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) swap(ctx context.Context, tracked map[string]types.Platform) error {
	m.logger.Info("starting new subscription", "accounts", len(tracked))

	taskCtx, cancel := context.WithCancel(ctx)
	consumer := newAccountConsumer(m.client, tracked, m.events, m.logger)

	stability := make(chan struct{})
	task := &subscriptionTask{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(task.done)
		consumer.run(taskCtx, stability)
	}()

	select {
	case <-stability:
		m.logger.Info("new subscription stable, retiring old subscription")
		m.stopCurrent()
		m.current = task
		m.logger.Info("subscription swap complete")
		return nil

	case <-time.After(m.stabilityWait):
		m.logger.Warn("new subscription failed to stabilize, cancelling")
		cancel()
		<-task.done
		return ErrStability

	case <-ctx.Done():
		cancel()
		<-task.done
		return ctx.Err()
	}
}

// stopCurrent cancels the running task and waits for it to terminate.
func (m *Manager) stopCurrent() {
	if m.current == nil {
		return
	}
	m.current.cancel()
	<-m.current.done
	m.current = nil
}
