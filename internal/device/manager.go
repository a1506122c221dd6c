// Package device fans provisioning work out over several attached devices.
package device

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/huanfeng/ownerkit/pkg/utils"
)

// TaskFunc represents a function executed for a specific device serial.
type TaskFunc[T any] func(ctx context.Context, serial string) (T, error)

// Result contains the outcome of a task for a device.
type Result[T any] struct {
	Serial string
	Value  T
	Err    error
}

// Manager runs one task per device, with at most workerLimit devices in
// flight. A device never has two tasks at once.
type Manager[T any] struct {
	workerLimit int
	logger      utils.Logger
}

// Option configures a Manager.
type Option[T any] func(*Manager[T])

// WithWorkerLimit sets the maximum number of concurrent workers.
func WithWorkerLimit[T any](limit int) Option[T] {
	return func(m *Manager[T]) {
		m.workerLimit = limit
	}
}

// WithLogger sets the logger used for per-device progress.
func WithLogger[T any](logger utils.Logger) Option[T] {
	return func(m *Manager[T]) {
		m.logger = logger
	}
}

// NewManager creates a Manager with optional configuration.
func NewManager[T any](opts ...Option[T]) *Manager[T] {
	m := &Manager[T]{
		workerLimit: runtime.NumCPU(),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.workerLimit <= 0 {
		m.workerLimit = runtime.NumCPU()
	}
	m.logger = utils.OrNop(m.logger)

	return m
}

// Run executes task once per distinct serial and returns the results in
// input order. Serials not started before ctx ends get ctx's error. A
// panicking task fails only its own device.
func (m *Manager[T]) Run(ctx context.Context, serials []string, task TaskFunc[T]) []Result[T] {
	serials = dedupe(serials)
	results := make([]Result[T], len(serials))
	if len(serials) == 0 {
		return results
	}

	workerCount := m.workerLimit
	if workerCount > len(serials) {
		workerCount = len(serials)
	}

	idxCh := make(chan int)
	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range idxCh {
				results[idx] = m.runOne(ctx, serials[idx], task)
			}
		}()
	}

	next := 0
feed:
	for ; next < len(serials); next++ {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break feed
		case idxCh <- next:
		}
	}
	close(idxCh)
	wg.Wait()

	for ; next < len(serials); next++ {
		results[next] = Result[T]{Serial: serials[next], Err: ctx.Err()}
	}
	return results
}

func (m *Manager[T]) runOne(ctx context.Context, serial string, task TaskFunc[T]) (res Result[T]) {
	res.Serial = serial
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Task for %s panicked: %v", serial, r)
			res.Err = fmt.Errorf("device %s: panic: %v", serial, r)
		}
	}()

	m.logger.Debug("Starting task for %s", serial)
	res.Value, res.Err = task(ctx, serial)
	if res.Err != nil {
		m.logger.Debug("Task for %s failed: %v", serial, res.Err)
	}
	return res
}

// Failed returns the results that carry an error.
func Failed[T any](results []Result[T]) []Result[T] {
	var failed []Result[T]
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}

func dedupe(serials []string) []string {
	seen := make(map[string]bool, len(serials))
	out := make([]string, 0, len(serials))
	for _, s := range serials {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
