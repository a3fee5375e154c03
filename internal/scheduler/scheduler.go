// Package scheduler implements the cron-driven dispatcher: one
// trigger per enabled task, each fire invoking the owning input (with
// retry), building a frame, walking
// the compiled transform chain, then the output chain. Grounded on
// github.com/robfig/cron/v3 (as pkg/runtime/cron_node.go uses it) and
// on the retry/logging semantics of StreamletTaskBlueprint.run /
// on_retry / on_failure in original_source/src/core/task.py.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/streamlet-go/streamlet/internal/broker"
	"github.com/streamlet-go/streamlet/internal/chain"
	"github.com/streamlet-go/streamlet/internal/errkind"
	"github.com/streamlet-go/streamlet/internal/frame"
	"github.com/streamlet-go/streamlet/internal/logging"
	"github.com/streamlet-go/streamlet/internal/metric"
)

// Pool selects the dispatch policy: `parallel` runs distinct fires
// concurrently; `serial` collapses every fire onto one worker
// goroutine, intended for debugging and used with run_once.
type Pool string

const (
	PoolParallel Pool = "parallel"
	PoolSerial   Pool = "serial"
)

// InputFunc invokes an Input's task with its configured parameters,
// returning the raw record(s) fetched.
type InputFunc func(ctx context.Context, params map[string]interface{}) ([]map[string]interface{}, error)

// TransformFunc mutates a frame in place. Returning a
// *TerminalTransformError signals a terminal abort of the remaining
// chain; any other error only aborts this one transform.
type TransformFunc func(ctx context.Context, f *metric.MetricFrame) error

// OutputFunc emits a frame to a sink. It must not mutate the frame.
type OutputFunc func(ctx context.Context, f *metric.MetricFrame) error

// TerminalTransformError wraps a transform failure that must abort
// the rest of the transform/output chain for this fire.
type TerminalTransformError struct{ Cause error }

func (e *TerminalTransformError) Error() string {
	return "terminal transform error: " + e.Cause.Error()
}
func (e *TerminalTransformError) Unwrap() error { return e.Cause }

// NamedTransform pairs a compiled transform with its callable.
type NamedTransform struct {
	Name string
	Call TransformFunc
}

// NamedOutput pairs a compiled output with its callable.
type NamedOutput struct {
	Name string
	Call OutputFunc
}

// TaskChain is one compiled (input, task, transforms, outputs) tuple,
// ready to be registered with the scheduler.
type TaskChain struct {
	InputName string
	TaskName  string
	Cron      string

	Params     map[string]interface{}
	FrameSpec  frame.TaskSpec
	MaxRetries int
	RetryDelay time.Duration

	Invoke     InputFunc
	Transforms []NamedTransform
	Outputs    []NamedOutput
}

// Scheduler registers one cron trigger per TaskChain and drives fires
// according to the configured Pool.
type Scheduler struct {
	cron           *cron.Cron
	pool           Pool
	disableOutputs bool
	runOnce        bool
	loc            *time.Location
	log            logging.Logger
	broker         broker.Broker

	serialCh chan func()
	wg       sync.WaitGroup

	mu       sync.Mutex
	chains   []*TaskChain
	fired    map[string]bool // task name -> fired at least once, for run_once bookkeeping
	doneOnce chan struct{}
}

// Options configures a new Scheduler.
type Options struct {
	Pool           Pool
	DisableOutputs bool
	RunOnce        bool
	Location       *time.Location
	Logger         logging.Logger

	// Broker, if set, records every fire's outcome for later inspection
	// through Broker.Recent. Nil disables recording.
	Broker broker.Broker
}

// New builds a Scheduler that has not yet been started.
func New(opts Options) *Scheduler {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	log := opts.Logger
	if log == nil {
		log = logging.New(logging.LevelInfo)
	}

	pool := opts.Pool
	if pool == "" {
		pool = PoolParallel
	}

	s := &Scheduler{
		cron:           cron.New(cron.WithLocation(loc)),
		pool:           pool,
		disableOutputs: opts.DisableOutputs,
		runOnce:        opts.RunOnce,
		loc:            loc,
		log:            log,
		broker:         opts.Broker,
		fired:          map[string]bool{},
		doneOnce:       make(chan struct{}),
	}
	if pool == PoolSerial {
		s.serialCh = make(chan func())
	}
	return s
}

// Register adds a TaskChain's cron trigger. Must be called before Start.
func (s *Scheduler) Register(tc *TaskChain) error {
	s.mu.Lock()
	s.chains = append(s.chains, tc)
	s.mu.Unlock()

	_, err := s.cron.AddFunc(tc.Cron, func() {
		s.dispatch(tc)
	})
	if err != nil {
		return errkind.New(errkind.ConfigInvalid, err).WithTask(tc.TaskName)
	}
	return nil
}

// Start begins the cron loop and, in serial mode, the single worker
// goroutine draining fire requests.
func (s *Scheduler) Start(ctx context.Context) {
	if s.pool == PoolSerial {
		s.wg.Add(1)
		go s.serialWorker(ctx)
	}
	s.cron.Start()
}

func (s *Scheduler) serialWorker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case fn, ok := <-s.serialCh:
			if !ok {
				return
			}
			fn()
		}
	}
}

// Stop halts new fires from being scheduled, waits (up to grace) for
// in-flight fires to finish, then returns. Fires run under
// context.Background(), not the context passed to Start, so neither
// Stop nor cancelling that context interrupts a fire in progress; a
// fire still running when grace expires is left running.
func (s *Scheduler) Stop(grace time.Duration) {
	deadline := time.After(grace)
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-deadline:
	}
	if s.serialCh != nil {
		close(s.serialCh)
	}
	drained := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-deadline:
	}
}

func (s *Scheduler) dispatch(tc *TaskChain) {
	if s.runOnce {
		s.mu.Lock()
		if s.fired[tc.TaskName] {
			s.mu.Unlock()
			return
		}
		s.fired[tc.TaskName] = true
		allFired := len(s.fired) >= len(s.chains)
		s.mu.Unlock()
		if allFired && s.pool == PoolParallel {
			defer s.signalRunOnceDone()
		}
	}

	run := func() { s.fire(context.Background(), tc) }

	switch s.pool {
	case PoolSerial:
		s.serialCh <- run
	default:
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			run()
		}()
	}
}

func (s *Scheduler) signalRunOnceDone() {
	select {
	case <-s.doneOnce:
	default:
		close(s.doneOnce)
	}
}

// Done returns a channel closed once every task's single fire has been
// dispatched, valid only when RunOnce was requested. It is closed only
// in the parallel pool; in the serial pool it is never closed.
func (s *Scheduler) Done() <-chan struct{} { return s.doneOnce }

// fire executes the failure-bounded steps of a single TaskChain
// invocation: invoke, build, transform, output.
func (s *Scheduler) fire(ctx context.Context, tc *TaskChain) {
	fireTime := time.Now().In(s.loc)
	log := s.log.WithTask(tc.TaskName)

	records, err := s.invokeWithRetry(ctx, tc, log)
	if err != nil {
		log.Error("input exhausted retries, dropping fire", "error", err.Error())
		s.record(ctx, tc, fireTime, 0, err)
		return
	}

	f, err := frame.Build(tc.FrameSpec, records, fireTime)
	if err != nil {
		log.Error("frame build failed, dropping fire", "error", err.Error())
		s.record(ctx, tc, fireTime, 0, err)
		return
	}

	aborted := false
	var abortErr error
	for _, t := range tc.Transforms {
		if err := t.Call(ctx, f); err != nil {
			var terminal *TerminalTransformError
			if isTerminal(err, &terminal) {
				log.Error("transform signaled terminal error, aborting chain", "transform", t.Name, "error", err.Error())
				aborted = true
				abortErr = err
				break
			}
			log.Error("transform failed, continuing chain", "transform", t.Name, "error", err.Error())
		}
	}

	f.Freeze()

	if aborted || s.disableOutputs {
		s.record(ctx, tc, fireTime, f.Len(), abortErr)
		return
	}

	var outputErr error
	for _, o := range tc.Outputs {
		if err := o.Call(ctx, f); err != nil {
			log.Error("output failed", "output", o.Name, "error", err.Error())
			outputErr = err
		}
	}
	s.record(ctx, tc, fireTime, f.Len(), outputErr)
}

// record enqueues a broker.FireRecord for this fire when a Broker is
// configured; failures to record are logged but never fail the fire.
func (s *Scheduler) record(ctx context.Context, tc *TaskChain, firedAt time.Time, metricsLen int, cause error) {
	if s.broker == nil {
		return
	}
	rec := broker.FireRecord{
		FireID:     uuid.NewString(),
		TaskName:   tc.TaskName,
		InputName:  tc.InputName,
		FiredAt:    firedAt,
		Success:    cause == nil,
		MetricsLen: metricsLen,
	}
	if cause != nil {
		rec.Error = cause.Error()
	}
	if err := s.broker.Enqueue(ctx, rec); err != nil {
		s.log.Warn("failed to record fire history", "task", tc.TaskName, "error", err.Error())
	}
}

func isTerminal(err error, target **TerminalTransformError) bool {
	te, ok := err.(*TerminalTransformError)
	if ok {
		*target = te
	}
	return ok
}

// invokeWithRetry runs the input step with fixed-delay retry; retries
// apply only to this step, never to the frame build or the
// transform/output chain.
func (s *Scheduler) invokeWithRetry(ctx context.Context, tc *TaskChain, log logging.Logger) ([]map[string]interface{}, error) {
	var lastErr error
	attempts := tc.MaxRetries + 1

	for attempt := 0; attempt < attempts; attempt++ {
		records, err := tc.Invoke(ctx, tc.Params)
		if err == nil {
			return records, nil
		}
		lastErr = err
		if attempt < attempts-1 {
			log.Warn("input failed, retrying", "attempt", attempt+1, "max_retries", tc.MaxRetries, "error", err.Error())
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(tc.RetryDelay):
			}
		}
	}
	return nil, errkind.New(errkind.InputFailed, lastErr).WithTask(tc.TaskName)
}

// Compile builds Transforms/Outputs NamedTransform/NamedOutput slices
// from chain.Compile's ordering, pairing each compiled entry with its
// runtime callable by name.
func Compile(inputName, taskName string, transforms []chain.Transform, transformCalls map[string]TransformFunc,
	outputs []chain.Output, outputCalls map[string]OutputFunc) ([]NamedTransform, []NamedOutput) {

	orderedT, orderedO := chain.Compile(inputName, taskName, transforms, outputs)

	nt := make([]NamedTransform, 0, len(orderedT))
	for _, t := range orderedT {
		if call, ok := transformCalls[t.Name]; ok {
			nt = append(nt, NamedTransform{Name: t.Name, Call: call})
		}
	}
	no := make([]NamedOutput, 0, len(orderedO))
	for _, o := range orderedO {
		if call, ok := outputCalls[o.Name]; ok {
			no = append(no, NamedOutput{Name: o.Name, Call: call})
		}
	}
	return nt, no
}
