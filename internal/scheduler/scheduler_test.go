package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/streamlet-go/streamlet/internal/frame"
	"github.com/streamlet-go/streamlet/internal/metric"
)

func waitForCondition(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !cond() {
		t.Fatal("condition not met before timeout")
	}
}

func everySecondCron() string { return "@every 1s" }

func TestInvokeWithRetryGivesUpAfterMaxRetries(t *testing.T) {
	s := New(Options{Pool: PoolSerial})

	var calls int32
	tc := &TaskChain{
		TaskName:   "flaky",
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		Invoke: func(ctx context.Context, params map[string]interface{}) ([]map[string]interface{}, error) {
			atomic.AddInt32(&calls, 1)
			return nil, errors.New("boom")
		},
	}

	_, err := s.invokeWithRetry(context.Background(), tc, s.log)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 1 initial attempt + 2 retries = 3 calls, got %d", got)
	}
}

func TestInvokeWithRetrySucceedsOnSecondAttempt(t *testing.T) {
	s := New(Options{Pool: PoolSerial})

	var calls int32
	tc := &TaskChain{
		TaskName:   "recovering",
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
		Invoke: func(ctx context.Context, params map[string]interface{}) ([]map[string]interface{}, error) {
			n := atomic.AddInt32(&calls, 1)
			if n < 2 {
				return nil, errors.New("first attempt fails")
			}
			return []map[string]interface{}{{"ok": true}}, nil
		},
	}

	records, err := s.invokeWithRetry(context.Background(), tc, s.log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
}

func TestFireAbortsRemainingTransformsOnTerminalError(t *testing.T) {
	s := New(Options{Pool: PoolSerial})

	var secondCalled, outputCalled bool
	tc := &TaskChain{
		TaskName:  "t1",
		InputName: "in",
		FrameSpec: frame.TaskSpec{Name: "m", MetricsSelector: "value"},
		Invoke: func(ctx context.Context, params map[string]interface{}) ([]map[string]interface{}, error) {
			return []map[string]interface{}{{"value": 1}}, nil
		},
		Transforms: []NamedTransform{
			{Name: "t_fail", Call: func(ctx context.Context, f *metric.MetricFrame) error {
				return &TerminalTransformError{Cause: errors.New("stop")}
			}},
			{Name: "t_never", Call: func(ctx context.Context, f *metric.MetricFrame) error {
				secondCalled = true
				return nil
			}},
		},
		Outputs: []NamedOutput{
			{Name: "o1", Call: func(ctx context.Context, f *metric.MetricFrame) error {
				outputCalled = true
				return nil
			}},
		},
	}

	s.fire(context.Background(), tc)

	if secondCalled {
		t.Fatal("expected second transform to be skipped after terminal error")
	}
	if outputCalled {
		t.Fatal("expected outputs to be skipped after terminal transform abort")
	}
}

func TestFireContinuesChainOnNonTerminalTransformError(t *testing.T) {
	s := New(Options{Pool: PoolSerial})

	var outputCalled bool
	tc := &TaskChain{
		TaskName:  "t1",
		FrameSpec: frame.TaskSpec{Name: "m", MetricsSelector: "value"},
		Invoke: func(ctx context.Context, params map[string]interface{}) ([]map[string]interface{}, error) {
			return []map[string]interface{}{{"value": 1}}, nil
		},
		Transforms: []NamedTransform{
			{Name: "t_soft_fail", Call: func(ctx context.Context, f *metric.MetricFrame) error {
				return errors.New("non-terminal")
			}},
		},
		Outputs: []NamedOutput{
			{Name: "o1", Call: func(ctx context.Context, f *metric.MetricFrame) error {
				outputCalled = true
				return nil
			}},
		},
	}

	s.fire(context.Background(), tc)

	if !outputCalled {
		t.Fatal("expected outputs to run despite non-terminal transform error")
	}
}

func TestFireSkipsOutputsWhenDisabled(t *testing.T) {
	s := New(Options{Pool: PoolSerial, DisableOutputs: true})

	var outputCalled bool
	tc := &TaskChain{
		TaskName:  "t1",
		FrameSpec: frame.TaskSpec{Name: "m", MetricsSelector: "value"},
		Invoke: func(ctx context.Context, params map[string]interface{}) ([]map[string]interface{}, error) {
			return []map[string]interface{}{{"value": 1}}, nil
		},
		Outputs: []NamedOutput{
			{Name: "o1", Call: func(ctx context.Context, f *metric.MetricFrame) error {
				outputCalled = true
				return nil
			}},
		},
	}

	s.fire(context.Background(), tc)

	if outputCalled {
		t.Fatal("expected disable_outputs to suppress output chain")
	}
}

func TestRunOnceFiresEachTaskExactlyOnce(t *testing.T) {
	s := New(Options{Pool: PoolParallel, RunOnce: true})

	var mu sync.Mutex
	fires := map[string]int{}
	tc := &TaskChain{
		TaskName:  "once",
		Cron:      everySecondCron(),
		FrameSpec: frame.TaskSpec{Name: "m", MetricsSelector: "value"},
		Invoke: func(ctx context.Context, params map[string]interface{}) ([]map[string]interface{}, error) {
			mu.Lock()
			fires["once"]++
			mu.Unlock()
			return []map[string]interface{}{{"value": 1}}, nil
		},
	}
	if err := s.Register(tc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s.Start(context.Background())
	s.dispatch(tc)
	s.dispatch(tc)

	waitForCondition(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return fires["once"] == 1
	})

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("expected Done() to close once every task has fired")
	}

	mu.Lock()
	defer mu.Unlock()
	if fires["once"] != 1 {
		t.Fatalf("expected exactly 1 fire under run_once, got %d", fires["once"])
	}
}

func TestFireStampsFireTimeInConfiguredLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	s := New(Options{Pool: PoolSerial, Location: loc})

	var gotTime time.Time
	tc := &TaskChain{
		TaskName:  "t1",
		FrameSpec: frame.TaskSpec{Name: "m", MetricsSelector: "value"},
		Invoke: func(ctx context.Context, params map[string]interface{}) ([]map[string]interface{}, error) {
			return []map[string]interface{}{{"value": 1}}, nil
		},
		Outputs: []NamedOutput{
			{Name: "o1", Call: func(ctx context.Context, f *metric.MetricFrame) error {
				gotTime = f.Timestamp
				return nil
			}},
		},
	}

	s.fire(context.Background(), tc)

	if gotTime.Location().String() != loc.String() {
		t.Fatalf("expected frame's fire time in %s, got %s", loc, gotTime.Location())
	}
}

func TestSerialPoolProcessesFiresOneAtATime(t *testing.T) {
	s := New(Options{Pool: PoolSerial})
	s.Start(context.Background())
	defer s.Stop(100 * time.Millisecond)

	var active int32
	var maxActive int32
	var wg sync.WaitGroup

	tc := &TaskChain{
		TaskName: "serial",
		Invoke: func(ctx context.Context, params map[string]interface{}) ([]map[string]interface{}, error) {
			n := atomic.AddInt32(&active, 1)
			for {
				m := atomic.LoadInt32(&maxActive)
				if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			wg.Done()
			return nil, errors.New("no records needed for this check")
		},
	}

	wg.Add(3)
	s.dispatch(tc)
	s.dispatch(tc)
	s.dispatch(tc)
	wg.Wait()

	if atomic.LoadInt32(&maxActive) > 1 {
		t.Fatalf("expected serial pool to never run more than 1 fire concurrently, saw %d", maxActive)
	}
}
