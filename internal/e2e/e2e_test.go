package e2e

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MythologIQ/Hearthlink-CORE/internal/config"
	"github.com/MythologIQ/Hearthlink-CORE/internal/engine"
	"github.com/MythologIQ/Hearthlink-CORE/pkg/types"
)

// TestE2E_SessionLifecycle walks a session from authentication through
// revocation and reclamation.
func TestE2E_SessionLifecycle(t *testing.T) {
	dir, _ := createTempModelsDir(t)
	rt := newCore(t, dir, nil, nil)

	if _, err := rt.Authenticate("wrong-token"); !errors.Is(err, types.ErrAuthFailed) {
		t.Fatalf("wrong token err = %v, want ErrAuthFailed", err)
	}
	if got := counter(t, rt, "hearthcore_session_auth_failure_total"); got != 1 {
		t.Fatalf("auth failure counter = %d, want 1", got)
	}

	sess := authSession(t, rt)
	if err := rt.ValidateSession(sess); err != nil {
		t.Fatalf("validate fresh session: %v", err)
	}

	// releasing more times than acquired must not invalidate a live session
	rt.ReleaseSession(sess)
	rt.ReleaseSession(sess)
	if err := rt.ValidateSession(sess); err != nil {
		t.Fatalf("validate after over-release: %v", err)
	}

	if err := rt.RevokeSession(sess); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := rt.ValidateSession(sess); !errors.Is(err, types.ErrSessionExpired) {
			t.Fatalf("validate attempt %d after revoke: %v, want ErrSessionExpired", i, err)
		}
	}

	// the unreferenced dead entry is reclaimed on the next release
	rt.ReleaseSession(sess)
	if err := rt.ValidateSession(sess); !errors.Is(err, types.ErrSessionNotFound) {
		t.Fatalf("validate after reclaim: %v, want ErrSessionNotFound", err)
	}
	if err := rt.RevokeSession(sess); !errors.Is(err, types.ErrSessionNotFound) {
		t.Fatalf("revoke after reclaim: %v, want ErrSessionNotFound", err)
	}
}

// TestE2E_SessionExpiry verifies expiry is fixed at creation and retries
// never resurrect a session.
func TestE2E_SessionExpiry(t *testing.T) {
	dir, names := createTempModelsDir(t, "m.gguf")
	rt := newCore(t, dir, nil, func(cfg *config.Config) {
		cfg.SessionTimeoutSecs = 1
	})
	id := loadModel(t, rt, names[0])
	sess := authSession(t, rt)

	time.Sleep(1100 * time.Millisecond)
	for i := 0; i < 3; i++ {
		if err := rt.ValidateSession(sess); !errors.Is(err, types.ErrSessionExpired) {
			t.Fatalf("validate attempt %d: %v, want ErrSessionExpired", i, err)
		}
	}
	_, err := rt.Infer(context.Background(), sess, id, "hello", types.InferenceParams{})
	if !errors.Is(err, types.ErrSessionExpired) {
		t.Fatalf("infer with expired session: %v, want ErrSessionExpired", err)
	}
}

// TestE2E_HandleLifecycle verifies handle ids are strictly increasing and
// never reused, duplicate paths load independently, and a second unload
// fails.
func TestE2E_HandleLifecycle(t *testing.T) {
	dir, names := createTempModelsDir(t, "alpha.gguf", "beta.gguf")
	rt := newCore(t, dir, nil, nil)
	ctx := context.Background()

	first := loadModel(t, rt, names[0])
	second := loadModel(t, rt, names[1])
	if first >= second {
		t.Fatalf("handle ids not increasing: %d then %d", first, second)
	}

	// same file again: a distinct, independently unloadable handle
	dup := loadModel(t, rt, names[0])
	if dup <= second {
		t.Fatalf("duplicate load id = %d, want > %d", dup, second)
	}
	if rt.ModelCount() != 3 {
		t.Fatalf("model count = %d, want 3", rt.ModelCount())
	}

	if err := rt.UnloadModel(ctx, second); err != nil {
		t.Fatalf("unload: %v", err)
	}
	info, err := rt.ModelInfo(second)
	if err != nil {
		t.Fatalf("info after unload: %v", err)
	}
	if info.State != types.ModelStateUnloaded {
		t.Fatalf("state after unload = %s, want unloaded", info.State)
	}
	if rt.ModelCount() != 2 {
		t.Fatalf("ready count after unload = %d, want 2", rt.ModelCount())
	}
	if err := rt.UnloadModel(ctx, second); !errors.Is(err, types.ErrModelNotFound) {
		t.Fatalf("second unload: %v, want ErrModelNotFound", err)
	}

	// freed id is never handed out again
	next := loadModel(t, rt, names[1])
	if next <= dup {
		t.Fatalf("id after unload = %d, want > %d", next, dup)
	}
	list := rt.ListModels()
	for i := 1; i < len(list); i++ {
		if list[i-1].HandleID >= list[i].HandleID {
			t.Fatalf("list not ascending: %v", list)
		}
	}
}

// TestE2E_UnloadDrains verifies unload waits for in-flight work while new
// admissions against the draining handle fail.
func TestE2E_UnloadDrains(t *testing.T) {
	dir, names := createTempModelsDir(t, "m.gguf")
	sim := engine.NewSim()
	sim.TokenDelay = 20 * time.Millisecond
	rt := newCore(t, dir, sim, nil)
	id := loadModel(t, rt, names[0])
	sess := authSession(t, rt)

	const prompt = "one two three four five six seven eight nine ten"
	var wg sync.WaitGroup
	inferErrs := make([]error, 2)
	for i := 0; i < 2; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, inferErrs[i] = rt.Infer(context.Background(), sess, id, prompt, types.InferenceParams{})
		}()
	}
	waitFor(t, 2*time.Second, "both requests in flight", func() bool {
		info, err := rt.ModelInfo(id)
		return err == nil && info.InFlight == 2
	})

	unloadDone := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		unloadDone <- rt.UnloadModel(ctx, id)
	}()
	waitFor(t, 2*time.Second, "drain to begin", func() bool {
		info, err := rt.ModelInfo(id)
		return err == nil && info.State == types.ModelStateUnloading
	})

	// the draining handle no longer admits work
	if _, err := rt.Infer(context.Background(), sess, id, "late", types.InferenceParams{}); !errors.Is(err, types.ErrModelNotFound) {
		t.Fatalf("infer during drain: %v, want ErrModelNotFound", err)
	}

	wg.Wait()
	for i, err := range inferErrs {
		if err != nil {
			t.Fatalf("in-flight request %d failed during drain: %v", i, err)
		}
	}
	if err := <-unloadDone; err != nil {
		t.Fatalf("unload: %v", err)
	}
	info, err := rt.ModelInfo(id)
	if err != nil {
		t.Fatalf("info after drain: %v", err)
	}
	if info.State != types.ModelStateUnloaded || info.InFlight != 0 {
		t.Fatalf("handle after drain = %+v, want unloaded and idle", info)
	}
}

// TestE2E_QueueBackpressure verifies a full queue rejects exactly the
// overflow request and capacity is restored afterwards.
func TestE2E_QueueBackpressure(t *testing.T) {
	dir, names := createTempModelsDir(t, "m.gguf")
	sim := engine.NewSim()
	sim.TokenDelay = 20 * time.Millisecond
	rt := newCore(t, dir, sim, func(cfg *config.Config) {
		cfg.MaxQueueDepth = 2
	})
	id := loadModel(t, rt, names[0])
	sess := authSession(t, rt)

	const prompt = "one two three four five six seven eight nine ten"
	errs := make([]error, 3)
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = rt.Infer(context.Background(), sess, id, prompt, types.InferenceParams{})
		}()
	}
	wg.Wait()

	rejected, succeeded := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, types.ErrQueueFull):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if rejected != 1 || succeeded != 2 {
		t.Fatalf("rejected=%d succeeded=%d, want 1 and 2", rejected, succeeded)
	}
	if got := counter(t, rt, "hearthcore_inference_queue_rejections_total"); got != 1 {
		t.Fatalf("rejection counter = %d, want 1", got)
	}
	// workers release their slots moments after callers return
	waitFor(t, 2*time.Second, "queue to drain", func() bool {
		return gauge(t, rt, "hearthcore_inference_queue_depth") == 0
	})
}

// TestE2E_TimeoutRestoresCapacity verifies a timed-out request returns
// promptly and its queue slot and model pin come back.
func TestE2E_TimeoutRestoresCapacity(t *testing.T) {
	dir, names := createTempModelsDir(t, "m.gguf")
	sim := engine.NewSim()
	sim.TokenDelay = 50 * time.Millisecond
	rt := newCore(t, dir, sim, func(cfg *config.Config) {
		cfg.MaxQueueDepth = 1
	})
	id := loadModel(t, rt, names[0])
	sess := authSession(t, rt)

	const prompt = "one two three four five six seven eight nine ten"
	start := time.Now()
	_, err := rt.Infer(context.Background(), sess, id, prompt, types.InferenceParams{TimeoutMillis: 80})
	if !errors.Is(err, types.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Fatalf("timed-out request returned after %v", elapsed)
	}
	if got := counter(t, rt, "hearthcore_inference_timeouts_total"); got != 1 {
		t.Fatalf("timeout counter = %d, want 1", got)
	}

	// the worker still held the pin and slot briefly; both must come back
	waitFor(t, 2*time.Second, "model pin and slot release", func() bool {
		info, err := rt.ModelInfo(id)
		return err == nil && info.InFlight == 0 && gauge(t, rt, "hearthcore_inference_queue_depth") == 0
	})

	// with depth 1, this only admits if the slot was restored
	res, err := rt.Infer(context.Background(), sess, id, "quick check", types.InferenceParams{})
	if err != nil {
		t.Fatalf("infer after timeout: %v", err)
	}
	if !res.Finished {
		t.Fatalf("result not finished: %+v", res)
	}
}

// TestE2E_StreamingCancel verifies that declining a chunk stops the stream
// after exactly one final notification.
func TestE2E_StreamingCancel(t *testing.T) {
	dir, names := createTempModelsDir(t, "m.gguf")
	sim := engine.NewSim()
	sim.TokenDelay = 10 * time.Millisecond
	rt := newCore(t, dir, sim, nil)
	id := loadModel(t, rt, names[0])
	sess := authSession(t, rt)

	var texts []string
	finals := 0
	var finalErr error
	err := rt.InferStreaming(context.Background(), sess, id, "one two three four five six", types.InferenceParams{}, func(c types.StreamChunk) bool {
		if c.Final {
			finals++
			finalErr = c.Err
			return true
		}
		texts = append(texts, c.Text)
		return false
	})
	if !errors.Is(err, types.ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if len(texts) != 1 {
		t.Fatalf("text chunks = %v, want exactly one", texts)
	}
	if finals != 1 {
		t.Fatalf("final chunks = %d, want 1", finals)
	}
	if !errors.Is(finalErr, types.ErrCancelled) {
		t.Fatalf("final chunk err = %v, want ErrCancelled", finalErr)
	}
	if got := counter(t, rt, "hearthcore_inference_stream_cancellations_total"); got != 1 {
		t.Fatalf("cancellation counter = %d, want 1", got)
	}
}

// TestE2E_StreamingDeliversAll verifies an undisturbed stream yields every
// token in order plus one clean final chunk.
func TestE2E_StreamingDeliversAll(t *testing.T) {
	dir, names := createTempModelsDir(t, "m.gguf")
	rt := newCore(t, dir, nil, nil)
	id := loadModel(t, rt, names[0])
	sess := authSession(t, rt)

	var got strings.Builder
	finals := 0
	err := rt.InferStreaming(context.Background(), sess, id, "alpha beta gamma", types.InferenceParams{}, func(c types.StreamChunk) bool {
		if c.Final {
			finals++
			if c.Err != nil {
				t.Errorf("final chunk err = %v", c.Err)
			}
			return true
		}
		got.WriteString(c.Text)
		return true
	})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if got.String() != "alpha beta gamma" {
		t.Fatalf("streamed output = %q", got.String())
	}
	if finals != 1 {
		t.Fatalf("final chunks = %d, want 1", finals)
	}
}

// TestE2E_ContextBudget verifies oversized prompts are rejected before
// admission.
func TestE2E_ContextBudget(t *testing.T) {
	dir, names := createTempModelsDir(t, "m.gguf")
	rt := newCore(t, dir, nil, func(cfg *config.Config) {
		cfg.MaxTextBytes = 64
		cfg.MaxContextTokens = 8
	})
	id := loadModel(t, rt, names[0])
	sess := authSession(t, rt)
	ctx := context.Background()

	tooLong := strings.Repeat("x", 65)
	if _, err := rt.Infer(ctx, sess, id, tooLong, types.InferenceParams{}); !errors.Is(err, types.ErrContextExceeded) {
		t.Fatalf("oversized prompt err = %v, want ErrContextExceeded", err)
	}

	// 40 bytes estimates to 10 tokens, over the 8-token window
	tooMany := strings.Repeat("abcd", 10)
	if _, err := rt.Infer(ctx, sess, id, tooMany, types.InferenceParams{}); !errors.Is(err, types.ErrContextExceeded) {
		t.Fatalf("over-budget prompt err = %v, want ErrContextExceeded", err)
	}

	if got := counter(t, rt, "hearthcore_inference_requests_total"); got != 0 {
		t.Fatalf("request counter = %d, want 0 for rejected admissions", got)
	}
}

// TestE2E_ShutdownDrains verifies shutdown refuses new work while letting
// admitted requests finish.
func TestE2E_ShutdownDrains(t *testing.T) {
	dir, names := createTempModelsDir(t, "m.gguf")
	sim := engine.NewSim()
	sim.TokenDelay = 20 * time.Millisecond
	rt := newCore(t, dir, sim, nil)
	id := loadModel(t, rt, names[0])
	sess := authSession(t, rt)

	const prompt = "one two three four five six seven eight nine ten"
	type outcome struct {
		res types.InferenceResult
		err error
	}
	resC := make(chan outcome, 1)
	go func() {
		res, err := rt.Infer(context.Background(), sess, id, prompt, types.InferenceParams{})
		resC <- outcome{res, err}
	}()
	waitFor(t, 2*time.Second, "request in flight", func() bool {
		info, err := rt.ModelInfo(id)
		return err == nil && info.InFlight == 1
	})

	closeDone := make(chan error, 1)
	go func() { closeDone <- rt.Close() }()

	waitFor(t, 2*time.Second, "liveness to drop", func() bool { return !rt.Alive() })
	if _, err := rt.Authenticate(testToken); !errors.Is(err, types.ErrShuttingDown) {
		t.Fatalf("authenticate during shutdown: %v, want ErrShuttingDown", err)
	}

	out := <-resC
	if out.err != nil {
		t.Fatalf("admitted request failed during shutdown: %v", out.err)
	}
	if !out.res.Finished {
		t.Fatalf("admitted request truncated: %+v", out.res)
	}
	if err := <-closeDone; err != nil {
		t.Fatalf("close: %v", err)
	}
	if rt.Ready() {
		t.Fatalf("runtime still ready after close")
	}
	if _, err := rt.Infer(context.Background(), sess, id, "late", types.InferenceParams{}); !errors.Is(err, types.ErrShuttingDown) {
		t.Fatalf("infer after close: %v, want ErrShuttingDown", err)
	}
}
