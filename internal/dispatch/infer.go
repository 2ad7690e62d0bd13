package dispatch

import (
	"context"
	"time"

	"github.com/MythologIQ/Hearthlink-CORE/pkg/types"
)

// Infer admits and runs one blocking inference request. The effective
// deadline is the request's own timeout capped by the configured
// default; an unset timeout means the default.
func (d *Dispatcher) Infer(ctx context.Context, sess string, modelID uint64, prompt string, params types.InferenceParams) (types.InferenceResult, error) {
	return d.run(ctx, sess, modelID, prompt, params, d.effectiveTimeout(params.Timeout()))
}

// InferWithTimeout is Infer with an explicit deadline that may exceed
// the configured default. Zero or below falls back to the default.
func (d *Dispatcher) InferWithTimeout(ctx context.Context, sess string, modelID uint64, prompt string, params types.InferenceParams, timeout time.Duration) (types.InferenceResult, error) {
	if timeout <= 0 {
		timeout = d.cfg.DefaultTimeout
	}
	return d.run(ctx, sess, modelID, prompt, params, timeout)
}

func (d *Dispatcher) run(ctx context.Context, sess string, modelID uint64, prompt string, params types.InferenceParams, timeout time.Duration) (types.InferenceResult, error) {
	req, err := d.admit(sess, modelID, prompt, params)
	if err != nil {
		return types.InferenceResult{}, err
	}
	defer req.releaseSess()

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	reqID := d.track(cancel)

	type outcome struct {
		res types.InferenceResult
		err error
	}
	resC := make(chan outcome, 1)

	// The worker owns the model pin and the queue slot: a caller that
	// gives up on a stuck engine call must not free resources the call
	// is still using. The buffered channel lets an abandoned worker
	// finish without a reader.
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.untrack(reqID)
		defer d.releaseSlot()
		defer req.releaseModel()
		res, err := req.model.Generate(cctx, prompt, req.params)
		resC <- outcome{res, err}
	}()

	select {
	case out := <-resC:
		if out.err != nil {
			return types.InferenceResult{}, d.mapErr(out.err)
		}
		return out.res, nil
	case <-cctx.Done():
		return types.InferenceResult{}, d.mapErr(cctx.Err())
	}
}
