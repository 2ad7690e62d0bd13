package dispatch

import (
	"context"

	"github.com/MythologIQ/Hearthlink-CORE/pkg/types"
)

// streamBuffer bounds the producer/consumer chunk channel so a slow
// consumer applies backpressure to the engine instead of buffering
// unboundedly.
const streamBuffer = 32

// InferStreaming admits one request and delivers generated chunks to fn
// on the calling goroutine, in order. Once admission succeeds, fn is
// called exactly once with Final=true carrying the terminal error (nil
// on success) and the function returns that same error. Admission
// failures are returned without fn ever being called. fn returning
// false cancels generation.
func (d *Dispatcher) InferStreaming(ctx context.Context, sess string, modelID uint64, prompt string, params types.InferenceParams, fn types.StreamFunc) error {
	req, err := d.admit(sess, modelID, prompt, params)
	if err != nil {
		return err
	}
	defer req.releaseSess()

	cctx, cancel := context.WithTimeout(ctx, d.effectiveTimeout(req.params.Timeout()))
	defer cancel()
	reqID := d.track(cancel)

	chunks := make(chan string, streamBuffer)
	errC := make(chan error, 1)

	// Producer: runs the engine and forwards tokens. The select keeps
	// a blocked send from outliving a consumer that stopped reading.
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.untrack(reqID)
		defer d.releaseSlot()
		defer req.releaseModel()
		defer close(chunks)
		errC <- req.model.GenerateStream(cctx, prompt, req.params, func(token string) error {
			select {
			case chunks <- token:
				return nil
			case <-cctx.Done():
				return cctx.Err()
			}
		})
	}()

	finish := func(err error) error {
		fn(types.StreamChunk{Final: true, Err: err})
		return err
	}

	for {
		select {
		case tok, ok := <-chunks:
			if !ok {
				// Producer finished; errC was filled before the
				// channel closed.
				if err := <-errC; err != nil {
					return finish(d.mapErr(err))
				}
				return finish(nil)
			}
			// Revocation or expiry must stop a stream mid-flight.
			if err := d.sessions.Validate(sess); err != nil {
				cancel()
				return finish(err)
			}
			if !fn(types.StreamChunk{Text: tok}) {
				d.met.StreamCancellations.Inc()
				cancel()
				return finish(types.ErrCancelled)
			}
		case <-cctx.Done():
			return finish(d.mapErr(cctx.Err()))
		}
	}
}
