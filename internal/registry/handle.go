package registry

import (
	"github.com/MythologIQ/Hearthlink-CORE/internal/engine"
	"github.com/MythologIQ/Hearthlink-CORE/pkg/types"
)

// handle is one loaded model instance. All fields after construction
// are guarded by the Registry lock. Legal state transitions:
// loading→ready, ready→unloading, unloading→unloaded; a failed load
// removes the entry instead.
type handle struct {
	id        uint64
	name      string
	path      string
	sizeBytes int64

	state    types.ModelState
	model    engine.Model
	inFlight int
	// done is created when unloading begins and closed by whichever
	// release takes inFlight to zero.
	done chan struct{}
}

func (h *handle) info() types.ModelInfo {
	return types.ModelInfo{
		HandleID:  h.id,
		Name:      h.name,
		Path:      h.path,
		SizeBytes: h.sizeBytes,
		State:     h.state,
		InFlight:  h.inFlight,
	}
}
