package types

// ModelState is the lifecycle state of a model handle.
type ModelState string

const (
	ModelStateLoading   ModelState = "loading"
	ModelStateReady     ModelState = "ready"
	ModelStateUnloading ModelState = "unloading"
	ModelStateUnloaded  ModelState = "unloaded"
)

// ModelInfo is a point-in-time view of one model handle.
type ModelInfo struct {
	// Handle ID, unique for the runtime's lifetime and never reused.
	HandleID uint64 `json:"handle_id"`
	// Human-readable name (file stem of the source path).
	Name string `json:"name"`
	// Source path the model was loaded from.
	Path string `json:"path"`
	// Size of the model file in bytes.
	SizeBytes int64 `json:"size_bytes"`
	// Current lifecycle state.
	State ModelState `json:"state"`
	// Number of in-flight inferences holding this handle.
	InFlight int `json:"in_flight"`
}
