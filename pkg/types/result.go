package types

// InferenceResult is the outcome of one blocking inference call.
type InferenceResult struct {
	// Generated text.
	Output string `json:"output"`
	// Number of tokens generated.
	TokensGenerated int `json:"tokens_generated"`
	// Whether generation ran to a natural stop. False means the output was
	// truncated by max_tokens or by cancellation; that is not an error.
	Finished bool `json:"finished"`
}

// StreamChunk is one delivery to a streaming callback. Every stream ends
// with exactly one chunk carrying Final=true; Err is set on that final
// chunk when the stream failed or was cancelled instead of completing.
type StreamChunk struct {
	Text  string `json:"text,omitempty"`
	Final bool   `json:"final,omitempty"`
	Err   error  `json:"-"`
}

// StreamFunc receives stream chunks in order on the calling goroutine.
// Returning false cancels the stream; no further text chunks are delivered
// after that, only the final notification.
type StreamFunc func(StreamChunk) bool
