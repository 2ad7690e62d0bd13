package engine

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/MythologIQ/Hearthlink-CORE/pkg/types"
)

// Sim is a simulated engine for tests and for running the server without
// a real model runtime. Generation echoes the prompt back word by word.
type Sim struct {
	// TokenDelay is the pause between tokens to simulate inference time.
	TokenDelay time.Duration
	// FailLoad makes every Load attempt fail.
	FailLoad bool
	// FailGenerate makes every generation attempt fail.
	FailGenerate bool
}

func NewSim() *Sim {
	return &Sim{TokenDelay: time.Millisecond}
}

func (s *Sim) Load(ctx context.Context, r io.Reader) (Model, error) {
	if s.FailLoad {
		return nil, fmt.Errorf("simulated load failure")
	}
	// Consume the weights so callers exercise the full read path.
	if _, err := io.Copy(io.Discard, r); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &simModel{eng: s}, nil
}

func (s *Sim) Unload(m Model) error {
	sm, ok := m.(*simModel)
	if !ok {
		return fmt.Errorf("foreign model handle %T", m)
	}
	sm.closed.Store(true)
	return nil
}

type simModel struct {
	eng    *Sim
	closed atomic.Bool
}

func (m *simModel) Generate(ctx context.Context, prompt string, params types.InferenceParams) (types.InferenceResult, error) {
	total := len(echoTokens(prompt))
	var out strings.Builder
	emitted := 0
	err := m.GenerateStream(ctx, prompt, params, func(token string) error {
		out.WriteString(token)
		emitted++
		return nil
	})
	if err != nil {
		return types.InferenceResult{}, err
	}
	return types.InferenceResult{
		Output:          out.String(),
		TokensGenerated: emitted,
		// Finished is false when MaxTokens truncated the echo.
		Finished: emitted == total,
	}, nil
}

func (m *simModel) GenerateStream(ctx context.Context, prompt string, params types.InferenceParams, emit func(token string) error) error {
	if m.closed.Load() {
		return fmt.Errorf("model is unloaded")
	}
	if m.eng.FailGenerate {
		return fmt.Errorf("simulated generation failure")
	}
	params = params.WithDefaults()
	for i, tok := range echoTokens(prompt) {
		if i >= params.MaxTokens {
			return nil
		}
		if d := m.eng.TokenDelay; d > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d):
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		if err := emit(tok); err != nil {
			return err
		}
	}
	return nil
}

// echoTokens splits a prompt into the deterministic token stream the sim
// produces, one word per token with its trailing space preserved.
func echoTokens(prompt string) []string {
	words := strings.Fields(prompt)
	toks := make([]string, len(words))
	for i, w := range words {
		if i < len(words)-1 {
			toks[i] = w + " "
		} else {
			toks[i] = w
		}
	}
	return toks
}
