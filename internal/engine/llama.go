//go:build llama

package engine

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"
)

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = true

// Llama wraps an in-process llama.cpp model behind the Engine contract.
type Llama struct {
	path    string
	ctxSize int
	threads int

	mu    sync.Mutex
	model *llama.LLama
}

func NewLlama(modelPath string, ctxSize, threads int) (Engine, error) {
	if strings.TrimSpace(modelPath) == "" {
		return nil, errors.New("llama model path is empty")
	}
	if ctxSize <= 0 {
		ctxSize = 2048
	}
	if threads <= 0 {
		threads = 4
	}
	return &Llama{path: modelPath, ctxSize: ctxSize, threads: threads}, nil
}

func (l *Llama) Load(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.model != nil {
		return nil
	}
	m, err := llama.New(l.path, llama.SetContext(l.ctxSize))
	if err != nil {
		return err
	}
	l.model = m
	return nil
}

// llamaRequest is the payload shape accepted by the llama engine.
type llamaRequest struct {
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
	TopP        float64  `json:"top_p,omitempty"`
	TopK        int      `json:"top_k,omitempty"`
	Stop        []string `json:"stop,omitempty"`
	Seed        int      `json:"seed,omitempty"`
}

type llamaResult struct {
	Text string `json:"text"`
}

func (l *Llama) Infer(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
	l.mu.Lock()
	model := l.model
	l.mu.Unlock()
	if model == nil {
		return nil, errors.New("llama model not loaded")
	}
	var req llamaRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, errors.New("prompt is required")
	}

	// Stop generation promptly on cancellation.
	model.SetTokenCallback(func(string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	})

	po := []llama.PredictOption{llama.SetThreads(l.threads)}
	if req.MaxTokens > 0 {
		po = append(po, llama.SetTokens(req.MaxTokens))
	}
	if req.Temperature > 0 {
		po = append(po, llama.SetTemperature(req.Temperature))
	}
	if req.TopP > 0 {
		po = append(po, llama.SetTopP(req.TopP))
	}
	if req.TopK > 0 {
		po = append(po, llama.SetTopK(req.TopK))
	}
	if req.Seed != 0 {
		po = append(po, llama.SetSeed(req.Seed))
	}
	if len(req.Stop) > 0 {
		po = append(po, llama.SetStopWords(req.Stop...))
	}

	text, err := model.Predict(req.Prompt, po...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return json.Marshal(llamaResult{Text: text})
}
