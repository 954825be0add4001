package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Echo is a development engine that simulates load/infer latency and echoes
// the request payload back. Useful for driving the full job lifecycle on a
// machine without a GPU.
type Echo struct {
	loadDelay  time.Duration
	inferDelay time.Duration
}

// NewEcho parses the optional delay strings (time.ParseDuration syntax).
func NewEcho(loadDelay, inferDelay string) (*Echo, error) {
	e := &Echo{}
	var err error
	if loadDelay != "" {
		if e.loadDelay, err = time.ParseDuration(loadDelay); err != nil {
			return nil, fmt.Errorf("echo load_delay: %w", err)
		}
	}
	if inferDelay != "" {
		if e.inferDelay, err = time.ParseDuration(inferDelay); err != nil {
			return nil, fmt.Errorf("echo infer_delay: %w", err)
		}
	}
	return e, nil
}

func (e *Echo) Load(ctx context.Context) error {
	return sleepCtx(ctx, e.loadDelay)
}

func (e *Echo) Infer(ctx context.Context, req json.RawMessage) (json.RawMessage, error) {
	if err := sleepCtx(ctx, e.inferDelay); err != nil {
		return nil, err
	}
	if len(req) == 0 {
		req = json.RawMessage("null")
	}
	return json.RawMessage(fmt.Sprintf(`{"echo":%s}`, req)), nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
