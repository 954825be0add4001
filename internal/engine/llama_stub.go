//go:build !llama

package engine

import "errors"

// llamaBuilt indicates this binary was compiled without real llama support.
var llamaBuilt = false

// NewLlama fails when the binary was built without the llama tag, so a
// misconfigured model surfaces at startup rather than on first warmup.
func NewLlama(modelPath string, ctxSize, threads int) (Engine, error) {
	return nil, errors.New("llama engine requested but binary was built without -tags=llama")
}
