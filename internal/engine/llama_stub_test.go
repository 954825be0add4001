//go:build !llama

package engine

import "testing"

func TestLlamaUnsupportedInDefaultBuild(t *testing.T) {
	if LlamaSupported() {
		t.Fatalf("default build reports llama support")
	}
	// A llama model declared in config must fail at construction, not on
	// first warmup.
	if _, err := New(Spec{Kind: "llama", ModelPath: "/models/m.gguf"}); err == nil {
		t.Fatalf("stub NewLlama accepted a model")
	}
}
