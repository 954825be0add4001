//go:build tools

package main

// Pins the swagger generator used by `swag init -g cmd/inferd/docs.go`.
import (
	_ "github.com/swaggo/swag"
)
