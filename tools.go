//go:build tools
// +build tools

// Package tools tracks tool dependencies invoked via go generate (mockgen)
// so they stay pinned in go.mod.
package roomchat

import (
	_ "go.uber.org/mock/mockgen"
)
