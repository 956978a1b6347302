// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package decompile

import "fmt"

// namer generates unique identifiers for WGSL output. One namer covers the
// whole module, so locals never shadow globals or builtins.
type namer struct {
	usedNames map[string]struct{}
}

func newNamer() *namer {
	return &namer{usedNames: make(map[string]struct{})}
}

// call returns a unique identifier derived from base.
func (n *namer) call(base string) string {
	escaped := identifier(base)
	if !n.isUsed(escaped) {
		n.usedNames[escaped] = struct{}{}
		return escaped
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d", escaped, i)
		if !n.isUsed(candidate) {
			n.usedNames[candidate] = struct{}{}
			return candidate
		}
	}
}

func (n *namer) isUsed(name string) bool {
	_, used := n.usedNames[name]
	return used
}
