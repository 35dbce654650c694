// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ir

import (
	"strconv"
	"strings"
)

// Namer allocates collision-free identifiers.
//
// The first request for a base name returns the base itself, later requests
// return base_2, base_3 and so on. A name is never handed out twice.
type Namer struct {
	used  map[string]struct{}
	next  map[string]int
	order []string
}

// NewNamer creates an empty namer.
func NewNamer() *Namer {
	return &Namer{
		used: make(map[string]struct{}),
		next: make(map[string]int),
	}
}

// Next returns a unique name derived from base.
func (n *Namer) Next(base string) string {
	base = sanitizeName(base)
	name := base
	if _, taken := n.used[name]; taken {
		i := n.next[base]
		if i < 2 {
			i = 2
		}
		for {
			name = base + "_" + strconv.Itoa(i)
			i++
			if _, taken := n.used[name]; !taken {
				break
			}
		}
		n.next[base] = i
	}
	n.used[name] = struct{}{}
	n.order = append(n.order, name)
	return name
}

// Reserve marks name as used. It returns false if the name was already taken.
func (n *Namer) Reserve(name string) bool {
	if _, taken := n.used[name]; taken {
		return false
	}
	n.used[name] = struct{}{}
	n.order = append(n.order, name)
	return true
}

// Used reports whether name was allocated or reserved.
func (n *Namer) Used(name string) bool {
	_, ok := n.used[name]
	return ok
}

// Names returns every allocated name in allocation order.
func (n *Namer) Names() []string {
	return append([]string(nil), n.order...)
}

// Clone returns an independent copy, used to allocate generator temporaries
// without touching a finalized program.
func (n *Namer) Clone() *Namer {
	c := &Namer{
		used:  make(map[string]struct{}, len(n.used)),
		next:  make(map[string]int, len(n.next)),
		order: append([]string(nil), n.order...),
	}
	for k := range n.used {
		c.used[k] = struct{}{}
	}
	for k, v := range n.next {
		c.next[k] = v
	}
	return c
}

// sanitizeName keeps identifier characters and guarantees a non-empty name
// that does not start with a digit.
func sanitizeName(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	out := sb.String()
	if out == "" {
		return "v"
	}
	if out[0] >= '0' && out[0] <= '9' {
		return "v" + out
	}
	return out
}
