// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ir

import "testing"

func TestNamerSuffixes(t *testing.T) {
	n := NewNamer()
	want := []string{"foo", "foo_2", "foo_3"}
	for i, w := range want {
		if got := n.Next("foo"); got != w {
			t.Errorf("request %d: got %q, want %q", i, got, w)
		}
	}
}

func TestNamerNeverReuses(t *testing.T) {
	n := NewNamer()
	if !n.Reserve("foo_2") {
		t.Fatal("Reserve failed on fresh namer")
	}
	got := []string{n.Next("foo"), n.Next("foo"), n.Next("foo")}
	want := []string{"foo", "foo_3", "foo_4"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("name %d = %q, want %q", i, got[i], want[i])
		}
	}
	if n.Reserve("foo") {
		t.Error("Reserve of an allocated name succeeded")
	}
}

func TestNamerSanitize(t *testing.T) {
	n := NewNamer()
	tests := map[string]string{
		"":         "v",
		"2d":       "v2d",
		"my light": "my_light",
	}
	for in, want := range tests {
		if got := n.Next(in); got != want {
			t.Errorf("Next(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNamerClone(t *testing.T) {
	n := NewNamer()
	n.Next("t")
	c := n.Clone()
	if got := c.Next("t"); got != "t_2" {
		t.Errorf("clone Next = %q, want t_2", got)
	}
	if n.Used("t_2") {
		t.Error("clone allocation leaked into original")
	}
}
