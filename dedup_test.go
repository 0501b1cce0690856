package main

import (
	"fmt"
	"testing"
)

func TestDedupAcceptsNewRejectsSeen(t *testing.T) {
	d := newDedup(10)

	if !d.shouldAccept("dr5reg", "id1") {
		t.Error("first delivery rejected")
	}
	if d.shouldAccept("dr5reg", "id1") {
		t.Error("duplicate delivery accepted")
	}
	if !d.shouldAccept("dr5reg", "id2") {
		t.Error("distinct id rejected")
	}
}

func TestDedupChannelsIndependent(t *testing.T) {
	d := newDedup(10)

	if !d.shouldAccept("dr5reg", "id1") {
		t.Error("first channel rejected id")
	}
	if !d.shouldAccept("u33db", "id1") {
		t.Error("same id in a different channel rejected")
	}
}

func TestDedupFIFOEviction(t *testing.T) {
	d := newDedup(3)

	for i := 0; i < 3; i++ {
		d.shouldAccept("ch", fmt.Sprintf("id%d", i))
	}

	// id3 evicts id0, the oldest.
	if !d.shouldAccept("ch", "id3") {
		t.Error("insert at capacity rejected")
	}
	if !d.shouldAccept("ch", "id0") {
		t.Error("evicted id should be treated as new again")
	}
	// id1 was evicted by re-adding id0.
	if d.shouldAccept("ch", "id3") {
		t.Error("id3 still in window but was accepted again")
	}
}

func TestDedupAtCapacityBoundary(t *testing.T) {
	d := newDedup(2)

	d.shouldAccept("ch", "a")
	d.shouldAccept("ch", "b")

	if d.shouldAccept("ch", "a") {
		t.Error("a still within window, should reject")
	}
	if d.shouldAccept("ch", "b") {
		t.Error("b still within window, should reject")
	}

	d.shouldAccept("ch", "c") // evicts a
	if d.shouldAccept("ch", "b") {
		t.Error("b still within window after one eviction")
	}
	if !d.shouldAccept("ch", "a") {
		t.Error("a was evicted, late redelivery should be accepted")
	}
}

func TestDedupRejectLeavesStateUnchanged(t *testing.T) {
	d := newDedup(2)

	d.shouldAccept("ch", "a")
	d.shouldAccept("ch", "b")

	// Rejected duplicates must not evict anything.
	for i := 0; i < 5; i++ {
		d.shouldAccept("ch", "a")
		d.shouldAccept("ch", "b")
	}
	if d.shouldAccept("ch", "a") || d.shouldAccept("ch", "b") {
		t.Error("duplicates mutated the window")
	}
}
