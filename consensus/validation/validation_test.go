// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package validation

import "testing"

func TestZeroValueIsValid(t *testing.T) {
	var state TxState
	if !state.IsValid() || state.IsInvalid() || state.IsError() {
		t.Fatalf("zero-value state should be Valid only")
	}
}

func TestSetInvalidReturnsFalseAndSetsFields(t *testing.T) {
	var state TxState
	if state.SetInvalid(TxMissingInputs, "bad-txns-inputs-missingorspent", "parent not found") {
		t.Fatalf("SetInvalid must return false")
	}
	if !state.IsInvalid() || state.IsValid() || state.IsError() {
		t.Fatalf("expected mode Invalid")
	}
	if state.Result() != TxMissingInputs {
		t.Fatalf("Result() = %v, want TxMissingInputs", state.Result())
	}
	if state.RejectReason() != "bad-txns-inputs-missingorspent" {
		t.Fatalf("unexpected reject reason %q", state.RejectReason())
	}
}

func TestSetErrorIsStickyOverInvalid(t *testing.T) {
	var state BlockState
	state.SetInvalid(BlockConsensus, "bad-cb-amount", "")
	state.SetError("internal error")

	if !state.IsError() || state.IsInvalid() || state.IsValid() {
		t.Fatalf("expected mode Error after SetError")
	}

	// Once errored, SetInvalid must not downgrade back to Invalid.
	state.SetInvalid(BlockWeight, "bad-blk-weight", "")
	if !state.IsError() {
		t.Fatalf("SetInvalid after SetError must not clear the error mode")
	}
}

func TestSetErrorPreservesReasonIfAlreadySet(t *testing.T) {
	var state BlockState
	state.SetInvalid(BlockTransactions, "first-reason", "")
	state.SetError("second-reason")
	if state.RejectReason() != "first-reason" {
		t.Fatalf("SetError must not overwrite an existing reject reason, got %q", state.RejectReason())
	}
}

func TestMutualExclusion(t *testing.T) {
	var state TxState
	modes := func() int {
		n := 0
		if state.IsValid() {
			n++
		}
		if state.IsInvalid() {
			n++
		}
		if state.IsError() {
			n++
		}
		return n
	}
	if modes() != 1 {
		t.Fatalf("expected exactly one mode true initially")
	}
	state.SetInvalid(TxConflict, "conflict", "")
	if modes() != 1 {
		t.Fatalf("expected exactly one mode true after SetInvalid")
	}
	state.SetError("err")
	if modes() != 1 {
		t.Fatalf("expected exactly one mode true after SetError")
	}
}

func TestStringRendersDebugMessage(t *testing.T) {
	var state TxState
	state.SetInvalid(TxNotStandard, "scriptpubkey", "non-standard output type")
	if got, want := state.String(), "scriptpubkey, non-standard output type"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
