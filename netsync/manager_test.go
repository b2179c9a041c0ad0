// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"strings"
	"testing"
	"time"

	"github.com/oneepicnight/vision-node/peer"
	"github.com/oneepicnight/vision-node/util/chainhash"
)

func newTestSyncState() *peerSyncState {
	return &peerSyncState{
		peer:      &peer.Peer{},
		window:    initialDownloadWindow,
		rttEWMA:   initialRTT,
		requested: make(map[chainhash.Hash]struct{}),
	}
}

func TestWindowGrowsOnFastRoundTrips(t *testing.T) {
	state := newTestSyncState()

	// A single fast round trip grows the window by exactly two.
	state.observeRTT(50 * time.Millisecond)
	if state.window != initialDownloadWindow+2 {
		t.Fatalf("window after one fast round trip = %d, want %d",
			state.window, initialDownloadWindow+2)
	}

	// Sustained fast round trips converge on the maximum window.
	for i := 0; i < 50; i++ {
		state.observeRTT(10 * time.Millisecond)
	}
	if state.window != maxDownloadWindow {
		t.Fatalf("window after sustained fast round trips = %d, want %d",
			state.window, maxDownloadWindow)
	}
}

func TestWindowShrinksOnSlowRoundTrips(t *testing.T) {
	state := newTestSyncState()
	state.window = maxDownloadWindow

	// Slow round trips walk the window down one step at a time until it
	// hits the floor, never below it.
	for i := 0; i < 100; i++ {
		before := state.window
		state.observeRTT(time.Second)
		if state.window < before-1 {
			t.Fatalf("window shrank from %d to %d in one step", before,
				state.window)
		}
	}
	if state.window != minDownloadWindow {
		t.Fatalf("window after sustained slow round trips = %d, want %d",
			state.window, minDownloadWindow)
	}
}

func TestRequestTimeoutFloor(t *testing.T) {
	state := newTestSyncState()

	// Fast links still get the floor timeout.
	state.rttEWMA = 100 * time.Millisecond
	if got := state.requestTimeout(); got != minRequestTimeout {
		t.Fatalf("timeout on a fast link = %s, want the %s floor", got,
			minRequestTimeout)
	}

	// Slow links get three round trips.
	state.rttEWMA = 2 * time.Second
	if got := state.requestTimeout(); got != 6*time.Second {
		t.Fatalf("timeout on a slow link = %s, want 6s", got)
	}
}

func TestRegisterFailureHalvesWindowAndPauses(t *testing.T) {
	state := newTestSyncState()
	state.window = 16

	state.registerFailure()
	if state.window != 8 {
		t.Fatalf("window after one failure = %d, want 8", state.window)
	}
	if state.paused() {
		t.Fatal("peer paused after a single failure")
	}

	state.registerFailure()
	if state.window != minDownloadWindow {
		t.Fatalf("window after two failures = %d, want the %d floor",
			state.window, minDownloadWindow)
	}

	// The third consecutive failure triggers the pause.
	state.registerFailure()
	if !state.paused() {
		t.Fatal("peer not paused after three consecutive failures")
	}
	remaining := time.Until(state.pausedUntil)
	if remaining <= 0 || remaining > peerPauseDuration {
		t.Fatalf("pause expires in %s, want at most %s", remaining,
			peerPauseDuration)
	}
}

func TestQuorumRequiresMinimumPeers(t *testing.T) {
	var q quorumState
	q.init(2, 5*time.Minute)

	q.peerConnected("a", 0)
	allowed, reason := q.miningAllowed(0)
	if allowed {
		t.Fatal("mining allowed below the peer quorum")
	}
	if !strings.Contains(reason, "waiting") {
		t.Fatalf("reason %q does not explain the missing quorum", reason)
	}

	q.peerConnected("b", 0)
	if allowed, _ := q.miningAllowed(0); !allowed {
		t.Fatal("mining blocked with the peer quorum met")
	}
}

func TestQuorumHeightTolerance(t *testing.T) {
	var q quorumState
	q.init(2, 5*time.Minute)
	q.peerConnected("a", 10)
	q.peerConnected("b", 10)

	tests := []struct {
		localHeight uint64
		allowed     bool
	}{
		{localHeight: 12, allowed: true},
		{localHeight: 10, allowed: true},
		{localHeight: 9, allowed: true},
		{localHeight: 8, allowed: true},
		{localHeight: 7, allowed: false},
		{localHeight: 0, allowed: false},
	}
	for _, test := range tests {
		allowed, reason := q.miningAllowed(test.localHeight)
		if allowed != test.allowed {
			t.Errorf("miningAllowed(%d) = %v (%q), want %v",
				test.localHeight, allowed, reason, test.allowed)
		}
	}
}

func TestQuorumRequiresPeersNearLocalHeight(t *testing.T) {
	var q quorumState
	q.init(2, 5*time.Minute)

	// Enough peers are connected, but every one of them is far below the
	// local tip: exactly the private-fork view the gate exists to catch.
	q.peerConnected("a", 50)
	q.peerConnected("b", 50)
	allowed, reason := q.miningAllowed(100)
	if allowed {
		t.Fatal("mining allowed although no peer is near the local height")
	}
	if reason == "" {
		t.Fatal("blocked mining carries no reason")
	}

	// Once the peers report heights within tolerance the quorum forms.
	// A straggler far behind neither helps nor hurts.
	q.updatePeerHeight("a", 99)
	q.updatePeerHeight("b", 101)
	q.peerConnected("straggler", 10)
	if allowed, reason := q.miningAllowed(100); !allowed {
		t.Fatalf("mining blocked with two agreeing peers: %q", reason)
	}
}

func TestQuorumIsolationFallback(t *testing.T) {
	var q quorumState
	q.init(2, 5*time.Minute)

	if allowed, _ := q.miningAllowed(0); allowed {
		t.Fatal("mining allowed before the isolation timeout elapsed")
	}

	// Once no quorum has been seen for the full isolation timeout the node
	// is treated as intentionally isolated and may mine.
	q.lastQuorumAt = time.Now().Add(-6 * time.Minute)
	allowed, reason := q.miningAllowed(0)
	if !allowed {
		t.Fatalf("isolated node blocked from mining: %q", reason)
	}
	if reason != "" {
		t.Fatalf("allowed mining carries reason %q, want empty", reason)
	}

	// An agreeing quorum resets the isolation clock; losing it afterwards
	// blocks mining again.
	q.peerConnected("a", 0)
	q.peerConnected("b", 0)
	if allowed, _ := q.miningAllowed(0); !allowed {
		t.Fatal("mining blocked with an agreeing quorum")
	}
	q.peerDisconnected("b")
	if allowed, _ := q.miningAllowed(0); allowed {
		t.Fatal("isolation clock did not reset after the quorum returned")
	}
}
