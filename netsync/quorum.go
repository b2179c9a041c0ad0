// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"fmt"
	"sync"
	"time"
)

// heightQuorumTolerance is how many blocks a peer's claimed height may
// differ from the local tip while still counting toward the mining
// quorum. It absorbs propagation delay around fresh tips.
const heightQuorumTolerance = 2

// quorumState gates block production on agreement with the network. A
// node mints blocks only when enough peers claim a height within
// tolerance of its own tip, so a node that wandered onto a private fork
// stops producing instead of deepening it. A node that cannot reach
// enough peers for long enough is assumed to be intentionally isolated
// (private net, lab) and may mine anyway, loudly.
//
// It carries its own lock because the miner queries it from outside the
// sync manager's event loop.
type quorumState struct {
	mtx sync.Mutex

	minPeers         int
	isolationTimeout time.Duration

	// peerHeights is the latest chain height claimed by each connected
	// peer, keyed by peer id.
	peerHeights map[string]uint64

	// lastQuorumAt is the last time enough peers agreed with the local
	// height, seeded at startup so the isolation clock starts
	// immediately.
	lastQuorumAt   time.Time
	isolatedLogged bool
}

func (q *quorumState) init(minPeers int, isolationTimeout time.Duration) {
	q.minPeers = minPeers
	q.isolationTimeout = isolationTimeout
	q.peerHeights = make(map[string]uint64)
	q.lastQuorumAt = time.Now()
}

func (q *quorumState) peerConnected(id string, height uint64) {
	q.mtx.Lock()
	q.peerHeights[id] = height
	q.mtx.Unlock()
}

func (q *quorumState) peerDisconnected(id string) {
	q.mtx.Lock()
	delete(q.peerHeights, id)
	q.mtx.Unlock()
}

// updatePeerHeight records a fresher height claim for a connected peer.
// Claims for peers that already disconnected are dropped.
func (q *quorumState) updatePeerHeight(id string, height uint64) {
	q.mtx.Lock()
	if _, ok := q.peerHeights[id]; ok {
		q.peerHeights[id] = height
	}
	q.mtx.Unlock()
}

// heightsAgree reports whether a peer's claimed height is within the
// quorum tolerance of the local height, in either direction.
func heightsAgree(peerHeight, localHeight uint64) bool {
	if peerHeight > localHeight {
		return peerHeight-localHeight <= heightQuorumTolerance
	}
	return localHeight-peerHeight <= heightQuorumTolerance
}

// miningAllowed reports whether block production is currently permitted
// and, when it is not, why. The quorum requires minPeers peers whose
// claimed height agrees with the local one; peers far behind neither
// satisfy nor break it.
func (q *quorumState) miningAllowed(localHeight uint64) (bool, string) {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	agreeing := 0
	var bestHeight uint64
	for _, height := range q.peerHeights {
		if height > bestHeight {
			bestHeight = height
		}
		if heightsAgree(height, localHeight) {
			agreeing++
		}
	}

	if agreeing >= q.minPeers {
		q.lastQuorumAt = time.Now()
		q.isolatedLogged = false
		return true, ""
	}

	if len(q.peerHeights) < q.minPeers {
		if time.Since(q.lastQuorumAt) < q.isolationTimeout {
			return false, fmt.Sprintf("waiting for %d sync peers, have %d",
				q.minPeers, len(q.peerHeights))
		}
		if !q.isolatedLogged {
			log.Warnf("No peer quorum for %s, switching to isolated "+
				"mining mode", q.isolationTimeout)
			q.isolatedLogged = true
		}
		return true, ""
	}

	if bestHeight > localHeight+heightQuorumTolerance {
		return false, fmt.Sprintf("local height %d is behind network "+
			"height %d", localHeight, bestHeight)
	}
	return false, fmt.Sprintf("only %d of the required %d peers are "+
		"within %d blocks of local height %d", agreeing, q.minPeers,
		heightQuorumTolerance, localHeight)
}

// MiningAllowed reports whether the node is sufficiently in consensus
// with its peers to produce blocks. The returned reason is empty when
// mining is allowed.
func (sm *SyncManager) MiningAllowed() (bool, string) {
	return sm.quorum.miningAllowed(sm.chain.BestSnapshot().Height)
}

// IsCurrent reports whether the local tip is within tolerance of the
// heights claimed by the peer quorum.
func (sm *SyncManager) IsCurrent() bool {
	allowed, _ := sm.MiningAllowed()
	return allowed
}
