// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oneepicnight/vision-node/blockchain"
	"github.com/oneepicnight/vision-node/chaincfg"
	"github.com/oneepicnight/vision-node/mempool"
	"github.com/oneepicnight/vision-node/metrics"
	"github.com/oneepicnight/vision-node/peer"
	"github.com/oneepicnight/vision-node/util/chainhash"
	"github.com/oneepicnight/vision-node/wire"
)

const (
	// minDownloadWindow and maxDownloadWindow bound the per-peer block
	// download window regardless of how fast or slow the link is.
	minDownloadWindow = 4
	maxDownloadWindow = 32

	// initialDownloadWindow is the window used for a peer before any
	// round trip time has been measured.
	initialDownloadWindow = 12

	// initialRTT seeds the round trip estimate for a fresh peer.
	initialRTT = 100 * time.Millisecond

	// rttAlpha is the exponential moving average weight given to each
	// new round trip sample.
	rttAlpha = 0.2

	// targetBatchTime is the wall time a single block batch should take.
	// The ideal window is the number of blocks that fit in this much
	// time at one round trip per batch.
	targetBatchTime = 2 * time.Second

	// minRequestTimeout is the floor for the per-request timeout so a
	// few fast round trips don't turn every scheduler hiccup into a
	// failure.
	minRequestTimeout = 3 * time.Second

	// maxConsecutiveFailures is how many failed requests in a row a peer
	// gets before it is paused.
	maxConsecutiveFailures = 3

	// peerPauseDuration is how long a misbehaving peer sits out before
	// it is eligible to serve sync requests again.
	peerPauseDuration = 30 * time.Second

	// maxBlockRetries is how many times a single missing block is
	// re-requested before the download of that hash is abandoned.
	maxBlockRetries = 3

	// orphanSweepInterval is how often expired orphans are evicted.
	orphanSweepInterval = 30 * time.Second

	// tickInterval drives request timeout checks.
	tickInterval = time.Second
)

// Peer request states. A peer serves at most one outstanding request.
const (
	stateIdle = iota
	stateHeadersRequested
	stateBlocksInFlight
)

// peerSyncState stores additional information the sync manager tracks
// about a peer.
type peerSyncState struct {
	peer *peer.Peer

	// window is the current number of blocks requested per batch from
	// this peer.
	window int

	// rttEWMA is the smoothed round trip estimate for this peer.
	rttEWMA time.Duration

	state       int
	requestedAt time.Time

	// requested holds the hashes of the blocks currently in flight.
	requested map[chainhash.Hash]struct{}

	consecutiveFailures int
	pausedUntil         time.Time
}

// observeRTT folds a new round trip sample into the peer's estimate and
// nudges the download window toward the new ideal. The window grows by
// two per good round trip and shrinks by one so recovery from a bad
// estimate is faster than the decay into one.
func (state *peerSyncState) observeRTT(sample time.Duration) {
	state.rttEWMA = time.Duration(
		rttAlpha*float64(sample) + (1-rttAlpha)*float64(state.rttEWMA))

	rttMs := float64(state.rttEWMA) / float64(time.Millisecond)
	if rttMs < 1 {
		rttMs = 1
	}
	ideal := int(math.Round(float64(targetBatchTime/time.Millisecond) / rttMs))
	if ideal < minDownloadWindow {
		ideal = minDownloadWindow
	}
	if ideal > maxDownloadWindow {
		ideal = maxDownloadWindow
	}

	switch {
	case ideal > state.window:
		state.window += 2
		if state.window > ideal {
			state.window = ideal
		}
	case ideal < state.window:
		state.window--
	}
	metrics.SyncWindow.Set(float64(state.window))
}

// requestTimeout returns how long an outstanding request to this peer may
// take before it is abandoned.
func (state *peerSyncState) requestTimeout() time.Duration {
	timeout := 3 * state.rttEWMA
	if timeout < minRequestTimeout {
		timeout = minRequestTimeout
	}
	return timeout
}

// registerFailure records a failed request, halves the window, and pauses
// the peer after too many failures in a row.
func (state *peerSyncState) registerFailure() {
	state.window /= 2
	if state.window < minDownloadWindow {
		state.window = minDownloadWindow
	}
	state.consecutiveFailures++
	if state.consecutiveFailures >= maxConsecutiveFailures {
		state.pausedUntil = time.Now().Add(peerPauseDuration)
		log.Infof("Pausing sync peer %s for %s after %d consecutive "+
			"failures", state.peer.Addr(), peerPauseDuration,
			state.consecutiveFailures)
	}
}

// paused reports whether the peer is sitting out a failure pause.
func (state *peerSyncState) paused() bool {
	return time.Now().Before(state.pausedUntil)
}

// newPeerMsg signifies a newly connected peer to the event loop.
type newPeerMsg struct {
	peer *peer.Peer
}

// donePeerMsg signifies a disconnected peer to the event loop.
type donePeerMsg struct {
	peer *peer.Peer
}

// headersMsg packages a headers message and the peer it came from.
type headersMsg struct {
	headers *wire.MsgHeaders
	peer    *peer.Peer
}

// blocksMsg packages a block batch and the peer it came from.
type blocksMsg struct {
	blocks *wire.MsgBlocks
	peer   *peer.Peer
}

// announceMsg packages a block announcement and the peer it came from.
type announceMsg struct {
	announce *wire.MsgAnnounceBlock
	peer     *peer.Peer
}

// txMsg packages a relayed transaction and the peer it came from.
type txMsg struct {
	tx   *wire.MsgTx
	peer *peer.Peer
}

// getHeadersMsg packages a headers request to be served.
type getHeadersMsg struct {
	request *wire.MsgGetHeaders
	peer    *peer.Peer
}

// getBlocksMsg packages a block request to be served.
type getBlocksMsg struct {
	request *wire.MsgGetBlocks
	peer    *peer.Peer
}

// submitBlockMsg handles a locally produced block.
type submitBlockMsg struct {
	block *wire.MsgBlock
	reply chan error
}

// Config is a configuration struct used to initialize a new SyncManager.
type Config struct {
	Chain       *blockchain.Chain
	TxPool      *mempool.TxPool
	ChainParams *chaincfg.Params

	// MinSyncPeers is the number of connected peers required before the
	// node considers its view of the network height trustworthy.
	MinSyncPeers int

	// IsolationTimeout is how long the node waits for MinSyncPeers
	// before concluding it is intentionally isolated.
	IsolationTimeout time.Duration
}

// SyncManager downloads the chain from the network using a headers first
// strategy with a per-peer adaptive download window, and gates mining on
// being in consensus with the peers it can see.
type SyncManager struct {
	started  int32
	shutdown int32

	cfg   Config
	chain *blockchain.Chain

	msgChan chan interface{}
	wg      sync.WaitGroup
	quit    chan struct{}

	// The following fields are only accessed from the event loop.
	peerStates map[*peer.Peer]*peerSyncState
	syncPeer   *peer.Peer

	// pendingHashes is the download queue built from validated headers,
	// oldest first.
	pendingHashes []chainhash.Hash

	// retries counts re-requests per missing block hash.
	retries map[chainhash.Hash]int

	quorum quorumState
}

// New constructs a new SyncManager.
func New(cfg *Config) *SyncManager {
	sm := &SyncManager{
		cfg:        *cfg,
		chain:      cfg.Chain,
		msgChan:    make(chan interface{}, 256),
		quit:       make(chan struct{}),
		peerStates: make(map[*peer.Peer]*peerSyncState),
		retries:    make(map[chainhash.Hash]int),
	}
	sm.quorum.init(cfg.MinSyncPeers, cfg.IsolationTimeout)
	return sm
}

// Start begins the core block handler which processes block and peer
// messages.
func (sm *SyncManager) Start() {
	if atomic.AddInt32(&sm.started, 1) != 1 {
		return
	}
	log.Trace("Starting sync manager")
	sm.wg.Add(1)
	spawn(sm.eventHandler)
}

// Stop gracefully shuts down the sync manager.
func (sm *SyncManager) Stop() {
	if atomic.AddInt32(&sm.shutdown, 1) != 1 {
		return
	}
	log.Infof("Sync manager shutting down")
	close(sm.quit)
	sm.wg.Wait()
}

// NewPeer informs the sync manager of a newly active peer.
func (sm *SyncManager) NewPeer(p *peer.Peer) {
	if atomic.LoadInt32(&sm.shutdown) != 0 {
		return
	}
	sm.msgChan <- &newPeerMsg{peer: p}
}

// DonePeer informs the sync manager that a peer has disconnected.
func (sm *SyncManager) DonePeer(p *peer.Peer) {
	if atomic.LoadInt32(&sm.shutdown) != 0 {
		return
	}
	sm.msgChan <- &donePeerMsg{peer: p}
}

// QueueHeaders adds the passed headers message and peer to the event
// queue.
func (sm *SyncManager) QueueHeaders(headers *wire.MsgHeaders, p *peer.Peer) {
	if atomic.LoadInt32(&sm.shutdown) != 0 {
		return
	}
	sm.msgChan <- &headersMsg{headers: headers, peer: p}
}

// QueueBlocks adds the passed block batch and peer to the event queue.
func (sm *SyncManager) QueueBlocks(blocks *wire.MsgBlocks, p *peer.Peer) {
	if atomic.LoadInt32(&sm.shutdown) != 0 {
		return
	}
	sm.msgChan <- &blocksMsg{blocks: blocks, peer: p}
}

// QueueAnnounce adds the passed block announcement and peer to the event
// queue.
func (sm *SyncManager) QueueAnnounce(announce *wire.MsgAnnounceBlock, p *peer.Peer) {
	if atomic.LoadInt32(&sm.shutdown) != 0 {
		return
	}
	sm.msgChan <- &announceMsg{announce: announce, peer: p}
}

// QueueTx adds the passed transaction and peer to the event queue.
func (sm *SyncManager) QueueTx(tx *wire.MsgTx, p *peer.Peer) {
	if atomic.LoadInt32(&sm.shutdown) != 0 {
		return
	}
	sm.msgChan <- &txMsg{tx: tx, peer: p}
}

// QueueGetHeaders adds a headers request to the event queue.
func (sm *SyncManager) QueueGetHeaders(request *wire.MsgGetHeaders, p *peer.Peer) {
	if atomic.LoadInt32(&sm.shutdown) != 0 {
		return
	}
	sm.msgChan <- &getHeadersMsg{request: request, peer: p}
}

// QueueGetBlocks adds a block request to the event queue.
func (sm *SyncManager) QueueGetBlocks(request *wire.MsgGetBlocks, p *peer.Peer) {
	if atomic.LoadInt32(&sm.shutdown) != 0 {
		return
	}
	sm.msgChan <- &getBlocksMsg{request: request, peer: p}
}

// SubmitBlock processes a locally produced block through the same path
// remote blocks take, then announces it to all peers.
func (sm *SyncManager) SubmitBlock(block *wire.MsgBlock) error {
	reply := make(chan error, 1)
	sm.msgChan <- &submitBlockMsg{block: block, reply: reply}
	return <-reply
}

// eventHandler is the main handler for the sync manager. It must be run
// as a goroutine. Serializing all chain mutations through one goroutine
// keeps the per-peer state machine free of locks.
func (sm *SyncManager) eventHandler() {
	defer sm.wg.Done()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	sweep := time.NewTicker(orphanSweepInterval)
	defer sweep.Stop()

out:
	for {
		select {
		case m := <-sm.msgChan:
			switch msg := m.(type) {
			case *newPeerMsg:
				sm.handleNewPeer(msg.peer)
			case *donePeerMsg:
				sm.handleDonePeer(msg.peer)
			case *headersMsg:
				sm.handleHeaders(msg)
			case *blocksMsg:
				sm.handleBlocks(msg)
			case *announceMsg:
				sm.handleAnnounce(msg)
			case *txMsg:
				sm.handleTx(msg)
			case *getHeadersMsg:
				sm.handleGetHeaders(msg)
			case *getBlocksMsg:
				sm.handleGetBlocks(msg)
			case *submitBlockMsg:
				msg.reply <- sm.handleSubmitBlock(msg.block)
			default:
				log.Warnf("Invalid message type in event handler: %T", msg)
			}

		case <-ticker.C:
			sm.checkTimeouts()

		case <-sweep.C:
			sm.chain.ExpireOrphans()

		case <-sm.quit:
			break out
		}
	}
	log.Trace("Sync manager event handler done")
}

func (sm *SyncManager) handleNewPeer(p *peer.Peer) {
	log.Infof("New valid peer %s (%s)", p.Addr(), p.ID())
	sm.peerStates[p] = &peerSyncState{
		peer:      p,
		window:    initialDownloadWindow,
		rttEWMA:   initialRTT,
		requested: make(map[chainhash.Hash]struct{}),
	}
	sm.quorum.peerConnected(p.ID(), p.LastHeight())
	sm.maybeStartSync()
}

func (sm *SyncManager) handleDonePeer(p *peer.Peer) {
	state, exists := sm.peerStates[p]
	if !exists {
		return
	}
	delete(sm.peerStates, p)
	sm.quorum.peerDisconnected(p.ID())
	log.Infof("Lost peer %s (%s)", p.Addr(), p.ID())

	if sm.syncPeer == p {
		// Requeue whatever was in flight and move to another peer.
		sm.requeueInFlight(state)
		sm.syncPeer = nil
		sm.maybeStartSync()
	}
}

// requeueInFlight pushes a peer's outstanding block requests back to the
// front of the download queue.
func (sm *SyncManager) requeueInFlight(state *peerSyncState) {
	if len(state.requested) == 0 {
		return
	}
	requeued := make([]chainhash.Hash, 0, len(state.requested))
	for hash := range state.requested {
		requeued = append(requeued, hash)
	}
	state.requested = make(map[chainhash.Hash]struct{})
	sm.pendingHashes = append(requeued, sm.pendingHashes...)
}

// bestSyncCandidate returns the peer that claims the most chain beyond
// our tip and is not paused, or nil if no peer is ahead of us.
func (sm *SyncManager) bestSyncCandidate() *peer.Peer {
	best := sm.chain.BestSnapshot()
	var candidate *peer.Peer
	var candidateHeight uint64
	for p, state := range sm.peerStates {
		if state.paused() {
			continue
		}
		height := p.LastHeight()
		if height <= best.Height {
			continue
		}
		if candidate == nil || height > candidateHeight {
			candidate = p
			candidateHeight = height
		}
	}
	return candidate
}

// maybeStartSync begins a headers request if no sync is in progress and
// some peer claims more chain than we have.
func (sm *SyncManager) maybeStartSync() {
	if sm.syncPeer != nil {
		return
	}
	if len(sm.pendingHashes) > 0 {
		// A previous sync peer left a partially downloaded queue.
		sm.continueWithQueue()
		return
	}

	candidate := sm.bestSyncCandidate()
	if candidate == nil {
		return
	}
	sm.syncPeer = candidate
	sm.requestHeaders(candidate)
}

// continueWithQueue resumes block downloads of an existing queue on the
// best available peer.
func (sm *SyncManager) continueWithQueue() {
	candidate := sm.bestSyncCandidate()
	if candidate == nil {
		// Nobody ahead of us; the queue covers blocks no connected peer
		// claims anymore. Drop it and wait for announcements.
		sm.pendingHashes = nil
		return
	}
	sm.syncPeer = candidate
	sm.requestBlocks(sm.peerStates[candidate])
}

// requestHeaders sends a getheaders request built from our latest block
// locator to the given peer.
func (sm *SyncManager) requestHeaders(p *peer.Peer) {
	locator, err := sm.chain.LatestBlockLocator()
	if err != nil {
		log.Errorf("Failed to build block locator: %s", err)
		return
	}
	msg := wire.NewMsgGetHeaders(wire.MaxHeadersPerMsg)
	for _, hash := range locator {
		if err := msg.AddBlockLocatorHash(hash); err != nil {
			break
		}
	}

	state := sm.peerStates[p]
	state.state = stateHeadersRequested
	state.requestedAt = time.Now()
	best := sm.chain.BestSnapshot()
	log.Debugf("Requesting headers from %s starting at height %d",
		p.Addr(), best.Height)
	p.QueueMessage(msg)
}

// requestBlocks sends the next window of block hashes from the download
// queue to the sync peer.
func (sm *SyncManager) requestBlocks(state *peerSyncState) {
	if len(sm.pendingHashes) == 0 {
		state.state = stateIdle
		return
	}

	count := state.window
	if count > len(sm.pendingHashes) {
		count = len(sm.pendingHashes)
	}
	msg := wire.NewMsgGetBlocks()
	state.requested = make(map[chainhash.Hash]struct{}, count)
	for i := 0; i < count; i++ {
		hash := sm.pendingHashes[i]
		hashCopy := hash
		if err := msg.AddBlockHash(&hashCopy); err != nil {
			break
		}
		state.requested[hash] = struct{}{}
	}
	sm.pendingHashes = sm.pendingHashes[len(state.requested):]

	state.state = stateBlocksInFlight
	state.requestedAt = time.Now()
	log.Debugf("Requesting %d blocks from %s (window %d, rtt %s)",
		len(state.requested), state.peer.Addr(), state.window,
		state.rttEWMA)
	state.peer.QueueMessage(msg)
}

// handleHeaders processes a headers message, validates the sequence, and
// queues the unknown blocks for download.
func (sm *SyncManager) handleHeaders(hmsg *headersMsg) {
	p := hmsg.peer
	state, exists := sm.peerStates[p]
	if !exists {
		return
	}
	if sm.syncPeer != p || state.state != stateHeadersRequested {
		log.Debugf("Ignoring unrequested headers from %s", p.Addr())
		return
	}
	state.observeRTT(time.Since(state.requestedAt))
	state.state = stateIdle
	state.consecutiveFailures = 0

	headers := hmsg.headers.Headers
	metrics.HeadersReceived.Add(float64(len(headers)))
	if len(headers) == 0 {
		// Peer has nothing beyond our locator. Sync with this peer is
		// complete.
		sm.finishSync(p)
		return
	}

	// The sequence must be strictly ascending by height with each header
	// linking to its predecessor. Out of order headers are a protocol
	// violation, not a recoverable condition.
	for i, header := range headers {
		if i == 0 {
			continue
		}
		prev := headers[i-1]
		prevHash := prev.BlockHash()
		if header.Height != prev.Height+1 ||
			!header.ParentHash.IsEqual(&prevHash) {
			log.Warnf("Peer %s sent a non-contiguous header sequence, "+
				"disconnecting", p.Addr())
			p.Disconnect()
			return
		}
	}

	queued := 0
	for _, header := range headers {
		hash := header.BlockHash()
		if sm.chain.HaveBlock(&hash) {
			continue
		}
		sm.pendingHashes = append(sm.pendingHashes, hash)
		queued++
	}
	log.Debugf("Received %d headers from %s, queued %d for download",
		len(headers), p.Addr(), queued)

	if queued == 0 {
		// Everything announced is already known; ask for the next
		// stretch of headers.
		sm.requestHeaders(p)
		return
	}
	sm.requestBlocks(state)
}

// handleBlocks processes a batch of downloaded blocks from the sync peer.
func (sm *SyncManager) handleBlocks(bmsg *blocksMsg) {
	p := bmsg.peer
	state, exists := sm.peerStates[p]
	if !exists {
		return
	}
	if sm.syncPeer != p || state.state != stateBlocksInFlight {
		log.Debugf("Ignoring unrequested blocks from %s", p.Addr())
		return
	}
	state.observeRTT(time.Since(state.requestedAt))
	state.state = stateIdle

	received := make(map[chainhash.Hash]struct{}, len(bmsg.blocks.Blocks))
	for _, block := range bmsg.blocks.Blocks {
		hash := block.BlockHash()
		if _, requested := state.requested[hash]; !requested {
			log.Warnf("Peer %s sent unrequested block %s, disconnecting",
				p.Addr(), hash)
			p.Disconnect()
			return
		}
		received[hash] = struct{}{}
		metrics.BlocksReceived.Inc()

		_, isOrphan, err := sm.chain.ProcessBlock(block, blockchain.BFNone)
		if err != nil {
			if _, ok := err.(blockchain.RuleError); ok {
				log.Warnf("Peer %s sent invalid block %s: %s,"+
					" disconnecting", p.Addr(), hash, err)
				p.Disconnect()
				return
			}
			log.Errorf("Failed to process block %s: %s", hash, err)
			return
		}
		if isOrphan {
			// With validated headers driving the queue this means the
			// parent download failed earlier. The orphan pool holds it
			// until the parent arrives.
			log.Debugf("Block %s from %s pooled as orphan", hash, p.Addr())
		}
		delete(sm.retries, hash)
	}

	// Every requested hash missing from the reply is a per-height
	// failure. Retry each missing block a bounded number of times, then
	// give up on that hash.
	var missing []chainhash.Hash
	for hash := range state.requested {
		if _, ok := received[hash]; ok {
			continue
		}
		sm.retries[hash]++
		if sm.retries[hash] > maxBlockRetries {
			log.Warnf("Giving up on block %s after %d attempts", hash,
				maxBlockRetries)
			delete(sm.retries, hash)
			continue
		}
		missing = append(missing, hash)
	}
	state.requested = make(map[chainhash.Hash]struct{})

	if len(missing) > 0 {
		log.Debugf("Peer %s omitted %d of the requested blocks", p.Addr(),
			len(missing))
		sm.pendingHashes = append(missing, sm.pendingHashes...)
		state.registerFailure()
		if state.paused() {
			sm.syncPeer = nil
			sm.maybeStartSync()
			return
		}
	} else {
		state.consecutiveFailures = 0
	}

	if len(sm.pendingHashes) > 0 {
		sm.requestBlocks(state)
		return
	}
	// Queue drained; see if the peer has more headers for us.
	sm.requestHeaders(p)
}

// finishSync is called when the sync peer has no more blocks for us.
func (sm *SyncManager) finishSync(p *peer.Peer) {
	best := sm.chain.BestSnapshot()
	log.Infof("Sync with %s complete at height %d (%s)", p.Addr(),
		best.Height, best.Hash)
	sm.syncPeer = nil
	for connected := range sm.peerStates {
		sm.quorum.updatePeerHeight(connected.ID(), connected.LastHeight())
	}

	// Another peer may claim an even longer chain.
	sm.maybeStartSync()
}

// handleAnnounce processes a block announcement from a peer.
func (sm *SyncManager) handleAnnounce(amsg *announceMsg) {
	p := amsg.peer
	if _, exists := sm.peerStates[p]; !exists {
		return
	}
	announce := amsg.announce
	sm.quorum.updatePeerHeight(p.ID(), announce.Height)

	// A digest that was recently processed, accepted or rejected, is
	// announced again by every peer that hears about it. Re-fetching it
	// cannot change the outcome.
	if sm.chain.RecentlySeen(&announce.Hash) {
		metrics.DuplicateBlocksDropped.Inc()
		return
	}
	if sm.chain.HaveBlock(&announce.Hash) {
		return
	}

	if sm.syncPeer != nil {
		// A sync is already running; the announced block will arrive
		// through the headers flow.
		return
	}

	best := sm.chain.BestSnapshot()
	if announce.Height <= best.Height+1 {
		// Likely the next block. Fetch it directly from the announcer
		// rather than spinning up a full headers exchange.
		msg := wire.NewMsgGetBlocks()
		hashCopy := announce.Hash
		if err := msg.AddBlockHash(&hashCopy); err != nil {
			return
		}
		state := sm.peerStates[p]
		sm.syncPeer = p
		state.requested = map[chainhash.Hash]struct{}{announce.Hash: {}}
		state.state = stateBlocksInFlight
		state.requestedAt = time.Now()
		p.QueueMessage(msg)
		return
	}

	// The peer is well ahead of us. Start a proper headers sync.
	sm.maybeStartSync()
}

// handleTx processes a relayed transaction.
func (sm *SyncManager) handleTx(tmsg *txMsg) {
	txHash := tmsg.tx.TxHash()
	if sm.cfg.TxPool.HaveTransaction(&txHash) {
		return
	}
	sm.cfg.TxPool.AddTransaction(tmsg.tx)

	// Relay to everyone but the peer that sent it.
	for p := range sm.peerStates {
		if p == tmsg.peer {
			continue
		}
		p.QueueMessage(tmsg.tx)
	}
}

// handleGetHeaders serves a headers request from our main chain.
func (sm *SyncManager) handleGetHeaders(gmsg *getHeadersMsg) {
	headers, err := sm.chain.HeadersAfterLocator(
		gmsg.request.BlockLocatorHashes, gmsg.request.MaxHeaders)
	if err != nil {
		log.Errorf("Failed to fetch headers for %s: %s",
			gmsg.peer.Addr(), err)
		return
	}
	msg := wire.NewMsgHeaders()
	for _, header := range headers {
		if err := msg.AddBlockHeader(header); err != nil {
			break
		}
	}
	gmsg.peer.QueueMessage(msg)
}

// handleGetBlocks serves a batch of blocks by hash. Unknown hashes are
// omitted from the reply; the requester treats omissions as per-height
// failures.
func (sm *SyncManager) handleGetBlocks(gmsg *getBlocksMsg) {
	msg := wire.NewMsgBlocks()
	for _, hash := range gmsg.request.BlockHashes {
		block, err := sm.chain.BlockByHash(hash)
		if err != nil || block == nil {
			log.Debugf("Peer %s requested unknown block %s",
				gmsg.peer.Addr(), hash)
			continue
		}
		if err := msg.AddBlock(block); err != nil {
			break
		}
	}
	gmsg.peer.QueueMessage(msg)
}

// handleSubmitBlock runs a locally produced block through ProcessBlock
// and announces it on success. Proof of work is still verified; a miner
// bug must not produce a tip the rest of the network rejects silently.
func (sm *SyncManager) handleSubmitBlock(block *wire.MsgBlock) error {
	isMainChain, isOrphan, err := sm.chain.ProcessBlock(block, blockchain.BFNone)
	if err != nil {
		return err
	}
	if isOrphan {
		log.Warnf("Submitted block %s is an orphan", block.BlockHash())
		return nil
	}
	if isMainChain {
		sm.announceBlock(block)
	}
	return nil
}

// announceBlock tells every connected peer about a block we accepted.
func (sm *SyncManager) announceBlock(block *wire.MsgBlock) {
	hash := block.BlockHash()
	announce := wire.NewMsgAnnounceBlock(&hash, block.Header.Height)
	for p := range sm.peerStates {
		p.QueueMessage(announce)
	}
}

// checkTimeouts abandons requests that have outlived the peer's timeout
// and moves the sync to another peer.
func (sm *SyncManager) checkTimeouts() {
	if sm.syncPeer == nil {
		sm.maybeStartSync()
		return
	}
	state := sm.peerStates[sm.syncPeer]
	if state == nil || state.state == stateIdle {
		return
	}
	if time.Since(state.requestedAt) < state.requestTimeout() {
		return
	}

	log.Debugf("Request to %s timed out after %s", sm.syncPeer.Addr(),
		time.Since(state.requestedAt))
	state.state = stateIdle
	state.registerFailure()
	sm.requeueInFlight(state)
	sm.syncPeer = nil
	sm.maybeStartSync()
}
