// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package mining contains the CPU miner: it assembles block templates from
// the mempool and grinds VisionX nonces against the current target.
package mining

import (
	"encoding/binary"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oneepicnight/vision-node/blockchain"
	"github.com/oneepicnight/vision-node/chaincfg"
	"github.com/oneepicnight/vision-node/mempool"
	"github.com/oneepicnight/vision-node/pow"
	"github.com/oneepicnight/vision-node/wire"
)

const (
	// maxNonce is the highest nonce value a single template attempt will
	// try before rebuilding the template with a fresh timestamp.
	maxNonce = ^uint64(0)

	// nonceCheckInterval is how many nonces are tried between checks for
	// a stale template or a shutdown request.
	nonceCheckInterval = 64

	// templateRefreshInterval bounds how long a single template is
	// ground before its timestamp and transaction set are rebuilt.
	templateRefreshInterval = 10 * time.Second

	// quorumRetryInterval is how long the miner sleeps when block
	// production is gated on peer quorum.
	quorumRetryInterval = 5 * time.Second

	// maxTemplateTxs caps how many mempool transactions a template
	// carries, leaving room for the coinbase.
	maxTemplateTxs = 5000
)

// Config is a descriptor containing the CPU miner configuration.
type Config struct {
	Chain       *blockchain.Chain
	TxPool      *mempool.TxPool
	ChainParams *chaincfg.Params

	// MinerTag is an arbitrary byte string embedded in the coinbase
	// payload of mined blocks.
	MinerTag []byte

	// SubmitBlock hands a solved block to the sync layer, which runs it
	// through consensus validation and announces it on success.
	SubmitBlock func(block *wire.MsgBlock) error

	// MiningAllowed is the peer quorum gate. Mining pauses, with the
	// returned reason logged, while it reports false.
	MiningAllowed func() (bool, string)
}

// CPUMiner provides facilities for solving blocks using the CPU in a
// concurrency-safe manner.
type CPUMiner struct {
	sync.Mutex
	cfg     Config
	started bool
	stop    chan struct{}
	wg      sync.WaitGroup

	// extraNonce perturbs the coinbase so restarting a template never
	// regrinds the same digest space.
	extraNonce uint64
}

// New returns a new instance of a CPU miner for the provided
// configuration.
func New(cfg *Config) *CPUMiner {
	return &CPUMiner{cfg: *cfg}
}

// Start begins the mining process. Calling this function when the miner
// has already been started will have no effect.
func (m *CPUMiner) Start() {
	m.Lock()
	defer m.Unlock()
	if m.started {
		return
	}
	m.stop = make(chan struct{})
	m.started = true
	m.wg.Add(1)
	spawn(m.miningLoop)
	log.Infof("CPU miner started")
}

// Stop gracefully stops the mining process. Calling this function when
// the miner has not already been started will have no effect.
func (m *CPUMiner) Stop() {
	m.Lock()
	defer m.Unlock()
	if !m.started {
		return
	}
	close(m.stop)
	m.started = false
	m.wg.Wait()
	log.Infof("CPU miner stopped")
}

// IsMining returns whether the miner has been started.
func (m *CPUMiner) IsMining() bool {
	m.Lock()
	defer m.Unlock()
	return m.started
}

func (m *CPUMiner) shuttingDown() bool {
	select {
	case <-m.stop:
		return true
	default:
		return false
	}
}

// miningLoop is the main mining goroutine. It alternates between waiting
// for quorum, building a template on the current tip, and grinding nonces
// until the template goes stale or a block is found.
func (m *CPUMiner) miningLoop() {
	defer m.wg.Done()

	var lastGateReason string
	for !m.shuttingDown() {
		if allowed, reason := m.cfg.MiningAllowed(); !allowed {
			if reason != lastGateReason {
				log.Infof("Mining paused: %s", reason)
				lastGateReason = reason
			}
			select {
			case <-time.After(quorumRetryInterval):
			case <-m.stop:
			}
			continue
		}
		lastGateReason = ""

		block := m.buildTemplate()
		if m.solveBlock(block) {
			hash := block.BlockHash()
			log.Infof("Mined block %s at height %d (difficulty %d, %d txs)",
				hash, block.Header.Height, block.Header.Difficulty,
				len(block.Transactions))
			if err := m.cfg.SubmitBlock(block); err != nil {
				log.Errorf("Mined block %s rejected: %s", hash, err)
			}
		}
	}
}

// buildTemplate assembles a candidate block on top of the current best
// tip: coinbase first, then mempool transactions oldest first.
func (m *CPUMiner) buildTemplate() *wire.MsgBlock {
	best := m.cfg.Chain.BestSnapshot()
	height := best.Height + 1

	timestamp := time.Now().Unix()
	if median := m.cfg.Chain.PastMedianTime(); timestamp <= median {
		timestamp = median + 1
	}

	extra := atomic.AddUint64(&m.extraNonce, 1)
	coinbase := wire.NewCoinbaseTx(height, m.coinbasePayload(extra))

	block := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:    wire.BlockVersion,
			Height:     height,
			ParentHash: best.Hash,
			Timestamp:  timestamp,
			Difficulty: m.cfg.Chain.CalcNextRequiredDifficulty(),
		},
	}
	block.AddTransaction(coinbase)
	for i, desc := range m.cfg.TxPool.TxDescs() {
		if i >= maxTemplateTxs {
			break
		}
		block.AddTransaction(desc.Tx)
	}
	block.Header.TxRoot = block.TxRoot()
	return block
}

// coinbasePayload appends the extra nonce to the configured miner tag so
// each template grinds a distinct digest space.
func (m *CPUMiner) coinbasePayload(extraNonce uint64) []byte {
	payload := make([]byte, 0, len(m.cfg.MinerTag)+8)
	payload = append(payload, m.cfg.MinerTag...)
	var extra [8]byte
	binary.LittleEndian.PutUint64(extra[:], extraNonce)
	return append(payload, extra[:]...)
}

// solveBlock attempts to find a nonce whose VisionX digest meets the
// template's target. On success the header's Nonce and PowDigest are
// filled in and true is returned. It gives up when the template goes
// stale, the refresh interval elapses, or the miner is stopped.
func (m *CPUMiner) solveBlock(block *wire.MsgBlock) bool {
	header := &block.Header
	params := m.cfg.ChainParams

	epoch := params.PowParams.Epoch(header.Height)
	epochSeed := pow.EpochSeed(params.ChainID, params.GenesisHash, epoch)
	dataset := pow.LookupDataset(params.PowParams, &epochSeed, epoch)
	target := pow.TargetFromDifficulty(header.Difficulty)
	headerMsg := header.PowMessage()

	bestHash := m.cfg.Chain.BestSnapshot().Hash
	deadline := time.Now().Add(templateRefreshInterval)

	for nonce := uint64(0); nonce < maxNonce; nonce++ {
		if nonce%nonceCheckInterval == 0 {
			if m.shuttingDown() {
				return false
			}
			if time.Now().After(deadline) {
				return false
			}
			// Abandon the template as soon as someone else extends the
			// chain under us.
			if current := m.cfg.Chain.BestSnapshot().Hash; !current.IsEqual(&bestHash) {
				return false
			}
		}

		digest := pow.Digest(params.PowParams, dataset, headerMsg, nonce)
		if pow.DigestMeetsTarget(&digest, &target) {
			header.Nonce = nonce
			header.PowDigest = digest
			return true
		}
	}
	return false
}
