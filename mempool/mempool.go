// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package mempool provides a policy-light transaction pool. Blocks confirm
// transactions out of it and reorganizations hand rolled-back transactions
// back into it.
package mempool

import (
	"sort"
	"sync"
	"time"

	"github.com/oneepicnight/vision-node/util/chainhash"
	"github.com/oneepicnight/vision-node/wire"
)

// TxDesc is a descriptor containing a transaction in the mempool along
// with additional metadata.
type TxDesc struct {
	Tx *wire.MsgTx

	// Added is the time when the entry was added to the pool.
	Added time.Time
}

// Config is a descriptor containing the memory pool configuration.
type Config struct {
	// MaxTxs is the hard cap on pooled transactions. Zero means
	// unlimited.
	MaxTxs int
}

// TxPool is used as a source of transactions that need to be mined into
// blocks. It is safe for concurrent access from multiple peers.
type TxPool struct {
	mtx  sync.RWMutex
	cfg  Config
	pool map[chainhash.Hash]*TxDesc
}

// New returns a new memory pool for validating and storing standalone
// transactions until they are mined into a block.
func New(cfg *Config) *TxPool {
	return &TxPool{
		cfg:  *cfg,
		pool: make(map[chainhash.Hash]*TxDesc),
	}
}

// HaveTransaction returns whether or not the passed transaction already
// exists in the pool.
func (mp *TxPool) HaveTransaction(txHash *chainhash.Hash) bool {
	mp.mtx.RLock()
	_, exists := mp.pool[*txHash]
	mp.mtx.RUnlock()
	return exists
}

// AddTransaction adds the passed transaction to the memory pool. Coinbase
// transactions and duplicates are silently ignored; a full pool drops the
// incoming transaction rather than evicting.
func (mp *TxPool) AddTransaction(tx *wire.MsgTx) {
	if tx.IsCoinbase() {
		return
	}
	txHash := tx.TxHash()

	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	if _, exists := mp.pool[txHash]; exists {
		return
	}
	if mp.cfg.MaxTxs > 0 && len(mp.pool) >= mp.cfg.MaxTxs {
		log.Debugf("Mempool full, dropping transaction %s", txHash)
		return
	}
	mp.pool[txHash] = &TxDesc{Tx: tx, Added: time.Now()}
	log.Tracef("Accepted transaction %s (pool size: %d)", txHash, len(mp.pool))
}

// RemoveTransaction removes the passed transaction from the mempool.
func (mp *TxPool) RemoveTransaction(txHash *chainhash.Hash) {
	mp.mtx.Lock()
	delete(mp.pool, *txHash)
	mp.mtx.Unlock()
}

// Count returns the number of transactions in the main pool.
func (mp *TxPool) Count() int {
	mp.mtx.RLock()
	count := len(mp.pool)
	mp.mtx.RUnlock()
	return count
}

// TxDescs returns a slice of descriptors for all the transactions in the
// pool, oldest first. The descriptors must be treated as immutable.
func (mp *TxPool) TxDescs() []*TxDesc {
	mp.mtx.RLock()
	descs := make([]*TxDesc, 0, len(mp.pool))
	for _, desc := range mp.pool {
		descs = append(descs, desc)
	}
	mp.mtx.RUnlock()

	sort.Slice(descs, func(i, j int) bool {
		return descs[i].Added.Before(descs[j].Added)
	})
	return descs
}
