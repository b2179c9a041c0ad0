// Copyright (c) 2015-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"
	"sort"
	"sync"

	"github.com/oneepicnight/vision-node/pow"
	"github.com/oneepicnight/vision-node/util/chainhash"
	"github.com/oneepicnight/vision-node/wire"
)

// blockNode represents a block within the block index. Nodes form a tree
// via parent pointers; the main chain is the branch with the most
// cumulative work ending at the current tip.
type blockNode struct {
	// parent is the parent block for this node. It is nil for the
	// genesis node.
	parent *blockNode

	// hash is the block's identity digest.
	hash chainhash.Hash

	// workSum is the total amount of work in the chain up to and
	// including this node.
	workSum *big.Int

	// Selected header fields, kept denormalized so validation and
	// retargeting never need a database read.
	height     uint64
	timestamp  int64
	difficulty uint64

	// inMainChain denotes whether the block node is currently on the
	// main chain.
	inMainChain bool
}

// newBlockNode returns a new block node for the given block header and
// parent node. workSum is calculated based on the parent.
func newBlockNode(header *wire.BlockHeader, parent *blockNode) *blockNode {
	node := &blockNode{
		parent:     parent,
		hash:       header.BlockHash(),
		height:     header.Height,
		timestamp:  header.Timestamp,
		difficulty: header.Difficulty,
		workSum:    pow.WorkFromDifficulty(header.Difficulty),
	}
	if parent != nil {
		node.workSum = node.workSum.Add(parent.workSum, node.workSum)
	}
	return node
}

// Ancestor returns the ancestor block node at the provided height by
// following the chain backwards from this node. The returned block will be
// nil when a height is requested that is after the height of the passed
// node.
func (node *blockNode) Ancestor(height uint64) *blockNode {
	if height > node.height {
		return nil
	}
	n := node
	for n != nil && n.height != height {
		n = n.parent
	}
	return n
}

// CalcPastMedianTime calculates the median time of the previous few blocks
// prior to, and including, the block node. The window size comes from the
// chain parameters; a short chain uses however many ancestors exist.
func (node *blockNode) CalcPastMedianTime(window int) int64 {
	timestamps := make([]int64, 0, window)
	for n, i := node, 0; n != nil && i < window; n, i = n.parent, i+1 {
		timestamps = append(timestamps, n.timestamp)
	}
	sort.Slice(timestamps, func(i, j int) bool {
		return timestamps[i] < timestamps[j]
	})
	return timestamps[len(timestamps)/2]
}

// blockIndex provides facilities for keeping track of an in-memory index
// of the block tree. It is not safe for concurrent access on its own; the
// chain lock of the owning Chain serializes all access.
type blockIndex struct {
	sync.RWMutex
	index map[chainhash.Hash]*blockNode
}

// newBlockIndex returns a new empty instance of a block index.
func newBlockIndex() *blockIndex {
	return &blockIndex{
		index: make(map[chainhash.Hash]*blockNode),
	}
}

// HaveBlock returns whether or not the block index contains the provided
// hash.
func (bi *blockIndex) HaveBlock(hash *chainhash.Hash) bool {
	bi.RLock()
	_, hasBlock := bi.index[*hash]
	bi.RUnlock()
	return hasBlock
}

// LookupNode returns the block node identified by the provided hash. It
// will return nil if there is no entry for the hash.
func (bi *blockIndex) LookupNode(hash *chainhash.Hash) *blockNode {
	bi.RLock()
	node := bi.index[*hash]
	bi.RUnlock()
	return node
}

// AddNode adds the provided node to the block index.
func (bi *blockIndex) AddNode(node *blockNode) {
	bi.Lock()
	bi.index[node.hash] = node
	bi.Unlock()
}
