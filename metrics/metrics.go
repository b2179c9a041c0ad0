// Package metrics defines the prometheus collectors exported by a Vision
// node. Collectors are registered at package init via promauto and are
// written to from the packages that own the corresponding state.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ChainHeight is the height of the current main chain tip.
	ChainHeight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vision",
		Subsystem: "chain",
		Name:      "height",
		Help:      "Height of the current main chain tip.",
	})

	// OrphanPoolSize is the number of blocks waiting in the orphan pool.
	OrphanPoolSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vision",
		Subsystem: "chain",
		Name:      "orphan_pool_size",
		Help:      "Number of blocks currently held in the orphan pool.",
	})

	// DuplicateBlocksDropped counts duplicate block submissions dropped
	// by the recently-seen filter or the block index.
	DuplicateBlocksDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vision",
		Subsystem: "chain",
		Name:      "duplicate_blocks_dropped_total",
		Help:      "Duplicate block submissions dropped without processing.",
	})

	// BlocksConnected counts blocks connected to the main chain.
	BlocksConnected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vision",
		Subsystem: "chain",
		Name:      "blocks_connected_total",
		Help:      "Blocks connected to the main chain.",
	})

	// ReorgsTotal counts completed chain reorganizations.
	ReorgsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vision",
		Subsystem: "chain",
		Name:      "reorgs_total",
		Help:      "Completed chain reorganizations.",
	})

	// ReorgsRejected counts branch switches refused by the
	// reorganization guards.
	ReorgsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vision",
		Subsystem: "chain",
		Name:      "reorgs_rejected_total",
		Help:      "Branch switches refused by the depth or checkpoint guards.",
	})

	// ReorgBlocksRolledBack counts main chain blocks disconnected during
	// reorganizations.
	ReorgBlocksRolledBack = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vision",
		Subsystem: "chain",
		Name:      "reorg_blocks_rolled_back_total",
		Help:      "Main chain blocks disconnected during reorganizations.",
	})

	// ReorgTxsReinserted counts transactions returned to the mempool by
	// reorganizations.
	ReorgTxsReinserted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vision",
		Subsystem: "chain",
		Name:      "reorg_txs_reinserted_total",
		Help:      "Transactions returned to the mempool by reorganizations.",
	})

	// ReorgDepthLast is the rollback depth of the most recent
	// reorganization.
	ReorgDepthLast = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vision",
		Subsystem: "chain",
		Name:      "reorg_depth_last",
		Help:      "Rollback depth of the most recent reorganization.",
	})

	// ConnectedPeers is the number of currently connected peers.
	ConnectedPeers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vision",
		Subsystem: "net",
		Name:      "connected_peers",
		Help:      "Number of currently connected peers.",
	})

	// HeadersReceived counts headers received from peers.
	HeadersReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vision",
		Subsystem: "sync",
		Name:      "headers_received_total",
		Help:      "Block headers received from peers.",
	})

	// BlocksReceived counts full blocks received from peers.
	BlocksReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vision",
		Subsystem: "sync",
		Name:      "blocks_received_total",
		Help:      "Full blocks received from peers.",
	})

	// SyncWindow is the current per-peer request window of the active
	// sync peer.
	SyncWindow = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vision",
		Subsystem: "sync",
		Name:      "window_size",
		Help:      "Current block request window of the active sync peer.",
	})
)

// Handler returns an http handler exposing the registered collectors in
// prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
