// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"path/filepath"
	"runtime"
	"time"

	"github.com/oneepicnight/vision-node/blockchain"
	"github.com/oneepicnight/vision-node/config"
	"github.com/oneepicnight/vision-node/database"
	"github.com/oneepicnight/vision-node/mempool"
	"github.com/oneepicnight/vision-node/metrics"
	"github.com/oneepicnight/vision-node/mining"
	"github.com/oneepicnight/vision-node/netsync"
	"github.com/oneepicnight/vision-node/server"
	"github.com/oneepicnight/vision-node/util/panics"
	"github.com/oneepicnight/vision-node/version"
)

const (
	// blockDbNamePrefix is the directory name of the block database
	// inside the data directory.
	blockDbName = "blocks"

	// defaultMaxMempoolTxs bounds the transaction pool.
	defaultMaxMempoolTxs = 50000

	// isolationTimeout is how long the node waits for a peer quorum
	// before mining in isolated mode.
	isolationTimeout = 5 * time.Minute
)

// visiondMain is the real main function for visiond. It is necessary to
// work around the fact that deferred functions do not run when os.Exit
// is called.
func visiondMain() error {
	defer panics.HandlePanic(log, nil)

	if err := config.LoadAndSetActiveConfig(); err != nil {
		return err
	}
	cfg := config.ActiveConfig()

	// Get a channel that will be closed when a shutdown signal has been
	// triggered from an OS signal such as SIGINT (Ctrl+C).
	interrupt := interruptListener()
	defer log.Info("Shutdown complete")

	log.Infof("Version %s", version.Version())
	log.Infof("Active network: %s", cfg.NetParams.Name)

	db, err := database.Open(filepath.Join(cfg.DataDir, blockDbName))
	if err != nil {
		log.Errorf("Failed to open block database: %+v", err)
		return err
	}
	defer func() {
		log.Infof("Gracefully shutting down the database...")
		if err := db.Close(); err != nil {
			log.Errorf("Failed to close the database: %+v", err)
		}
	}()

	if interruptRequested(interrupt) {
		return nil
	}

	txPool := mempool.New(&mempool.Config{MaxTxs: defaultMaxMempoolTxs})
	chain, err := blockchain.New(&blockchain.Config{
		DB:          db,
		ChainParams: cfg.NetParams,
		TimeSource:  time.Now,
		TxPool:      txPool,
	})
	if err != nil {
		log.Errorf("Failed to initialize the chain: %+v", err)
		return err
	}
	best := chain.BestSnapshot()
	log.Infof("Chain tip %s (height %d)", best.Hash, best.Height)

	syncManager := netsync.New(&netsync.Config{
		Chain:            chain,
		TxPool:           txPool,
		ChainParams:      cfg.NetParams,
		MinSyncPeers:     cfg.MinSyncPeers,
		IsolationTimeout: isolationTimeout,
	})
	syncManager.Start()
	defer syncManager.Stop()

	peerID := cfg.PeerID
	if peerID == "" {
		peerID, err = randomPeerID()
		if err != nil {
			return err
		}
	}
	log.Infof("Peer id: %s", peerID)

	srv, err := server.New(&server.Config{
		ChainParams:  cfg.NetParams,
		Chain:        chain,
		SyncManager:  syncManager,
		Listeners:    cfg.Listeners,
		ConnectPeers: cfg.ConnectPeers,
		Proxy:        cfg.Proxy,
		ProxyUser:    cfg.ProxyUser,
		ProxyPass:    cfg.ProxyPass,
		PeerID:       peerID,
		UserAgent:    fmt.Sprintf("/visiond:%s(%s)/", version.Version(), runtime.GOOS),
		MaxPeers:     cfg.MaxPeers,
	})
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		log.Errorf("Failed to start the server: %+v", err)
		return err
	}
	defer srv.Stop()

	if cfg.MetricsListen != "" {
		startMetricsServer(cfg.MetricsListen)
	}

	var miner *mining.CPUMiner
	if cfg.Generate {
		miner = mining.New(&mining.Config{
			Chain:         chain,
			TxPool:        txPool,
			ChainParams:   cfg.NetParams,
			MinerTag:      []byte(cfg.MinerTag),
			SubmitBlock:   syncManager.SubmitBlock,
			MiningAllowed: syncManager.MiningAllowed,
		})
		miner.Start()
		defer miner.Stop()
	}

	// Wait until the interrupt signal is received from an OS signal or
	// shutdown is requested through one of the subsystems.
	<-interrupt
	return nil
}

// startMetricsServer exposes the Prometheus metrics endpoint. Failures
// here only lose observability, never the node.
func startMetricsServer(listenAddr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	spawn(func() {
		log.Infof("Metrics server listening on %s", listenAddr)
		if err := http.ListenAndServe(listenAddr, mux); err != nil {
			log.Errorf("Metrics server failed: %s", err)
		}
	})
}

// randomPeerID generates the node's session identity used for
// self-connection detection.
func randomPeerID() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf[:]), nil
}
