// Copyright (c) 2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package server

import (
	"sync"
	"time"
)

const (
	// connectRetryBase is the initial delay before a failed outbound
	// connection is retried.
	connectRetryBase = 5 * time.Second

	// connectRetryMax caps the exponential retry backoff.
	connectRetryMax = 5 * time.Minute
)

// connManager keeps a persistent outbound connection to every configured
// peer address, redialing with exponential backoff after failures and
// after disconnects.
type connManager struct {
	server *Server
	wg     sync.WaitGroup
}

func newConnManager(s *Server) *connManager {
	return &connManager{server: s}
}

func (cm *connManager) start() {
	for _, addr := range cm.server.cfg.ConnectPeers {
		addr := addr
		cm.wg.Add(1)
		cm.server.wg.Add(1)
		spawn(func() { cm.maintainConnection(addr) })
	}
}

// maintainConnection dials addr, hands the connection to the server, and
// redials whenever the peer goes away. It must be run as a goroutine.
func (cm *connManager) maintainConnection(addr string) {
	defer cm.wg.Done()
	defer cm.server.wg.Done()

	retryDelay := connectRetryBase
	for {
		select {
		case <-cm.server.quit:
			return
		default:
		}

		conn, err := cm.server.dial(addr)
		if err == nil {
			err = cm.server.outboundPeerConnected(conn)
		}
		if err != nil {
			log.Debugf("Failed to connect to %s: %s (retry in %s)", addr,
				err, retryDelay)
			select {
			case <-time.After(retryDelay):
			case <-cm.server.quit:
				return
			}
			retryDelay *= 2
			if retryDelay > connectRetryMax {
				retryDelay = connectRetryMax
			}
			continue
		}

		log.Infof("Connected to %s", addr)
		retryDelay = connectRetryBase

		// Wait for the peer to disconnect before redialing.
		if !cm.waitForDisconnect(conn.RemoteAddr().String()) {
			return
		}
	}
}

// waitForDisconnect blocks until the peer at addr is no longer connected
// or the server shuts down. It returns false on shutdown.
func (cm *connManager) waitForDisconnect(addr string) bool {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if !cm.server.hasPeerAddr(addr) {
				return true
			}
		case <-cm.server.quit:
			return false
		}
	}
}

// hasPeerAddr reports whether a connected peer has the given remote
// address.
func (s *Server) hasPeerAddr(addr string) bool {
	s.peersMtx.Lock()
	defer s.peersMtx.Unlock()
	for p := range s.peers {
		if p.Addr() == addr {
			return true
		}
	}
	return false
}
