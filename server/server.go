// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package server ties the networking pieces together: it accepts inbound
// connections, maintains outbound ones, and routes peer messages into the
// sync manager.
package server

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/btcsuite/go-socks/socks"
	"github.com/pkg/errors"

	"github.com/oneepicnight/vision-node/blockchain"
	"github.com/oneepicnight/vision-node/chaincfg"
	"github.com/oneepicnight/vision-node/metrics"
	"github.com/oneepicnight/vision-node/netsync"
	"github.com/oneepicnight/vision-node/peer"
	"github.com/oneepicnight/vision-node/wire"
)

const (
	// defaultDialTimeout is the timeout for establishing an outbound
	// connection.
	defaultDialTimeout = 30 * time.Second
)

// Config holds the server configuration.
type Config struct {
	ChainParams *chaincfg.Params
	Chain       *blockchain.Chain
	SyncManager *netsync.SyncManager

	// Listeners are the local addresses to accept inbound peers on. An
	// empty slice disables listening.
	Listeners []string

	// ConnectPeers are remote addresses the server keeps persistent
	// outbound connections to.
	ConnectPeers []string

	// Proxy optionally routes all outbound connections through a SOCKS5
	// proxy.
	Proxy     string
	ProxyUser string
	ProxyPass string

	// PeerID is this node's identifier for self-connection detection.
	PeerID string

	// UserAgent identifies the node software in handshakes.
	UserAgent string

	// MaxPeers is the hard limit on concurrent connections.
	MaxPeers int
}

// Server provides a Vision p2p server for handling communications to and
// from peers.
type Server struct {
	started  int32
	shutdown int32

	cfg  Config
	quit chan struct{}
	wg   sync.WaitGroup

	peersMtx  sync.Mutex
	peers     map[*peer.Peer]struct{}
	listeners []net.Listener

	connMgr *connManager
}

// New returns a new server configured to accept and maintain connections
// on the given addresses.
func New(cfg *Config) (*Server, error) {
	if cfg.MaxPeers <= 0 {
		return nil, errors.New("server: MaxPeers must be positive")
	}
	s := &Server{
		cfg:   *cfg,
		quit:  make(chan struct{}),
		peers: make(map[*peer.Peer]struct{}),
	}
	s.connMgr = newConnManager(s)
	return s, nil
}

// Start begins accepting connections from peers.
func (s *Server) Start() error {
	if atomic.AddInt32(&s.started, 1) != 1 {
		return nil
	}
	log.Trace("Starting server")

	for _, addr := range s.cfg.Listeners {
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			s.Stop()
			return errors.Wrapf(err, "unable to listen on %s", addr)
		}
		log.Infof("Server listening on %s", listener.Addr())
		s.listeners = append(s.listeners, listener)
		s.wg.Add(1)
		spawn(func() { s.acceptHandler(listener) })
	}

	s.connMgr.start()
	return nil
}

// Stop gracefully shuts down the server by closing all listeners and
// disconnecting all peers.
func (s *Server) Stop() {
	if atomic.AddInt32(&s.shutdown, 1) != 1 {
		return
	}
	log.Warnf("Server shutting down")
	close(s.quit)

	for _, listener := range s.listeners {
		listener.Close()
	}

	s.peersMtx.Lock()
	for p := range s.peers {
		p.Disconnect()
	}
	s.peersMtx.Unlock()

	s.wg.Wait()
}

// acceptHandler accepts inbound connections on the given listener. It
// must be run as a goroutine.
func (s *Server) acceptHandler(listener net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := listener.Accept()
		if err != nil {
			if atomic.LoadInt32(&s.shutdown) == 0 {
				log.Errorf("Accept failed on %s: %s", listener.Addr(), err)
			}
			return
		}
		spawn(func() { s.handleInbound(conn) })
	}
}

func (s *Server) handleInbound(conn net.Conn) {
	if s.peerCount() >= s.cfg.MaxPeers {
		log.Infof("Max peers reached (%d), rejecting %d-th connection "+
			"from %s", s.cfg.MaxPeers, s.peerCount()+1, conn.RemoteAddr())
		conn.Close()
		return
	}
	p, err := peer.NewInboundPeer(s.newPeerConfig(), conn)
	if err != nil {
		log.Debugf("Inbound handshake with %s failed: %s",
			conn.RemoteAddr(), err)
		return
	}
	s.addPeer(p)
}

// dial establishes an outbound connection, through the configured proxy
// when one is set.
func (s *Server) dial(addr string) (net.Conn, error) {
	if s.cfg.Proxy != "" {
		proxy := &socks.Proxy{
			Addr:     s.cfg.Proxy,
			Username: s.cfg.ProxyUser,
			Password: s.cfg.ProxyPass,
		}
		return proxy.Dial("tcp", addr)
	}
	return net.DialTimeout("tcp", addr, defaultDialTimeout)
}

// outboundPeerConnected finishes setting up a freshly dialed connection.
// It returns an error when the handshake fails so the connection manager
// can schedule a retry.
func (s *Server) outboundPeerConnected(conn net.Conn) error {
	p, err := peer.NewOutboundPeer(s.newPeerConfig(), conn)
	if err != nil {
		return err
	}
	s.addPeer(p)
	return nil
}

// newPeerConfig returns the configuration for a new peer, routing its
// messages into the sync manager.
func (s *Server) newPeerConfig() *peer.Config {
	sm := s.cfg.SyncManager
	return &peer.Config{
		ChainParams: s.cfg.ChainParams,
		PeerID:      s.cfg.PeerID,
		UserAgent:   s.cfg.UserAgent,
		BestHeight: func() uint64 {
			return s.cfg.Chain.BestSnapshot().Height
		},
		Listeners: peer.MessageListeners{
			OnAnnounceBlock: func(p *peer.Peer, msg *wire.MsgAnnounceBlock) {
				sm.QueueAnnounce(msg, p)
			},
			OnGetHeaders: func(p *peer.Peer, msg *wire.MsgGetHeaders) {
				sm.QueueGetHeaders(msg, p)
			},
			OnHeaders: func(p *peer.Peer, msg *wire.MsgHeaders) {
				sm.QueueHeaders(msg, p)
			},
			OnGetBlocks: func(p *peer.Peer, msg *wire.MsgGetBlocks) {
				sm.QueueGetBlocks(msg, p)
			},
			OnBlocks: func(p *peer.Peer, msg *wire.MsgBlocks) {
				sm.QueueBlocks(msg, p)
			},
			OnTx: func(p *peer.Peer, msg *wire.MsgTx) {
				sm.QueueTx(msg, p)
			},
			OnDisconnect: func(p *peer.Peer) {
				s.removePeer(p)
			},
		},
	}
}

func (s *Server) addPeer(p *peer.Peer) {
	s.peersMtx.Lock()
	s.peers[p] = struct{}{}
	count := len(s.peers)
	s.peersMtx.Unlock()

	metrics.ConnectedPeers.Set(float64(count))
	s.cfg.SyncManager.NewPeer(p)
}

func (s *Server) removePeer(p *peer.Peer) {
	s.peersMtx.Lock()
	_, exists := s.peers[p]
	delete(s.peers, p)
	count := len(s.peers)
	s.peersMtx.Unlock()

	if !exists {
		return
	}
	metrics.ConnectedPeers.Set(float64(count))
	s.cfg.SyncManager.DonePeer(p)
}

func (s *Server) peerCount() int {
	s.peersMtx.Lock()
	defer s.peersMtx.Unlock()
	return len(s.peers)
}

// PeerCount returns the number of currently connected peers.
func (s *Server) PeerCount() int {
	return s.peerCount()
}
