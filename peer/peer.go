// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package peer provides a common base for creating and managing Vision
// network peers: the version handshake with chain identity checks, framed
// message send and receive loops, and ping based liveness.
package peer

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/oneepicnight/vision-node/chaincfg"
	"github.com/oneepicnight/vision-node/wire"
)

const (
	// handshakeTimeout is the duration of inactivity before we time out
	// a peer that hasn't completed the initial version negotiation.
	handshakeTimeout = 30 * time.Second

	// idleTimeout is the duration of inactivity before we time out a
	// peer entirely.
	idleTimeout = 5 * time.Minute

	// pingInterval is the interval of time to wait in between sending
	// ping messages.
	pingInterval = 2 * time.Minute

	// outputBufferSize is the number of elements the output channel
	// uses.
	outputBufferSize = 50
)

// MessageListeners defines callback function pointers to invoke with
// message receipt. Any listener left nil ignores its message.
//
// Listeners run serially in the peer's input handler goroutine, so a slow
// listener stalls only its own peer.
type MessageListeners struct {
	OnVersion       func(p *Peer, msg *wire.MsgVersion)
	OnVerAck        func(p *Peer)
	OnPing          func(p *Peer, msg *wire.MsgPing)
	OnPong          func(p *Peer, msg *wire.MsgPong)
	OnAnnounceBlock func(p *Peer, msg *wire.MsgAnnounceBlock)
	OnGetHeaders    func(p *Peer, msg *wire.MsgGetHeaders)
	OnHeaders       func(p *Peer, msg *wire.MsgHeaders)
	OnGetBlocks     func(p *Peer, msg *wire.MsgGetBlocks)
	OnBlocks        func(p *Peer, msg *wire.MsgBlocks)
	OnTx            func(p *Peer, msg *wire.MsgTx)
	OnDisconnect    func(p *Peer)
}

// Config is the struct to hold configuration options useful to Peer.
type Config struct {
	// ChainParams identifies the network the peer must belong to.
	ChainParams *chaincfg.Params

	// PeerID is this node's self-assigned identifier, echoed in the
	// version message so a node never syncs against itself.
	PeerID string

	// UserAgent identifies this node software in the handshake.
	UserAgent string

	// BestHeight returns the current local tip height for the version
	// message.
	BestHeight func() uint64

	// Listeners houses callback functions to be invoked on receiving
	// peer messages.
	Listeners MessageListeners
}

// Peer provides a basic concurrent safe Vision peer for handling
// communications via the peer-to-peer protocol.
type Peer struct {
	conn    net.Conn
	addr    string
	inbound bool
	cfg     Config

	flagsMtx     sync.Mutex
	versionKnown bool
	remoteID     string
	startHeight  uint64
	protocol     uint32

	// lastHeight tracks the highest height the peer has announced since
	// the handshake.
	lastHeight uint64

	outputQueue chan wire.Message
	quit        chan struct{}

	connected  int32
	disconnect int32
}

// newPeerBase returns a new base Vision peer.
func newPeerBase(cfg *Config, conn net.Conn, inbound bool) *Peer {
	return &Peer{
		conn:        conn,
		addr:        conn.RemoteAddr().String(),
		inbound:     inbound,
		cfg:         *cfg,
		outputQueue: make(chan wire.Message, outputBufferSize),
		quit:        make(chan struct{}),
		connected:   1,
	}
}

// NewInboundPeer returns a new inbound Vision peer and starts its
// handshake and handlers. It returns an error if the handshake fails.
func NewInboundPeer(cfg *Config, conn net.Conn) (*Peer, error) {
	p := newPeerBase(cfg, conn, true)
	if err := p.negotiate(); err != nil {
		p.Disconnect()
		return nil, err
	}
	p.start()
	return p, nil
}

// NewOutboundPeer returns a new outbound Vision peer over an established
// connection and starts its handshake and handlers.
func NewOutboundPeer(cfg *Config, conn net.Conn) (*Peer, error) {
	p := newPeerBase(cfg, conn, false)
	if err := p.negotiate(); err != nil {
		p.Disconnect()
		return nil, err
	}
	p.start()
	return p, nil
}

// Addr returns the peer address.
func (p *Peer) Addr() string {
	return p.addr
}

// Inbound returns whether the peer is inbound.
func (p *Peer) Inbound() bool {
	return p.inbound
}

// ID returns the peer's self-assigned identifier from its version message.
func (p *Peer) ID() string {
	p.flagsMtx.Lock()
	defer p.flagsMtx.Unlock()
	return p.remoteID
}

// VersionKnown returns whether the version handshake completed.
func (p *Peer) VersionKnown() bool {
	p.flagsMtx.Lock()
	defer p.flagsMtx.Unlock()
	return p.versionKnown
}

// ProtocolVersion returns the negotiated protocol version.
func (p *Peer) ProtocolVersion() uint32 {
	p.flagsMtx.Lock()
	defer p.flagsMtx.Unlock()
	return p.protocol
}

// StartHeight returns the tip height the peer reported during the
// handshake.
func (p *Peer) StartHeight() uint64 {
	p.flagsMtx.Lock()
	defer p.flagsMtx.Unlock()
	return p.startHeight
}

// LastHeight returns the highest height the peer has announced.
func (p *Peer) LastHeight() uint64 {
	p.flagsMtx.Lock()
	defer p.flagsMtx.Unlock()
	if p.lastHeight > p.startHeight {
		return p.lastHeight
	}
	return p.startHeight
}

// UpdateLastHeight updates the last known height for the peer.
func (p *Peer) UpdateLastHeight(height uint64) {
	p.flagsMtx.Lock()
	if height > p.lastHeight {
		p.lastHeight = height
	}
	p.flagsMtx.Unlock()
}

// Connected returns whether or not the peer is currently connected.
func (p *Peer) Connected() bool {
	return atomic.LoadInt32(&p.connected) != 0 &&
		atomic.LoadInt32(&p.disconnect) == 0
}

// Disconnect disconnects the peer by closing the connection. Calling this
// function when the peer is already disconnected is a no-op.
func (p *Peer) Disconnect() {
	if atomic.AddInt32(&p.disconnect, 1) != 1 {
		return
	}
	log.Tracef("Disconnecting %s", p.addr)
	if atomic.LoadInt32(&p.connected) != 0 {
		p.conn.Close()
	}
	close(p.quit)
}

// QueueMessage sends the message to the peer's output queue. It drops the
// message when the peer is disconnecting or its queue is saturated; the
// sync layer treats the resulting silence as a timeout.
func (p *Peer) QueueMessage(msg wire.Message) {
	if !p.Connected() {
		return
	}
	select {
	case p.outputQueue <- msg:
	case <-p.quit:
	default:
		log.Debugf("Output queue full for %s, dropping %s message",
			p.addr, msg.Command())
	}
}

// localVersionMsg builds this node's version message.
func (p *Peer) localVersionMsg() *wire.MsgVersion {
	return wire.NewMsgVersion(p.cfg.ChainParams.ProtocolVersion,
		p.cfg.ChainParams.ChainID, p.cfg.ChainParams.GenesisHash,
		p.cfg.BestHeight(), time.Now().Unix(), p.cfg.PeerID,
		p.cfg.UserAgent)
}

// acceptVersion validates the remote version against local chain identity.
// Each mismatch gets a distinct reason, because a disconnect without one
// is undebuggable in the field.
func (p *Peer) acceptVersion(msg *wire.MsgVersion) error {
	params := p.cfg.ChainParams
	if msg.ProtocolVersion < params.ProtocolVersion {
		return errors.Errorf("peer %s speaks protocol version %d, local "+
			"node requires %d", p.addr, msg.ProtocolVersion,
			params.ProtocolVersion)
	}
	if msg.ChainID != params.ChainID {
		return errors.Errorf("peer %s is on chain id %d, local node is "+
			"on %d", p.addr, msg.ChainID, params.ChainID)
	}
	if !msg.GenesisHash.IsEqual(params.GenesisHash) {
		return errors.Errorf("peer %s has genesis %s, local node has %s; "+
			"different chains", p.addr, msg.GenesisHash, params.GenesisHash)
	}
	if msg.PeerID != "" && msg.PeerID == p.cfg.PeerID {
		return errors.Errorf("peer %s is ourselves (peer id %s)", p.addr,
			msg.PeerID)
	}

	p.flagsMtx.Lock()
	p.versionKnown = true
	p.remoteID = msg.PeerID
	p.startHeight = msg.Height
	p.protocol = msg.ProtocolVersion
	p.flagsMtx.Unlock()
	return nil
}

// negotiate performs the version/verack handshake in both directions
// under a single deadline.
func (p *Peer) negotiate() error {
	deadline := time.Now().Add(handshakeTimeout)
	if err := p.conn.SetDeadline(deadline); err != nil {
		return err
	}

	// Outbound peers speak first, inbound peers answer.
	if !p.inbound {
		if err := p.writeMessage(p.localVersionMsg()); err != nil {
			return err
		}
	}

	remoteMsg, err := p.readMessage()
	if err != nil {
		return err
	}
	version, ok := remoteMsg.(*wire.MsgVersion)
	if !ok {
		return errors.Errorf("peer %s sent %s before version", p.addr,
			remoteMsg.Command())
	}
	if err := p.acceptVersion(version); err != nil {
		return err
	}

	if p.inbound {
		if err := p.writeMessage(p.localVersionMsg()); err != nil {
			return err
		}
	}
	if err := p.writeMessage(wire.NewMsgVerAck()); err != nil {
		return err
	}

	remoteMsg, err = p.readMessage()
	if err != nil {
		return err
	}
	if _, ok := remoteMsg.(*wire.MsgVerAck); !ok {
		return errors.Errorf("peer %s sent %s instead of verack", p.addr,
			remoteMsg.Command())
	}

	if err := p.conn.SetDeadline(time.Time{}); err != nil {
		return err
	}

	log.Debugf("Completed handshake with %s (id %s, height %d)", p.addr,
		version.PeerID, version.Height)
	if p.cfg.Listeners.OnVersion != nil {
		p.cfg.Listeners.OnVersion(p, version)
	}
	return nil
}

// start launches the input and output handler goroutines.
func (p *Peer) start() {
	spawn(p.inHandler)
	spawn(p.outHandler)
	spawn(p.pingHandler)
}

// readMessage reads the next framed message from the peer.
func (p *Peer) readMessage() (wire.Message, error) {
	msg, _, err := wire.ReadMessage(p.conn,
		p.cfg.ChainParams.ProtocolVersion, p.cfg.ChainParams.Net)
	if err != nil {
		return nil, err
	}
	log.Tracef("Received %s from %s", msg.Command(), p.addr)
	return msg, nil
}

// writeMessage sends a framed message to the peer.
func (p *Peer) writeMessage(msg wire.Message) error {
	log.Tracef("Sending %s to %s", msg.Command(), p.addr)
	return wire.WriteMessage(p.conn, msg,
		p.cfg.ChainParams.ProtocolVersion, p.cfg.ChainParams.Net)
}

// inHandler handles all incoming messages for the peer. It must be run as
// a goroutine.
func (p *Peer) inHandler() {
out:
	for atomic.LoadInt32(&p.disconnect) == 0 {
		if err := p.conn.SetReadDeadline(time.Now().Add(idleTimeout)); err != nil {
			break out
		}
		msg, err := p.readMessage()
		if err != nil {
			if p.Connected() {
				log.Debugf("Can't read message from %s: %s", p.addr, err)
			}
			break out
		}

		switch msg := msg.(type) {
		case *wire.MsgVersion:
			// A second version message is a protocol violation.
			log.Debugf("Peer %s sent a duplicate version message", p.addr)
			break out
		case *wire.MsgVerAck:
			if p.cfg.Listeners.OnVerAck != nil {
				p.cfg.Listeners.OnVerAck(p)
			}
		case *wire.MsgPing:
			p.QueueMessage(wire.NewMsgPong(msg.Nonce))
			if p.cfg.Listeners.OnPing != nil {
				p.cfg.Listeners.OnPing(p, msg)
			}
		case *wire.MsgPong:
			if p.cfg.Listeners.OnPong != nil {
				p.cfg.Listeners.OnPong(p, msg)
			}
		case *wire.MsgAnnounceBlock:
			p.UpdateLastHeight(msg.Height)
			if p.cfg.Listeners.OnAnnounceBlock != nil {
				p.cfg.Listeners.OnAnnounceBlock(p, msg)
			}
		case *wire.MsgGetHeaders:
			if p.cfg.Listeners.OnGetHeaders != nil {
				p.cfg.Listeners.OnGetHeaders(p, msg)
			}
		case *wire.MsgHeaders:
			if p.cfg.Listeners.OnHeaders != nil {
				p.cfg.Listeners.OnHeaders(p, msg)
			}
		case *wire.MsgGetBlocks:
			if p.cfg.Listeners.OnGetBlocks != nil {
				p.cfg.Listeners.OnGetBlocks(p, msg)
			}
		case *wire.MsgBlocks:
			if p.cfg.Listeners.OnBlocks != nil {
				p.cfg.Listeners.OnBlocks(p, msg)
			}
		case *wire.MsgTx:
			if p.cfg.Listeners.OnTx != nil {
				p.cfg.Listeners.OnTx(p, msg)
			}
		default:
			log.Debugf("Received unhandled message of type %T from %s",
				msg, p.addr)
		}
	}

	p.Disconnect()
	if p.cfg.Listeners.OnDisconnect != nil {
		p.cfg.Listeners.OnDisconnect(p)
	}
	log.Tracef("Peer input handler done for %s", p.addr)
}

// outHandler handles all outgoing messages for the peer. It must be run
// as a goroutine.
func (p *Peer) outHandler() {
out:
	for {
		select {
		case msg := <-p.outputQueue:
			if err := p.writeMessage(msg); err != nil {
				log.Debugf("Can't send message to %s: %s", p.addr, err)
				p.Disconnect()
				break out
			}
		case <-p.quit:
			break out
		}
	}
	log.Tracef("Peer output handler done for %s", p.addr)
}

// pingHandler periodically pings the peer. It must be run as a goroutine.
func (p *Peer) pingHandler() {
	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-pingTicker.C:
			nonce := uint64(time.Now().UnixNano())
			p.QueueMessage(wire.NewMsgPing(nonce))
		case <-p.quit:
			return
		}
	}
}
