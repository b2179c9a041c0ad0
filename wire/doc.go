// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package wire implements the Vision p2p network protocol.

This package is one of the core packages and includes everything needed to
speak to a Vision peer at the wire level: message framing with per-network
magic and checksums, the canonical block header and its proof-of-work
message encoding, transactions, and the handshake and synchronization
messages.

# Vision Message Overview

Every message begins with a fixed 24-byte header carrying the network
magic, a zero-padded command string, the payload length, and the first
four bytes of the blake2b-256 checksum of the payload. Payload encodings
are little endian unless a field documents otherwise; the only big endian
field in the protocol is the zeroed nonce slot inside the canonical
proof-of-work message, which exists for layout compatibility with miners.

Use ReadMessage to read the next message off a connection and WriteMessage
to send one. Both enforce the per-command payload limits, so a hostile
peer cannot cause a large allocation with a forged length field.
*/
package wire
