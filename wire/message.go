// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"
	"unicode/utf8"

	"golang.org/x/crypto/blake2b"
)

// MessageHeaderSize is the number of bytes in a message header. Vision
// network (magic) 4 bytes + command 12 bytes + payload length 4 bytes +
// checksum 4 bytes.
const MessageHeaderSize = 24

// CommandSize is the fixed size of all commands in the common message
// header. Shorter commands must be zero padded.
const CommandSize = 12

// MaxMessagePayload is the maximum bytes a message can be regardless of
// other individual limits imposed by messages themselves.
const MaxMessagePayload = 1024 * 1024 * 32 // 32MB

// Commands used in message headers which describe the type of message.
const (
	CmdVersion       = "version"
	CmdVerAck        = "verack"
	CmdPing          = "ping"
	CmdPong          = "pong"
	CmdTx            = "tx"
	CmdBlock         = "block"
	CmdAnnounceBlock = "announce"
	CmdGetHeaders    = "getheaders"
	CmdHeaders       = "headers"
	CmdGetBlocks     = "getblocks"
	CmdBlocks        = "blocks"
)

// Message is an interface that describes a Vision p2p message. A type that
// implements Message has complete control over the representation of its
// data and may therefore contain additional or fewer fields than those which
// are used directly in the protocol encoded message.
type Message interface {
	VisionDecode(r io.Reader, pver uint32) error
	VisionEncode(w io.Writer, pver uint32) error
	Command() string
	MaxPayloadLength(pver uint32) uint32
}

// makeEmptyMessage creates a message of the appropriate concrete type based
// on the command.
func makeEmptyMessage(command string) (Message, error) {
	var msg Message
	switch command {
	case CmdVersion:
		msg = &MsgVersion{}
	case CmdVerAck:
		msg = &MsgVerAck{}
	case CmdPing:
		msg = &MsgPing{}
	case CmdPong:
		msg = &MsgPong{}
	case CmdTx:
		msg = &MsgTx{}
	case CmdBlock:
		msg = &MsgBlock{}
	case CmdAnnounceBlock:
		msg = &MsgAnnounceBlock{}
	case CmdGetHeaders:
		msg = &MsgGetHeaders{}
	case CmdHeaders:
		msg = &MsgHeaders{}
	case CmdGetBlocks:
		msg = &MsgGetBlocks{}
	case CmdBlocks:
		msg = &MsgBlocks{}
	default:
		return nil, messageError("makeEmptyMessage",
			"unhandled command ["+command+"]")
	}
	return msg, nil
}

// messageHeader defines the header structure for all Vision p2p messages.
type messageHeader struct {
	magic    uint32  // Network id, discriminates message streams
	command  string  // Message command, e.g. "headers"
	length   uint32  // Payload length
	checksum [4]byte // First 4 bytes of blake2b-256 of payload
}

// checksumPayload returns the 4-byte checksum of the given payload.
func checksumPayload(payload []byte) [4]byte {
	var checksum [4]byte
	sum := blake2b.Sum256(payload)
	copy(checksum[:], sum[0:4])
	return checksum
}

// readMessageHeader reads a Vision message header from r.
func readMessageHeader(r io.Reader) (int, *messageHeader, error) {
	// Since readElement requires known sizes, read the header into a
	// byte buffer first. This also helps to mitigate a dependency on the
	// reader supplying bytes one at a time.
	var headerBytes [MessageHeaderSize]byte
	n, err := io.ReadFull(r, headerBytes[:])
	if err != nil {
		return n, nil, err
	}
	hr := bytes.NewReader(headerBytes[:])

	hdr := messageHeader{}
	var command [CommandSize]byte
	readElements(hr, &hdr.magic, &command, &hdr.length, &hdr.checksum)

	// Strip trailing zeros from command string.
	hdr.command = string(bytes.TrimRight(command[:], "\x00"))

	return n, &hdr, nil
}

// discardInput reads n bytes from reader r in chunks and discards the read
// bytes. This is used to skip payloads when various errors occur.
func discardInput(r io.Reader, n uint32) {
	maxSize := uint32(10 * 1024) // 10k at a time
	numReads := n / maxSize
	bytesRemaining := n % maxSize
	if n > 0 {
		buf := make([]byte, maxSize)
		for i := uint32(0); i < numReads; i++ {
			io.ReadFull(r, buf)
		}
	}
	if bytesRemaining > 0 {
		buf := make([]byte, bytesRemaining)
		io.ReadFull(r, buf)
	}
}

// WriteMessageN writes a Vision Message to w including the necessary header
// information and returns the number of bytes written.
func WriteMessageN(w io.Writer, msg Message, pver uint32, visionNet uint32) (int, error) {
	totalBytes := 0

	// Enforce max command size.
	var command [CommandSize]byte
	cmd := msg.Command()
	if len(cmd) > CommandSize {
		return totalBytes, messageError("WriteMessage",
			"command ["+cmd+"] is too long")
	}
	copy(command[:], []byte(cmd))

	// Encode the message payload.
	var bw bytes.Buffer
	err := msg.VisionEncode(&bw, pver)
	if err != nil {
		return totalBytes, err
	}
	payload := bw.Bytes()
	lenp := len(payload)

	if lenp > MaxMessagePayload {
		return totalBytes, messageError("WriteMessage",
			"message payload is too large")
	}
	mpl := msg.MaxPayloadLength(pver)
	if uint32(lenp) > mpl {
		return totalBytes, messageError("WriteMessage",
			"message payload is larger than the command allows")
	}

	hdr := messageHeader{}
	hdr.magic = visionNet
	hdr.command = cmd
	hdr.length = uint32(lenp)
	hdr.checksum = checksumPayload(payload)

	hw := bytes.NewBuffer(make([]byte, 0, MessageHeaderSize))
	writeElements(hw, hdr.magic, command, hdr.length, hdr.checksum)

	n, err := w.Write(hw.Bytes())
	totalBytes += n
	if err != nil {
		return totalBytes, err
	}

	n, err = w.Write(payload)
	totalBytes += n
	return totalBytes, err
}

// WriteMessage writes a Vision Message to w including the necessary header
// information. This function is the same as WriteMessageN except it doesn't
// return the number of bytes written.
func WriteMessage(w io.Writer, msg Message, pver uint32, visionNet uint32) error {
	_, err := WriteMessageN(w, msg, pver, visionNet)
	return err
}

// ReadMessageN reads, validates, and parses the next Vision Message from r
// for the provided protocol version and network. It returns the number of
// bytes read in addition to the parsed Message and raw bytes which comprise
// the message.
func ReadMessageN(r io.Reader, pver uint32, visionNet uint32) (int, Message, []byte, error) {
	totalBytes := 0
	n, hdr, err := readMessageHeader(r)
	totalBytes += n
	if err != nil {
		return totalBytes, nil, nil, err
	}

	if hdr.length > MaxMessagePayload {
		return totalBytes, nil, nil, messageError("ReadMessage",
			"message payload is too large")
	}

	if hdr.magic != visionNet {
		discardInput(r, hdr.length)
		return totalBytes, nil, nil, messageError("ReadMessage",
			"message from other network")
	}

	// Check for malformed commands.
	command := hdr.command
	if !utf8.ValidString(command) {
		discardInput(r, hdr.length)
		return totalBytes, nil, nil, messageError("ReadMessage",
			"invalid command")
	}

	msg, err := makeEmptyMessage(command)
	if err != nil {
		discardInput(r, hdr.length)
		return totalBytes, nil, nil, messageError("ReadMessage",
			err.Error())
	}

	// Check for maximum length based on the message type as a malicious
	// client could otherwise create a well-formed header and set the
	// length to max numbers in order to exhaust the machine's memory.
	mpl := msg.MaxPayloadLength(pver)
	if hdr.length > mpl {
		discardInput(r, hdr.length)
		return totalBytes, nil, nil, messageError("ReadMessage",
			"payload exceeds max length for command "+command)
	}

	payload := make([]byte, hdr.length)
	n, err = io.ReadFull(r, payload)
	totalBytes += n
	if err != nil {
		return totalBytes, nil, nil, err
	}

	checksum := checksumPayload(payload)
	if checksum != hdr.checksum {
		return totalBytes, nil, nil, messageError("ReadMessage",
			"payload checksum failed for command "+command)
	}

	pr := bytes.NewReader(payload)
	err = msg.VisionDecode(pr, pver)
	if err != nil {
		return totalBytes, nil, nil, err
	}

	return totalBytes, msg, payload, nil
}

// ReadMessage reads, validates, and parses the next Vision Message from r.
// This function only differs from ReadMessageN in that it doesn't return the
// number of bytes read.
func ReadMessage(r io.Reader, pver uint32, visionNet uint32) (Message, []byte, error) {
	_, msg, buf, err := ReadMessageN(r, pver, visionNet)
	return msg, buf, err
}
