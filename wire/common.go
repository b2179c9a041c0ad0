// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"

	"github.com/oneepicnight/vision-node/util/chainhash"
)

// MaxVarIntPayload is the maximum payload size for a variable length integer.
const MaxVarIntPayload = 9

var (
	// littleEndian is a convenience variable since binary.LittleEndian is
	// quite long.
	littleEndian = binary.LittleEndian

	// bigEndian is a convenience variable since binary.BigEndian is quite
	// long.
	bigEndian = binary.BigEndian
)

// readElement reads the next sequence of bytes from r using little endian
// depending on the concrete type of element pointed to.
func readElement(r io.Reader, element interface{}) error {
	var scratch [8]byte
	switch e := element.(type) {
	case *uint8:
		b := scratch[0:1]
		if _, err := io.ReadFull(r, b); err != nil {
			return err
		}
		*e = b[0]
		return nil

	case *uint16:
		b := scratch[0:2]
		if _, err := io.ReadFull(r, b); err != nil {
			return err
		}
		*e = littleEndian.Uint16(b)
		return nil

	case *uint32:
		b := scratch[0:4]
		if _, err := io.ReadFull(r, b); err != nil {
			return err
		}
		*e = littleEndian.Uint32(b)
		return nil

	case *uint64:
		b := scratch[0:8]
		if _, err := io.ReadFull(r, b); err != nil {
			return err
		}
		*e = littleEndian.Uint64(b)
		return nil

	case *int64:
		b := scratch[0:8]
		if _, err := io.ReadFull(r, b); err != nil {
			return err
		}
		*e = int64(littleEndian.Uint64(b))
		return nil

	case *bool:
		b := scratch[0:1]
		if _, err := io.ReadFull(r, b); err != nil {
			return err
		}
		*e = b[0] != 0x00
		return nil

	case *chainhash.Hash:
		if _, err := io.ReadFull(r, e[:]); err != nil {
			return err
		}
		return nil

	// Message header checksum.
	case *[4]byte:
		if _, err := io.ReadFull(r, e[:]); err != nil {
			return err
		}
		return nil

	// Message header command.
	case *[CommandSize]uint8:
		if _, err := io.ReadFull(r, e[:]); err != nil {
			return err
		}
		return nil
	}

	return errors.Errorf("unhandled element type %T", element)
}

// readElements reads multiple items from r. It is equivalent to multiple
// calls to readElement.
func readElements(r io.Reader, elements ...interface{}) error {
	for _, element := range elements {
		err := readElement(r, element)
		if err != nil {
			return err
		}
	}
	return nil
}

// writeElement writes the little endian representation of element to w.
func writeElement(w io.Writer, element interface{}) error {
	var scratch [8]byte
	switch e := element.(type) {
	case uint8:
		scratch[0] = e
		_, err := w.Write(scratch[0:1])
		return err

	case uint16:
		b := scratch[0:2]
		littleEndian.PutUint16(b, e)
		_, err := w.Write(b)
		return err

	case uint32:
		b := scratch[0:4]
		littleEndian.PutUint32(b, e)
		_, err := w.Write(b)
		return err

	case uint64:
		b := scratch[0:8]
		littleEndian.PutUint64(b, e)
		_, err := w.Write(b)
		return err

	case int64:
		b := scratch[0:8]
		littleEndian.PutUint64(b, uint64(e))
		_, err := w.Write(b)
		return err

	case bool:
		if e {
			scratch[0] = 0x01
		} else {
			scratch[0] = 0x00
		}
		_, err := w.Write(scratch[0:1])
		return err

	case *chainhash.Hash:
		_, err := w.Write(e[:])
		return err

	// Message header checksum.
	case [4]byte:
		_, err := w.Write(e[:])
		return err

	// Message header command.
	case [CommandSize]uint8:
		_, err := w.Write(e[:])
		return err
	}

	return errors.Errorf("unhandled element type %T", element)
}

// writeElements writes multiple items to w. It is equivalent to multiple
// calls to writeElement.
func writeElements(w io.Writer, elements ...interface{}) error {
	for _, element := range elements {
		err := writeElement(w, element)
		if err != nil {
			return err
		}
	}
	return nil
}

// ReadVarInt reads a variable length integer from r and returns it as a
// uint64.
func ReadVarInt(r io.Reader) (uint64, error) {
	var discriminant uint8
	if err := readElement(r, &discriminant); err != nil {
		return 0, err
	}

	var rv uint64
	switch discriminant {
	case 0xff:
		var sv uint64
		if err := readElement(r, &sv); err != nil {
			return 0, err
		}
		rv = sv

		// The encoding is not canonical if the value could have been
		// encoded using fewer bytes.
		min := uint64(0x100000000)
		if rv < min {
			return 0, messageError("ReadVarInt", "non-canonical varint")
		}

	case 0xfe:
		var sv uint32
		if err := readElement(r, &sv); err != nil {
			return 0, err
		}
		rv = uint64(sv)

		min := uint64(0x10000)
		if rv < min {
			return 0, messageError("ReadVarInt", "non-canonical varint")
		}

	case 0xfd:
		var sv uint16
		if err := readElement(r, &sv); err != nil {
			return 0, err
		}
		rv = uint64(sv)

		min := uint64(0xfd)
		if rv < min {
			return 0, messageError("ReadVarInt", "non-canonical varint")
		}

	default:
		rv = uint64(discriminant)
	}

	return rv, nil
}

// WriteVarInt serializes val to w using a variable number of bytes depending
// on its value.
func WriteVarInt(w io.Writer, val uint64) error {
	if val < 0xfd {
		return writeElement(w, uint8(val))
	}

	if val <= math.MaxUint16 {
		if err := writeElement(w, uint8(0xfd)); err != nil {
			return err
		}
		return writeElement(w, uint16(val))
	}

	if val <= math.MaxUint32 {
		if err := writeElement(w, uint8(0xfe)); err != nil {
			return err
		}
		return writeElement(w, uint32(val))
	}

	if err := writeElement(w, uint8(0xff)); err != nil {
		return err
	}
	return writeElement(w, val)
}

// VarIntSerializeSize returns the number of bytes it would take to serialize
// val as a variable length integer.
func VarIntSerializeSize(val uint64) int {
	if val < 0xfd {
		return 1
	}
	if val <= math.MaxUint16 {
		return 3
	}
	if val <= math.MaxUint32 {
		return 5
	}
	return 9
}

// ReadVarString reads a variable length string from r and returns it as a Go
// string. An error is returned if the length is greater than the maximum
// message payload since it helps protect against memory exhaustion attacks
// and forced panics through malformed messages.
func ReadVarString(r io.Reader) (string, error) {
	count, err := ReadVarInt(r)
	if err != nil {
		return "", err
	}

	if count > MaxMessagePayload {
		return "", messageError("ReadVarString",
			"variable length string is too long")
	}

	buf := make([]byte, count)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// WriteVarString serializes str to w as a variable length integer containing
// the length of the string followed by the bytes that represent the string
// itself.
func WriteVarString(w io.Writer, str string) error {
	if err := WriteVarInt(w, uint64(len(str))); err != nil {
		return err
	}
	_, err := w.Write([]byte(str))
	return err
}

// ReadVarBytes reads a variable length byte array. maxAllowed bounds the
// declared length before any allocation happens.
func ReadVarBytes(r io.Reader, maxAllowed uint64, fieldName string) ([]byte, error) {
	count, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}

	if count > maxAllowed {
		return nil, messageError("ReadVarBytes",
			fieldName+" is larger than the max allowed size")
	}

	b := make([]byte, count)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// WriteVarBytes serializes a variable length byte array to w as a varint
// followed by the bytes themselves.
func WriteVarBytes(w io.Writer, bytes []byte) error {
	if err := WriteVarInt(w, uint64(len(bytes))); err != nil {
		return err
	}
	_, err := w.Write(bytes)
	return err
}
