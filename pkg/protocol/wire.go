package protocol

import (
	"encoding/binary"
	"errors"
	"io"
	"time"
)

// MaxStringLength is the maximum encodable string length in bytes. Strings
// carry a uint16 length prefix.
const MaxStringLength = 65535

var ErrStringTooLong = errors.New("string exceeds maximum length (65535 bytes)")

// All integers on the wire are big-endian.

func WriteUint8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

func ReadUint8(r io.Reader) (uint8, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func WriteUint16(w io.Writer, v uint16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func ReadUint16(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func WriteUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func ReadUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func WriteUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func ReadUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

// WriteBool encodes a bool as a single byte (0 or 1)
func WriteBool(w io.Writer, v bool) error {
	b := uint8(0)
	if v {
		b = 1
	}
	return WriteUint8(w, b)
}

// ReadBool decodes a single byte as a bool; any nonzero value is true
func ReadBool(r io.Reader) (bool, error) {
	b, err := ReadUint8(r)
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

// WriteString encodes a string as [length (uint16)][UTF-8 bytes]
func WriteString(w io.Writer, s string) error {
	if len(s) > MaxStringLength {
		return ErrStringTooLong
	}
	if err := WriteUint16(w, uint16(len(s))); err != nil {
		return err
	}
	if len(s) > 0 {
		if _, err := w.Write([]byte(s)); err != nil {
			return err
		}
	}
	return nil
}

// ReadString decodes a length-prefixed string
func ReadString(r io.Reader) (string, error) {
	length, err := ReadUint16(r)
	if err != nil {
		return "", err
	}
	if length == 0 {
		return "", nil
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// WriteTimestamp encodes a time as Unix milliseconds (uint64)
func WriteTimestamp(w io.Writer, t time.Time) error {
	return WriteUint64(w, uint64(t.UnixMilli()))
}

// ReadTimestamp decodes a Unix-millisecond timestamp into a UTC time
func ReadTimestamp(r io.Reader) (time.Time, error) {
	millis, err := ReadUint64(r)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(int64(millis)).UTC(), nil
}
