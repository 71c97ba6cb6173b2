// Package txdecode converts raw stream transactions into canonical market
// events for the three indexed platforms. It is the binary-format layer:
// instruction opcodes, positional account-key layouts, log-scraped fee
// annotations, and length-prefixed event payloads emitted as log records.
//
// Every byte read is bounds-checked and failures surface as *DecodeError
// naming the field that could not be read. Decoders never panic on
// malformed input.
package txdecode

import (
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"
)

// DecodeError reports a malformed or truncated input, identifying the field
// whose read failed.
type DecodeError struct {
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %s", e.Field, e.Reason)
}

func decodeErr(field, format string, args ...any) *DecodeError {
	return &DecodeError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// reader walks a byte buffer with bounds checking. All multi-byte integers
// are little-endian.
type reader struct {
	buf []byte
	off int
}

func newReader(buf []byte) *reader {
	return &reader{buf: buf}
}

func (r *reader) need(field string, n int) error {
	if r.off+n > len(r.buf) {
		return decodeErr(field, "need %d bytes at offset %d, have %d", n, r.off, len(r.buf))
	}
	return nil
}

// skip advances past n bytes that the caller does not need.
func (r *reader) skip(field string, n int) error {
	if err := r.need(field, n); err != nil {
		return err
	}
	r.off += n
	return nil
}

func (r *reader) u8(field string) (uint8, error) {
	if err := r.need(field, 1); err != nil {
		return 0, err
	}
	v := r.buf[r.off]
	r.off++
	return v, nil
}

func (r *reader) boolByte(field string) (bool, error) {
	v, err := r.u8(field)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func (r *reader) u32(field string) (uint32, error) {
	if err := r.need(field, 4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

func (r *reader) u64(field string) (uint64, error) {
	if err := r.need(field, 8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v, nil
}

func (r *reader) i64(field string) (int64, error) {
	v, err := r.u64(field)
	return int64(v), err
}

// pubkey reads 32 bytes and renders them base58.
func (r *reader) pubkey(field string) (string, error) {
	if err := r.need(field, 32); err != nil {
		return "", err
	}
	v := base58.Encode(r.buf[r.off : r.off+32])
	r.off += 32
	return v, nil
}

// str reads a u32 length prefix followed by that many UTF-8 bytes.
func (r *reader) str(field string) (string, error) {
	n, err := r.u32(field + " length")
	if err != nil {
		return "", err
	}
	if err := r.need(field, int(n)); err != nil {
		return "", err
	}
	v := string(r.buf[r.off : r.off+int(n)])
	r.off += int(n)
	return v, nil
}

// u64At reads a little-endian u64 at an absolute offset without moving the
// cursor.
func u64At(buf []byte, off int, field string) (uint64, error) {
	if off < 0 || off+8 > len(buf) {
		return 0, decodeErr(field, "need 8 bytes at offset %d, have %d", off, len(buf))
	}
	return binary.LittleEndian.Uint64(buf[off:]), nil
}
