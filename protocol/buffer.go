package protocol

import (
	"encoding/binary"
	"fmt"
)

// Buffer is the byte buffer every message codec reads from and writes to.
// Writes append to the underlying slice; reads consume from a cursor.
//
// The read/write primitives mirror the host's packet buffer: unsigned bytes,
// bools, VarInts, length-prefixed UTF-8 strings and VarInt-prefixed byte
// arrays.
type Buffer struct {
	data []byte
	off  int
}

// MaxVarIntBytes is the longest encoding of a 32-bit VarInt.
const MaxVarIntBytes = 5

// NewBuffer returns an empty write buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// BufferFrom wraps raw payload bytes for reading. The slice is not copied.
func BufferFrom(data []byte) *Buffer {
	return &Buffer{data: data}
}

// Bytes returns the full written contents, including already-read bytes.
func (b *Buffer) Bytes() []byte {
	if b == nil {
		return nil
	}
	return b.data
}

// Remaining returns the number of unread bytes.
func (b *Buffer) Remaining() int {
	if b == nil {
		return 0
	}
	return len(b.data) - b.off
}

// Readable reports whether at least one unread byte remains.
func (b *Buffer) Readable() bool {
	return b.Remaining() > 0
}

func (b *Buffer) WriteByte(v byte) {
	b.data = append(b.data, v)
}

func (b *Buffer) WriteBool(v bool) {
	if v {
		b.WriteByte(1)
	} else {
		b.WriteByte(0)
	}
}

func (b *Buffer) WriteBytes(v []byte) {
	b.data = append(b.data, v...)
}

// WriteVarInt writes a 32-bit value in 7-bit groups, low group first.
func (b *Buffer) WriteVarInt(v int) {
	u := uint32(v)
	for {
		if u&^0x7F == 0 {
			b.WriteByte(byte(u))
			return
		}
		b.WriteByte(byte(u&0x7F | 0x80))
		u >>= 7
	}
}

// WriteUTF writes a VarInt length prefix followed by the raw UTF-8 bytes.
// max bounds the byte length; zero means the default of 32767.
func (b *Buffer) WriteUTF(s string, max int) error {
	if max <= 0 {
		max = 32767
	}
	if len(s) > max {
		return fmt.Errorf("string length %d exceeds maximum %d", len(s), max)
	}
	b.WriteVarInt(len(s))
	b.WriteBytes([]byte(s))
	return nil
}

// WriteByteArray writes a VarInt length prefix followed by the bytes.
func (b *Buffer) WriteByteArray(v []byte) {
	b.WriteVarInt(len(v))
	b.WriteBytes(v)
}

// WriteName writes a namespaced identifier as a UTF string.
func (b *Buffer) WriteName(n Name) {
	// namespace:path never exceeds the default string bound in practice
	_ = b.WriteUTF(n.String(), 0)
}

// WriteUint32 writes a big-endian 32-bit value.
func (b *Buffer) WriteUint32(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	b.WriteBytes(tmp[:])
}

func (b *Buffer) ReadByte() (byte, error) {
	if b.Remaining() < 1 {
		return 0, fmt.Errorf("read byte: buffer exhausted")
	}
	v := b.data[b.off]
	b.off++
	return v, nil
}

func (b *Buffer) ReadBool() (bool, error) {
	v, err := b.ReadByte()
	return v != 0, err
}

// ReadBytes consumes exactly n bytes.
func (b *Buffer) ReadBytes(n int) ([]byte, error) {
	if n < 0 || b.Remaining() < n {
		return nil, fmt.Errorf("read bytes: need %d, have %d", n, b.Remaining())
	}
	v := b.data[b.off : b.off+n]
	b.off += n
	return v, nil
}

// ReadRemaining consumes and returns all unread bytes.
func (b *Buffer) ReadRemaining() []byte {
	v := b.data[b.off:]
	b.off = len(b.data)
	return v
}

func (b *Buffer) ReadVarInt() (int, error) {
	var u uint32
	for shift := 0; shift < MaxVarIntBytes*7; shift += 7 {
		c, err := b.ReadByte()
		if err != nil {
			return 0, fmt.Errorf("read varint: %w", err)
		}
		u |= uint32(c&0x7F) << shift
		if c&0x80 == 0 {
			return int(int32(u)), nil
		}
	}
	return 0, fmt.Errorf("read varint: value too long")
}

func (b *Buffer) ReadUTF(max int) (string, error) {
	if max <= 0 {
		max = 32767
	}
	n, err := b.ReadVarInt()
	if err != nil {
		return "", fmt.Errorf("read string length: %w", err)
	}
	if n < 0 || n > max {
		return "", fmt.Errorf("string length %d outside [0, %d]", n, max)
	}
	v, err := b.ReadBytes(n)
	if err != nil {
		return "", fmt.Errorf("read string: %w", err)
	}
	return string(v), nil
}

func (b *Buffer) ReadByteArray() ([]byte, error) {
	n, err := b.ReadVarInt()
	if err != nil {
		return nil, fmt.Errorf("read array length: %w", err)
	}
	if n < 0 {
		return nil, fmt.Errorf("negative array length %d", n)
	}
	v, err := b.ReadBytes(n)
	if err != nil {
		return nil, fmt.Errorf("read array: %w", err)
	}
	out := make([]byte, n)
	copy(out, v)
	return out, nil
}

func (b *Buffer) ReadName() (Name, error) {
	s, err := b.ReadUTF(0)
	if err != nil {
		return Name{}, err
	}
	return ParseName(s)
}

func (b *Buffer) ReadUint32() (uint32, error) {
	v, err := b.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(v), nil
}
