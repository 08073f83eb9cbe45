// Primitive reader/writer codec over a byte-cursor view of a mapped
// region. Numeric encodings are native-endian (little-endian on all
// supported hosts). CodecWriter.WriteStopbit uses the
// little-endian 7-bit "stop-bit" varint encoding: all bytes but the
// last carry the continuation bit (0x80) set.
package chronicle

import (
	"encoding/binary"
	"fmt"
	"math"
)

// CodecWriter is a forward-only byte-cursor writer into a fixed byte
// slice, typically a view into a memory-mapped data file.
type CodecWriter struct {
	buf []byte
	pos int
}

// NewCodecWriter returns a CodecWriter that writes into buf starting at
// offset start.
func NewCodecWriter(buf []byte, start int) *CodecWriter {
	return &CodecWriter{buf: buf, pos: start}
}

// Pos returns the writer's current cursor position.
func (w *CodecWriter) Pos() int { return w.pos }

// Remaining returns the number of bytes left before the end of buf.
func (w *CodecWriter) Remaining() int { return len(w.buf) - w.pos }

func (w *CodecWriter) require(n int) error {
	if w.pos+n > len(w.buf) {
		return ErrNoSpace
	}
	return nil
}

// WriteByte writes a single byte.
func (w *CodecWriter) WriteByte(b byte) error {
	if err := w.require(1); err != nil {
		return err
	}
	w.buf[w.pos] = b
	w.pos++
	return nil
}

// WriteBool writes a single byte: 1 for true, 0 for false.
func (w *CodecWriter) WriteBool(v bool) error {
	if v {
		return w.WriteByte(1)
	}
	return w.WriteByte(0)
}

// WriteInt16 writes a native-endian int16.
func (w *CodecWriter) WriteInt16(v int16) error {
	if err := w.require(2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(w.buf[w.pos:], uint16(v))
	w.pos += 2
	return nil
}

// WriteInt32 writes a native-endian int32.
func (w *CodecWriter) WriteInt32(v int32) error {
	if err := w.require(4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(w.buf[w.pos:], uint32(v))
	w.pos += 4
	return nil
}

// WriteInt64 writes a native-endian int64.
func (w *CodecWriter) WriteInt64(v int64) error {
	if err := w.require(8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(w.buf[w.pos:], uint64(v))
	w.pos += 8
	return nil
}

// WriteFloat32 writes a native-endian IEEE 754 float32.
func (w *CodecWriter) WriteFloat32(v float32) error {
	return w.WriteInt32(int32(math.Float32bits(v)))
}

// WriteFloat64 writes a native-endian IEEE 754 float64.
func (w *CodecWriter) WriteFloat64(v float64) error {
	return w.WriteInt64(int64(math.Float64bits(v)))
}

// WriteStopbit writes v using the little-endian 7-bit stop-bit varint
// encoding. Negative values are rejected with ErrInvalidArgument rather
// than silently looping on a sign-extended shift.
func (w *CodecWriter) WriteStopbit(v int64) error {
	if v < 0 {
		return ErrInvalidArgument
	}
	u := uint64(v)
	for {
		b := byte(u & 0x7f)
		u >>= 7
		if u != 0 {
			b |= 0x80
		}
		if err := w.WriteByte(b); err != nil {
			return err
		}
		if u == 0 {
			return nil
		}
	}
}

// stopbitLen returns the number of bytes WriteStopbit would emit for v.
func stopbitLen(v int64) int {
	u := uint64(v)
	n := 1
	for u >= 0x80 {
		u >>= 7
		n++
	}
	return n
}

// WriteString writes a length-prefixed UTF-8 string: stopbit(len(bytes))
// followed by the raw bytes.
func (w *CodecWriter) WriteString(s string) error {
	if err := w.WriteStopbit(int64(len(s))); err != nil {
		return err
	}
	if err := w.require(len(s)); err != nil {
		return err
	}
	copy(w.buf[w.pos:], s)
	w.pos += len(s)
	return nil
}

// WriteFixedString writes s as stopbit(len)||bytes, padded with zero
// bytes to exactly maxSize total bytes. It fails with ErrInvalidArgument
// if the stopbit-prefixed encoding does not fit in maxSize.
func (w *CodecWriter) WriteFixedString(s string, maxSize int) error {
	need := stopbitLen(int64(len(s))) + len(s)
	if need > maxSize {
		return ErrInvalidArgument
	}
	start := w.pos
	if err := w.WriteString(s); err != nil {
		return err
	}
	pad := maxSize - (w.pos - start)
	if pad > 0 {
		if err := w.require(pad); err != nil {
			return err
		}
		for i := 0; i < pad; i++ {
			w.buf[w.pos] = 0
			w.pos++
		}
	}
	return nil
}

// WriteLengthSentinel writes the bitwise-inverted int32 record length
// (pos - startPos) at the 4 bytes immediately preceding startPos, i.e. at
// [startPos-4, startPos). This is the "length prefix written last" framing.
func (w *CodecWriter) WriteLengthSentinel(startPos int) error {
	length := w.pos - startPos
	if startPos < 4 {
		return fmt.Errorf("chronicle: write length sentinel: %w", ErrInvalidArgument)
	}
	binary.LittleEndian.PutUint32(w.buf[startPos-4:], uint32(^int32(length)))
	return nil
}

// CodecReader is a forward-only byte-cursor reader over a fixed byte
// slice, typically a view into a memory-mapped data file.
type CodecReader struct {
	buf []byte
	pos int
}

// NewCodecReader returns a CodecReader over buf starting at offset
// start.
func NewCodecReader(buf []byte, start int) *CodecReader {
	return &CodecReader{buf: buf, pos: start}
}

// Pos returns the reader's current cursor position.
func (r *CodecReader) Pos() int { return r.pos }

// Remaining returns the number of bytes left before the end of buf.
func (r *CodecReader) Remaining() int { return len(r.buf) - r.pos }

func (r *CodecReader) require(n int) error {
	if r.pos+n > len(r.buf) {
		return ErrNoData
	}
	return nil
}

// GetLength returns bitwise_not(int32 at cursor-4), the record length
// sentinel preceding the cursor position.
func (r *CodecReader) GetLength() (int32, error) {
	if r.pos < 4 || r.pos > len(r.buf) {
		return 0, ErrNoData
	}
	raw := binary.LittleEndian.Uint32(r.buf[r.pos-4:])
	return ^int32(raw), nil
}

// ReadByte reads a single byte and advances the cursor.
func (r *CodecReader) ReadByte() (byte, error) {
	if err := r.require(1); err != nil {
		return 0, err
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

// PeekByte reads a single byte without advancing the cursor.
func (r *CodecReader) PeekByte() (byte, error) {
	if err := r.require(1); err != nil {
		return 0, err
	}
	return r.buf[r.pos], nil
}

// ReadBool reads a single byte and interprets it as a boolean: 0 is
// false, any other value is true.
func (r *CodecReader) ReadBool() (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

// ReadInt16 reads a native-endian int16.
func (r *CodecReader) ReadInt16() (int16, error) {
	if err := r.require(2); err != nil {
		return 0, err
	}
	v := int16(binary.LittleEndian.Uint16(r.buf[r.pos:]))
	r.pos += 2
	return v, nil
}

// ReadInt32 reads a native-endian int32.
func (r *CodecReader) ReadInt32() (int32, error) {
	if err := r.require(4); err != nil {
		return 0, err
	}
	v := int32(binary.LittleEndian.Uint32(r.buf[r.pos:]))
	r.pos += 4
	return v, nil
}

// PeekInt32 reads a native-endian int32 without advancing the cursor.
func (r *CodecReader) PeekInt32() (int32, error) {
	if err := r.require(4); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(r.buf[r.pos:])), nil
}

// ReadInt64 reads a native-endian int64.
func (r *CodecReader) ReadInt64() (int64, error) {
	if err := r.require(8); err != nil {
		return 0, err
	}
	v := int64(binary.LittleEndian.Uint64(r.buf[r.pos:]))
	r.pos += 8
	return v, nil
}

// ReadFloat32 reads a native-endian IEEE 754 float32.
func (r *CodecReader) ReadFloat32() (float32, error) {
	v, err := r.ReadInt32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(uint32(v)), nil
}

// ReadFloat64 reads a native-endian IEEE 754 float64.
func (r *CodecReader) ReadFloat64() (float64, error) {
	v, err := r.ReadInt64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(uint64(v)), nil
}

// ReadStopbit reads a little-endian 7-bit stop-bit varint.
func (r *CodecReader) ReadStopbit() (int64, error) {
	var result uint64
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return int64(result), nil
		}
		shift += 7
		if shift >= 64 {
			return 0, fmt.Errorf("chronicle: stopbit overflow: %w", ErrCorruptData)
		}
	}
}

// ReadString reads a stopbit-prefixed UTF-8 string.
func (r *CodecReader) ReadString() (string, error) {
	n, err := r.ReadStopbit()
	if err != nil {
		return "", err
	}
	if err := r.require(int(n)); err != nil {
		return "", err
	}
	s := string(r.buf[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

// PeekString reads a stopbit-prefixed UTF-8 string without advancing the
// cursor.
func (r *CodecReader) PeekString() (string, error) {
	save := r.pos
	s, err := r.ReadString()
	r.pos = save
	return s, err
}

// ReadFixedString reads a stopbit-prefixed string written by
// WriteFixedString and advances the cursor to start+maxSize regardless
// of the encoded string's length.
func (r *CodecReader) ReadFixedString(maxSize int) (string, error) {
	start := r.pos
	s, err := r.ReadString()
	if err != nil {
		return "", err
	}
	end := start + maxSize
	if end > len(r.buf) {
		return "", ErrNoData
	}
	r.pos = end
	return s, nil
}
