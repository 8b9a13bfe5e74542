package escrow

import (
	"encoding/binary"
	"fmt"

	"multiswap/crypto"
)

// CursorOverflow is the panic value raised when a cursor walks past the end of
// its buffer. The host runtime turns it into an aborted call.
type CursorOverflow struct {
	Offset   int
	Need     int
	Capacity int
}

func (o CursorOverflow) Error() string {
	return fmt.Sprintf("escrow: cursor overflow at offset %d (need %d, capacity %d)", o.Offset, o.Need, o.Capacity)
}

// Writer fills a buffer strictly left to right.
type Writer struct {
	buf []byte
	off int
}

// NewWriter starts a writer at offset zero of buf.
func NewWriter(buf []byte) *Writer { return &Writer{buf: buf} }

// Offset returns the number of bytes written so far.
func (w *Writer) Offset() int { return w.off }

func (w *Writer) claim(n int) []byte {
	if w.off+n > len(w.buf) {
		panic(CursorOverflow{Offset: w.off, Need: n, Capacity: len(w.buf)})
	}
	out := w.buf[w.off : w.off+n]
	w.off += n
	return out
}

func (w *Writer) WriteU8(v uint8) { w.claim(1)[0] = v }

func (w *Writer) WriteU64BE(v uint64) { binary.BigEndian.PutUint64(w.claim(8), v) }

func (w *Writer) WritePubkey(k crypto.PublicKey) { copy(w.claim(crypto.PublicKeySize), k[:]) }

// Reader mirrors Writer.
type Reader struct {
	buf []byte
	off int
}

// NewReader starts a reader at offset zero of buf.
func NewReader(buf []byte) *Reader { return &Reader{buf: buf} }

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int { return r.off }

func (r *Reader) take(n int) []byte {
	if r.off+n > len(r.buf) {
		panic(CursorOverflow{Offset: r.off, Need: n, Capacity: len(r.buf)})
	}
	out := r.buf[r.off : r.off+n]
	r.off += n
	return out
}

func (r *Reader) ReadU8() uint8 { return r.take(1)[0] }

func (r *Reader) ReadU64BE() uint64 { return binary.BigEndian.Uint64(r.take(8)) }

func (r *Reader) ReadPubkey() crypto.PublicKey {
	var k crypto.PublicKey
	copy(k[:], r.take(crypto.PublicKeySize))
	return k
}
