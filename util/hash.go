package util

import (
	"encoding/binary"
	"io"

	"github.com/spaolacci/murmur3"
)

// Murmur128 is a streaming murmur3-128 digest used for file integrity
// sums. Murmur is stable across processes, so the encoded sum may be
// persisted and verified later.
type Murmur128 struct {
	mur murmur3.Hash128
}

func NewMurmur128() *Murmur128 {
	return &Murmur128{mur: murmur3.New128()}
}

func (m *Murmur128) Write(p []byte) error {
	n, err := m.mur.Write(p)
	if n != len(p) {
		return io.ErrShortWrite
	}
	return err
}

// Sum128 returns the two halves of the current 128-bit digest.
func (m *Murmur128) Sum128() (uint64, uint64) {
	return m.mur.Sum128()
}

// EncodeSum128 returns the current digest in uvarint encoding.
func (m *Murmur128) EncodeSum128() []byte {
	buf := make([]byte, binary.MaxVarintLen64*2)
	s1, s2 := m.mur.Sum128()
	var index int
	index += binary.PutUvarint(buf[index:], s1)
	index += binary.PutUvarint(buf[index:], s2)
	return buf[:index]
}

func (m *Murmur128) Reset() {
	m.mur.Reset()
}
