package game

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand/v2"

	"golang.org/x/crypto/chacha20"
)

// chachaSource is a math/rand/v2 Source backed by a 20-round ChaCha keystream.
// The 64-bit seed is expanded to a 256-bit key with splitmix64.
type chachaSource struct {
	cipher *chacha20.Cipher
	buf    [64]byte
	off    int
}

func newChaChaSource(seed uint64) *chachaSource {
	var key [chacha20.KeySize]byte
	state := seed
	for i := 0; i < chacha20.KeySize/8; i++ {
		binary.LittleEndian.PutUint64(key[i*8:], splitmix64(&state))
	}
	nonce := make([]byte, chacha20.NonceSize)
	c, err := chacha20.NewUnauthenticatedCipher(key[:], nonce)
	if err != nil {
		// key and nonce lengths are fixed above
		panic(err)
	}
	src := &chachaSource{cipher: c}
	src.off = len(src.buf)
	return src
}

func (s *chachaSource) Uint64() uint64 {
	if s.off+8 > len(s.buf) {
		clear(s.buf[:])
		s.cipher.XORKeyStream(s.buf[:], s.buf[:])
		s.off = 0
	}
	v := binary.LittleEndian.Uint64(s.buf[s.off:])
	s.off += 8
	return v
}

func splitmix64(state *uint64) uint64 {
	*state += 0x9e3779b97f4a7c15
	z := *state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// NewRand returns a reproducible generator for seed. Identical seeds yield
// identical streams on every platform.
func NewRand(seed uint64) *mrand.Rand {
	return mrand.New(newChaChaSource(seed))
}

// RandomSeed draws a seed from the operating system for unseeded engines.
func RandomSeed() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return binary.LittleEndian.Uint64(b[:])
}
