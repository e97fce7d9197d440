package mode

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/igolaizola/blockmode/pkg/block"
	"go.uber.org/zap"

	aesecb "github.com/andreburgaud/crypt2go/ecb"
)

// ErrChunkOutOfRange is returned by DecryptChunk for an index past the end
// of the ciphertext.
var ErrChunkOutOfRange = errors.New("blockmode: chunk out of range")

// CTR turns the primitive into a stream cipher. Chunk i is XORed with the
// encryption of nonce || uint64le(i). No padding is used, so the ciphertext
// is the 8 byte nonce followed by exactly len(plaintext) bytes.
//
// A (key, nonce) pair must never be used for two messages: the keystream
// would repeat.
type CTR struct {
	options
}

// NewCTR returns a counter mode.
func NewCTR(opts ...Option) *CTR {
	return &CTR{options: newOptions("ctr", opts)}
}

func (m *CTR) Name() string {
	return "ctr"
}

// Encrypt returns nonce || plaintext XOR keystream.
func (m *CTR) Encrypt(plaintext []byte, key block.Key) ([]byte, error) {
	nonce, err := m.rnd.NewNonce()
	if err != nil {
		return nil, fmt.Errorf("blockmode: couldn't generate nonce: %w", err)
	}
	out := make([]byte, block.NonceSize+len(plaintext))
	copy(out, nonce[:])
	m.xorKeyStream(out[block.NonceSize:], plaintext, nonce, key)
	m.log.Debug("encrypted", zap.Int("chunks", chunks(len(plaintext))))
	return out, nil
}

// Decrypt reads the nonce and XORs the rest with the same keystream.
func (m *CTR) Decrypt(ciphertext []byte, key block.Key) ([]byte, error) {
	nonce, body, err := splitNonce(ciphertext)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(body))
	m.xorKeyStream(out, body, nonce, key)
	m.log.Debug("decrypted", zap.Int("chunks", chunks(len(body))))
	return out, nil
}

// DecryptChunk decrypts only chunk i of ciphertext. The last chunk may be
// shorter than block.Size.
func (m *CTR) DecryptChunk(ciphertext []byte, key block.Key, i int) ([]byte, error) {
	nonce, body, err := splitNonce(ciphertext)
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= chunks(len(body)) {
		return nil, fmt.Errorf("%w: %d of %d", ErrChunkOutOfRange, i, chunks(len(body)))
	}
	start := i * block.Size
	end := start + block.Size
	if end > len(body) {
		end = len(body)
	}
	ks := m.Keystream(nonce, key, uint64(i))
	return xor(body[start:end], ks[:]), nil
}

// Keystream returns the keystream block for chunk i.
func (m *CTR) Keystream(nonce block.Nonce, key block.Key, i uint64) block.Block {
	return m.prim.Encrypt(counterBlock(nonce, i), key)
}

// xorKeyStream encrypts all counter blocks in one ECB pass and XORs src with
// the result. The primitive always runs forward, also when decrypting.
func (m *CTR) xorKeyStream(dst, src []byte, nonce block.Nonce, key block.Key) {
	n := chunks(len(src))
	if n == 0 {
		return
	}
	counters := make([]byte, n*block.Size)
	for i := 0; i < n; i++ {
		cb := counterBlock(nonce, uint64(i))
		copy(counters[i*block.Size:], cb[:])
	}
	ks := make([]byte, len(counters))
	aesecb.NewECBEncrypter(block.Cipher(m.prim, key)).CryptBlocks(ks, counters)
	copy(dst, xor(src, ks))
}

func counterBlock(nonce block.Nonce, i uint64) block.Block {
	var cb block.Block
	copy(cb[:block.NonceSize], nonce[:])
	binary.LittleEndian.PutUint64(cb[block.NonceSize:], i)
	return cb
}

func splitNonce(ciphertext []byte) (block.Nonce, []byte, error) {
	var nonce block.Nonce
	if len(ciphertext) < block.NonceSize {
		return nonce, nil, fmt.Errorf("%w: %d bytes, need a %d byte nonce", ErrTruncatedCiphertext, len(ciphertext), block.NonceSize)
	}
	copy(nonce[:], ciphertext)
	return nonce, ciphertext[block.NonceSize:], nil
}

func chunks(n int) int {
	return (n + block.Size - 1) / block.Size
}

func xor(a []byte, b []byte) []byte {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	c := make([]byte, n)
	for i := 0; i < n; i++ {
		c[i] = a[i] ^ b[i]
	}
	return c
}
