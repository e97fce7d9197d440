package mode

import (
	"fmt"

	"github.com/igolaizola/blockmode/pkg/block"
	"go.uber.org/zap"
)

// CBC chains each block to the previous ciphertext block, starting from a
// random IV that is sent as the first ciphertext block.
//
// A fresh IV is drawn on every Encrypt. Callers reusing a key must make sure
// the random source never repeats.
type CBC struct {
	options
}

// NewCBC returns a cipher block chaining mode.
func NewCBC(opts ...Option) *CBC {
	return &CBC{options: newOptions("cbc", opts)}
}

func (m *CBC) Name() string {
	return "cbc"
}

// Encrypt returns iv || c1 || ... || cn.
func (m *CBC) Encrypt(plaintext []byte, key block.Key) ([]byte, error) {
	blocks, err := block.Group(m.padder.Pad(plaintext))
	if err != nil {
		return nil, fmt.Errorf("blockmode: couldn't group plaintext: %w", err)
	}
	iv, err := m.rnd.NewIV()
	if err != nil {
		return nil, fmt.Errorf("blockmode: couldn't generate iv: %w", err)
	}

	c := block.Bind(m.prim, key)
	out := make([]block.Block, 0, len(blocks)+1)
	out = append(out, iv)
	prev := iv
	for _, b := range blocks {
		prev = c.Encrypt(b.Xor(prev))
		out = append(out, prev)
	}
	m.log.Debug("encrypted", zap.Int("blocks", len(blocks)))
	return block.Ungroup(out), nil
}

// Decrypt reads the IV from the first block and undoes the chaining. A
// ciphertext holding only the IV decrypts to an empty plaintext.
func (m *CBC) Decrypt(ciphertext []byte, key block.Key) ([]byte, error) {
	if len(ciphertext) < block.Size {
		return nil, fmt.Errorf("%w: %d bytes, need a %d byte iv", ErrTruncatedCiphertext, len(ciphertext), block.Size)
	}
	blocks, err := block.Group(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("blockmode: couldn't group ciphertext: %w", err)
	}
	if len(blocks) == 1 {
		return []byte{}, nil
	}

	c := block.Bind(m.prim, key)
	out := make([]block.Block, 0, len(blocks)-1)
	prev := blocks[0]
	for _, b := range blocks[1:] {
		out = append(out, c.Decrypt(b).Xor(prev))
		prev = b
	}
	plaintext, err := m.padder.Unpad(block.Ungroup(out))
	if err != nil {
		return nil, fmt.Errorf("blockmode: couldn't unpad: %w", err)
	}
	m.log.Debug("decrypted", zap.Int("blocks", len(out)))
	return plaintext, nil
}
