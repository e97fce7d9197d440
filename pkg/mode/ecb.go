package mode

import (
	"fmt"

	"github.com/igolaizola/blockmode/pkg/block"
	"go.uber.org/zap"
)

// ECB encrypts every block independently.
//
// ECB is not secure: equal plaintext blocks give equal ciphertext blocks
// under the same key, so the structure of the message shows through.
type ECB struct {
	options
}

// NewECB returns an electronic codebook mode.
func NewECB(opts ...Option) *ECB {
	return &ECB{options: newOptions("ecb", opts)}
}

func (e *ECB) Name() string {
	return "ecb"
}

// Encrypt pads plaintext and encrypts each block. The result is a positive
// multiple of block.Size.
func (e *ECB) Encrypt(plaintext []byte, key block.Key) ([]byte, error) {
	blocks, err := block.Group(e.padder.Pad(plaintext))
	if err != nil {
		return nil, fmt.Errorf("blockmode: couldn't group plaintext: %w", err)
	}
	c := block.Bind(e.prim, key)
	for i, b := range blocks {
		blocks[i] = c.Encrypt(b)
	}
	e.log.Debug("encrypted", zap.Int("blocks", len(blocks)))
	return block.Ungroup(blocks), nil
}

// Decrypt decrypts each block and removes the padding.
func (e *ECB) Decrypt(ciphertext []byte, key block.Key) ([]byte, error) {
	if len(ciphertext) == 0 {
		return nil, fmt.Errorf("%w: empty ecb ciphertext", ErrTruncatedCiphertext)
	}
	blocks, err := block.Group(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("blockmode: couldn't group ciphertext: %w", err)
	}
	c := block.Bind(e.prim, key)
	for i, b := range blocks {
		blocks[i] = c.Decrypt(b)
	}
	plaintext, err := e.padder.Unpad(block.Ungroup(blocks))
	if err != nil {
		return nil, fmt.Errorf("blockmode: couldn't unpad: %w", err)
	}
	e.log.Debug("decrypted", zap.Int("blocks", len(blocks)))
	return plaintext, nil
}
