// Package random supplies initialization vectors and nonces.
//
// Values must never repeat under the same key. Nothing here tracks what was
// handed out before; that is up to whoever manages the keys.
package random

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/igolaizola/blockmode/pkg/block"
)

// Source hands out fresh IVs and nonces.
type Source interface {
	NewIV() (block.Block, error)
	NewNonce() (block.Nonce, error)
}

type reader struct {
	rnd io.Reader
}

// New returns a Source reading from rnd. Tests pass a fixed or seeded reader
// to get reproducible ciphertext.
func New(rnd io.Reader) Source {
	return &reader{rnd: rnd}
}

// Default returns a Source backed by crypto/rand.
func Default() Source {
	return New(rand.Reader)
}

func (r *reader) NewIV() (block.Block, error) {
	var iv block.Block
	if _, err := io.ReadFull(r.rnd, iv[:]); err != nil {
		return iv, fmt.Errorf("blockmode: couldn't read iv: %w", err)
	}
	return iv, nil
}

func (r *reader) NewNonce() (block.Nonce, error) {
	var nonce block.Nonce
	if _, err := io.ReadFull(r.rnd, nonce[:]); err != nil {
		return nonce, fmt.Errorf("blockmode: couldn't read nonce: %w", err)
	}
	return nonce, nil
}
