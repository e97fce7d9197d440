// Package block holds the fixed-size values the modes operate on and the
// single-block cipher primitives behind them.
package block

import (
	"errors"
	"fmt"
)

const (
	// Size is the cipher's native block length in bytes.
	Size = 16
	// KeySize is the length of a primitive key in bytes.
	KeySize = 16
	// NonceSize is the length of a counter mode nonce, half a block.
	NonceSize = Size / 2
)

// ErrInvalidBlockLength is returned when data that should be made of whole
// blocks is not a multiple of Size.
var ErrInvalidBlockLength = errors.New("blockmode: input not full blocks")

// Block is exactly one cipher block.
type Block [Size]byte

// Key is an opaque primitive key.
type Key [KeySize]byte

// Nonce is combined with a per-chunk counter to build counter blocks.
type Nonce [NonceSize]byte

// Xor returns b XOR o.
func (b Block) Xor(o Block) Block {
	var x Block
	for i := range b {
		x[i] = b[i] ^ o[i]
	}
	return x
}

// Group splits data into consecutive blocks. The length of data must be a
// multiple of Size; pad it first otherwise.
func Group(data []byte) ([]Block, error) {
	if len(data)%Size != 0 {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidBlockLength, len(data))
	}
	blocks := make([]Block, 0, len(data)/Size)
	for i := 0; i < len(data); i += Size {
		var b Block
		copy(b[:], data[i:i+Size])
		blocks = append(blocks, b)
	}
	return blocks, nil
}

// Ungroup concatenates blocks in order.
func Ungroup(blocks []Block) []byte {
	data := make([]byte, 0, len(blocks)*Size)
	for _, b := range blocks {
		data = append(data, b[:]...)
	}
	return data
}
