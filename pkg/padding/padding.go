// Package padding implements PKCS#7 style padding for block modes.
//
// Pad always appends between 1 and block.Size bytes, each holding the pad
// length, so a buffer that is already block aligned gains a full extra block.
package padding

import (
	"errors"
	"fmt"

	"github.com/igolaizola/blockmode/pkg/block"

	pkcs7 "github.com/andreburgaud/crypt2go/padding"
)

// ErrAmbiguousPadding is returned by strict unpadding when the trailing pad
// bytes cannot be trusted.
var ErrAmbiguousPadding = errors.New("blockmode: ambiguous padding")

// Policy decides what Unpad does with a trailing pad it can't trust.
type Policy int

const (
	// Strict rejects empty buffers, pad values outside [1, block.Size] or
	// longer than the buffer, and pads whose bytes disagree.
	Strict Policy = iota
	// BestEffort only looks at the final byte and returns the buffer
	// untouched when that value is out of range. The result may still carry
	// pad bytes.
	BestEffort
)

func (p Policy) String() string {
	switch p {
	case Strict:
		return "strict"
	case BestEffort:
		return "best-effort"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy maps "strict" and "best-effort" to their Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "strict", "":
		return Strict, nil
	case "best-effort", "besteffort":
		return BestEffort, nil
	default:
		return 0, fmt.Errorf("blockmode: unknown padding policy %q", s)
	}
}

// Padder pads to block.Size and unpads according to its policy.
type Padder struct {
	policy Policy
	pkcs7  pkcs7.Padding
}

// New returns a Padder using the given unpad policy.
func New(policy Policy) *Padder {
	return &Padder{
		policy: policy,
		pkcs7:  pkcs7.NewPkcs7Padding(block.Size),
	}
}

// Policy returns the unpad policy.
func (p *Padder) Policy() Policy {
	return p.policy
}

// Pad returns a copy of data extended to a positive multiple of block.Size.
func (p *Padder) Pad(data []byte) []byte {
	// copy first, the pkcs7 padder appends to its argument
	buf := make([]byte, len(data), len(data)+block.Size)
	copy(buf, data)
	padded, err := p.pkcs7.Pad(buf)
	if err != nil {
		panic(fmt.Sprintf("blockmode: couldn't pad: %v", err))
	}
	return padded
}

// Unpad removes the trailing pad from data.
func (p *Padder) Unpad(data []byte) ([]byte, error) {
	if p.policy == BestEffort {
		return unpadLast(data), nil
	}
	// pkcs7 does not reject a zero pad length
	if len(data) > 0 && data[len(data)-1] == 0 {
		return nil, fmt.Errorf("%w: trailing byte 0", ErrAmbiguousPadding)
	}
	unpadded, err := p.pkcs7.Unpad(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAmbiguousPadding, err)
	}
	return unpadded, nil
}

// unpadLast trusts the final byte alone and leaves data untouched when that
// value is out of range.
func unpadLast(data []byte) []byte {
	if len(data) == 0 {
		return data
	}
	n := int(data[len(data)-1])
	if n < 1 || n > block.Size || n > len(data) {
		return data
	}
	return data[:len(data)-n]
}

var strict = New(Strict)

// Pad pads data to a positive multiple of block.Size.
func Pad(data []byte) []byte {
	return strict.Pad(data)
}

// Unpad removes the pad added by Pad, failing on anything ambiguous.
func Unpad(data []byte) ([]byte, error) {
	return strict.Unpad(data)
}
