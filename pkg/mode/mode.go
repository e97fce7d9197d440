// Package mode extends a single-block primitive to arbitrary-length messages
// with the ECB, CBC and CTR modes of operation.
//
// None of the modes authenticate their output. CBC needs a fresh IV and CTR a
// fresh nonce for every message encrypted under a key; both are drawn from
// the configured random source and are not checked for reuse.
package mode

import (
	"errors"
	"fmt"
	"strings"

	"github.com/igolaizola/blockmode/pkg/block"
	"github.com/igolaizola/blockmode/pkg/padding"
	"github.com/igolaizola/blockmode/pkg/random"
	"go.uber.org/zap"
)

var (
	// ErrTruncatedCiphertext is returned when ciphertext is shorter than its
	// mode's header.
	ErrTruncatedCiphertext = errors.New("blockmode: truncated ciphertext")
	// ErrUnknownMode is returned by New and Inspect for unsupported names.
	ErrUnknownMode = errors.New("blockmode: unknown mode")
)

// Mode encrypts and decrypts whole messages under a key.
type Mode interface {
	Name() string
	Encrypt(plaintext []byte, key block.Key) ([]byte, error)
	Decrypt(ciphertext []byte, key block.Key) ([]byte, error)
}

type options struct {
	prim   block.Primitive
	rnd    random.Source
	padder *padding.Padder
	log    *zap.Logger
}

// Option configures a mode.
type Option func(*options)

// WithPrimitive sets the block primitive. Defaults to AES-128.
func WithPrimitive(p block.Primitive) Option {
	return func(o *options) {
		o.prim = p
	}
}

// WithRandom sets the IV and nonce source. Defaults to crypto/rand.
func WithRandom(rnd random.Source) Option {
	return func(o *options) {
		o.rnd = rnd
	}
}

// WithPaddingPolicy sets how ECB and CBC treat ambiguous padding on decrypt.
// Defaults to padding.Strict.
func WithPaddingPolicy(p padding.Policy) Option {
	return func(o *options) {
		o.padder = padding.New(p)
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

func newOptions(name string, opts []Option) options {
	o := options{
		prim:   block.AES(),
		rnd:    random.Default(),
		padder: padding.New(padding.Strict),
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.log = o.log.With(zap.String("mode", name))
	return o
}

var modes = map[string]func(...Option) Mode{
	"ecb": func(opts ...Option) Mode { return NewECB(opts...) },
	"cbc": func(opts ...Option) Mode { return NewCBC(opts...) },
	"ctr": func(opts ...Option) Mode { return NewCTR(opts...) },
}

// New returns the mode registered under name.
func New(name string, opts ...Option) (Mode, error) {
	fn, ok := modes[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, name)
	}
	return fn(opts...), nil
}

// Layout describes the structure of a ciphertext.
type Layout struct {
	Mode string
	// Header is the IV for CBC and the nonce for CTR.
	Header []byte
	// Body is the number of bytes following the header.
	Body int
	// Blocks counts the blocks (ECB, CBC) or chunks (CTR) in the body.
	Blocks int
}

// Inspect checks that ciphertext is well formed for the named mode and
// reports its layout. No key is needed.
func Inspect(name string, ciphertext []byte) (*Layout, error) {
	name = strings.ToLower(name)
	l := &Layout{Mode: name}
	switch name {
	case "ecb":
		if len(ciphertext) == 0 {
			return nil, fmt.Errorf("%w: empty ecb ciphertext", ErrTruncatedCiphertext)
		}
		if len(ciphertext)%block.Size != 0 {
			return nil, fmt.Errorf("%w: length %d", block.ErrInvalidBlockLength, len(ciphertext))
		}
	case "cbc":
		if len(ciphertext) < block.Size {
			return nil, fmt.Errorf("%w: %d bytes, need a %d byte iv", ErrTruncatedCiphertext, len(ciphertext), block.Size)
		}
		if len(ciphertext)%block.Size != 0 {
			return nil, fmt.Errorf("%w: length %d", block.ErrInvalidBlockLength, len(ciphertext))
		}
		l.Header = ciphertext[:block.Size]
	case "ctr":
		if len(ciphertext) < block.NonceSize {
			return nil, fmt.Errorf("%w: %d bytes, need a %d byte nonce", ErrTruncatedCiphertext, len(ciphertext), block.NonceSize)
		}
		l.Header = ciphertext[:block.NonceSize]
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, name)
	}
	l.Body = len(ciphertext) - len(l.Header)
	l.Blocks = (l.Body + block.Size - 1) / block.Size
	return l, nil
}
