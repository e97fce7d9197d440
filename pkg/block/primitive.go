package block

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/twofish"
)

// ErrUnknownPrimitive is returned by Lookup for unsupported names.
var ErrUnknownPrimitive = errors.New("blockmode: unknown primitive")

// Primitive encrypts and decrypts one block under a key. Decrypt must undo
// Encrypt for every block and key.
type Primitive interface {
	Encrypt(b Block, k Key) Block
	Decrypt(b Block, k Key) Block
}

// Schedule expands a raw key into a ready to use cipher.
type Schedule func(key []byte) (cipher.Block, error)

type scheduled struct {
	name     string
	schedule Schedule
}

// New returns a Primitive that expands the key with schedule on every call.
// The cipher built by schedule must have a block size of Size.
func New(name string, schedule Schedule) Primitive {
	return &scheduled{name: name, schedule: schedule}
}

// AES returns the AES-128 primitive.
func AES() Primitive {
	return New("aes", aes.NewCipher)
}

// Twofish returns the Twofish-128 primitive.
func Twofish() Primitive {
	return New("twofish", func(key []byte) (cipher.Block, error) {
		return twofish.NewCipher(key)
	})
}

var primitives = map[string]func() Primitive{
	"aes":     AES,
	"twofish": Twofish,
}

// Lookup returns the primitive registered under name.
func Lookup(name string) (Primitive, error) {
	fn, ok := primitives[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPrimitive, name)
	}
	return fn(), nil
}

// Names lists the registered primitive names in order.
func Names() []string {
	var names []string
	for n := range primitives {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (s *scheduled) String() string {
	return s.name
}

func (s *scheduled) cipher(k Key) cipher.Block {
	c, err := s.schedule(k[:])
	if err != nil {
		panic(fmt.Sprintf("blockmode: %s key schedule: %v", s.name, err))
	}
	if c.BlockSize() != Size {
		panic(fmt.Sprintf("blockmode: %s block size is %d", s.name, c.BlockSize()))
	}
	return c
}

func (s *scheduled) Encrypt(b Block, k Key) Block {
	var out Block
	s.cipher(k).Encrypt(out[:], b[:])
	return out
}

func (s *scheduled) Decrypt(b Block, k Key) Block {
	var out Block
	s.cipher(k).Decrypt(out[:], b[:])
	return out
}

// Cipher binds a primitive to a key so it can be used wherever the standard
// library expects a cipher.Block.
func Cipher(p Primitive, k Key) cipher.Block {
	if s, ok := p.(*scheduled); ok {
		return s.cipher(k)
	}
	return &keyed{p: p, k: k}
}

type keyed struct {
	p Primitive
	k Key
}

func (c *keyed) BlockSize() int {
	return Size
}

func (c *keyed) Encrypt(dst, src []byte) {
	if len(src) < Size {
		panic("blockmode: input not full block")
	}
	if len(dst) < Size {
		panic("blockmode: output not full block")
	}
	var b Block
	copy(b[:], src)
	out := c.p.Encrypt(b, c.k)
	copy(dst, out[:])
}

func (c *keyed) Decrypt(dst, src []byte) {
	if len(src) < Size {
		panic("blockmode: input not full block")
	}
	if len(dst) < Size {
		panic("blockmode: output not full block")
	}
	var b Block
	copy(b[:], src)
	out := c.p.Decrypt(b, c.k)
	copy(dst, out[:])
}

// Bound is a primitive whose key has already been expanded, for encrypting
// many blocks under one key.
type Bound struct {
	c cipher.Block
}

// Bind expands k once for use with p.
func Bind(p Primitive, k Key) *Bound {
	return &Bound{c: Cipher(p, k)}
}

// Encrypt encrypts one block.
func (b *Bound) Encrypt(in Block) Block {
	var out Block
	b.c.Encrypt(out[:], in[:])
	return out
}

// Decrypt decrypts one block.
func (b *Bound) Decrypt(in Block) Block {
	var out Block
	b.c.Decrypt(out[:], in[:])
	return out
}
