// Package blockmode encrypts and decrypts messages with a block cipher
// primitive and a mode of operation chosen by name.
//
// The output is not authenticated. CBC and CTR draw a fresh IV or nonce per
// message and rely on it never repeating under the same key; the Codec does
// not keep track of previously used values.
package blockmode

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/igolaizola/blockmode/pkg/block"
	"github.com/igolaizola/blockmode/pkg/mode"
	"github.com/igolaizola/blockmode/pkg/padding"
	"github.com/igolaizola/blockmode/pkg/random"
	"go.uber.org/zap"
)

// ErrInvalidKey is returned when a key is not 16 hex encoded bytes.
var ErrInvalidKey = errors.New("blockmode: invalid key")

type Codec struct {
	modeName string
	primName string
	policy   padding.Policy
	rnd      random.Source
	log      *zap.Logger
	mode     mode.Mode
}

type Option func(*Codec)

// WithMode selects ecb, cbc or ctr. Defaults to cbc.
func WithMode(name string) Option {
	return func(c *Codec) {
		c.modeName = name
	}
}

// WithPrimitive selects the block primitive by name. Defaults to aes.
func WithPrimitive(name string) Option {
	return func(c *Codec) {
		c.primName = name
	}
}

func WithPaddingPolicy(p padding.Policy) Option {
	return func(c *Codec) {
		c.policy = p
	}
}

func WithRandom(rnd random.Source) Option {
	return func(c *Codec) {
		c.rnd = rnd
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Codec) {
		c.log = log
	}
}

func New(opts ...Option) (*Codec, error) {
	c := &Codec{
		modeName: "cbc",
		primName: "aes",
		policy:   padding.Strict,
		rnd:      random.Default(),
		log:      zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	prim, err := block.Lookup(c.primName)
	if err != nil {
		return nil, err
	}
	m, err := mode.New(c.modeName,
		mode.WithPrimitive(prim),
		mode.WithRandom(c.rnd),
		mode.WithPaddingPolicy(c.policy),
		mode.WithLogger(c.log),
	)
	if err != nil {
		return nil, err
	}
	c.mode = m
	return c, nil
}

// Mode returns the name of the selected mode.
func (c *Codec) Mode() string {
	return c.mode.Name()
}

func (c *Codec) Encrypt(plaintext []byte, key block.Key) ([]byte, error) {
	return c.mode.Encrypt(plaintext, key)
}

func (c *Codec) Decrypt(ciphertext []byte, key block.Key) ([]byte, error) {
	return c.mode.Decrypt(ciphertext, key)
}

// Inspect reports the layout of ciphertext for the selected mode.
func (c *Codec) Inspect(ciphertext []byte) (*mode.Layout, error) {
	return mode.Inspect(c.mode.Name(), ciphertext)
}

// EncryptStream reads all of r, encrypts it and writes the ciphertext to w.
func (c *Codec) EncryptStream(r io.Reader, w io.Writer, key block.Key) error {
	return c.stream(r, w, key, c.mode.Encrypt)
}

// DecryptStream reads all of r, decrypts it and writes the plaintext to w.
func (c *Codec) DecryptStream(r io.Reader, w io.Writer, key block.Key) error {
	return c.stream(r, w, key, c.mode.Decrypt)
}

func (c *Codec) stream(r io.Reader, w io.Writer, key block.Key, fn func([]byte, block.Key) ([]byte, error)) error {
	in, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("blockmode: couldn't read input: %w", err)
	}
	out, err := fn(in, key)
	if err != nil {
		return err
	}
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("blockmode: couldn't write output: %w", err)
	}
	c.log.Debug("processed", zap.String("mode", c.mode.Name()), zap.Int("in", len(in)), zap.Int("out", len(out)))
	return nil
}

// EncryptFile encrypts src into dst.
func (c *Codec) EncryptFile(src, dst string, key block.Key) error {
	return c.file(src, dst, key, c.EncryptStream)
}

// DecryptFile decrypts src into dst.
func (c *Codec) DecryptFile(src, dst string, key block.Key) error {
	return c.file(src, dst, key, c.DecryptStream)
}

func (c *Codec) file(src, dst string, key block.Key, fn func(io.Reader, io.Writer, block.Key) error) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("blockmode: couldn't open file: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("blockmode: couldn't create file: %w", err)
	}
	if err := fn(in, out, key); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("blockmode: couldn't close file: %w", err)
	}
	return nil
}

// ParseKey decodes a hex encoded 16 byte key.
func ParseKey(s string) (block.Key, error) {
	var key block.Key
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return key, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(b) != block.KeySize {
		return key, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKey, len(b), block.KeySize)
	}
	copy(key[:], b)
	return key, nil
}

// LoadKey reads a hex encoded key from keyFile.
func LoadKey(keyFile string) (block.Key, error) {
	data, err := os.ReadFile(keyFile)
	if err != nil {
		return block.Key{}, fmt.Errorf("blockmode: couldn't read key file: %w", err)
	}
	return ParseKey(string(data))
}
