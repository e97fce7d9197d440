package blockmode

import (
	"bytes"
	"errors"
	mrand "math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/igolaizola/blockmode/pkg/block"
	"github.com/igolaizola/blockmode/pkg/mode"
	"github.com/igolaizola/blockmode/pkg/random"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f"

func TestParseKey(t *testing.T) {
	tests := map[string]struct {
		in      string
		wantErr bool
	}{
		"valid":          {in: testKeyHex},
		"trailing space": {in: testKeyHex + "\n"},
		"short":          {in: "0001", wantErr: true},
		"long":           {in: testKeyHex + "10", wantErr: true},
		"not hex":        {in: "zz0102030405060708090a0b0c0d0e0f", wantErr: true},
	}

	for name, test := range tests {
		test := test
		t.Run(name, func(t *testing.T) {
			key, err := ParseKey(test.in)
			if test.wantErr {
				if !errors.Is(err, ErrInvalidKey) {
					t.Fatalf("expected ErrInvalidKey, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			for i := range key {
				if key[i] != byte(i) {
					t.Fatalf("byte %d: got %x", i, key[i])
				}
			}
		})
	}
}

func TestNewUnknown(t *testing.T) {
	if _, err := New(WithMode("gcm")); !errors.Is(err, mode.ErrUnknownMode) {
		t.Errorf("expected ErrUnknownMode, got %v", err)
	}
	if _, err := New(WithPrimitive("des")); !errors.Is(err, block.ErrUnknownPrimitive) {
		t.Errorf("expected ErrUnknownPrimitive, got %v", err)
	}
}

func TestCodec(t *testing.T) {
	key, err := ParseKey(testKeyHex)
	if err != nil {
		t.Fatal(err)
	}
	plain := []byte("Hello, AES Encryption!")
	for _, m := range []string{"ecb", "cbc", "ctr"} {
		for _, p := range []string{"aes", "twofish"} {
			c, err := New(WithMode(m), WithPrimitive(p), WithRandom(random.New(mrand.New(mrand.NewSource(1)))))
			if err != nil {
				t.Fatal(err)
			}
			if c.Mode() != m {
				t.Errorf("got mode %s, want %s", c.Mode(), m)
			}
			enc, err := c.Encrypt(plain, key)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := c.Inspect(enc); err != nil {
				t.Errorf("%s/%s: inspect: %v", m, p, err)
			}
			var out bytes.Buffer
			if err := c.DecryptStream(bytes.NewReader(enc), &out, key); err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(out.Bytes(), plain) {
				t.Errorf("%s/%s: got %q, want %q", m, p, out.Bytes(), plain)
			}
		}
	}
}

func TestFile(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "key.hex")
	if err := os.WriteFile(keyFile, []byte(testKeyHex+"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	key, err := LoadKey(keyFile)
	if err != nil {
		t.Fatal(err)
	}

	rnd := mrand.New(mrand.NewSource(9529))
	want := make([]byte, 9529)
	rnd.Read(want)
	plainFile := filepath.Join(dir, "plain.dat")
	if err := os.WriteFile(plainFile, want, 0600); err != nil {
		t.Fatal(err)
	}

	c, err := New(WithMode("ctr"))
	if err != nil {
		t.Fatal(err)
	}
	encFile := filepath.Join(dir, "enc.dat")
	if err := c.EncryptFile(plainFile, encFile, key); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(encFile)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != int64(len(want)+block.NonceSize) {
		t.Errorf("invalid size, got: %d, want: %d", info.Size(), len(want)+block.NonceSize)
	}

	decFile := filepath.Join(dir, "dec.dat")
	if err := c.DecryptFile(encFile, decFile, key); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(decFile)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Error("decrypted file differs from original")
	}
}

func TestDecryptFileRemovesOutputOnError(t *testing.T) {
	dir := t.TempDir()
	encFile := filepath.Join(dir, "enc.dat")
	if err := os.WriteFile(encFile, []byte("short"), 0600); err != nil {
		t.Fatal(err)
	}
	c, err := New()
	if err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dir, "dec.dat")
	if err := c.DecryptFile(encFile, dst, block.Key{}); !errors.Is(err, mode.ErrTruncatedCiphertext) {
		t.Fatalf("expected ErrTruncatedCiphertext, got %v", err)
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Errorf("expected %s to be removed, got %v", dst, err)
	}
}
