package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/igolaizola/blockmode"
	"github.com/igolaizola/blockmode/pkg/block"
	"github.com/igolaizola/blockmode/pkg/padding"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func NewCommand() *ffcli.Command {
	fs := flag.NewFlagSet("blockmode", flag.ExitOnError)

	return &ffcli.Command{
		ShortUsage: "blockmode [flags] <subcommand>",
		FlagSet:    fs,
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
		Subcommands: []*ffcli.Command{
			newEncryptCommand(),
			newDecryptCommand(),
			newInspectCommand(),
		},
	}
}

func newEncryptCommand() *ffcli.Command {
	fs := flag.NewFlagSet("encrypt", flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")
	newCodec := codec(fs)
	key := fs.String("key", "", "hex encoded 16 byte key")
	in := fs.String("in", "-", "input file, - for stdin")
	out := fs.String("out", "-", "output file, - for stdout")

	return &ffcli.Command{
		Name:       "encrypt",
		ShortUsage: "blockmode encrypt [flags]",
		Options:    options(),
		ShortHelp:  "encrypt a file",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			k, err := blockmode.ParseKey(*key)
			if err != nil {
				return err
			}
			c, log, err := newCodec()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			if c.Mode() == "ecb" {
				log.Warn("ecb mode leaks repeated plaintext blocks, do not use it for real data")
			}
			return run(*in, *out, k, c.EncryptStream)
		},
	}
}

func newDecryptCommand() *ffcli.Command {
	fs := flag.NewFlagSet("decrypt", flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")
	newCodec := codec(fs)
	key := fs.String("key", "", "hex encoded 16 byte key")
	in := fs.String("in", "-", "input file, - for stdin")
	out := fs.String("out", "-", "output file, - for stdout")

	return &ffcli.Command{
		Name:       "decrypt",
		ShortUsage: "blockmode decrypt [flags]",
		Options:    options(),
		ShortHelp:  "decrypt a file",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			k, err := blockmode.ParseKey(*key)
			if err != nil {
				return err
			}
			c, log, err := newCodec()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return run(*in, *out, k, c.DecryptStream)
		},
	}
}

func newInspectCommand() *ffcli.Command {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")
	newCodec := codec(fs)
	in := fs.String("in", "-", "input file, - for stdin")

	return &ffcli.Command{
		Name:       "inspect",
		ShortUsage: "blockmode inspect [flags]",
		Options:    options(),
		ShortHelp:  "show the layout of a ciphertext",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			c, log, err := newCodec()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			r, closeIn, err := openInput(*in)
			if err != nil {
				return err
			}
			defer closeIn()
			data, err := io.ReadAll(r)
			if err != nil {
				return fmt.Errorf("blockmode: couldn't read input: %w", err)
			}
			l, err := c.Inspect(data)
			if err != nil {
				return err
			}
			fmt.Printf("mode: %s\n", l.Mode)
			if l.Header != nil {
				fmt.Printf("header: %x\n", l.Header)
			}
			fmt.Printf("body: %d bytes\n", l.Body)
			fmt.Printf("blocks: %d\n", l.Blocks)
			return nil
		},
	}
}

func options() []ff.Option {
	return []ff.Option{
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithEnvVarPrefix("BLOCKMODE"),
	}
}

func codec(fs *flag.FlagSet) func() (*blockmode.Codec, *zap.Logger, error) {
	debug := fs.Bool("debug", false, "debug")
	modeName := fs.String("mode", "cbc", "mode of operation (ecb, cbc, ctr)")
	prim := fs.String("cipher", "aes", fmt.Sprintf("block cipher (%s)", strings.Join(block.Names(), ", ")))
	pad := fs.String("padding", "strict", "unpad policy (strict, best-effort)")

	return func() (*blockmode.Codec, *zap.Logger, error) {
		policy, err := padding.ParsePolicy(*pad)
		if err != nil {
			return nil, nil, err
		}
		log, err := newLogger(*debug)
		if err != nil {
			return nil, nil, err
		}
		c, err := blockmode.New(
			blockmode.WithMode(*modeName),
			blockmode.WithPrimitive(*prim),
			blockmode.WithPaddingPolicy(policy),
			blockmode.WithLogger(log),
		)
		if err != nil {
			return nil, nil, err
		}
		return c, log, nil
	}
}

var newLogger = func(debug bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	cc := zap.NewProductionConfig()
	cc.DisableCaller = true
	cc.DisableStacktrace = true
	cc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cc.Encoding = "console"
	cc.Level = zap.NewAtomicLevelAt(level)
	cc.Sampling = nil
	cc.OutputPaths = []string{"stderr"}
	log, err := cc.Build()
	if err != nil {
		return nil, fmt.Errorf("blockmode: couldn't build logger: %w", err)
	}
	return log, nil
}

func run(in, out string, key block.Key, fn func(io.Reader, io.Writer, block.Key) error) error {
	if in == "" || out == "" {
		return errors.New("missing in or out")
	}
	r, closeIn, err := openInput(in)
	if err != nil {
		return err
	}
	defer closeIn()

	if out == "-" {
		return fn(r, os.Stdout, key)
	}
	f, err := os.OpenFile(out, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("blockmode: couldn't create file: %w", err)
	}
	if err := fn(r, f, key); err != nil {
		_ = f.Close()
		_ = os.Remove(out)
		return err
	}
	return f.Close()
}

func openInput(in string) (io.Reader, func(), error) {
	if in == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(in)
	if err != nil {
		return nil, nil, fmt.Errorf("blockmode: couldn't open file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
