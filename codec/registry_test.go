package codec

import (
	"context"
	"flag"
	"testing"

	"github.com/stretchr/testify/require"
)

type nopCodec struct{ level string }

func (nopCodec) Decode(context.Context, []byte, Options) (string, error) { return "(module)", nil }
func (nopCodec) Close() error                                            { return nil }

func TestRegistry(t *testing.T) {
	var level string
	require.NoError(t, Register(Backend{
		Name:  "test-cli-only",
		Usage: UsageCLI,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&level, "test-level", "low", "")
		},
		Load: func(ctx context.Context) (Codec, error) { return nopCodec{level: level}, nil },
	}))

	require.Error(t, Register(Backend{Name: "test-cli-only", Usage: UsageCLI, Load: func(context.Context) (Codec, error) { return nil, nil }}))
	require.Error(t, Register(Backend{Name: "", Usage: UsageCLI}))
	require.Error(t, Register(Backend{Name: "test-no-load", Usage: UsageCLI}))
	require.Error(t, Register(Backend{Name: "test-no-usage", Load: func(context.Context) (Codec, error) { return nil, nil }}))

	require.Contains(t, Names(UsageCLI), "test-cli-only")
	require.NotContains(t, Names(UsageDaemon), "test-cli-only")

	_, err := Loader("test-cli-only", UsageDaemon)
	require.Error(t, err)
	_, err = Loader("nope", UsageCLI)
	require.Error(t, err)
}

func TestLoaderWithConfig(t *testing.T) {
	var level, mode string
	require.NoError(t, Register(Backend{
		Name:  "test-flags",
		Usage: UsageCLI,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&level, "test-flags-level", "low", "")
			fs.StringVar(&mode, "test-flags-mode", "slow", "")
		},
		Load: func(ctx context.Context) (Codec, error) { return nopCodec{level: level + "/" + mode}, nil },
	}))

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.String("timeout", "", "")
	RegisterFlags(fs, UsageCLI)
	require.NoError(t, fs.Parse([]string{"-test-flags-level=high"}))

	// The command-line value survives config for the same backend.
	load, err := LoaderWithConfig(fs, "test-flags", UsageCLI, map[string]string{
		"test-flags-level": "medium",
		"test-flags-mode":  "fast",
	})
	require.NoError(t, err)
	c, err := load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "high/fast", c.(nopCodec).level)

	_, err = LoaderWithConfig(fs, "test-flags", UsageCLI, map[string]string{"unknown": "x"})
	require.Error(t, err)
	_, err = LoaderWithConfig(fs, "test-flags", UsageCLI, map[string]string{"timeout": "1s"})
	require.Error(t, err, "flags of other owners are not codec config")
	_, err = LoaderWithConfig(fs, "test-cli-only", UsageCLI, map[string]string{"test-flags-mode": "x"})
	require.Error(t, err)

	load, err = LoaderWithConfig(fs, "test-flags", UsageCLI, nil)
	require.NoError(t, err)
	require.NotNil(t, load)
}

func TestUsage_String(t *testing.T) {
	require.Equal(t, "cli", UsageCLI.String())
	require.Equal(t, "cli,daemon", (UsageCLI | UsageDaemon).String())
	require.Equal(t, "none", Usage(0).String())
}
