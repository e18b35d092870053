package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/samaelod/spy/engine"
	"github.com/samaelod/spy/types"
)

// Color modes accepted by --color.
const (
	ColorAlways = "always"
	ColorNever  = "never"
	ColorAuto   = "auto"
)

const DefaultLogLevel = "info"

// ErrArgCount is returned when the positional arguments are not 1 to 3
// host/port pairs.
var ErrArgCount = errors.New("expected 2, 4 or 6 arguments")

type Options struct {
	Color             string
	BufferSize        int
	KeepAliveInterval time.Duration
	LogLevel          string
	TUI               bool
}

func Default() *Options {
	return &Options{
		Color:             ColorAlways,
		BufferSize:        engine.DefaultBufferSize,
		KeepAliveInterval: engine.DefaultKeepAliveInterval,
		LogLevel:          DefaultLogLevel,
	}
}

func (o *Options) Validate() error {
	switch o.Color {
	case ColorAlways, ColorNever, ColorAuto:
	default:
		return fmt.Errorf("invalid color mode %q (want always, never or auto)", o.Color)
	}
	if o.BufferSize <= 0 {
		return fmt.Errorf("buffer size must be positive, got %d", o.BufferSize)
	}
	if o.KeepAliveInterval <= 0 {
		return fmt.Errorf("keep-alive interval must be positive, got %s", o.KeepAliveInterval)
	}
	return nil
}

// UseColor reports whether dumps written to w should carry escape codes.
func (o *Options) UseColor(w io.Writer) bool {
	switch o.Color {
	case ColorNever:
		return false
	case ColorAuto:
		f, ok := w.(*os.File)
		if !ok {
			return false
		}
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return true
}

// Endpoints turns positional host/port pairs into endpoint descriptions.
// The first two pairs only listen; the third one probes with keep-alive bytes.
func Endpoints(args []string) ([]types.Endpoint, error) {
	if len(args) == 0 || len(args)%2 != 0 || len(args) > 2*types.MaxEndpoints {
		return nil, fmt.Errorf("%w, got %d", ErrArgCount, len(args))
	}

	slots := []types.Endpoint{
		{Label: types.LabelRX, Color: types.ColorRed},
		{Label: types.LabelTX, Color: types.ColorGreen},
		{Label: types.LabelProbe, Color: types.ColorCyan, KeepAlive: true},
	}

	eps := make([]types.Endpoint, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		ep := slots[i/2]
		ep.Host = args[i]
		ep.Port = args[i+1]
		eps = append(eps, ep)
	}
	return eps, nil
}
