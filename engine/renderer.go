package engine

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/samaelod/spy/types"
)

// TimeLayout is the local timestamp printed in front of every dump block.
const TimeLayout = "2006-01-02 15:04:05.000000000 -0700"

const (
	bytesPerRow = 16
	hexDigits   = "0123456789abcdef"
	colorReset  = "\x1b[0m"
)

// Renderer serializes dump output from all sessions onto one sink.
// Everything written through it, dumps, notices and log lines alike, holds
// the same lock for the whole write, so blocks never interleave.
type Renderer struct {
	mu        sync.Mutex
	out       io.Writer
	color     bool
	lineColor bool
	buf       bytes.Buffer
}

type RendererOption func(*Renderer)

// WithLineColor wraps every row in its own color escape and reset instead of
// the whole block. Sinks that split output into lines, like Backlog, need it
// to keep rows after the first colored.
func WithLineColor() RendererOption {
	return func(r *Renderer) {
		r.lineColor = true
	}
}

func NewRenderer(out io.Writer, color bool, opts ...RendererOption) *Renderer {
	r := &Renderer{out: out, color: color}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render formats c and writes it as a single block.
func (r *Renderer) Render(c types.Chunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf.Reset()
	if r.lineColor {
		writeChunkLines(&r.buf, c, r.color)
	} else {
		writeChunk(&r.buf, c, r.color)
	}
	_, err := r.out.Write(r.buf.Bytes())
	return errors.Wrap(err, "write dump")
}

// Notice writes one plain line, e.g. the session start banner.
func (r *Renderer) Notice(format string, args ...any) error {
	line := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := io.WriteString(r.out, line)
	return errors.Wrap(err, "write notice")
}

// Writer returns an io.Writer that shares the render lock. Loggers pointed
// at it cannot split a dump block.
func (r *Renderer) Writer() io.Writer {
	return lockedWriter{r}
}

type lockedWriter struct {
	r *Renderer
}

func (w lockedWriter) Write(p []byte) (int, error) {
	w.r.mu.Lock()
	defer w.r.mu.Unlock()
	return w.r.out.Write(p)
}

// FormatChunk returns the dump block for c exactly as a default Render writes it.
func FormatChunk(c types.Chunk, color bool) []byte {
	var b bytes.Buffer
	writeChunk(&b, c, color)
	return b.Bytes()
}

// FormatChunkLines is FormatChunk with the color escape repeated on every row.
func FormatChunkLines(c types.Chunk, color bool) []byte {
	var b bytes.Buffer
	writeChunkLines(&b, c, color)
	return b.Bytes()
}

// writeChunk lays out c in rows of 16 bytes:
//
//	<timestamp><label>000000: 48 65 6c ...  Hel...
//	<indent           >000010: 73 74 21     st!
//
// Missing hex cells are blank so the ASCII column stays aligned; the ASCII
// column itself is not padded.
func writeChunk(b *bytes.Buffer, c types.Chunk, color bool) {
	color = color && c.Color != 0
	if color {
		writeColor(b, c.Color)
	}
	writeRows(b, c, false)
	if color {
		b.WriteString(colorReset)
	}
}

func writeChunkLines(b *bytes.Buffer, c types.Chunk, color bool) {
	writeRows(b, c, color && c.Color != 0)
}

func writeColor(b *bytes.Buffer, code int) {
	b.WriteString("\x1b[")
	b.WriteString(strconv.Itoa(code))
	b.WriteByte('m')
}

// writeRows prints the rows of c. With rowColor each row carries its own
// escape and reset before the newline.
func writeRows(b *bytes.Buffer, c types.Chunk, rowColor bool) {
	prompt := c.Time.Local().Format(TimeLayout) + c.Label
	indent := strings.Repeat(" ", len(prompt))

	n := len(c.Data)
	for i := 0; i < n; i += bytesPerRow {
		if rowColor {
			writeColor(b, c.Color)
		}
		if i == 0 {
			b.WriteString(prompt)
		} else {
			b.WriteString(indent)
		}
		writeOffset(b, i)
		b.WriteString(": ")

		for j := 0; j < bytesPerRow; j++ {
			if i+j < n {
				v := c.Data[i+j]
				b.WriteByte(hexDigits[v>>4])
				b.WriteByte(hexDigits[v&0x0f])
				b.WriteByte(' ')
			} else {
				b.WriteString("   ")
			}
		}
		b.WriteByte(' ')

		for j := 0; j < bytesPerRow && i+j < n; j++ {
			v := c.Data[i+j]
			if isPrint(v) {
				b.WriteByte(v)
			} else {
				b.WriteByte('.')
			}
		}
		if rowColor {
			b.WriteString(colorReset)
		}
		b.WriteByte('\n')
	}
}

// writeOffset prints off as six lowercase hex digits. Offsets never exceed
// the read buffer, but wider values still print in full.
func writeOffset(b *bytes.Buffer, off int) {
	s := strconv.FormatInt(int64(off), 16)
	for i := len(s); i < 6; i++ {
		b.WriteByte('0')
	}
	b.WriteString(s)
}

func isPrint(v byte) bool {
	return v >= 0x20 && v <= 0x7e
}
