// ABOUTME: Reads the tail of the relay's log file
// ABOUTME: Seeks backwards in fixed chunks so large logs are never read whole

package turn

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Log tail bounds
const (
	DefaultLogLines = 100
	MaxLogLines     = 1000
)

// ErrLogUnavailable is returned when the relay log does not exist.
var ErrLogUnavailable = errors.New("relay log not available")

const tailChunk = 16 * 1024

// maxTailBytes bounds how far back Tail reads when lines are very long.
const maxTailBytes = MaxLogLines * tailChunk

// LogReader returns the last lines of a log file.
type LogReader struct {
	path     string
	maxBytes int64
}

// NewLogReader creates a reader for path.
func NewLogReader(path string) *LogReader {
	return &LogReader{path: path, maxBytes: maxTailBytes}
}

// Path returns the log file location.
func (l *LogReader) Path() string {
	return l.path
}

// ClampLines applies DefaultLogLines and MaxLogLines to a requested count.
func ClampLines(n int) int {
	switch {
	case n <= 0:
		return DefaultLogLines
	case n > MaxLogLines:
		return MaxLogLines
	default:
		return n
	}
}

// Tail returns up to n trailing lines, oldest first.
func (l *LogReader) Tail(ctx context.Context, n int) (lines []string, err error) {
	n = ClampLines(n)
	defer observe("log_tail", time.Now(), &err)

	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrLogUnavailable, l.path)
		}
		return nil, fmt.Errorf("opening relay log: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat relay log: %w", err)
	}

	// Chunks are collected newest first and joined once at the end.
	var chunks [][]byte
	var read int64
	newlines := 0
	offset := info.Size()
	for offset > 0 && newlines <= n && read < l.maxBytes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		size := min(int64(tailChunk), offset, l.maxBytes-read)
		offset -= size

		chunk := make([]byte, size)
		if _, err := f.ReadAt(chunk, offset); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("reading relay log: %w", err)
		}
		chunks = append(chunks, chunk)
		newlines += bytes.Count(chunk, []byte{'\n'})
		read += size
	}

	buf := make([]byte, 0, read)
	for i := len(chunks) - 1; i >= 0; i-- {
		buf = append(buf, chunks[i]...)
	}

	text := strings.TrimRight(string(buf), "\n")
	if text == "" {
		return []string{}, nil
	}
	lines = strings.Split(text, "\n")
	// The first line is cut short when reading stopped before the file start.
	if offset > 0 && len(lines) > 1 {
		lines = lines[1:]
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines, nil
}
