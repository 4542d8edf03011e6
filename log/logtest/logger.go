/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ssgreg/logf"

	"github.com/acronis/go-cachekit/log"
)

type syncEntryWriter struct {
	mu      sync.Mutex
	encoder logf.Encoder
	output  io.Writer
}

// WriteEntry encodes and writes e under the lock, the encoder is not safe for concurrent use.
//
//nolint:gocritic
func (w *syncEntryWriter) WriteEntry(e logf.Entry) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var buf logf.Buffer
	if err := w.encoder.Encode(&buf, e); err != nil {
		_, _ = fmt.Fprint(w.output, err)
		return
	}
	_, _ = w.output.Write(buf.Data)
}

// NewLogger returns a synchronous JSON logger at debug level writing to stderr.
// It is slow and intended for tests only.
func NewLogger() log.FieldLogger {
	return NewLoggerWithOpts(LoggerOpts{})
}

// LoggerOpts allows to set custom options for test logger.
type LoggerOpts struct {
	// Output defaults to os.Stderr.
	Output io.Writer
}

// NewLoggerWithOpts returns a test logger configured according to opts.
func NewLoggerWithOpts(opts LoggerOpts) log.FieldLogger {
	output := opts.Output
	if output == nil {
		output = os.Stderr
	}
	w := &syncEntryWriter{
		encoder: logf.NewJSONEncoder(logf.JSONEncoderConfig{
			EncodeTime:   logf.RFC3339NanoTimeEncoder,
			FieldKeyTime: "time",
		}),
		output: output,
	}
	return &log.LogfAdapter{Logger: logf.NewLogger(logf.LevelDebug, w)}
}
