package logger

import (
	"bufio"
	"bytes"
	"io"
	"sync"
	"time"
)

const smartWriterBufferSize = 256 * 1024

// urgentLevels are flushed as soon as they are written so that a crash
// right after an error does not lose it. The console entries match the
// padded level column produced by Init.
var urgentLevels = [][]byte{
	[]byte(`"level":"error"`),
	[]byte(`"level":"fatal"`),
	[]byte(`"level":"panic"`),
	[]byte("ERROR  "),
	[]byte("FATAL  "),
}

// SmartWriter is a buffered io.Writer for log output. The buffer is
// drained periodically, when it fills up, after any error-level line, and
// on Sync or Close.
type SmartWriter struct {
	mu  sync.Mutex
	buf *bufio.Writer

	quit    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// NewSmartWriter wraps w and starts a goroutine that drains the buffer
// every interval.
func NewSmartWriter(w io.Writer, interval time.Duration) *SmartWriter {
	sw := &SmartWriter{
		buf:     bufio.NewWriterSize(w, smartWriterBufferSize),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go sw.drainEvery(interval)
	return sw
}

func (sw *SmartWriter) Write(p []byte) (int, error) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	n, err := sw.buf.Write(p)
	if err == nil && urgent(p) {
		err = sw.buf.Flush()
	}
	return n, err
}

// Sync writes out whatever is buffered.
func (sw *SmartWriter) Sync() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.buf.Flush()
}

// Close stops the drain goroutine and flushes. Later calls only flush.
func (sw *SmartWriter) Close() error {
	sw.once.Do(func() {
		close(sw.quit)
		<-sw.stopped
	})
	return sw.Sync()
}

func (sw *SmartWriter) drainEvery(interval time.Duration) {
	defer close(sw.stopped)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-sw.quit:
			return
		case <-ticker.C:
			_ = sw.Sync()
		}
	}
}

func urgent(line []byte) bool {
	for _, lvl := range urgentLevels {
		if bytes.Contains(line, lvl) {
			return true
		}
	}
	return false
}
