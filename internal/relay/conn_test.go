package relay

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"wsrelay/internal/metrics"
)

var errSendRejected = errors.New("send rejected")

// fakeConn records every frame handed to it.
type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
	reject bool
}

func (f *fakeConn) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reject {
		return errSendRejected
	}
	f.frames = append(f.frames, append([]byte(nil), data...))
	return nil
}

func (f *fakeConn) Open() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.closed
}

func (f *fakeConn) markClosed() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeConn) rejectSends() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reject = true
}

func (f *fakeConn) raw() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.frames))
	for i, frame := range f.frames {
		out[i] = string(frame)
	}
	return out
}

// messages decodes every recorded frame as a JSON object.
func (f *fakeConn) messages(t *testing.T) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, frame := range f.raw() {
		var msg map[string]any
		require.NoError(t, json.Unmarshal([]byte(frame), &msg), "frame %q", frame)
		out = append(out, msg)
	}
	return out
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = nil
}

var testNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sequentialIDs yields c1, c2, c3, ...
func sequentialIDs() func() string {
	var n int
	return func() string {
		n++
		return "c" + strconv.Itoa(n)
	}
}

func newTestRelay(t *testing.T) (*Relay, *metrics.RelayMetrics) {
	t.Helper()
	m := metrics.NewRelayMetrics(prometheus.NewRegistry())
	r := New(Options{
		Clock:      clockwork.NewFakeClockAt(testNow),
		Logger:     discardLogger(),
		Metrics:    m,
		GenerateID: sequentialIDs(),
	})
	return r, m
}

func typesOf(msgs []map[string]any) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i], _ = m["type"].(string)
	}
	return out
}
