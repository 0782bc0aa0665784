package notify

import (
	"bytes"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNopDiscards(t *testing.T) {
	var s Sink = Nop{}
	assert.NotPanics(t, func() {
		s.Notify(Message{Event: EventAnalysisStart, Timestamp: time.Now()})
	})
}

func TestLogSinkWritesEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(log.New(&buf, "", 0))

	sink.Notify(Message{Event: EventPathWarning, Params: map[string]any{"out_degree": 25}, Timestamp: time.Now()})

	assert.Contains(t, buf.String(), EventPathWarning)
	assert.Contains(t, buf.String(), "out_degree")
}

func TestNewLogSinkDefaultsLogger(t *testing.T) {
	sink := NewLogSink(nil)
	assert.NotNil(t, sink.Logger)
}
