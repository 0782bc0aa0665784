// Package notify defines the optional progress-notification collaborator
// (spec §6): a pull-free sink that the ingestion pipeline and path-finding
// algorithm push {event, params, timestamp} tuples into.
//
// This generalizes the teacher's streaming-callback idiom
// (storage.StreamNodesWithFallback's fn parameter) into a named
// collaborator interface instead of a bare function type, since multiple
// components (ingest, graphalgo) need to emit notifications of different
// shapes.
package notify

import (
	"log"
	"time"
)

// Event names emitted by the ingestion pipeline, per spec §4.F step 7.
const (
	EventAnalysisStart    = "analysis_start"
	EventAnalysisFile     = "analysis_file"
	EventAnalysisComplete = "analysis_complete"

	// Emitted by pkg/graphalgo's FindPaths dense-graph guard.
	EventPathWarning = "path_warning"
	EventPathInfo    = "path_info"
)

// Message is one notification tuple.
type Message struct {
	Event     string
	Params    map[string]any
	Timestamp time.Time
}

// Sink receives notifications. Implementations must be safe for concurrent
// use — the ingestion pipeline may call Notify from multiple worker
// goroutines.
type Sink interface {
	Notify(Message)
}

// Nop discards every message. The zero value is ready to use and is the
// default when no sink is configured.
type Nop struct{}

func (Nop) Notify(Message) {}

// LogSink writes messages through the standard library logger, matching
// the teacher's own choice of plain `log.Printf` over a structured logging
// dependency (the teacher's go.mod carries no zap/zerolog/logrus).
type LogSink struct {
	Logger *log.Logger
}

// NewLogSink returns a LogSink using log.Default() when logger is nil.
func NewLogSink(logger *log.Logger) *LogSink {
	if logger == nil {
		logger = log.Default()
	}
	return &LogSink{Logger: logger}
}

func (s *LogSink) Notify(m Message) {
	s.Logger.Printf("[%s] %s %v", m.Timestamp.Format(time.RFC3339), m.Event, m.Params)
}
