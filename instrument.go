package pulse

import "github.com/google/uuid"

// Recorder is the injected instrumentation callback: any logging or
// metrics sink plugs in as a callback receiving (vertex-id, turn-id,
// begin/end-nanos) triples for every Tick/ApplyInput call. A nil
// Recorder on an Engine costs nothing beyond one nil check per call.
type Recorder interface {
	Record(vertexID uuid.UUID, turnID uint64, beginNanos, endNanos int64)
}

// NoopRecorder discards every sample. It exists so callers that want to
// pass a Recorder explicitly (rather than leaving the engine's field
// nil) have a zero-cost named option.
type NoopRecorder struct{}

func (NoopRecorder) Record(uuid.UUID, uint64, int64, int64) {}
