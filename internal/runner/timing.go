package runner

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

// TimingEnv names a JSONL file that receives timing events when no path is
// given explicitly.
const TimingEnv = "AVR_LINT_TIMING_JSONL"

// TimingEvent is one line of the timings JSONL file.
type TimingEvent struct {
	Phase      string  `json:"phase"`
	Kind       string  `json:"kind"`
	File       string  `json:"file,omitempty"`
	Status     string  `json:"status,omitempty"`
	StartMS    float64 `json:"start_ms"`
	DurationMS float64 `json:"duration_ms"`
	EndMS      float64 `json:"end_ms"`
}

// TimingRecorder streams phase timings as JSON lines. A nil recorder records
// nothing.
type TimingRecorder struct {
	start  time.Time
	mu     sync.Mutex
	events []TimingEvent
	closer io.Closer
	enc    *json.Encoder
}

// NewTimingRecorder writes events to w. Times are relative to start.
func NewTimingRecorder(start time.Time, w io.Writer) *TimingRecorder {
	tr := &TimingRecorder{start: start}
	if w != nil {
		tr.enc = json.NewEncoder(w)
	}
	return tr
}

// OpenTimingRecorder creates path and records into it. An empty path falls
// back to $AVR_LINT_TIMING_JSONL; when both are empty it returns nil.
func OpenTimingRecorder(start time.Time, path string) (*TimingRecorder, error) {
	if path == "" {
		path = os.Getenv(TimingEnv)
	}
	if path == "" {
		return nil, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	tr := NewTimingRecorder(start, f)
	tr.closer = f
	return tr, nil
}

// Close releases the underlying file, if any.
func (tr *TimingRecorder) Close() error {
	if tr == nil || tr.closer == nil {
		return nil
	}
	return tr.closer.Close()
}

// Events returns the events recorded so far.
func (tr *TimingRecorder) Events() []TimingEvent {
	if tr == nil {
		return nil
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]TimingEvent(nil), tr.events...)
}

func (tr *TimingRecorder) record(phase, kind, file, status string, start time.Time, duration time.Duration) {
	if tr == nil {
		return
	}
	startMS := durationToMS(start.Sub(tr.start))
	durationMS := durationToMS(duration)
	event := TimingEvent{
		Phase:      phase,
		Kind:       kind,
		File:       file,
		Status:     status,
		StartMS:    startMS,
		DurationMS: durationMS,
		EndMS:      startMS + durationMS,
	}
	tr.mu.Lock()
	tr.events = append(tr.events, event)
	if tr.enc != nil {
		_ = tr.enc.Encode(event)
	}
	tr.mu.Unlock()
}

// RecordStage records a run-wide stage such as scan or total.
func (tr *TimingRecorder) RecordStage(phase string, start time.Time, duration time.Duration, status string) {
	tr.record(phase, "stage", "", status, start, duration)
}

// RecordFile records one phase of one file's analysis.
func (tr *TimingRecorder) RecordFile(phase, file, status string, start time.Time, duration time.Duration) {
	tr.record(phase, "file", file, status, start, duration)
}

func durationToMS(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1_000_000.0
}
