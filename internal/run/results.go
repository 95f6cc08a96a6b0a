package run

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"circuitbench/internal/judge"
	"circuitbench/internal/mutate"
)

// Error classes recorded on failed tasks, aggregated by the report stage.
const (
	ErrClassPredict = "predict"
	ErrClassJudge   = "judge"
	ErrClassTimeout = "timeout"
	ErrClassSetup   = "setup"
)

// ResultRecord is one line of results.jsonl.
type ResultRecord struct {
	RunID      string                   `json:"run_id"`
	Model      string                   `json:"model"`
	ItemID     string                   `json:"item_id"`
	Family     string                   `json:"family"`
	QuestionID string                   `json:"question_id"`
	RubricID   string                   `json:"rubric_id,omitempty"`
	Track      string                   `json:"track"`
	Modality   string                   `json:"modality"`
	Answer     string                   `json:"answer,omitempty"`
	Scores     *judge.Result            `json:"scores,omitempty"`
	Judge      *judge.Verdict           `json:"judge,omitempty"`
	Blended    *float64                 `json:"raw_blended,omitempty"`
	Fault      *mutate.FaultDescriptor  `json:"fault,omitempty"`
	Error      string                   `json:"error,omitempty"`
	ErrorClass string                   `json:"error_class,omitempty"`
	DurationMS int64                    `json:"duration_ms"`
}

// sink appends JSONL records to one file. Appends are serialized and
// flushed per record so a killed run keeps everything recorded so far.
type sink struct {
	mu sync.Mutex
	f  *os.File
	w  *bufio.Writer
}

func newSink(path string) (*sink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("run: create sink: %w", err)
	}
	return &sink{f: f, w: bufio.NewWriter(f)}, nil
}

func (s *sink) append(rec ResultRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("run: marshal record: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(append(data, '\n')); err != nil {
		return err
	}
	return s.w.Flush()
}

func (s *sink) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.w.Flush(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}

// Recorder fans each record to the combined and per-model sinks, exactly
// once per task key. Late results from abandoned (timed-out) task bodies
// hit the recorded flag and are dropped.
type Recorder struct {
	mu       sync.Mutex
	recorded map[string]bool
	count    int

	combined *sink
	perModel map[string]*sink
}

// NewRecorder creates results.jsonl plus one results_<model>.jsonl per
// model under runDir.
func NewRecorder(runDir string, models []string) (*Recorder, error) {
	combined, err := newSink(filepath.Join(runDir, "results.jsonl"))
	if err != nil {
		return nil, err
	}
	r := &Recorder{
		recorded: make(map[string]bool),
		combined: combined,
		perModel: make(map[string]*sink, len(models)),
	}
	for _, m := range models {
		s, err := newSink(filepath.Join(runDir, "results_"+sanitizeModel(m)+".jsonl"))
		if err != nil {
			r.Close()
			return nil, err
		}
		r.perModel[m] = s
	}
	return r, nil
}

// sanitizeModel makes a model name safe as a filename fragment.
func sanitizeModel(model string) string {
	out := []byte(model)
	for i, c := range out {
		switch c {
		case '/', '\\', ':', ' ':
			out[i] = '_'
		}
	}
	return string(out)
}

// Record appends rec unless its key was already recorded. It reports
// whether this call was the one that recorded.
func (r *Recorder) Record(key string, rec ResultRecord) (bool, error) {
	r.mu.Lock()
	if r.recorded[key] {
		r.mu.Unlock()
		return false, nil
	}
	r.recorded[key] = true
	r.count++
	r.mu.Unlock()

	if err := r.combined.append(rec); err != nil {
		return true, err
	}
	if s, ok := r.perModel[rec.Model]; ok {
		if err := s.append(rec); err != nil {
			return true, err
		}
	}
	return true, nil
}

// Count returns how many records have been written.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Close flushes and closes every sink.
func (r *Recorder) Close() error {
	var firstErr error
	if err := r.combined.close(); err != nil {
		firstErr = err
	}
	for _, s := range r.perModel {
		if err := s.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
