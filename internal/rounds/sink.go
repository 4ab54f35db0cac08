package rounds

import (
	"encoding/json"
	"io"
	"sort"
	"sync"

	"github.com/phobologic/graphoracle/internal/model"
)

// Sink receives finished rounds. Append is called from several goroutines.
type Sink interface {
	Append(model.RoundResult) error
}

// Memory collects results in memory.
type Memory struct {
	mu      sync.Mutex
	results []model.RoundResult
}

// Append stores r.
func (m *Memory) Append(r model.RoundResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, r)
	return nil
}

// Results returns a copy of the collected results ordered by round index.
func (m *Memory) Results() []model.RoundResult {
	m.mu.Lock()
	out := append([]model.RoundResult(nil), m.results...)
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// JSONL writes one JSON object per line, in completion order.
type JSONL struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONL returns a sink writing to w.
func NewJSONL(w io.Writer) *JSONL {
	return &JSONL{enc: json.NewEncoder(w)}
}

// Append encodes r as a single line.
func (j *JSONL) Append(r model.RoundResult) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.enc.Encode(r)
}

type multi []Sink

// Multi fans every result out to all sinks, stopping at the first error.
func Multi(sinks ...Sink) Sink {
	return multi(sinks)
}

func (m multi) Append(r model.RoundResult) error {
	for _, s := range m {
		if err := s.Append(r); err != nil {
			return err
		}
	}
	return nil
}
