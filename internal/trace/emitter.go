package trace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/semantiva/semantiva-go/internal/identity"
)

// Detail controls how much of a changed value a key summary reveals.
type Detail struct {
	Hash    bool
	Repr    bool
	Context bool
}

// ParseDetail maps the spec-level flag to a Detail. The zero flag means the
// default, hash.
func ParseDetail(flag string) (Detail, error) {
	switch flag {
	case "", "hash":
		return Detail{Hash: true}, nil
	case "repr":
		return Detail{Hash: true, Repr: true}, nil
	case "context":
		return Detail{Hash: true, Repr: true, Context: true}, nil
	case "all":
		return Detail{Hash: true, Repr: true, Context: true}, nil
	default:
		return Detail{}, fmt.Errorf("unknown trace detail %q", flag)
	}
}

// Emitter assigns seq numbers and routes records for one run (or one
// run-space launch) through a sink. It is the single writer for its stream;
// the internal lock keeps seq strictly increasing even if node callables
// run on worker goroutines.
type Emitter struct {
	mu     sync.Mutex
	sink   Sink
	runID  string
	seq    int
	detail Detail
}

// NewEmitter builds an emitter bound to a run (or launch) identifier.
func NewEmitter(sink Sink, runID string, detail Detail) *Emitter {
	return &Emitter{sink: sink, runID: runID, detail: detail}
}

// RunID returns the stream identifier the emitter stamps on records.
func (e *Emitter) RunID() string {
	return e.runID
}

// Detail returns the configured detail flags.
func (e *Emitter) Detail() Detail {
	return e.detail
}

func (e *Emitter) header(recordType RecordType) Header {
	e.seq++
	return Header{
		RecordType:    recordType,
		SchemaVersion: SchemaVersion,
		RunID:         e.runID,
		Timestamp:     time.Now().UTC(),
		Seq:           e.seq,
	}
}

// EmitPipelineStart writes the run-opening record.
func (e *Emitter) EmitPipelineStart(record PipelineStart) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	record.Header = e.header(RecordPipelineStart)
	return e.sink.Write(record)
}

// EmitSER writes one node record.
func (e *Emitter) EmitSER(record SER) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	record.Header = e.header(RecordSER)
	record.Identity.RunID = e.runID
	return e.sink.Write(record)
}

// EmitPipelineEnd writes the run-closing record.
func (e *Emitter) EmitPipelineEnd(record PipelineEnd) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	record.Header = e.header(RecordPipelineEnd)
	return e.sink.Write(record)
}

// EmitRunSpaceStart writes the launch-opening record.
func (e *Emitter) EmitRunSpaceStart(record RunSpaceStart) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	record.Header = e.header(RecordRunSpaceStart)
	return e.sink.Write(record)
}

// EmitRunSpaceEnd writes the launch-closing record.
func (e *Emitter) EmitRunSpaceEnd(record RunSpaceEnd) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	record.Header = e.header(RecordRunSpaceEnd)
	return e.sink.Write(record)
}

// SummarizeKeys produces key summaries for the changed keys only, honoring
// the detail flags.
func (e *Emitter) SummarizeKeys(changed map[string]any) map[string]KeySummary {
	if len(changed) == 0 {
		return nil
	}
	out := make(map[string]KeySummary, len(changed))
	for key, value := range changed {
		summary := KeySummary{
			Dtype:  dtypeOf(value),
			Length: lengthOf(value),
		}
		if e.detail.Hash {
			if canonical, err := identity.Canonicalize(value); err == nil {
				sum := sha256.Sum256(canonical)
				summary.SHA256 = hex.EncodeToString(sum[:])
			}
		}
		if e.detail.Repr {
			summary.Repr = fmt.Sprintf("%v", value)
		}
		out[key] = summary
	}
	return out
}

func dtypeOf(value any) string {
	if value == nil {
		return "null"
	}
	return reflect.TypeOf(value).String()
}

func lengthOf(value any) int {
	if value == nil {
		return 0
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len()
	default:
		return 1
	}
}
