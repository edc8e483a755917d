// Package report collects and persists the assertions a pkg/batch run
// produces. Adapted from the z80 optimizer's pkg/result: the same
// mutex-guarded accumulator (table.go's Table/Add/Rules) and the same
// gob-based checkpoint idiom (checkpoint.go's SaveCheckpoint/
// LoadCheckpoint), retargeted from instruction-replacement Rules to
// per-fragment assertion lists.
package report

import (
	"encoding/gob"
	"encoding/json"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/oisee/x86-symbolic-embedder/pkg/batch"
	"github.com/oisee/x86-symbolic-embedder/pkg/extract"
	"github.com/oisee/x86-symbolic-embedder/pkg/term"
)

// AssertionRecord is a JSON/gob-friendly rendering of one extract.Assertion.
// Value is an s-expression (term.Render); it is for display and
// checkpoint resume, not a parser round-trip format.
type AssertionRecord struct {
	Name  string
	Sort  string
	Value string
}

// FragmentReport is one fragment's recorded outcome.
type FragmentReport struct {
	Name       string
	Assertions []AssertionRecord
	Err        string `json:",omitempty"`
}

func toRecord(a extract.Assertion) AssertionRecord {
	return AssertionRecord{Name: a.Name, Sort: a.Sort.String(), Value: term.Render(a.Value)}
}

// FromResult converts a batch.Result into its persisted form.
func FromResult(r batch.Result) FragmentReport {
	fr := FragmentReport{Name: r.Name}
	if r.Err != nil {
		fr.Err = r.Err.Error()
		return fr
	}
	fr.Assertions = make([]AssertionRecord, len(r.Assertions))
	for i, a := range r.Assertions {
		fr.Assertions[i] = toRecord(a)
	}
	return fr
}

// Table accumulates FragmentReports from concurrently-running workers.
type Table struct {
	mu      sync.Mutex
	reports []FragmentReport
}

// NewTable creates an empty table.
func NewTable() *Table { return &Table{} }

// Add inserts a report into the table.
func (t *Table) Add(r FragmentReport) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reports = append(t.reports, r)
}

// Reports returns a copy of all reports, sorted by fragment name.
func (t *Table) Reports() []FragmentReport {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]FragmentReport, len(t.reports))
	copy(out, t.reports)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of reports recorded so far.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.reports)
}

// WriteJSON writes reports to w as a JSON array.
func WriteJSON(w io.Writer, reports []FragmentReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}

// ReadJSON reads a JSON array of reports written by WriteJSON.
func ReadJSON(r io.Reader) ([]FragmentReport, error) {
	var reports []FragmentReport
	if err := json.NewDecoder(r).Decode(&reports); err != nil {
		return nil, err
	}
	return reports, nil
}

// Checkpoint holds enough state to resume a partially-completed batch run.
type Checkpoint struct {
	Reports   []FragmentReport
	Completed int // index into the original fragment list
}

func init() {
	gob.Register(FragmentReport{})
}

// SaveCheckpoint writes a checkpoint to path.
func SaveCheckpoint(path string, ckpt *Checkpoint) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(ckpt)
}

// LoadCheckpoint reads a checkpoint previously written by SaveCheckpoint.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var ckpt Checkpoint
	if err := gob.NewDecoder(f).Decode(&ckpt); err != nil {
		return nil, err
	}
	return &ckpt, nil
}
