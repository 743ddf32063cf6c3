// Package scenario loads and executes celltrace scenario scripts.
//
// A scenario is a YAML list of steps run against one shared tracked cell
// (SharedPtr[*TrackedCell[int]]). Each step prints one trace line showing
// its result and the cell's borrow state and reference count afterwards,
// and may assert the result it expects.
//
// Example script:
//
//	name: readers block writer
//	initial: 5
//	steps:
//	  - {op: borrow, as: g1, expect: ok}
//	  - {op: borrow, as: g2, expect: ok}
//	  - {op: borrow_mut, expect: absent}
//	  - {op: release, guard: g1}
//	  - {op: release, guard: g2}
//	  - {op: borrow_mut, as: w, expect: ok}
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Op names a scenario step.
type Op string

// Supported operations.
const (
	OpBorrow    Op = "borrow"
	OpBorrowMut Op = "borrow_mut"
	OpRelease   Op = "release"
	OpRead      Op = "read"
	OpWrite     Op = "write"
	OpClone     Op = "clone"
	OpDrop      Op = "drop"
	OpCount     Op = "count"
)

// MainHandle is the name of the handle every scenario starts with.
const MainHandle = "main"

// Results printed in trace lines and matched by Step.Expect.
const (
	ResultOK     = "ok"
	ResultAbsent = "absent"
)

// Scenario is one script.
type Scenario struct {
	Name     string `yaml:"name"`
	Initial  int    `yaml:"initial"`
	Tracking bool   `yaml:"tracking"`
	Steps    []Step `yaml:"steps"`
}

// Step is one operation.
//
// Field use per op:
//   - borrow, borrow_mut, clone: As names the new guard or handle (generated if empty).
//   - release: Guard.
//   - read: Guard, or none for a scoped borrow through Handle.
//   - write: Guard (a write guard) or none for a scoped borrow; Value.
//   - drop, count, and the borrows: Handle (default "main").
type Step struct {
	Op     Op     `yaml:"op"`
	As     string `yaml:"as,omitempty"`
	Guard  string `yaml:"guard,omitempty"`
	Handle string `yaml:"handle,omitempty"`
	Value  *int   `yaml:"value,omitempty"`
	Expect string `yaml:"expect,omitempty"`
}

// Sentinel errors for malformed scripts.
var (
	ErrNoSteps       = errors.New("scenario has no steps")
	ErrUnknownOp     = errors.New("unknown op")
	ErrUnknownGuard  = errors.New("unknown or released guard")
	ErrUnknownHandle = errors.New("unknown or dropped handle")
	ErrDuplicateName = errors.New("name already in use")
	ErrMissingValue  = errors.New("write needs a value")
	ErrReadOnlyGuard = errors.New("write through a read guard")
)

// Parse decodes one scenario. Unknown fields are rejected.
func Parse(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Scenario
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads and parses the scenario file at path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = path
	}
	return s, nil
}

// Validate checks the static shape of the script. Name resolution happens at run time.
func (s *Scenario) Validate() error {
	if len(s.Steps) == 0 {
		return ErrNoSteps
	}

	for i, st := range s.Steps {
		switch st.Op {
		case OpBorrow, OpBorrowMut, OpRead, OpClone, OpDrop, OpCount:
		case OpRelease:
			if st.Guard == "" {
				return fmt.Errorf("step %d (%s): %w: missing guard", i+1, st.Op, ErrUnknownGuard)
			}
		case OpWrite:
			if st.Value == nil {
				return fmt.Errorf("step %d (%s): %w", i+1, st.Op, ErrMissingValue)
			}
		default:
			return fmt.Errorf("step %d: %w %q", i+1, ErrUnknownOp, st.Op)
		}
	}
	return nil
}

// Encode writes s as YAML.
func (s *Scenario) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode scenario: %w", err)
	}
	return enc.Close()
}
