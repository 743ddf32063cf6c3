package scenario

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/kolkov/cellkit"
)

// ErrMismatch is returned by Run when at least one expectation failed.
var ErrMismatch = errors.New("expectation mismatch")

// Result summarizes one run.
type Result struct {
	Steps      int
	Mismatches int

	// Leaked lists guards and handles still outstanding when the script ended.
	Leaked []string

	// Released reports whether the last handle was dropped and the value released.
	Released bool
}

// runner holds the live objects created by a script.
type runner struct {
	out io.Writer
	log *zap.Logger

	cell     *cellkit.TrackedCell[int]
	released bool

	handles map[string]*cellkit.SharedPtr[*cellkit.TrackedCell[int]]
	readers map[string]*cellkit.ReadGuard[int]
	writers map[string]*cellkit.WriteGuard[int]
}

// Run executes s, writing one trace line per step to out.
//
// The script is validated first, so a Scenario built in code gets the same
// checks as a parsed one. A malformed step (unknown name, write through a
// read guard) aborts the run with an error. Failed expectations are counted and reported as
// ErrMismatch after the last step.
func Run(s *Scenario, out io.Writer, log *zap.Logger) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	var opts []cellkit.TrackedOption
	if s.Tracking {
		opts = append(opts, cellkit.WithTracking())
	}

	r := &runner{
		out:     out,
		log:     log.With(zap.String("scenario", s.Name)),
		cell:    cellkit.NewTrackedCell(s.Initial, opts...),
		handles: make(map[string]*cellkit.SharedPtr[*cellkit.TrackedCell[int]]),
		readers: make(map[string]*cellkit.ReadGuard[int]),
		writers: make(map[string]*cellkit.WriteGuard[int]),
	}
	r.handles[MainHandle] = cellkit.NewSharedPtr(r.cell, cellkit.WithRelease(func(*cellkit.TrackedCell[int]) {
		r.released = true
	}))

	fmt.Fprintf(out, "=== %s (initial=%d)\n", s.Name, s.Initial)

	res := &Result{}
	for i := range s.Steps {
		st := &s.Steps[i]
		got, target, err := r.step(i, st)
		if err != nil {
			return res, fmt.Errorf("step %d (%s): %w", i+1, st.Op, err)
		}
		res.Steps++

		mark := ""
		if st.Expect != "" && st.Expect != got {
			res.Mismatches++
			mark = fmt.Sprintf("  MISMATCH: expected %s", st.Expect)
		}
		fmt.Fprintf(out, "%3d %-10s %-8s -> %-6s state=%s count=%d%s\n",
			i+1, st.Op, target, got, r.cell.State(), r.count(), mark)

		r.log.Debug("step",
			zap.Int("index", i+1),
			zap.String("op", string(st.Op)),
			zap.String("target", target),
			zap.String("result", got),
			zap.Stringer("state", r.cell.State()),
		)
	}

	res.Leaked = r.leaks()
	res.Released = r.released
	for _, name := range res.Leaked {
		fmt.Fprintf(out, "    leak: %s\n", name)
		r.log.Warn("outstanding at end of scenario", zap.String("name", name))
	}

	if res.Mismatches > 0 {
		return res, fmt.Errorf("%d of %d steps: %w", res.Mismatches, res.Steps, ErrMismatch)
	}
	return res, nil
}

func (r *runner) step(i int, st *Step) (got, target string, err error) {
	switch st.Op {
	case OpBorrow:
		h, err := r.handle(st.Handle)
		if err != nil {
			return "", "", err
		}
		name := r.fresh(st.As, "r", i)
		if err := r.unused(name); err != nil {
			return "", "", err
		}
		g, ok := h.Get().Borrow()
		if !ok {
			return ResultAbsent, name, nil
		}
		r.readers[name] = g
		return ResultOK, name, nil

	case OpBorrowMut:
		h, err := r.handle(st.Handle)
		if err != nil {
			return "", "", err
		}
		name := r.fresh(st.As, "w", i)
		if err := r.unused(name); err != nil {
			return "", "", err
		}
		g, ok := h.Get().BorrowMut()
		if !ok {
			return ResultAbsent, name, nil
		}
		r.writers[name] = g
		return ResultOK, name, nil

	case OpRelease:
		if g, ok := r.readers[st.Guard]; ok {
			g.Release()
			delete(r.readers, st.Guard)
			return ResultOK, st.Guard, nil
		}
		if g, ok := r.writers[st.Guard]; ok {
			g.Release()
			delete(r.writers, st.Guard)
			return ResultOK, st.Guard, nil
		}
		return "", "", fmt.Errorf("%w %q", ErrUnknownGuard, st.Guard)

	case OpRead:
		if st.Guard != "" {
			if g, ok := r.readers[st.Guard]; ok {
				return strconv.Itoa(g.Get()), st.Guard, nil
			}
			if g, ok := r.writers[st.Guard]; ok {
				return strconv.Itoa(g.Get()), st.Guard, nil
			}
			return "", "", fmt.Errorf("%w %q", ErrUnknownGuard, st.Guard)
		}
		name := r.handleName(st.Handle)
		h, err := r.handle(name)
		if err != nil {
			return "", "", err
		}
		var v int
		if !h.Get().With(func(x int) { v = x }) {
			return ResultAbsent, name, nil
		}
		return strconv.Itoa(v), name, nil

	case OpWrite:
		v := *st.Value
		if st.Guard != "" {
			if g, ok := r.writers[st.Guard]; ok {
				g.Set(v)
				return ResultOK, st.Guard, nil
			}
			if _, ok := r.readers[st.Guard]; ok {
				return "", "", fmt.Errorf("%w %q", ErrReadOnlyGuard, st.Guard)
			}
			return "", "", fmt.Errorf("%w %q", ErrUnknownGuard, st.Guard)
		}
		name := r.handleName(st.Handle)
		h, err := r.handle(name)
		if err != nil {
			return "", "", err
		}
		if !h.Get().WithMut(func(x *int) { *x = v }) {
			return ResultAbsent, name, nil
		}
		return ResultOK, name, nil

	case OpClone:
		h, err := r.handle(st.Handle)
		if err != nil {
			return "", "", err
		}
		name := r.fresh(st.As, "h", i)
		if err := r.unused(name); err != nil {
			return "", "", err
		}
		r.handles[name] = h.Clone()
		return ResultOK, name, nil

	case OpDrop:
		name := r.handleName(st.Handle)
		h, err := r.handle(name)
		if err != nil {
			return "", "", err
		}
		h.Drop()
		delete(r.handles, name)
		return ResultOK, name, nil

	case OpCount:
		name := r.handleName(st.Handle)
		h, err := r.handle(name)
		if err != nil {
			return "", "", err
		}
		return strconv.Itoa(h.Count()), name, nil

	default:
		return "", "", fmt.Errorf("%w %q", ErrUnknownOp, st.Op)
	}
}

func (r *runner) handleName(name string) string {
	if name == "" {
		return MainHandle
	}
	return name
}

func (r *runner) handle(name string) (*cellkit.SharedPtr[*cellkit.TrackedCell[int]], error) {
	name = r.handleName(name)
	h, ok := r.handles[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownHandle, name)
	}
	return h, nil
}

// fresh returns name, or a generated "<prefix><step>" name when it is empty.
func (r *runner) fresh(name, prefix string, i int) string {
	if name != "" {
		return name
	}
	return prefix + strconv.Itoa(i+1)
}

func (r *runner) unused(name string) error {
	_, h := r.handles[name]
	_, rg := r.readers[name]
	_, wg := r.writers[name]
	if h || rg || wg {
		return fmt.Errorf("%w %q", ErrDuplicateName, name)
	}
	return nil
}

// count returns the reference count seen through any live handle, or 0.
func (r *runner) count() int {
	for _, h := range r.handles {
		return h.Count()
	}
	return 0
}

func (r *runner) leaks() []string {
	var names []string
	for name := range r.readers {
		names = append(names, "read guard "+name)
	}
	for name := range r.writers {
		names = append(names, "write guard "+name)
	}
	for name := range r.handles {
		names = append(names, "handle "+name)
	}
	sort.Strings(names)
	return names
}
