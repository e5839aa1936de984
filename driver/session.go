// Package driver keeps an Earley chart in step with an editable buffer. A
// Session applies every edit to its buffer and repairs only the part of the
// chart the edit can affect before returning.
package driver

import (
	"errors"
	"fmt"
	"io"

	"github.com/nihei9/sesd/buffer"
	"github.com/nihei9/sesd/grammar"
	"github.com/tliron/commonlog"
)

type Verdict int

const (
	// VerdictMore means the buffer is a viable prefix of a sentence.
	VerdictMore Verdict = iota
	VerdictAccept
	// VerdictReject means recovery restarted the parse or gave up.
	VerdictReject
	// VerdictPending means a repair stopped at its budget.
	VerdictPending
)

func (v Verdict) String() string {
	switch v {
	case VerdictMore:
		return "more"
	case VerdictAccept:
		return "accept"
	case VerdictReject:
		return "reject"
	case VerdictPending:
		return "pending"
	}
	return fmt.Sprintf("Verdict(%d)", int(v))
}

type Status struct {
	Verdict  Verdict
	Broken   bool
	Stall    int
	Restarts []Restart
	Pending  bool
}

type config struct {
	restart   []string
	maxRepair int
	logger    commonlog.Logger
}

type Option func(c *config) error

// RestartSymbols sets the non-terminals recovery may restart the parse with,
// in order of preference.
func RestartSymbols(names ...string) Option {
	return func(c *config) error {
		c.restart = append(c.restart, names...)
		return nil
	}
}

// MaxRepair bounds the number of columns a single edit may recompute. Zero
// means no bound.
func MaxRepair(n int) Option {
	return func(c *config) error {
		if n < 0 {
			return fmt.Errorf("the repair budget must be non-negative: %v", n)
		}
		c.maxRepair = n
		return nil
	}
}

func Logger(logger commonlog.Logger) Option {
	return func(c *config) error {
		if logger == nil {
			return errors.New("the logger must not be nil")
		}
		c.logger = logger
		return nil
	}
}

// Session owns a buffer and the chart recognizing it. It is not safe for
// concurrent use.
type Session[T any] struct {
	gram      *grammar.Grammar[T]
	buf       *buffer.Buffer[T]
	chart     *Chart[T]
	maxRepair int
	logger    commonlog.Logger
	tree      *Node
	treeValid bool
	last      RepairStats
}

func NewSession[T any](gram *grammar.Grammar[T], opts ...Option) (*Session[T], error) {
	if gram == nil {
		return nil, errors.New("a session needs a grammar")
	}
	c := &config{
		logger: commonlog.GetLogger("sesd.driver"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	var restartSyms []grammar.Symbol
	for _, name := range c.restart {
		sym, ok := gram.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown restart symbol: %v", name)
		}
		if !sym.IsNonTerminal() {
			return nil, fmt.Errorf("a restart symbol must be a non-terminal: %v", name)
		}
		restartSyms = append(restartSyms, sym)
	}

	buf := buffer.New[T]()
	return &Session[T]{
		gram:      gram,
		buf:       buf,
		chart:     newChart(gram, buf, restartSyms, c.logger),
		maxRepair: c.maxRepair,
		logger:    c.logger,
	}, nil
}

func (s *Session[T]) Grammar() *grammar.Grammar[T] {
	return s.gram
}

func (s *Session[T]) Len() int {
	return s.buf.Len()
}

func (s *Session[T]) SymbolAt(pos int) (T, error) {
	return s.buf.SymbolAt(pos)
}

// Insert inserts syms at pos and repairs the chart. Errors wrapping
// ErrUnrecoverable or ErrRepairTooLarge leave the edit applied.
func (s *Session[T]) Insert(pos int, syms ...T) error {
	edit, err := s.buf.Insert(pos, syms...)
	if err != nil {
		return err
	}
	return s.repair(edit)
}

func (s *Session[T]) Delete(pos, count int) error {
	edit, err := s.buf.Delete(pos, count)
	if err != nil {
		return err
	}
	return s.repair(edit)
}

// Replace deletes count symbols at pos and inserts syms in their place. Both
// ranges are validated before anything changes.
func (s *Session[T]) Replace(pos, count int, syms ...T) error {
	if pos < 0 || pos > s.buf.Len() || count < 0 || count > s.buf.Len()-pos {
		return &buffer.RangeError{
			Op:       "replace",
			Position: pos,
			Count:    count,
			Len:      s.buf.Len(),
		}
	}
	if err := s.Delete(pos, count); err != nil && !errors.Is(err, ErrUnrecoverable) && !errors.Is(err, ErrRepairTooLarge) {
		return err
	}
	return s.Insert(pos, syms...)
}

func (s *Session[T]) repair(edit buffer.Edit) error {
	if edit.IsEmpty() {
		if s.chart.pending != nil {
			return nil
		}
		return s.chart.brokenError()
	}
	s.treeValid = false
	stats, err := s.chart.repair(edit, s.maxRepair)
	s.last = stats
	s.logger.Debugf("repaired; %v", stats)
	return err
}

// Resume completes a repair suspended by the budget.
func (s *Session[T]) Resume() error {
	s.treeValid = false
	stats, err := s.chart.resume()
	s.last = stats
	return err
}

// Reparse discards the chart and recognizes the whole buffer again.
func (s *Session[T]) Reparse() error {
	s.treeValid = false
	stats, err := s.chart.reparse()
	s.last = stats
	return err
}

// LastRepair returns the statistics of the most recent repair.
func (s *Session[T]) LastRepair() RepairStats {
	return s.last
}

// CurrentTree returns the parse tree of the buffer, or nil unless the buffer
// is a sentence of the grammar.
func (s *Session[T]) CurrentTree() *Node {
	if !s.treeValid {
		s.tree = s.chart.tree()
		s.treeValid = true
	}
	return s.tree
}

// SegmentTrees returns the trees of the restart segments completed so far.
func (s *Session[T]) SegmentTrees() []*Node {
	return s.chart.segmentTrees()
}

// WriteChart writes the chart one column per line. An item reads
// production.dot@origin, followed by its back-pointer: <s for a scan, <c for a
// completion and <k for a skipped symbol.
func (s *Session[T]) WriteChart(w io.Writer) error {
	for _, line := range s.chart.dump() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// PartialTrees returns the derivations in progress at pos whatever the
// verdict, in chart order. It returns nil while a repair is suspended.
func (s *Session[T]) PartialTrees(pos int) []*Node {
	return s.chart.partialTrees(pos)
}

// Predictions returns the symbols expected at pos in grammar rule order.
func (s *Session[T]) Predictions(pos int) []grammar.Symbol {
	if s.chart.broken >= 0 && pos > s.chart.broken {
		return nil
	}
	return s.chart.predictions(pos)
}

// Expected names the terminals expected at pos.
func (s *Session[T]) Expected(pos int) []string {
	if s.chart.pending != nil {
		return nil
	}
	return s.chart.expectedAt(pos)
}

func (s *Session[T]) Status() Status {
	st := Status{
		Verdict: s.chart.verdict(),
		Broken:  s.chart.broken >= 0,
		Stall:   -1,
		Pending: s.chart.pending != nil,
	}
	if st.Broken {
		st.Stall = s.chart.broken
	}
	if len(s.chart.restarts) > 0 {
		st.Restarts = append([]Restart(nil), s.chart.restarts...)
		if !st.Broken {
			st.Stall = st.Restarts[len(st.Restarts)-1].Stall
		}
	}
	return st
}

// Text returns the buffer symbols under the span of node.
func (s *Session[T]) Text(node *Node) ([]T, error) {
	if node == nil {
		return nil, nil
	}
	return s.buf.Slice(node.Start, node.End)
}
