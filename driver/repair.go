package driver

import (
	"errors"
	"fmt"

	"github.com/nihei9/sesd/buffer"
)

var ErrRepairTooLarge = errors.New("repair exceeded its budget")

// RepairTooLargeError is returned when an edit needed more column
// recomputations than the configured budget. The chart stays pending until
// Resume or Reparse completes it.
type RepairTooLargeError struct {
	Budget     int
	Recomputed int
	Column     int
}

func (e *RepairTooLargeError) Error() string {
	return fmt.Sprintf("%v; budget: %v, recomputed: %v, column: %v", ErrRepairTooLarge, e.Budget, e.Recomputed, e.Column)
}

func (e *RepairTooLargeError) Unwrap() error {
	return ErrRepairTooLarge
}

// RepairStats describes the work done by one repair. Columns in
// [Start, Column] were recomputed; when Converged is true every column after
// Column was reused from the previous chart.
type RepairStats struct {
	Edit       buffer.Edit
	Start      int
	Column     int
	Converged  bool
	Recomputed int
	Reused     int
}

func (s RepairStats) String() string {
	return fmt.Sprintf("edit: %v, start: %v, column: %v, converged: %v, recomputed: %v, reused: %v",
		s.Edit, s.Start, s.Column, s.Converged, s.Recomputed, s.Reused)
}

// repairJob is the state of an unfinished repair. old holds the columns of the
// chart before the edit; a column k of the new chart corresponds to the column
// k-delta of old once k >= k0.
type repairJob struct {
	edit        buffer.Edit
	old         []*column
	oldRestarts []Restart
	oldBroken   int
	delta       int
	k0          int
	clean       int
	start       int
	recomputed  int
}

// mapBack translates a column index of the new chart into the old one. Only
// indices below clean or at or after k have a counterpart.
func (j *repairJob) mapBack(v, k int) (int, bool) {
	if v < j.clean {
		return v, true
	}
	if v >= k {
		return v - j.delta, true
	}
	return 0, false
}

func (j *repairJob) shift(v int) int {
	if v < j.clean {
		return v
	}
	return v + j.delta
}

// prepare truncates the chart to the columns an edit leaves valid and returns
// the job that rebuilds the rest.
func (c *Chart[T]) prepare(edit buffer.Edit) *repairJob {
	p := edit.Position
	job := c.pending
	if job != nil {
		// The previous repair never finished, so there is nothing to converge
		// with; the columns built so far are kept up to the edit.
		job.edit = edit
		job.old = nil
		job.oldRestarts = nil
		job.oldBroken = -1
		job.start = min(c.last(), p) + 1
	} else {
		job = &repairJob{
			edit:        edit,
			old:         c.cols,
			oldRestarts: c.restarts,
			oldBroken:   c.broken,
			delta:       edit.Delta(),
			k0:          p + max(edit.Delta(), 0),
			start:       p + 1,
		}
	}

	// A recovery that stalled at or after the edit may turn out differently, so
	// the chart is rebuilt from where it restarted.
	for _, rs := range c.restarts {
		if rs.Stall >= p {
			job.start = min(job.start, rs.Column)
		}
	}
	var kept []Restart
	for _, rs := range c.restarts {
		if rs.Stall < p && rs.Column < job.start {
			kept = append(kept, rs)
		}
	}
	c.restarts = kept
	if c.broken >= p {
		c.broken = -1
	}
	job.clean = min(p, job.start)

	if job.start == 0 {
		c.cols = nil
		col := newColumn(mode{
			segment: c.gram.Start(),
		})
		c.cols = append(c.cols, col)
		c.seed(col, c.gram.Start(), 0)
		c.close(0)
		job.start = 1
		job.clean = 0
	} else {
		c.cols = append([]*column(nil), c.cols[:job.start]...)
	}

	return job
}

// repair brings the chart up to date after edit was applied to the buffer.
// With a positive budget the repair stops after that many column
// recomputations and leaves the chart pending.
func (c *Chart[T]) repair(edit buffer.Edit, budget int) (RepairStats, error) {
	job := c.prepare(edit)
	c.logger.Debugf("repair; edit: %v, start: %v", edit, job.start)
	return c.run(job, budget)
}

// resume finishes a pending repair without a budget.
func (c *Chart[T]) resume() (RepairStats, error) {
	if c.pending == nil {
		return RepairStats{Start: c.last() + 1, Column: c.last()}, c.brokenError()
	}
	return c.run(c.pending, 0)
}

// reparse discards the chart and builds it from scratch.
func (c *Chart[T]) reparse() (RepairStats, error) {
	c.init()
	return c.run(&repairJob{
		oldBroken: -1,
		start:     1,
	}, 0)
}

func (c *Chart[T]) run(job *repairJob, budget int) (RepairStats, error) {
	c.pending = nil
	n := c.buf.Len()
	stats := RepairStats{
		Edit:  job.edit,
		Start: job.start,
	}
	steps := 0
	for {
		k := c.last()
		if job.old != nil && k >= job.k0 && c.converged(job, k) {
			reused := c.splice(job, k)
			stats.Converged = true
			stats.Column = k
			stats.Reused = k + 1 - stats.Recomputed + reused
			break
		}
		if k >= n {
			stats.Column = k
			stats.Reused = k + 1 - stats.Recomputed
			break
		}
		if budget > 0 && steps >= budget {
			c.pending = job
			stats.Column = k
			c.logger.Debugf("repair suspended; column: %v, recomputed: %v", k, job.recomputed)
			return stats, &RepairTooLargeError{
				Budget:     budget,
				Recomputed: steps,
				Column:     k,
			}
		}

		if rs := c.advance(k); rs != nil {
			job.clean = min(job.clean, rs.Column)
			stats.Start = min(stats.Start, rs.Column)
		}
		steps++
		job.recomputed++
		stats.Recomputed++
	}
	if stats.Reused < 0 {
		stats.Reused = 0
	}
	c.logger.Debugf("repair done; %v", stats)

	return stats, c.brokenError()
}

func (c *Chart[T]) brokenError() error {
	if c.broken < 0 {
		return nil
	}
	return &UnrecoverableError{
		Column:   c.broken,
		Expected: c.expectedAt(c.broken),
	}
}

// converged reports whether column k of the new chart is interchangeable with
// its counterpart in the old chart, so that everything after it can be reused.
func (c *Chart[T]) converged(job *repairJob, k int) bool {
	ko := k - job.delta
	if ko < 0 || ko >= len(job.old) {
		return false
	}
	nc := c.cols[k]
	oc := job.old[ko]
	if len(nc.items) != len(oc.items) {
		return false
	}
	for i, it := range nc.items {
		ot := oc.items[i]
		if it.prod != ot.prod || it.dot != ot.dot {
			return false
		}
		origin, ok := job.mapBack(it.origin, k)
		if !ok || origin != ot.origin {
			return false
		}
	}

	nm, om := nc.mode, oc.mode
	if nm.segment != om.segment || nm.restart != om.restart || nm.skipping != om.skipping {
		return false
	}
	if nm.restart {
		origin, ok := job.mapBack(nm.origin, k)
		if !ok || origin != om.origin {
			return false
		}
	} else if nm.origin != om.origin {
		return false
	}
	if nm.skipping {
		stall, ok := job.mapBack(nm.stall, k)
		if !ok || stall != om.stall {
			return false
		}
	}

	for _, rs := range job.oldRestarts {
		if rs.Stall >= job.edit.Position && rs.Column < ko && ko <= rs.Stall {
			return false
		}
	}

	return true
}

// splice appends the columns of the old chart after the counterpart of k,
// renumbering the column indices they hold. It returns the number of columns
// appended.
func (c *Chart[T]) splice(job *repairJob, k int) int {
	ko := k - job.delta
	tail := job.old[ko+1:]
	for _, col := range tail {
		if job.delta != 0 {
			shiftColumn(col, job)
		}
		c.cols = append(c.cols, col)
	}

	for _, rs := range job.oldRestarts {
		if rs.Column <= ko {
			continue
		}
		rs.Column = job.shift(rs.Column)
		rs.Stall = job.shift(rs.Stall)
		c.restarts = append(c.restarts, rs)
	}
	if c.broken < 0 && job.oldBroken >= ko {
		c.broken = job.shift(job.oldBroken)
	}

	c.logger.Debugf("converged; column: %v, old column: %v, reused: %v", k, ko, len(tail))
	return len(tail)
}

func shiftColumn(col *column, job *repairJob) {
	for key := range col.index {
		delete(col.index, key)
	}
	for i := range col.items {
		it := &col.items[i]
		it.origin = job.shift(it.origin)
		if it.link.kind != linkNone {
			it.link.pred.col = job.shift(it.link.pred.col)
		}
		if it.link.kind == linkComplete {
			it.link.child.col = job.shift(it.link.child.col)
		}
		col.index[itemKey{
			prod:   it.prod,
			dot:    it.dot,
			origin: it.origin,
		}] = i
	}
	if col.mode.restart {
		col.mode.origin = job.shift(col.mode.origin)
	}
	if col.mode.skipping {
		col.mode.stall = job.shift(col.mode.stall)
	}
}
