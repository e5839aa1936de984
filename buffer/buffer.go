// Package buffer provides an editable sequence of symbols. A buffer never
// parses; every successful mutation returns an Edit describing what changed so
// that a reparser can bring its state up to date.
package buffer

import (
	"errors"
	"fmt"
)

var ErrOutOfRange = errors.New("position out of range")

type EditKind int

const (
	EditInsert EditKind = iota
	EditDelete
)

func (k EditKind) String() string {
	switch k {
	case EditInsert:
		return "insert"
	case EditDelete:
		return "delete"
	}
	return fmt.Sprintf("EditKind(%d)", int(k))
}

// Edit describes one successful mutation. Length is the number of symbols
// inserted or deleted at Position.
type Edit struct {
	Kind     EditKind
	Position int
	Length   int
}

// Delta is the change of the buffer length caused by the edit.
func (e Edit) Delta() int {
	if e.Kind == EditDelete {
		return -e.Length
	}
	return e.Length
}

func (e Edit) IsEmpty() bool {
	return e.Length == 0
}

func (e Edit) String() string {
	return fmt.Sprintf("%v@%v+%v", e.Kind, e.Position, e.Length)
}

// RangeError reports an invalid position or count. The buffer is left
// unmodified when it is returned.
type RangeError struct {
	Op       string
	Position int
	Count    int
	Len      int
}

func (e *RangeError) Error() string {
	if e.Op == "delete" {
		return fmt.Sprintf("%v: %v; position: %v, count: %v, length: %v", e.Op, ErrOutOfRange, e.Position, e.Count, e.Len)
	}
	return fmt.Sprintf("%v: %v; position: %v, length: %v", e.Op, ErrOutOfRange, e.Position, e.Len)
}

func (e *RangeError) Unwrap() error {
	return ErrOutOfRange
}

type Buffer[T any] struct {
	syms      []T
	observers []func(Edit)
}

func New[T any](syms ...T) *Buffer[T] {
	b := &Buffer[T]{}
	if len(syms) > 0 {
		b.syms = append(make([]T, 0, len(syms)), syms...)
	}
	return b
}

// OnEdit registers fn to be called after every successful mutation. Observers
// run in registration order.
func (b *Buffer[T]) OnEdit(fn func(Edit)) {
	b.observers = append(b.observers, fn)
}

func (b *Buffer[T]) Len() int {
	return len(b.syms)
}

func (b *Buffer[T]) SymbolAt(pos int) (T, error) {
	if pos < 0 || pos >= len(b.syms) {
		var zero T
		return zero, &RangeError{Op: "symbol_at", Position: pos, Len: len(b.syms)}
	}
	return b.syms[pos], nil
}

// Slice returns a copy of the symbols in [start, end).
func (b *Buffer[T]) Slice(start, end int) ([]T, error) {
	if start < 0 || end > len(b.syms) || start > end {
		return nil, &RangeError{Op: "slice", Position: start, Count: end - start, Len: len(b.syms)}
	}
	s := make([]T, end-start)
	copy(s, b.syms[start:end])
	return s, nil
}

func (b *Buffer[T]) Insert(pos int, syms ...T) (Edit, error) {
	if pos < 0 || pos > len(b.syms) {
		return Edit{}, &RangeError{Op: "insert", Position: pos, Len: len(b.syms)}
	}
	e := Edit{
		Kind:     EditInsert,
		Position: pos,
		Length:   len(syms),
	}
	if len(syms) == 0 {
		return e, nil
	}

	grown := make([]T, 0, len(b.syms)+len(syms))
	grown = append(grown, b.syms[:pos]...)
	grown = append(grown, syms...)
	grown = append(grown, b.syms[pos:]...)
	b.syms = grown

	b.notify(e)
	return e, nil
}

func (b *Buffer[T]) Delete(pos, count int) (Edit, error) {
	if pos < 0 || pos > len(b.syms) || count < 0 || count > len(b.syms)-pos {
		return Edit{}, &RangeError{Op: "delete", Position: pos, Count: count, Len: len(b.syms)}
	}
	e := Edit{
		Kind:     EditDelete,
		Position: pos,
		Length:   count,
	}
	if count == 0 {
		return e, nil
	}

	b.syms = append(b.syms[:pos], b.syms[pos+count:]...)

	b.notify(e)
	return e, nil
}

func (b *Buffer[T]) notify(e Edit) {
	for _, fn := range b.observers {
		fn(e)
	}
}
