package grammar

import "fmt"

// Matcher decides which buffer symbols a terminal accepts. String returns the
// terminal's name; two matchers with the same name are the same terminal.
type Matcher[T any] interface {
	Match(sym T) bool
	String() string
}

type runeMatcher struct {
	lo rune
	hi rune
}

// Rune matches exactly r.
func Rune(r rune) Matcher[rune] {
	return runeMatcher{lo: r, hi: r}
}

// RuneRange matches any character in [lo, hi].
func RuneRange(lo, hi rune) Matcher[rune] {
	if lo > hi {
		lo, hi = hi, lo
	}
	return runeMatcher{lo: lo, hi: hi}
}

func (m runeMatcher) Match(r rune) bool {
	return m.lo <= r && r <= m.hi
}

func (m runeMatcher) String() string {
	if m.lo == m.hi {
		return fmt.Sprintf("%q", m.lo)
	}
	return fmt.Sprintf("%q..%q", m.lo, m.hi)
}

type equalMatcher[T comparable] struct {
	v T
}

// Equal matches symbols equal to v.
func Equal[T comparable](v T) Matcher[T] {
	return equalMatcher[T]{v: v}
}

func (m equalMatcher[T]) Match(sym T) bool {
	return sym == m.v
}

func (m equalMatcher[T]) String() string {
	return fmt.Sprintf("%v", m.v)
}

type funcMatcher[T any] struct {
	name string
	fn   func(T) bool
}

// Func matches symbols for which fn returns true.
func Func[T any](name string, fn func(T) bool) Matcher[T] {
	return funcMatcher[T]{name: name, fn: fn}
}

func (m funcMatcher[T]) Match(sym T) bool {
	return m.fn(sym)
}

func (m funcMatcher[T]) String() string {
	return m.name
}
