package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/nihei9/sesd/driver"
	"github.com/nihei9/sesd/lexer"
)

// writeSyntaxErrors writes a line per restart and per unrecoverable error of
// the session, and reports whether it wrote any.
func writeSyntaxErrors(w io.Writer, s *driver.Session[lexer.Token], toks []lexer.Token) bool {
	st := s.Status()
	for _, rs := range st.Restarts {
		fmt.Fprintf(w, "%v: unexpected %v; skipped to the end of %v\n", location(toks, rs.Stall), describeToken(toks, rs.Stall), rs.Name)
	}
	if st.Broken {
		fmt.Fprintf(w, "%v: unexpected %v", location(toks, st.Stall), describeToken(toks, st.Stall))
		writeExpected(w, s.Expected(st.Stall))
		fmt.Fprintf(w, "\n")
		return true
	}
	if st.Verdict == driver.VerdictMore && len(toks) > 0 {
		fmt.Fprintf(w, "%v: unexpected <eof>", location(toks, len(toks)))
		writeExpected(w, s.Expected(len(toks)))
		fmt.Fprintf(w, "\n")
		return true
	}
	return len(st.Restarts) > 0
}

func writeExpected(w io.Writer, expected []string) {
	if len(expected) == 0 {
		return
	}
	fmt.Fprintf(w, "; expected: %v", strings.Join(expected, ", "))
}

func location(toks []lexer.Token, pos int) string {
	if len(toks) == 0 {
		return "1:1"
	}
	if pos >= len(toks) {
		last := toks[len(toks)-1]
		return fmt.Sprintf("%v:%v", last.Row+1, last.Col+1+len([]rune(last.Text)))
	}
	return fmt.Sprintf("%v:%v", toks[pos].Row+1, toks[pos].Col+1)
}

func describeToken(toks []lexer.Token, pos int) string {
	if pos >= len(toks) {
		return "<eof>"
	}
	return fmt.Sprintf("'%v'", toks[pos].Text)
}
