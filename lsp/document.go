package lsp

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/nihei9/sesd/driver"
	"github.com/nihei9/sesd/grammar"
	"github.com/nihei9/sesd/lexer"
	"github.com/nihei9/sesd/spec"
	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// document is an open text document. The session holds its tokens, so each
// change repairs only the tokens that changed.
type document struct {
	lang    *spec.Language
	session *driver.Session[lexer.Token]
	logger  commonlog.Logger
	text    string
	lines   []string
	toks    []lexer.Token
	lexErr  *lexer.TokenError
}

func newDocument(lang *spec.Language, logger commonlog.Logger, opts ...driver.Option) (*document, error) {
	s, err := lang.NewSession(append(opts, driver.Logger(logger))...)
	if err != nil {
		return nil, err
	}
	return &document{
		lang:    lang,
		session: s,
		logger:  logger,
		lines:   []string{""},
	}, nil
}

// update replaces the text of the document. Syntax errors are not returned;
// they show up in diagnostics.
func (d *document) update(text string) error {
	d.text = text
	d.lines = strings.Split(text, "\n")

	toks, err := d.lang.Tokenize(text)
	d.lexErr = nil
	if err != nil {
		if !errors.As(err, &d.lexErr) {
			return err
		}
	}

	pos, del, ins := lexer.Diff(d.toks, toks)
	d.toks = toks
	if del == 0 && len(ins) == 0 {
		return nil
	}
	err = d.session.Replace(pos, del, ins...)
	if errors.Is(err, driver.ErrRepairTooLarge) {
		d.logger.Infof("%v; finishing the repair", err)
		err = d.session.Resume()
	}
	if err != nil && !errors.Is(err, driver.ErrUnrecoverable) {
		return err
	}
	d.logger.Debugf("updated; %v", d.session.LastRepair())
	return nil
}

func (d *document) diagnostics() []protocol.Diagnostic {
	diags := []protocol.Diagnostic{}
	if d.lexErr != nil {
		start := d.position(d.lexErr.Row, d.lexErr.Col)
		diags = append(diags, newDiagnostic(protocol.Range{
			Start: start,
			End:   d.advance(start, d.lexErr.Text),
		}, protocol.DiagnosticSeverityError, fmt.Sprintf("invalid token: %q", d.lexErr.Text)))
	}

	st := d.session.Status()
	for _, rs := range st.Restarts {
		diags = append(diags, newDiagnostic(d.tokenRange(rs.Stall), protocol.DiagnosticSeverityWarning,
			fmt.Sprintf("unexpected %v; skipped to the end of %v", d.describe(rs.Stall), rs.Name)))
	}
	switch {
	case st.Broken:
		diags = append(diags, newDiagnostic(d.tokenRange(st.Stall), protocol.DiagnosticSeverityError,
			d.unexpected(st.Stall)))
	case st.Verdict == driver.VerdictMore && d.lexErr == nil && len(d.toks) > 0:
		diags = append(diags, newDiagnostic(d.tokenRange(len(d.toks)), protocol.DiagnosticSeverityError,
			d.unexpected(len(d.toks))))
	}
	return diags
}

func newDiagnostic(rng protocol.Range, severity protocol.DiagnosticSeverity, msg string) protocol.Diagnostic {
	return protocol.Diagnostic{
		Range:    rng,
		Severity: &severity,
		Source:   strPtr(lsName),
		Message:  msg,
	}
}

func (d *document) unexpected(pos int) string {
	msg := fmt.Sprintf("unexpected %v", d.describe(pos))
	if expected := d.session.Expected(pos); len(expected) > 0 {
		msg = fmt.Sprintf("%v; expected: %v", msg, strings.Join(expected, ", "))
	}
	return msg
}

func (d *document) describe(pos int) string {
	if pos >= len(d.toks) {
		return "end of input"
	}
	return fmt.Sprintf("%q", d.toks[pos].Text)
}

// completions lists what may follow the tokens ending at or before pos.
func (d *document) completions(pos protocol.Position) []protocol.CompletionItem {
	k := 0
	for i := range d.toks {
		end := d.tokenRange(i).End
		if end.Line > pos.Line || (end.Line == pos.Line && end.Character > pos.Character) {
			break
		}
		k = i + 1
	}

	gram := d.session.Grammar()
	var items []protocol.CompletionItem
	for _, sym := range d.session.Predictions(k) {
		items = append(items, completionItem(gram, sym))
	}
	return items
}

func completionItem(gram *grammar.Grammar[lexer.Token], sym grammar.Symbol) protocol.CompletionItem {
	name := gram.Name(sym)
	if sym.IsNonTerminal() {
		return protocol.CompletionItem{
			Label:  name,
			Kind:   kindPtr(protocol.CompletionItemKindClass),
			Detail: strPtr("rule"),
		}
	}
	if len(name) > 2 && strings.HasPrefix(name, "'") && strings.HasSuffix(name, "'") {
		return protocol.CompletionItem{
			Label:  name[1 : len(name)-1],
			Kind:   kindPtr(protocol.CompletionItemKindKeyword),
			Detail: strPtr("literal"),
		}
	}
	return protocol.CompletionItem{
		Label:  name,
		Kind:   kindPtr(protocol.CompletionItemKindKeyword),
		Detail: strPtr("token"),
	}
}

// tokenRange returns the range of token i, or an empty range at the end of
// the text when i is past the last token.
func (d *document) tokenRange(i int) protocol.Range {
	if i < 0 || i >= len(d.toks) {
		end := protocol.Position{
			Line:      protocol.UInteger(len(d.lines) - 1),
			Character: utf16Len(d.lines[len(d.lines)-1]),
		}
		return protocol.Range{Start: end, End: end}
	}
	tok := d.toks[i]
	start := d.position(tok.Row, tok.Col)
	return protocol.Range{
		Start: start,
		End:   d.advance(start, tok.Text),
	}
}

// position converts a row and a column counted in characters into an LSP
// position, whose column counts UTF-16 code units.
func (d *document) position(row, col int) protocol.Position {
	if row >= len(d.lines) {
		row = len(d.lines) - 1
	}
	line := d.lines[row]
	n := 0
	for i, r := range []rune(line) {
		if i >= col {
			break
		}
		n += utf16.RuneLen(r)
	}
	return protocol.Position{
		Line:      protocol.UInteger(row),
		Character: protocol.UInteger(n),
	}
}

func (d *document) advance(pos protocol.Position, text string) protocol.Position {
	for _, r := range text {
		if r == '\n' {
			pos.Line++
			pos.Character = 0
			continue
		}
		pos.Character += protocol.UInteger(utf16.RuneLen(r))
	}
	return pos
}

func utf16Len(s string) protocol.UInteger {
	var n protocol.UInteger
	for _, r := range s {
		n += protocol.UInteger(utf16.RuneLen(r))
	}
	return n
}

// offset converts an LSP position into a byte offset of text. Positions past
// the end of a line or of the text are clamped.
func offset(text string, pos protocol.Position) int {
	off := 0
	for line := protocol.UInteger(0); line < pos.Line; line++ {
		i := strings.IndexByte(text[off:], '\n')
		if i < 0 {
			return len(text)
		}
		off += i + 1
	}
	var units protocol.UInteger
	for units < pos.Character && off < len(text) {
		r, size := utf8.DecodeRuneInString(text[off:])
		if r == '\n' {
			break
		}
		units += protocol.UInteger(utf16.RuneLen(r))
		off += size
	}
	return off
}

// applyChange applies one content change event to text.
func applyChange(text string, change any) (string, error) {
	switch c := change.(type) {
	case protocol.TextDocumentContentChangeEventWhole:
		return c.Text, nil
	case protocol.TextDocumentContentChangeEvent:
		if c.Range == nil {
			return c.Text, nil
		}
		start := offset(text, c.Range.Start)
		end := offset(text, c.Range.End)
		if end < start {
			start, end = end, start
		}
		return text[:start] + c.Text + text[end:], nil
	}
	return text, fmt.Errorf("unknown content change: %T", change)
}

func strPtr(s string) *string {
	return &s
}

func kindPtr(k protocol.CompletionItemKind) *protocol.CompletionItemKind {
	return &k
}
