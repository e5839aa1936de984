package main

import (
	"fmt"
	"io"
	"os"

	"github.com/nihei9/sesd/driver"
	"github.com/nihei9/sesd/lexer"
	"github.com/nihei9/sesd/spec"
	"github.com/spf13/cobra"
)

var predictFlags = struct {
	source *string
	pos    *int
}{}

func init() {
	cmd := &cobra.Command{
		Use:     "predict <grammar file path>",
		Short:   "List the symbols expected at a token position",
		Example: `  echo -n "let a =" | sesd predict grammar.json --pos 3`,
		Args:    cobra.ExactArgs(1),
		RunE:    runPredict,
	}
	predictFlags.source = cmd.Flags().StringP("source", "s", "", "source file path (default stdin)")
	predictFlags.pos = cmd.Flags().IntP("pos", "p", -1, "token position (default the end of the source)")
	rootCmd.AddCommand(cmd)
}

func runPredict(cmd *cobra.Command, args []string) (retErr error) {
	defer handleError(&retErr)

	lang, err := readLanguage(cmd, args[0])
	if err != nil {
		return err
	}
	src, err := readSource(*predictFlags.source)
	if err != nil {
		return err
	}
	return predict(os.Stdout, lang, src, *predictFlags.pos)
}

// predict writes the symbols expected at the token position pos of src. A
// negative pos stands for the end of src.
func predict(w io.Writer, lang *spec.Language, src []byte, pos int) error {
	toks, err := lang.Tokenize(string(src))
	if err != nil {
		return err
	}
	s, err := recognize(lang, toks)
	if err != nil {
		return err
	}
	if pos < 0 {
		pos = len(toks)
	}
	if pos > len(toks) {
		return fmt.Errorf("the position is out of the source: %v (%v tokens)", pos, len(toks))
	}
	return writePredictions(w, s, pos)
}

func writePredictions(w io.Writer, s *driver.Session[lexer.Token], pos int) error {
	gram := s.Grammar()
	syms := s.Predictions(pos)
	if len(syms) == 0 {
		return fmt.Errorf("no symbol is expected at %v", pos)
	}
	for _, sym := range syms {
		kind := "terminal"
		if sym.IsNonTerminal() {
			kind = "non-terminal"
		}
		fmt.Fprintf(w, "%v (%v)\n", gram.Name(sym), kind)
	}
	return nil
}
