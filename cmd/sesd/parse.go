package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nihei9/sesd/driver"
	"github.com/nihei9/sesd/lexer"
	"github.com/nihei9/sesd/spec"
	"github.com/spf13/cobra"
)

var parseFlags = struct {
	source   *string
	segments *bool
	partial  *bool
	chart    *bool
}{}

func init() {
	cmd := &cobra.Command{
		Use:     "parse <grammar file path>",
		Short:   "Parse a text stream",
		Example: `  cat src | sesd parse grammar.json`,
		Args:    cobra.ExactArgs(1),
		RunE:    runParse,
	}
	parseFlags.source = cmd.Flags().StringP("source", "s", "", "source file path (default stdin)")
	parseFlags.segments = cmd.Flags().Bool("segments", false, "print the trees of the segments recovery completed when the whole text is rejected")
	parseFlags.partial = cmd.Flags().Bool("partial", false, "print the derivations in progress at the end of an incomplete text")
	parseFlags.chart = cmd.Flags().Bool("chart", false, "print the chart to stderr")
	rootCmd.AddCommand(cmd)
}

type parseOptions struct {
	segments bool
	partial  bool
	chart    bool
}

func runParse(cmd *cobra.Command, args []string) (retErr error) {
	defer handleError(&retErr)

	lang, err := readLanguage(cmd, args[0])
	if err != nil {
		return err
	}
	src, err := readSource(*parseFlags.source)
	if err != nil {
		return err
	}
	return parse(os.Stdout, os.Stderr, lang, src, parseOptions{
		segments: *parseFlags.segments,
		partial:  *parseFlags.partial,
		chart:    *parseFlags.chart,
	})
}

// parse writes the tree of src to w, or the syntax errors to errW when src is
// not a sentence.
func parse(w, errW io.Writer, lang *spec.Language, src []byte, opts parseOptions) error {
	toks, err := lang.Tokenize(string(src))
	if err != nil {
		return err
	}
	s, err := recognize(lang, toks)
	if err != nil {
		return err
	}
	if opts.chart {
		if err := s.WriteChart(errW); err != nil {
			return err
		}
	}

	if tree := s.CurrentTree(); tree != nil {
		driver.PrintTree(w, tree)
		return nil
	}

	writeSyntaxErrors(errW, s, toks)
	if opts.segments {
		for _, tree := range s.SegmentTrees() {
			driver.PrintTree(w, tree)
		}
	}
	if opts.partial && s.Status().Verdict == driver.VerdictMore {
		for _, tree := range s.PartialTrees(len(toks)) {
			driver.PrintTree(w, tree)
		}
	}
	return fmt.Errorf("the source is not a sentence of %v", lang.Name)
}

// recognize runs a new session over toks to the end, resuming every repair
// the budget suspends.
func recognize(lang *spec.Language, toks []lexer.Token) (*driver.Session[lexer.Token], error) {
	s, err := lang.NewSession()
	if err != nil {
		return nil, err
	}
	err = s.Insert(0, toks...)
	for errors.Is(err, driver.ErrRepairTooLarge) {
		err = s.Resume()
	}
	if err != nil && !errors.Is(err, driver.ErrUnrecoverable) {
		return nil, err
	}
	return s, nil
}
