package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nihei9/sesd/spec"
	"github.com/nihei9/sesd/tester"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:     "test <grammar file path> <test file path>|<test directory path>",
		Short:   "Test a grammar",
		Example: `  sesd test grammar.json test`,
		Args:    cobra.ExactArgs(2),
		RunE:    runTest,
	}
	rootCmd.AddCommand(cmd)
}

func runTest(cmd *cobra.Command, args []string) error {
	lang, err := readLanguage(cmd, args[0])
	if err != nil {
		return fmt.Errorf("Cannot read a grammar: %w", err)
	}
	return runTestCases(os.Stdout, os.Stderr, lang, args[1])
}

func runTestCases(w, errW io.Writer, lang *spec.Language, path string) error {
	var cs []*tester.TestCaseWithMetadata
	{
		cs = tester.ListTestCases(path)
		errOccurred := false
		for _, c := range cs {
			if c.Error != nil {
				fmt.Fprintf(errW, "Failed to read a test case or a directory: %v\n%v\n", c.FilePath, c.Error)
				errOccurred = true
			}
		}
		if errOccurred {
			return errors.New("Cannot run test")
		}
	}

	t := &tester.Tester{
		Language: lang,
		Cases:    cs,
	}
	rs := t.Run()
	failed := 0
	for _, r := range rs {
		fmt.Fprintln(w, r)
		if r.Error != nil {
			failed++
		}
	}
	fmt.Fprintf(w, "%v passed, %v failed\n", len(rs)-failed, failed)
	if failed > 0 {
		return fmt.Errorf("Test failed: %v of %v test cases", failed, len(rs))
	}
	return nil
}
