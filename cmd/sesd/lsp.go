package main

import (
	"github.com/nihei9/sesd/lsp"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:     "lsp <grammar file path>",
		Short:   "Serve a grammar over the Language Server Protocol on stdio",
		Example: `  sesd lsp grammar.json --log sesd.log`,
		Args:    cobra.ExactArgs(1),
		RunE:    runLSP,
	}
	rootCmd.AddCommand(cmd)
}

func runLSP(cmd *cobra.Command, args []string) (retErr error) {
	defer handleError(&retErr)

	lang, err := readLanguage(cmd, args[0])
	if err != nil {
		return err
	}
	s, err := lsp.New(lang, lsp.Version(version))
	if err != nil {
		return err
	}
	return s.RunStdio()
}
