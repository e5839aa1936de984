package main

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/nihei9/sesd/spec"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

var version = "dev"

var rootFlags = struct {
	verbose   *int
	log       *string
	restart   *[]string
	maxRepair *int
}{}

var rootCmd = &cobra.Command{
	Use:   "sesd",
	Short: "Parse text incrementally with an Earley parser",
	Long: `sesd reads a grammar description and provides these features:
- Parses a text stream and prints the parse tree or the syntax errors.
- Prints the productions, nullable non-terminals and FIRST sets of a grammar.
- Lists the symbols expected at a position.
- Runs parse test cases.
- Serves the grammar over the Language Server Protocol.
- Watches a file and reparses only the tokens that changed.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var path *string
		if *rootFlags.log != "" {
			path = rootFlags.log
		}
		commonlog.Configure(*rootFlags.verbose, path)
	},
}

func init() {
	rootFlags.verbose = rootCmd.PersistentFlags().CountP("verbose", "v", "add verbosity (can be used multiple times)")
	rootFlags.log = rootCmd.PersistentFlags().String("log", "", "log file path (default stderr)")
	rootFlags.restart = rootCmd.PersistentFlags().StringSlice("restart", nil, "non-terminals recovery may restart the parse with (overrides the grammar)")
	rootFlags.maxRepair = rootCmd.PersistentFlags().Int("max-repair", 0, "the number of columns an edit may recompute; 0 means no bound (overrides the grammar)")
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return err
	}
	return nil
}

// handleError prints the error a command returns or panics with. It must be
// deferred directly by the command.
func handleError(retErr *error) {
	panicked := false
	v := recover()
	if v != nil {
		err, ok := v.(error)
		if !ok {
			*retErr = fmt.Errorf("an unexpected error occurred: %v", v)
			fmt.Fprintf(os.Stderr, "%v:\n%v", *retErr, string(debug.Stack()))
			return
		}

		*retErr = err
		panicked = true
	}

	if *retErr != nil && panicked {
		fmt.Fprintf(os.Stderr, "%v:\n%v", *retErr, string(debug.Stack()))
	}
}

// readLanguage reads a grammar description and applies the flags overriding
// it.
func readLanguage(cmd *cobra.Command, path string) (*spec.Language, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("Cannot open the grammar file %s: %w", path, err)
	}
	defer f.Close()

	desc, err := spec.Read(f, path)
	if err != nil {
		return nil, err
	}
	lang, err := desc.Build()
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("restart") {
		lang.Restart = *rootFlags.restart
	}
	if cmd.Flags().Changed("max-repair") {
		if *rootFlags.maxRepair < 0 {
			return nil, fmt.Errorf("--max-repair must be non-negative: %v", *rootFlags.maxRepair)
		}
		lang.MaxRepair = *rootFlags.maxRepair
	}

	return lang, nil
}

func readSource(path string) ([]byte, error) {
	if path == "" {
		return io.ReadAll(os.Stdin)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("Cannot read the source file %s: %w", path, err)
	}
	return src, nil
}
