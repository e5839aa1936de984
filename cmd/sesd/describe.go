package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/nihei9/sesd/grammar"
	"github.com/nihei9/sesd/spec"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:     "describe <grammar file path>",
		Short:   "Print a grammar in readable format",
		Example: `  sesd describe grammar.json`,
		Args:    cobra.ExactArgs(1),
		RunE:    runDescribe,
	}
	rootCmd.AddCommand(cmd)
}

func runDescribe(cmd *cobra.Command, args []string) (retErr error) {
	defer handleError(&retErr)

	lang, err := readLanguage(cmd, args[0])
	if err != nil {
		return err
	}

	err = writeDescription(os.Stdout, lang)
	if err != nil {
		return err
	}

	return nil
}

const descTemplate = `# Language

{{ .Name }}

# Recovery

{{ printRecovery . }}

# Tokens

{{ range .Lexer.Kinds -}}
{{ . }}
{{ end }}
# Terminals

{{ range .Grammar.Terminals -}}
{{ printTerminal . }}
{{ end }}
# Productions

{{ range .Grammar.Productions -}}
{{ printProduction . }}
{{ end }}
# Non-terminals

{{ range .Grammar.NonTerminals -}}
{{ printNonTerminal . }}
{{ end }}`

func writeDescription(w io.Writer, lang *spec.Language) error {
	gram := lang.Grammar

	names := func(syms []grammar.Symbol) string {
		if len(syms) == 0 {
			return "-"
		}
		var b strings.Builder
		fmt.Fprintf(&b, "%v", gram.Name(syms[0]))
		for _, sym := range syms[1:] {
			fmt.Fprintf(&b, ", %v", gram.Name(sym))
		}
		return b.String()
	}

	fns := template.FuncMap{
		"printRecovery": func(lang *spec.Language) string {
			var b strings.Builder
			if len(lang.Restart) > 0 {
				fmt.Fprintf(&b, "restart: %v", strings.Join(lang.Restart, ", "))
			} else {
				fmt.Fprintf(&b, "restart: -")
			}
			if lang.MaxRepair > 0 {
				fmt.Fprintf(&b, "\nmax repair: %v", lang.MaxRepair)
			} else {
				fmt.Fprintf(&b, "\nmax repair: -")
			}
			return b.String()
		},
		"printTerminal": func(sym grammar.Symbol) string {
			return fmt.Sprintf("%4v %v", sym.Num(), gram.Name(sym))
		},
		"printProduction": func(prod *grammar.Production) string {
			var b strings.Builder
			fmt.Fprintf(&b, "%v →", gram.Name(prod.LHS()))
			if prod.IsEmpty() {
				fmt.Fprintf(&b, " ε")
			}
			for _, sym := range prod.RHS() {
				fmt.Fprintf(&b, " %v", gram.Name(sym))
			}
			return fmt.Sprintf("%4v %v", prod.Num(), b.String())
		},
		"printNonTerminal": func(sym grammar.Symbol) string {
			nullable := "-"
			if gram.Nullable(sym) {
				nullable = "nullable"
			}
			follow, eoi := gram.Follow(sym)
			followNames := names(follow)
			if eoi {
				followNames = strings.TrimPrefix(followNames+", <eof>", "-, ")
			}
			return fmt.Sprintf("%v %v first: %v follow: %v", gram.Name(sym), nullable, names(gram.First(sym)), followNames)
		},
	}

	tmpl, err := template.New("").Funcs(fns).Parse(descTemplate)
	if err != nil {
		return err
	}

	err = tmpl.Execute(w, lang)
	if err != nil {
		return err
	}

	return nil
}

