package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nihei9/gramc/driver"
)

var parseFlags = struct {
	source    *string
	onlyParse *bool
	actions   *bool
}{}

func init() {
	cmd := &cobra.Command{
		Use:     "parse <compiled grammar file path>",
		Short:   "Parse a text stream",
		Example: `  cat src | gramc parse calc.grmc`,
		Args:    cobra.ExactArgs(1),
		RunE:    runParse,
	}
	parseFlags.source = cmd.Flags().StringP("source", "s", "", "source file path (default stdin)")
	parseFlags.onlyParse = cmd.Flags().Bool("only-parse", false, "when this option is enabled, the parser performs only parse and doesn't build a tree")
	parseFlags.actions = cmd.Flags().Bool("actions", false, "print the actions of the reduced productions in the order a parser runs them")
	rootCmd.AddCommand(cmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	cgram, err := readCompiledGrammar(args[0])
	if err != nil {
		return fmt.Errorf("Cannot read a compiled grammar: %w", err)
	}

	var src io.Reader = os.Stdin
	if *parseFlags.source != "" {
		f, err := os.Open(*parseFlags.source)
		if err != nil {
			return fmt.Errorf("Cannot open the source file %s: %w", *parseFlags.source, err)
		}
		defer f.Close()
		src = f
	}

	gram, err := driver.NewGrammar(cgram)
	if err != nil {
		return err
	}
	toks, err := driver.NewTokenStream(cgram, src)
	if err != nil {
		return err
	}

	var semAct driver.MultiActionSet
	var treeAct *driver.SyntaxTreeActionSet
	var actLog *driver.ActionLog
	if !*parseFlags.onlyParse {
		treeAct = driver.NewSyntaxTreeActionSet(gram)
		semAct = append(semAct, treeAct)
	}
	if *parseFlags.actions {
		actLog = driver.NewActionLog(gram)
		semAct = append(semAct, actLog)
	}

	p, err := driver.NewParserWithTokenStream(gram, toks, driver.SemanticAction(semAct))
	if err != nil {
		return err
	}
	err = p.Parse()
	if err != nil {
		return err
	}

	if treeAct != nil {
		driver.PrintTree(os.Stdout, treeAct.CST())
	}
	if actLog != nil {
		for _, r := range actLog.Reductions() {
			fmt.Fprintf(os.Stdout, "%4v %v: %v\n", r.Production, r.LHS, r.Action)
		}
	}

	return nil
}
