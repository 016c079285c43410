package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nihei9/gramc/driver"
	"github.com/nihei9/gramc/grammar/lexical"
)

var lexFlags = struct {
	source *string
}{}

func init() {
	cmd := &cobra.Command{
		Use:     "lex <compiled grammar file path>",
		Short:   "Tokenize a text stream",
		Example: `  cat src | gramc lex calc.grmc`,
		Args:    cobra.ExactArgs(1),
		RunE:    runLex,
	}
	lexFlags.source = cmd.Flags().StringP("source", "s", "", "source file path (default stdin)")
	rootCmd.AddCommand(cmd)
}

func runLex(cmd *cobra.Command, args []string) error {
	cgram, err := readCompiledGrammar(args[0])
	if err != nil {
		return fmt.Errorf("Cannot read a compiled grammar: %w", err)
	}

	var src io.Reader = os.Stdin
	if *lexFlags.source != "" {
		f, err := os.Open(*lexFlags.source)
		if err != nil {
			return fmt.Errorf("Cannot open the source file %s: %w", *lexFlags.source, err)
		}
		defer f.Close()
		src = f
	}

	lex, err := driver.NewLexer(cgram)
	if err != nil {
		return err
	}
	tokenizer, err := lexical.NewTokenizer(lex, src)
	if err != nil {
		return err
	}
	return writeTokens(os.Stdout, tokenizer)
}

func writeTokens(w io.Writer, tokenizer *lexical.Tokenizer) error {
	for {
		tok, err := tokenizer.Next()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%v:%v: %v\n", tok.Row+1, tok.Col+1, tok)
		if tok.EOF {
			return nil
		}
	}
}
