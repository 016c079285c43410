package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nihei9/gramc/cache"
	"github.com/nihei9/gramc/codec"
	verr "github.com/nihei9/gramc/error"
	"github.com/nihei9/gramc/grammar"
	"github.com/nihei9/gramc/internal/logutil"
	"github.com/nihei9/gramc/spec"
	gspec "github.com/nihei9/gramc/spec/grammar"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var compileFlags = struct {
	output  *string
	json    *bool
	dfa     *bool
	class   *string
	report  *bool
	noCache *bool
}{}

func init() {
	cmd := &cobra.Command{
		Use:     "compile",
		Short:   "Compile grammar you defined into a parsing table",
		Example: `  gramc compile calc.gramc -o calc.grmc`,
		Args:    cobra.MaximumNArgs(1),
		RunE:    runCompile,
	}
	compileFlags.output = cmd.Flags().StringP("output", "o", "", "output file path (default stdout)")
	compileFlags.json = cmd.Flags().Bool("json", false, "write the compiled grammar as JSON instead of the binary table")
	compileFlags.dfa = cmd.Flags().Bool("dfa", false, "attach a DFA of the lexical specification (overrides the config)")
	compileFlags.class = cmd.Flags().String("class", "", "lalr or slr (overrides the config)")
	compileFlags.report = cmd.Flags().Bool("report", false, "write a report of the automaton (overrides the config)")
	compileFlags.noCache = cmd.Flags().Bool("no-cache", false, "compile the grammar even when the cache has a table")
	rootCmd.AddCommand(cmd)
}

type compileOptions struct {
	class  grammar.Class
	dfa    bool
	report bool
}

func runCompile(cmd *cobra.Command, args []string) (retErr error) {
	var grmPath string
	if len(args) > 0 {
		grmPath = args[0]
	}
	defer func() {
		if retErr != nil {
			specErrs, ok := retErr.(verr.SpecErrors)
			if ok {
				for _, err := range specErrs {
					if len(args) > 0 {
						err.FilePath = grmPath
						err.SourceName = grmPath
					} else {
						err.SourceName = "stdin"
					}
				}
			}
		}
	}()

	var src []byte
	{
		var err error
		if grmPath == "" {
			src, err = io.ReadAll(os.Stdin)
		} else {
			src, err = os.ReadFile(grmPath)
		}
		if err != nil {
			return fmt.Errorf("Cannot read the grammar: %w", err)
		}
	}

	opts := compileOptions{
		class:  grammar.Class(appConfig.Compile.Class),
		dfa:    appConfig.Compile.DFA,
		report: appConfig.Compile.Report,
	}
	if cmd.Flags().Changed("class") {
		opts.class = grammar.Class(*compileFlags.class)
	}
	if cmd.Flags().Changed("dfa") {
		opts.dfa = *compileFlags.dfa
	}
	if cmd.Flags().Changed("report") {
		opts.report = *compileFlags.report
	}

	var store *cache.Store
	if appConfig.Cache.Enabled && !*compileFlags.noCache {
		store = cache.NewStore(appFs, appConfig.Cache.Dir)
	}

	res, err := compileSource(src, opts, store)
	if err != nil {
		return err
	}

	err = writeCompiledGrammarAndReport(res.grammar, res.report, *compileFlags.output, *compileFlags.json)
	if err != nil {
		return fmt.Errorf("Cannot write an output files: %w", err)
	}

	logutil.Info("compiled a grammar",
		zap.String("grammar", res.grammar.Name),
		zap.String("class", res.grammar.Syntactic.Class),
		zap.Int("states", res.grammar.Syntactic.StateCount),
		zap.Bool("cache-hit", res.cacheHit))
	if len(res.diagnostics) > 0 {
		fmt.Fprintf(os.Stderr, "%v conflicts\n", len(res.diagnostics))
	}

	return nil
}

type compileResult struct {
	grammar     *gspec.CompiledGrammar
	report      *gspec.Report
	diagnostics []*grammar.Diagnostic
	cacheHit    bool
}

// compileSource compiles a grammar source or takes its table from the cache. A report is never cached, so
// asking for one always compiles the grammar.
func compileSource(src []byte, opts compileOptions, store *cache.Store) (*compileResult, error) {
	var fp string
	useCache := store != nil && !opts.report
	if useCache {
		var err error
		fp, err = cache.Fingerprint(src, cache.Options{
			Class:     string(opts.class),
			ExportDFA: opts.dfa,
		})
		if err != nil {
			return nil, err
		}
		cg, _, ok, err := store.LoadGrammar(fp)
		if err != nil {
			logutil.Warn("failed to read the cache", zap.String("fingerprint", fp), zap.Error(err))
		} else if ok {
			return &compileResult{
				grammar:  cg,
				cacheHit: true,
			}, nil
		}
	}

	ast, err := spec.Parse(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	b := grammar.GrammarBuilder{
		AST: ast,
	}
	gram, err := b.Build()
	if err != nil {
		return nil, err
	}

	collector := &grammar.DiagnosticCollector{}
	logSink := logutil.DiagnosticSink(gram.Name())
	compileOpts := []grammar.CompileOption{
		grammar.SpecifyClass(opts.class),
		grammar.WithDiagnosticSink(grammar.DiagnosticSinkFunc(func(d *grammar.Diagnostic) {
			collector.Report(d)
			logSink.Report(d)
		})),
	}
	if opts.dfa {
		compileOpts = append(compileOpts, grammar.EnableDFAExport())
	}
	if opts.report {
		compileOpts = append(compileOpts, grammar.EnableReporting())
	}
	cg, report, err := grammar.Compile(gram, compileOpts...)
	if err != nil {
		return nil, err
	}

	if useCache {
		err := store.SaveGrammar(fp, cg)
		if err != nil {
			logutil.Warn("failed to write the cache", zap.String("fingerprint", fp), zap.Error(err))
		}
	}

	return &compileResult{
		grammar:     cg,
		report:      report,
		diagnostics: collector.Diagnostics,
	}, nil
}

// writeCompiledGrammarAndReport writes a compiled grammar and a report to files located at a specified path.
// This function selects one of the following output methods depending on how the path is specified.
//
// 1. When the path is a directory path, this function writes the compiled grammar and the report to
//    <path>/<grammar-name>.grmc (or .json) and <path>/<grammar-name>-report.json files, respectively.
// 2. When the path is a file path or a non-existent path, this function assumes that the path represents a file
//    path for the compiled grammar. Then it also writes the report in the same directory as the compiled grammar.
// 3. When the path is an empty string, this function writes the compiled grammar to the stdout and writes
//    the report to a file named <current-directory>/<grammar-name>-report.json.
func writeCompiledGrammarAndReport(cgram *gspec.CompiledGrammar, report *gspec.Report, path string, asJSON bool) error {
	cgramPath, reportPath, err := makeOutputFilePaths(cgram.Name, path, asJSON)
	if err != nil {
		return err
	}

	{
		var cgramW io.Writer
		if cgramPath != "" {
			cgramFile, err := os.OpenFile(cgramPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
			if err != nil {
				return err
			}
			defer cgramFile.Close()
			cgramW = cgramFile
		} else {
			cgramW = os.Stdout
		}

		err := writeCompiledGrammar(cgramW, cgram, asJSON)
		if err != nil {
			return err
		}
	}

	if report != nil {
		reportFile, err := os.OpenFile(reportPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer reportFile.Close()

		b, err := json.Marshal(report)
		if err != nil {
			return err
		}
		fmt.Fprintf(reportFile, "%v\n", string(b))
	}

	return nil
}

func writeCompiledGrammar(w io.Writer, cgram *gspec.CompiledGrammar, asJSON bool) error {
	if !asJSON {
		return codec.Encode(w, cgram)
	}
	b, err := json.Marshal(cgram)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%v\n", string(b))
	return err
}

func makeOutputFilePaths(gramName string, path string, asJSON bool) (string, string, error) {
	reportFileName := gramName + "-report.json"
	ext := ".grmc"
	if asJSON {
		ext = ".json"
	}

	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", "", err
		}
		return "", filepath.Join(wd, reportFileName), nil
	}

	fi, err := os.Stat(path)
	if err != nil && !os.IsNotExist(err) {
		return "", "", err
	}
	if os.IsNotExist(err) || !fi.IsDir() {
		dir, _ := filepath.Split(path)
		return path, filepath.Join(dir, reportFileName), nil
	}

	return filepath.Join(path, gramName+ext), filepath.Join(path, reportFileName), nil
}

// readCompiledGrammar reads either an encoded table or a compiled grammar in JSON.
func readCompiledGrammar(path string) (*gspec.CompiledGrammar, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if codec.IsTable(b) {
		cgram, _, err := codec.Unmarshal(b)
		return cgram, err
	}
	cgram := &gspec.CompiledGrammar{}
	err = json.Unmarshal(b, cgram)
	if err != nil {
		return nil, err
	}
	return cgram, nil
}
