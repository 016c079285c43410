package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/nihei9/gramc/grammar"
	gspec "github.com/nihei9/gramc/spec/grammar"
)

func init() {
	cmd := &cobra.Command{
		Use:     "describe <report file path>",
		Short:   "Print a report in a readable format",
		Example: `  gramc describe calc-report.json`,
		Args:    cobra.ExactArgs(1),
		RunE:    runDescribe,
	}
	rootCmd.AddCommand(cmd)
}

func runDescribe(cmd *cobra.Command, args []string) error {
	report, err := readReport(args[0])
	if err != nil {
		return err
	}

	err = writeReport(os.Stdout, report)
	if err != nil {
		return err
	}

	return nil
}

func readReport(path string) (*gspec.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("Cannot open the report %s: %w", path, err)
	}
	defer f.Close()

	d, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	report := &gspec.Report{}
	err = json.Unmarshal(d, report)
	if err != nil {
		return nil, err
	}

	return report, nil
}

const reportTemplate = `# Class

{{ .Class }}

# Conflicts

{{ printConflictSummary . }}

# Terminals

{{ range .Terminals -}}
{{ printTerminal . }}
{{ end }}
# Non-terminals

{{ range .NonTerminals -}}
{{ printNonTerminal . }}
{{ end }}
# Productions

{{ range .Productions -}}
{{ printProduction . }}
{{ end }}
# States
{{ range .States }}
## State {{ .Number }}

{{ range .Kernel -}}
{{ printItem . }}
{{ end }}
{{ range .Shift -}}
{{ printShift . }}
{{ end -}}
{{ range .Reduce -}}
{{ printReduce . }}
{{ end -}}
{{ range .GoTo -}}
{{ printGoTo . }}
{{ end -}}
{{ if .Nonassoc -}}
{{ printNonassoc .Nonassoc }}
{{ end }}
{{ range .Conflicts -}}
{{ .Message }}
{{ end -}}
{{ end }}`

func writeReport(w io.Writer, report *gspec.Report) error {
	names := map[int]string{}
	for _, t := range report.Terminals {
		names[t.Number] = t.Name
	}
	for _, n := range report.NonTerminals {
		names[n.Number] = n.Name
	}
	symName := func(sym int) string {
		if name, ok := names[sym]; ok {
			return name
		}
		return fmt.Sprintf("<%v>", sym)
	}
	symNames := func(syms []int) string {
		if len(syms) == 0 {
			return "-"
		}
		var b strings.Builder
		fmt.Fprintf(&b, "%v", symName(syms[0]))
		for _, s := range syms[1:] {
			fmt.Fprintf(&b, ", %v", symName(s))
		}
		return b.String()
	}

	prods := map[int]*gspec.ReportProduction{}
	for _, p := range report.Productions {
		prods[p.Number] = p
	}

	fns := template.FuncMap{
		"printConflictSummary": func(report *gspec.Report) string {
			var implicitlyResolvedCount int
			var explicitlyResolvedCount int
			for _, s := range report.States {
				for _, c := range s.Conflicts {
					switch grammar.ResolvedBy(c.ResolvedBy) {
					case grammar.ResolvedByShift, grammar.ResolvedByProdOrder:
						implicitlyResolvedCount++
					default:
						explicitlyResolvedCount++
					}
				}
			}

			var b strings.Builder
			if implicitlyResolvedCount == 1 {
				fmt.Fprintf(&b, "%v conflict occurred and resolved implicitly.\n", implicitlyResolvedCount)
			} else if implicitlyResolvedCount > 1 {
				fmt.Fprintf(&b, "%v conflicts occurred and resolved implicitly.\n", implicitlyResolvedCount)
			}
			if explicitlyResolvedCount == 1 {
				fmt.Fprintf(&b, "%v conflict occurred and resolved explicitly.\n", explicitlyResolvedCount)
			} else if explicitlyResolvedCount > 1 {
				fmt.Fprintf(&b, "%v conflicts occurred and resolved explicitly.\n", explicitlyResolvedCount)
			}
			if implicitlyResolvedCount == 0 && explicitlyResolvedCount == 0 {
				fmt.Fprintf(&b, "No conflict")
			}
			return b.String()
		},
		"printTerminal": func(term *gspec.Terminal) string {
			var prec string
			if term.Precedence != 0 {
				prec = fmt.Sprintf("%2v", term.Precedence)
			} else {
				prec = " -"
			}

			var assoc string
			if term.Associativity != "" {
				assoc = term.Associativity
			} else {
				assoc = "-"
			}

			if term.Anonymous {
				return fmt.Sprintf("%4v %v %v %v (anonymous)", term.Number, prec, assoc, term.Name)
			}
			return fmt.Sprintf("%4v %v %v %v", term.Number, prec, assoc, term.Name)
		},
		"printNonTerminal": func(nonTerm *gspec.NonTerminal) string {
			nullable := ""
			if nonTerm.Nullable {
				nullable = " nullable"
			}
			return fmt.Sprintf("%4v %v (%v%v) first: %v; follow: %v", nonTerm.Number, nonTerm.Name, nonTerm.Kind, nullable, symNames(nonTerm.First), symNames(nonTerm.Follow))
		},
		"printProduction": func(prod *gspec.ReportProduction) string {
			var prec string
			if prod.Precedence != 0 {
				prec = fmt.Sprintf("%2v", prod.Precedence)
			} else {
				prec = " -"
			}

			var assoc string
			if prod.Associativity != "" {
				assoc = prod.Associativity
			} else {
				assoc = "-"
			}

			var b strings.Builder
			fmt.Fprintf(&b, "%v →", symName(prod.LHS))
			if len(prod.RHS) > 0 {
				for _, e := range prod.RHS {
					fmt.Fprintf(&b, " %v", symName(e))
				}
			} else {
				fmt.Fprintf(&b, " ε")
			}

			return fmt.Sprintf("%4v %v %v %v", prod.Number, prec, assoc, b.String())
		},
		"printItem": func(item *gspec.Item) string {
			prod, ok := prods[item.Production]
			if !ok {
				return fmt.Sprintf("%4v ?", item.Production)
			}

			var b strings.Builder
			fmt.Fprintf(&b, "%v →", symName(prod.LHS))
			for i, e := range prod.RHS {
				if i == item.Dot {
					fmt.Fprintf(&b, " ・")
				}
				fmt.Fprintf(&b, " %v", symName(e))
			}
			if item.Dot >= len(prod.RHS) {
				fmt.Fprintf(&b, " ・")
			}

			return fmt.Sprintf("%4v %v", prod.Number, b.String())
		},
		"printShift": func(tran *gspec.Transition) string {
			return fmt.Sprintf("shift  %4v on %v", tran.State, symName(tran.Symbol))
		},
		"printReduce": func(reduce *gspec.Reduce) string {
			return fmt.Sprintf("reduce %4v on %v", reduce.Production, symNames(reduce.LookAhead))
		},
		"printGoTo": func(tran *gspec.Transition) string {
			return fmt.Sprintf("goto   %4v on %v", tran.State, symName(tran.Symbol))
		},
		"printNonassoc": func(syms []int) string {
			return fmt.Sprintf("error       on %v (non-associative)", symNames(syms))
		},
	}

	tmpl, err := template.New("").Funcs(fns).Parse(reportTemplate)
	if err != nil {
		return err
	}

	err = tmpl.Execute(w, report)
	if err != nil {
		return err
	}

	return nil
}
