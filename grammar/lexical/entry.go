package lexical

import (
	"fmt"
	"sort"
	"strings"
)

type LexKindName string

const LexKindNameNil = LexKindName("")

func (k LexKindName) String() string {
	return string(k)
}

// LexKindID identifies a kind in a compiled lexer. The ids are 1-origin in the order of the entries, and
// LexKindIDNil means no kind.
type LexKindID int

const (
	LexKindIDNil = LexKindID(0)
	LexKindIDMin = LexKindID(1)
)

func (id LexKindID) Int() int {
	return int(id)
}

type LexEntry struct {
	Kind    LexKindName
	Pattern string

	// When Literal is true, Pattern is matched character by character and no character has a special meaning.
	Literal bool

	// A fragment is a named pattern other patterns refer to using \f{name}. Fragments produce no tokens.
	Fragment bool

	// The tokenizer drops tokens of the kind when Skip is true.
	Skip bool
}

type LexSpec struct {
	Name    string
	Entries []*LexEntry
}

func (s *LexSpec) Validate() error {
	if len(s.Entries) <= 0 {
		return fmt.Errorf("the lexical specification must have at least one entry")
	}
	{
		ks := map[LexKindName]struct{}{}
		fks := map[LexKindName]struct{}{}
		hasToken := false
		for _, e := range s.Entries {
			if e.Kind == LexKindNameNil {
				return fmt.Errorf("kind names must be non-empty")
			}
			if e.Pattern == "" {
				return fmt.Errorf("the pattern of `%v` is empty", e.Kind)
			}

			// Allow duplicate names between fragments and non-fragments.
			if e.Fragment {
				if e.Literal || e.Skip {
					return fmt.Errorf("fragment `%v` cannot be literal or skipped", e.Kind)
				}
				if _, exist := fks[e.Kind]; exist {
					return fmt.Errorf("kinds `%v` are duplicates", e.Kind)
				}
				fks[e.Kind] = struct{}{}
			} else {
				if _, exist := ks[e.Kind]; exist {
					return fmt.Errorf("kinds `%v` are duplicates", e.Kind)
				}
				ks[e.Kind] = struct{}{}
				hasToken = true
			}
		}
		if !hasToken {
			return fmt.Errorf("the lexical specification must have at least one non-fragment entry")
		}
	}
	{
		kinds := []string{}
		for _, e := range s.Entries {
			if e.Fragment {
				continue
			}
			kinds = append(kinds, e.Kind.String())
		}

		errs := findSpellingInconsistenciesErrors(kinds, nil)
		if len(errs) > 0 {
			var b strings.Builder
			fmt.Fprintf(&b, "%v", errs[0])
			for _, err := range errs[1:] {
				fmt.Fprintf(&b, "\n%v", err)
			}
			return fmt.Errorf("%v", b.String())
		}
	}

	return nil
}

func findSpellingInconsistenciesErrors(ids []string, hook func(ids []string) error) []error {
	duplicated := FindSpellingInconsistencies(ids)
	if len(duplicated) == 0 {
		return nil
	}

	var errs []error
	for _, dup := range duplicated {
		if hook != nil {
			err := hook(dup)
			if err != nil {
				errs = append(errs, err)
				continue
			}
		}

		var b strings.Builder
		fmt.Fprintf(&b, "%+v", dup[0])
		for _, id := range dup[1:] {
			fmt.Fprintf(&b, ", %+v", id)
		}
		err := fmt.Errorf("these identifiers are treated as the same. please use the same spelling: %v", b.String())
		errs = append(errs, err)
	}

	return errs
}

// FindSpellingInconsistencies finds spelling inconsistencies in identifiers. The identifiers are considered to be the same
// if they are spelled the same when expressed in UpperCamelCase. For example, `left_paren` and `LeftParen` are spelled the same
// in UpperCamelCase. Thus they are considere to be spelling inconsistency.
func FindSpellingInconsistencies(ids []string) [][]string {
	m := map[string][]string{}
	for _, id := range removeDuplicates(ids) {
		c := SnakeCaseToUpperCamelCase(id)
		m[c] = append(m[c], id)
	}

	var duplicated [][]string
	for _, camels := range m {
		if len(camels) == 1 {
			continue
		}
		duplicated = append(duplicated, camels)
	}

	for _, dup := range duplicated {
		sort.Slice(dup, func(i, j int) bool {
			return dup[i] < dup[j]
		})
	}
	sort.Slice(duplicated, func(i, j int) bool {
		return duplicated[i][0] < duplicated[j][0]
	})

	return duplicated
}

func removeDuplicates(s []string) []string {
	m := map[string]struct{}{}
	for _, v := range s {
		m[v] = struct{}{}
	}

	var unique []string
	for v := range m {
		unique = append(unique, v)
	}

	return unique
}

func SnakeCaseToUpperCamelCase(snake string) string {
	elems := strings.Split(snake, "_")
	for i, e := range elems {
		if len(e) == 0 {
			continue
		}
		elems[i] = strings.ToUpper(string(e[0])) + e[1:]
	}

	return strings.Join(elems, "")
}
