package extract

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed subjects.yaml
var defaultSubjectsYAML []byte

// SubjectTable infers an academic subject from topic text.
type SubjectTable struct {
	fallback string
	subjects []subjectMatcher
}

type subjectMatcher struct {
	name string
	re   *regexp.Regexp
}

type subjectDoc struct {
	Fallback string `yaml:"fallback"`
	Subjects []struct {
		Name     string   `yaml:"name"`
		Keywords []string `yaml:"keywords"`
	} `yaml:"subjects"`
}

// DefaultSubjects returns the embedded subject table.
func DefaultSubjects() *SubjectTable {
	t, err := ParseSubjects(defaultSubjectsYAML)
	if err != nil {
		panic(fmt.Sprintf("extract: embedded subjects: %v", err))
	}
	return t
}

// ParseSubjects builds a table from YAML.
func ParseSubjects(data []byte) (*SubjectTable, error) {
	var doc subjectDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse subjects: %w", err)
	}
	if strings.TrimSpace(doc.Fallback) == "" {
		return nil, fmt.Errorf("parse subjects: fallback subject is required")
	}

	t := &SubjectTable{fallback: doc.Fallback}
	for _, s := range doc.Subjects {
		if s.Name == "" || len(s.Keywords) == 0 {
			return nil, fmt.Errorf("parse subjects: subject %q needs a name and keywords", s.Name)
		}
		quoted := make([]string, len(s.Keywords))
		for i, k := range s.Keywords {
			quoted[i] = regexp.QuoteMeta(strings.ToLower(k))
		}
		re, err := regexp.Compile(`\b(?:` + strings.Join(quoted, "|") + `)(?:s|es)?(?:$|[^\pL\pN_])`)
		if err != nil {
			return nil, fmt.Errorf("parse subjects: %s: %w", s.Name, err)
		}
		t.subjects = append(t.subjects, subjectMatcher{name: s.Name, re: re})
	}
	return t, nil
}

// Infer returns the first subject whose keywords appear in any of texts,
// or the fallback subject.
func (t *SubjectTable) Infer(texts ...string) string {
	for _, s := range t.subjects {
		for _, text := range texts {
			if s.re.MatchString(strings.ToLower(text)) {
				return s.name
			}
		}
	}
	return t.fallback
}

// Fallback returns the subject used when nothing matches.
func (t *SubjectTable) Fallback() string {
	return t.fallback
}
