// Package tools defines the closed set of pedagogical tools, their typed
// parameter sets and the boundary through which they are invoked.
package tools

import (
	"strings"
)

// ID identifies a tool. The zero value is NoTool.
type ID int

const (
	NoTool ID = iota
	NoteMaker
	FlashcardGenerator
	ConceptExplainer
)

// Tools lists every invocable tool in catalog order.
var Tools = []ID{NoteMaker, FlashcardGenerator, ConceptExplainer}

var wireLabels = map[ID]string{
	NoTool:             "NoTool",
	NoteMaker:          "NoteMaker",
	FlashcardGenerator: "FlashcardGenerator",
	ConceptExplainer:   "ConceptExplainer",
}

// String returns the wire label.
func (id ID) String() string {
	if l, ok := wireLabels[id]; ok {
		return l
	}
	return wireLabels[NoTool]
}

// Labels returns the wire labels of all IDs including NoTool, for use in
// closed enums.
func Labels() []string {
	out := make([]string, 0, len(Tools)+1)
	for _, id := range Tools {
		out = append(out, id.String())
	}
	return append(out, NoTool.String())
}

// Parse maps a label to an ID. Wire labels, human labels such as
// "Note Maker" and snake case labels such as "no_tool" are accepted.
// Anything else is NoTool.
func Parse(label string) ID {
	key := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-', '\'', '"':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(label)))

	switch key {
	case "notemaker":
		return NoteMaker
	case "flashcardgenerator":
		return FlashcardGenerator
	case "conceptexplainer":
		return ConceptExplainer
	}
	return NoTool
}

func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ID) UnmarshalText(b []byte) error {
	*id = Parse(string(b))
	return nil
}
