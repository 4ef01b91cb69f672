package extract

import (
	"strings"

	"github.com/abhisek/tutorflow/internal/learner"
	"github.com/abhisek/tutorflow/internal/schema"
	"github.com/abhisek/tutorflow/internal/tools"
)

// Policy fills the parameters a learner did not state. For every field
// the precedence is: explicit value, explicit struggle in the message
// (difficulty and depth only), emotional distress, mastery level,
// learning style, schema default.
type Policy struct {
	DefaultCount int
	LowCount     int
	Subjects     *SubjectTable
}

// DefaultPolicy returns the standard inference policy.
func DefaultPolicy() Policy {
	return Policy{
		DefaultCount: 10,
		LowCount:     5,
		Subjects:     DefaultSubjects(),
	}
}

// Cues are the learner signals one extraction is decided on.
type Cues struct {
	learner.Signals
	Struggling bool
}

// CuesFor derives the cues for a message and profile.
func CuesFor(message string, profile *learner.Profile) Cues {
	return Cues{
		Signals:    profile.Signals(),
		Struggling: learner.MentionsStruggle(message),
	}
}

// simplified reports whether the learner should get the simplest option.
func (c Cues) simplified() bool {
	return c.Struggling || c.Distressed
}

// Difficulty picks a flashcard difficulty.
func (p Policy) Difficulty(explicit string, c Cues) tools.Difficulty {
	switch d := tools.Difficulty(explicit); d {
	case tools.DifficultyEasy, tools.DifficultyMedium, tools.DifficultyHard:
		return d
	}
	if c.simplified() {
		return tools.DifficultyEasy
	}
	switch lvl := c.MasteryLevel; {
	case lvl == learner.MasteryUnknown:
		return tools.DifficultyMedium
	case lvl <= 3:
		return tools.DifficultyEasy
	case lvl <= 6:
		return tools.DifficultyMedium
	default:
		return tools.DifficultyHard
	}
}

// Depth picks an explanation depth.
func (p Policy) Depth(explicit string, c Cues) tools.Depth {
	switch d := tools.Depth(explicit); d {
	case tools.DepthBasic, tools.DepthIntermediate, tools.DepthAdvanced, tools.DepthComprehensive:
		return d
	}
	if c.simplified() {
		return tools.DepthBasic
	}
	switch lvl := c.MasteryLevel; {
	case lvl == learner.MasteryUnknown:
		return tools.DepthIntermediate
	case lvl <= 3:
		return tools.DepthBasic
	case lvl <= 6:
		return tools.DepthIntermediate
	case lvl <= 8:
		return tools.DepthAdvanced
	default:
		return tools.DepthComprehensive
	}
}

// Count picks a flashcard count. Explicit counts are clamped to the
// allowed range.
func (p Policy) Count(explicit int, c Cues) int {
	if explicit > 0 {
		return min(max(explicit, tools.MinCount), tools.MaxCount)
	}
	if c.Distressed {
		return p.LowCount
	}
	return p.DefaultCount
}

// NoteStyle picks a note taking style.
func (p Policy) NoteStyle(explicit string, c Cues) tools.NoteStyle {
	if s, ok := noteStyle(explicit); ok {
		return s
	}
	if c.Distressed {
		return tools.NoteStyleBulletPoints
	}
	if s, ok := noteStyle(c.NoteStyle); ok {
		return s
	}
	return tools.NoteStyleStructured
}

func noteStyle(v string) (tools.NoteStyle, bool) {
	switch s := tools.NoteStyle(v); s {
	case tools.NoteStyleOutline, tools.NoteStyleBulletPoints, tools.NoteStyleNarrative, tools.NoteStyleStructured:
		return s, true
	}
	return "", false
}

// IncludeExamples defaults to true.
func (p Policy) IncludeExamples(explicit string) bool {
	return explicit != schema.No
}

// IncludeAnalogies defaults to the learner's taste for analogies.
func (p Policy) IncludeAnalogies(explicit string, c Cues) bool {
	switch explicit {
	case schema.Yes:
		return true
	case schema.No:
		return false
	}
	return c.Analogies
}

// Subject returns the explicit subject or one inferred from the topic.
func (p Policy) Subject(explicit string, topics ...string) string {
	if s := strings.TrimSpace(explicit); s != "" {
		return s
	}
	return p.Subjects.Infer(topics...)
}

// CurrentTopic returns the explicit topic, else the subject of the most
// recent chat turn when it names one, else the concept itself.
func (p Policy) CurrentTopic(explicit, concept string, history []learner.ChatTurn) string {
	if t := strings.TrimSpace(explicit); t != "" {
		return t
	}
	if last := learner.LastMention(history); last != "" {
		if s := p.Subjects.Infer(last); s != p.Subjects.Fallback() {
			return s
		}
	}
	return concept
}
