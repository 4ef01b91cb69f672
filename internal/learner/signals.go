package learner

import (
	"regexp"
	"strconv"
	"strings"
)

// MasteryUnknown is returned when a mastery summary carries no level.
const MasteryUnknown = 0

var (
	masteryLevelRe   = regexp.MustCompile(`(?i)\blevel\s*[:#-]?\s*(\d{1,2})\b`)
	masteryNearRe    = regexp.MustCompile(`(?i)\bmastery\b[^0-9]{0,15}?(\d{1,2})\b`)
	masteryRatioRe   = regexp.MustCompile(`\b(\d{1,2})\s*/\s*10\b`)
	masteryParenRe   = regexp.MustCompile(`\(\s*(\d{1,2})\s*\)`)
	masteryBareRe    = regexp.MustCompile(`^\s*(\d{1,2})\b`)
	masteryNumericRe = []*regexp.Regexp{masteryLevelRe, masteryNearRe, masteryRatioRe, masteryParenRe, masteryBareRe}

	distressRe = regexp.MustCompile(`(?i)\b(anxious|anxiety|overwhelmed|stressed|distress(?:ed)?|confus(?:ed|ion|ing)|frustrated|nervous|worried|upset|panicked)\b`)
	// A negator at most one word before a distress term cancels it.
	negatedRe = regexp.MustCompile(`(?i)\b(?:not|no longer|isn['’]?t|never|without)\s+(?:\w+\s+)?$`)

	struggleRe = regexp.MustCompile(`(?i)\bstruggl(?:e|es|ing)\b|\bdon['’]?t (?:get|understand)\b|\bdo not (?:get|understand)\b|` +
		`\b(?:i['’]?m|i am|feel(?:s|ing)?|getting|got)\s+(?:(?:so|really|totally|completely|pretty|a bit|kind of)\s+)*(?:lost|stuck|confused)\b|` +
		`\b(?:this|it)(?:['’]s| is)\s+(?:(?:so|really|very)\s+)*confusing\b`)
	analogyRe  = regexp.MustCompile(`(?i)\b(analog(?:y|ies)|metaphors?|stor(?:y|ies))\b`)
)

// masteryLabels maps qualitative mastery labels to a representative level
// for summaries that carry no number.
var masteryLabels = []struct {
	re    *regexp.Regexp
	level int
}{
	{regexp.MustCompile(`(?i)\b(beginners?|novices?)\b`), 2},
	{regexp.MustCompile(`(?i)\b(developing|intermediate)\b`), 5},
	{regexp.MustCompile(`(?i)\b(proficient|advanced)\b`), 8},
	{regexp.MustCompile(`(?i)\b(experts?|mastered)\b`), 9},
}

// noteStyleHints maps learning-style keywords to note taking styles. The
// earliest keyword in the summary wins.
var noteStyleHints = []struct {
	re    *regexp.Regexp
	style string
}{
	{regexp.MustCompile(`(?i)\boutlines?\b`), "outline"},
	{regexp.MustCompile(`(?i)\b(bullet(?:s|ed)?|bullet points|lists?)\b`), "bullet_points"},
	{regexp.MustCompile(`(?i)\b(narratives?|stor(?:y|ies))\b`), "narrative"},
	{regexp.MustCompile(`(?i)\b(structured|organi[sz]ed)\b`), "structured"},
}

// ParseMasteryLevel extracts a 1-10 mastery level from summaries such as
// "Level 8: ...", "Mastery: 8", "8/10", "Advanced (8)" or a bare leading
// number. Summaries without a number fall back to qualitative labels like
// "beginner" or "expert". A stated number outside 1-10 is unknown.
func ParseMasteryLevel(summary string) (int, bool) {
	for _, re := range masteryNumericRe {
		m := re.FindStringSubmatch(summary)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > 10 {
			return MasteryUnknown, false
		}
		return n, true
	}

	level, at := MasteryUnknown, -1
	for _, l := range masteryLabels {
		loc := l.re.FindStringIndex(summary)
		if loc == nil {
			continue
		}
		if at == -1 || loc[0] < at {
			level, at = l.level, loc[0]
		}
	}
	return level, level != MasteryUnknown
}

// IsDistressed reports whether an emotional state summary signals distress.
// Negated mentions such as "not anxious" do not count.
func IsDistressed(summary string) bool {
	for _, loc := range distressRe.FindAllStringIndex(summary, -1) {
		if !negatedRe.MatchString(summary[:loc[0]]) {
			return true
		}
	}
	return false
}

// MentionsStruggle reports whether the learner says they are struggling.
// Words like "lost" or "stuck" only count in first person, so topic text
// such as "the Lost Generation" does not.
func MentionsStruggle(message string) bool {
	return struggleRe.MatchString(message)
}

// LikesAnalogies reports whether a learning style mentions analogies,
// metaphors or stories.
func LikesAnalogies(summary string) bool {
	return analogyRe.MatchString(summary)
}

// PreferredNoteStyle returns the note style wire value suggested by a
// learning style summary, or "" if none is suggested.
func PreferredNoteStyle(summary string) string {
	best, bestAt := "", -1
	for _, h := range noteStyleHints {
		loc := h.re.FindStringIndex(summary)
		if loc == nil {
			continue
		}
		if bestAt == -1 || loc[0] < bestAt {
			best, bestAt = h.style, loc[0]
		}
	}
	return best
}

// Signals is the parsed view of a profile that inference rules consume.
type Signals struct {
	MasteryLevel int // MasteryUnknown when not stated
	Distressed   bool
	NoteStyle    string
	Analogies    bool
}

// Signals parses the profile summaries. A nil profile yields zero signals.
func (p *Profile) Signals() Signals {
	if p == nil {
		return Signals{}
	}
	level, _ := ParseMasteryLevel(p.MasteryLevelSummary)
	return Signals{
		MasteryLevel: level,
		Distressed:   IsDistressed(p.EmotionalStateSummary),
		NoteStyle:    PreferredNoteStyle(p.LearningStyleSummary),
		Analogies:    LikesAnalogies(p.LearningStyleSummary),
	}
}

// LastMention returns the content of the most recent non-empty chat turn.
func LastMention(history []ChatTurn) string {
	for i := len(history) - 1; i >= 0; i-- {
		if c := strings.TrimSpace(history[i].Content); c != "" {
			return c
		}
	}
	return ""
}
