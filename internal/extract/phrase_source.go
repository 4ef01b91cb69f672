package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/abhisek/tutorflow/internal/schema"
	"github.com/abhisek/tutorflow/internal/tools"
)

var (
	explainRe = regexp.MustCompile(`(?i)\b(?:explain|understand|define|definition of|meaning of|what(?:'s| is| are)|how (?:does|do))\s+(?:to me\s+)?(?:what\s+)?(?:an?\s+|the\s+)?(.+)`)
	topicRe   = regexp.MustCompile(`(?i)\b(?:on|about|regarding|covering|for)\s+(?:the\s+)?(.+)`)
	countRe   = regexp.MustCompile(`(?i)\b(\d{1,3})\s+(?:[a-z]+\s+){0,2}?(?:flash\s*cards?|cards?|questions?)\b`)
	cutRe     = regexp.MustCompile(`(?i)[,.;!?]|\s(?:like|because|so|please|i'm|i am|since|but|for my|with|without|in (?:an?|the)\s+\w+ (?:way|style|format))\b`)

	difficultyRe = regexp.MustCompile(`(?i)\b(easy|medium|hard)\b`)
	depthRe      = regexp.MustCompile(`(?i)\b(basic|intermediate|advanced|comprehensive)\b`)
	styleRe      = regexp.MustCompile(`(?i)\b(outline|bullet[ _]points?|narrative|structured)\b`)
	subjectRe    = regexp.MustCompile(`(?i)\bfor (?:my )?([a-z ]{3,30}?) (?:class|course|exam)\b`)
)

// PhraseSource reads explicit values with fixed patterns. It needs no
// network and serves offline mode and tests.
type PhraseSource struct{}

func (PhraseSource) Name() string { return "phrase" }

func (PhraseSource) Candidate(ctx context.Context, entry *schema.Entry, in Input) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	msg := strings.ReplaceAll(in.Message, "’", "'")

	var v any
	switch entry.Tool {
	case tools.NoteMaker:
		v = schema.NoteMakerCandidate{
			Topic:            phraseTopic(msg, topicRe),
			Subject:          phraseSubject(msg),
			NoteTakingStyle:  phraseStyle(msg),
			IncludeExamples:  phraseToggle(msg, "examples"),
			IncludeAnalogies: phraseToggle(msg, "analogies"),
		}
	case tools.FlashcardGenerator:
		v = schema.FlashcardCandidate{
			Topic:           phraseTopic(msg, topicRe),
			Subject:         phraseSubject(msg),
			Count:           phraseCount(msg),
			Difficulty:      phraseEnum(msg, difficultyRe),
			IncludeExamples: phraseToggle(msg, "examples"),
		}
	case tools.ConceptExplainer:
		concept := phraseTopic(msg, explainRe)
		if concept == "" {
			concept = phraseTopic(msg, topicRe)
		}
		v = schema.ConceptExplainerCandidate{
			ConceptToExplain: concept,
			DesiredDepth:     phraseEnum(msg, depthRe),
		}
	default:
		return nil, fmt.Errorf("phrase source: no candidate shape for %s", entry.Tool)
	}
	return json.Marshal(v)
}

func phraseTopic(msg string, re *regexp.Regexp) string {
	m := re.FindStringSubmatch(msg)
	if m == nil {
		return ""
	}
	topic := m[1]
	if loc := cutRe.FindStringIndex(topic); loc != nil {
		topic = topic[:loc[0]]
	}
	return strings.TrimSpace(topic)
}

func phraseSubject(msg string) string {
	if m := subjectRe.FindStringSubmatch(msg); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func phraseCount(msg string) int {
	m := countRe.FindStringSubmatch(msg)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func phraseEnum(msg string, re *regexp.Regexp) string {
	if m := re.FindStringSubmatch(msg); m != nil {
		return strings.ToLower(m[1])
	}
	return schema.Unspecified
}

func phraseStyle(msg string) string {
	m := styleRe.FindStringSubmatch(msg)
	if m == nil {
		return schema.Unspecified
	}
	s := strings.ToLower(m[1])
	if strings.HasPrefix(s, "bullet") {
		return string(tools.NoteStyleBulletPoints)
	}
	return s
}

func phraseToggle(msg, noun string) string {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "without "+noun), strings.Contains(lower, "no "+noun):
		return schema.No
	case strings.Contains(lower, "with "+noun), strings.Contains(lower, "include "+noun):
		return schema.Yes
	}
	return schema.Unspecified
}
