package schema

// Unspecified is the enum value a candidate uses when the learner did not
// state a value.
const Unspecified = "unspecified"

// Tri-state answers for boolean candidate fields.
const (
	Yes = "yes"
	No  = "no"
)

// Candidates carry only what the learner said explicitly. Every field is
// required so the schemas work with strict structured-output modes; an
// empty string, a zero count or "unspecified" means not stated.

// NoteMakerCandidate is the LLM-facing shape for the note maker.
type NoteMakerCandidate struct {
	Topic            string `json:"topic" jsonschema:"description=Topic the learner wants notes on"`
	Subject          string `json:"subject" jsonschema:"description=Academic subject if the learner names one or empty"`
	NoteTakingStyle  string `json:"note_taking_style" jsonschema:"enum=unspecified,enum=outline,enum=bullet_points,enum=narrative,enum=structured"`
	IncludeExamples  string `json:"include_examples" jsonschema:"enum=unspecified,enum=yes,enum=no"`
	IncludeAnalogies string `json:"include_analogies" jsonschema:"enum=unspecified,enum=yes,enum=no"`
}

// FlashcardCandidate is the LLM-facing shape for the flashcard generator.
type FlashcardCandidate struct {
	Topic           string `json:"topic" jsonschema:"description=Topic the flashcards should cover"`
	Subject         string `json:"subject" jsonschema:"description=Academic subject if the learner names one or empty"`
	Count           int    `json:"count" jsonschema:"minimum=0,description=Number of flashcards the learner asked for or 0"`
	Difficulty      string `json:"difficulty" jsonschema:"enum=unspecified,enum=easy,enum=medium,enum=hard"`
	IncludeExamples string `json:"include_examples" jsonschema:"enum=unspecified,enum=yes,enum=no"`
}

// ConceptExplainerCandidate is the LLM-facing shape for the concept explainer.
type ConceptExplainerCandidate struct {
	ConceptToExplain string `json:"concept_to_explain" jsonschema:"description=Concept the learner wants explained"`
	CurrentTopic     string `json:"current_topic" jsonschema:"description=Broader topic under discussion or empty"`
	DesiredDepth     string `json:"desired_depth" jsonschema:"enum=unspecified,enum=basic,enum=intermediate,enum=advanced,enum=comprehensive"`
}
