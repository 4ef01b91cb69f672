package tools

import "github.com/abhisek/tutorflow/internal/learner"

// NoteStyle is the layout of generated notes.
type NoteStyle string

const (
	NoteStyleOutline      NoteStyle = "outline"
	NoteStyleBulletPoints NoteStyle = "bullet_points"
	NoteStyleNarrative    NoteStyle = "narrative"
	NoteStyleStructured   NoteStyle = "structured"
)

// Difficulty of a flashcard deck.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Depth of a concept explanation.
type Depth string

const (
	DepthBasic         Depth = "basic"
	DepthIntermediate  Depth = "intermediate"
	DepthAdvanced      Depth = "advanced"
	DepthComprehensive Depth = "comprehensive"
)

// Flashcard count bounds.
const (
	MinCount = 1
	MaxCount = 20
)

// Params is a validated parameter set for exactly one tool. The set of
// implementations is closed to this package.
type Params interface {
	Tool() ID
	params()
}

// NoteMakerParams are the inputs of the note maker.
type NoteMakerParams struct {
	UserInfo         learner.Profile    `json:"user_info"`
	ChatHistory      []learner.ChatTurn `json:"chat_history"`
	Topic            string             `json:"topic" jsonschema:"minLength=1,description=Topic the notes cover"`
	Subject          string             `json:"subject" jsonschema:"minLength=1,description=Academic subject of the topic"`
	NoteTakingStyle  NoteStyle          `json:"note_taking_style" jsonschema:"enum=outline,enum=bullet_points,enum=narrative,enum=structured"`
	IncludeExamples  bool               `json:"include_examples" jsonschema:"default=true"`
	IncludeAnalogies bool               `json:"include_analogies" jsonschema:"default=false"`
}

// FlashcardParams are the inputs of the flashcard generator.
type FlashcardParams struct {
	UserInfo        learner.Profile `json:"user_info"`
	Topic           string          `json:"topic" jsonschema:"minLength=1,description=Topic the flashcards test"`
	Count           int             `json:"count" jsonschema:"minimum=1,maximum=20,description=Number of flashcards"`
	Difficulty      Difficulty      `json:"difficulty" jsonschema:"enum=easy,enum=medium,enum=hard"`
	Subject         string          `json:"subject" jsonschema:"minLength=1,description=Academic subject of the topic"`
	IncludeExamples bool            `json:"include_examples" jsonschema:"default=true"`
}

// ConceptExplainerParams are the inputs of the concept explainer.
type ConceptExplainerParams struct {
	UserInfo         learner.Profile    `json:"user_info"`
	ChatHistory      []learner.ChatTurn `json:"chat_history"`
	ConceptToExplain string             `json:"concept_to_explain" jsonschema:"minLength=1,description=Concept the learner asked about"`
	CurrentTopic     string             `json:"current_topic" jsonschema:"minLength=1,description=Topic of the ongoing conversation"`
	DesiredDepth     Depth              `json:"desired_depth" jsonschema:"enum=basic,enum=intermediate,enum=advanced,enum=comprehensive"`
}

func (NoteMakerParams) Tool() ID        { return NoteMaker }
func (FlashcardParams) Tool() ID        { return FlashcardGenerator }
func (ConceptExplainerParams) Tool() ID { return ConceptExplainer }

func (NoteMakerParams) params()        {}
func (FlashcardParams) params()        {}
func (ConceptExplainerParams) params() {}
