package extract

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/abhisek/tutorflow/internal/learner"
	"github.com/abhisek/tutorflow/internal/llm"
	"github.com/abhisek/tutorflow/internal/schema"
	"github.com/abhisek/tutorflow/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sourceFunc func(ctx context.Context, entry *schema.Entry, in Input) (json.RawMessage, error)

func (f sourceFunc) Name() string { return "stub" }

func (f sourceFunc) Candidate(ctx context.Context, entry *schema.Entry, in Input) (json.RawMessage, error) {
	return f(ctx, entry, in)
}

func candidate(s string) llm.MockResponse {
	return llm.MockResponse{Content: json.RawMessage(s)}
}

func newLLMExtractor(responses ...llm.MockResponse) (*Extractor, *llm.MockProvider) {
	mock := llm.NewMockProvider(responses...)
	return New(NewLLMSource(mock, DefaultConfig()), DefaultConfig(), nil), mock
}

const photosynthesisCards = `{"topic":"photosynthesis","subject":"","count":0,"difficulty":"unspecified","include_examples":"unspecified"}`

func TestExtract_FlashcardScenario(t *testing.T) {
	x, mock := newLLMExtractor(candidate(photosynthesisCards))

	p, err := x.Extract(context.Background(), Input{
		Tool:    tools.FlashcardGenerator,
		Message: "Can you make flashcards on photosynthesis, I'm struggling",
		Profile: learner.MockProfile("u1"),
	})
	require.NoError(t, err)

	fc, ok := p.(tools.FlashcardParams)
	require.True(t, ok, "got %T", p)
	assert.Equal(t, "photosynthesis", fc.Topic)
	assert.Equal(t, tools.DifficultyEasy, fc.Difficulty)
	assert.LessOrEqual(t, fc.Count, 10)
	assert.Equal(t, "Biology", fc.Subject)
	assert.True(t, fc.IncludeExamples)
	assert.Equal(t, "u1", fc.UserInfo.UserID)
	assert.NoError(t, schema.Validate(p.Tool(), p))

	req := mock.Requests()[0]
	entry, _ := schema.Lookup(tools.FlashcardGenerator)
	assert.Same(t, entry.Candidate, req.Schema)
	assert.Contains(t, req.Messages[0].Content, "Can you make flashcards on photosynthesis")
	assert.NotContains(t, req.Messages[0].Content, "Focused and motivated", "profile stays out of the prompt")
}

func TestExtract_EmotionalBias(t *testing.T) {
	x, _ := newLLMExtractor(candidate(photosynthesisCards))
	profile := learner.MockProfile("u2")
	profile.EmotionalStateSummary = "Anxious about the upcoming exam"
	profile.MasteryLevelSummary = "Level 9: advanced"

	p, err := x.Extract(context.Background(), Input{
		Tool:    tools.FlashcardGenerator,
		Message: "flashcards on photosynthesis",
		Profile: profile,
	})
	require.NoError(t, err)

	fc := p.(tools.FlashcardParams)
	assert.LessOrEqual(t, fc.Count, 5)
	assert.Equal(t, tools.DifficultyEasy, fc.Difficulty)
}

func TestExtract_MasteryDrivesDepth(t *testing.T) {
	x, _ := newLLMExtractor(candidate(`{"concept_to_explain":"entropy","current_topic":"","desired_depth":"unspecified"}`))
	profile := learner.MockProfile("u3")
	profile.MasteryLevelSummary = "Level 8: strong command of the material"

	p, err := x.Extract(context.Background(), Input{
		Tool:    tools.ConceptExplainer,
		Message: "Explain entropy",
		Profile: profile,
	})
	require.NoError(t, err)

	ce := p.(tools.ConceptExplainerParams)
	assert.Contains(t, []tools.Depth{tools.DepthAdvanced, tools.DepthComprehensive}, ce.DesiredDepth)
	assert.Equal(t, "entropy", ce.CurrentTopic)
	assert.NotNil(t, ce.ChatHistory)
}

func TestExtract_NoteMakerExplicitValues(t *testing.T) {
	x, _ := newLLMExtractor(candidate(`{"topic":"the French Revolution","subject":"History","note_taking_style":"outline","include_examples":"no","include_analogies":"yes"}`))

	history := []learner.ChatTurn{{Role: learner.RoleUser, Content: "hi"}}
	p, err := x.Extract(context.Background(), Input{
		Tool:    tools.NoteMaker,
		Message: "Outline notes on the French Revolution, no examples, with analogies",
		Profile: learner.MockProfile("u4"),
		History: history,
	})
	require.NoError(t, err)

	nm := p.(tools.NoteMakerParams)
	assert.Equal(t, tools.NoteStyleOutline, nm.NoteTakingStyle)
	assert.Equal(t, "History", nm.Subject)
	assert.False(t, nm.IncludeExamples)
	assert.True(t, nm.IncludeAnalogies)

	history[0].Content = "mutated"
	assert.Equal(t, "hi", nm.ChatHistory[0].Content, "params own their history")
}

func TestExtract_InvalidCandidateRetried(t *testing.T) {
	x, mock := newLLMExtractor(
		candidate(`{"topic":"cells"}`),
		candidate(`{"topic":"cells","subject":"","count":3,"difficulty":"hard","include_examples":"unspecified"}`),
	)

	p, err := x.Extract(context.Background(), Input{
		Tool:    tools.FlashcardGenerator,
		Message: "3 hard flashcards on cells",
		Profile: learner.MockProfile("u5"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, mock.CallCount())

	fc := p.(tools.FlashcardParams)
	assert.Equal(t, 3, fc.Count)
	assert.Equal(t, tools.DifficultyHard, fc.Difficulty)
}

func TestExtract_FailureAfterAttempts(t *testing.T) {
	var calls atomic.Int32
	src := sourceFunc(func(context.Context, *schema.Entry, Input) (json.RawMessage, error) {
		calls.Add(1)
		return json.RawMessage(`{"topic":"cells","mood":"happy"}`), nil
	})
	x := New(src, DefaultConfig(), nil)

	_, err := x.Extract(context.Background(), Input{
		Tool: tools.FlashcardGenerator, Message: "cards on cells", Profile: learner.MockProfile("u6"),
	})

	var f *ExtractionFailure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, tools.FlashcardGenerator, f.Tool)
	assert.Contains(t, f.Fields, "mood")
	assert.Contains(t, f.Fields, "subject")
	assert.EqualValues(t, 2, calls.Load())
}

func TestExtract_ProviderUnavailableNotRetried(t *testing.T) {
	x, mock := newLLMExtractor(llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("down")}})

	_, err := x.Extract(context.Background(), Input{
		Tool: tools.NoteMaker, Message: "notes on cells", Profile: learner.MockProfile("u7"),
	})

	var f *ExtractionFailure
	require.ErrorAs(t, err, &f)
	var unavail *llm.ErrProviderUnavailable
	assert.ErrorAs(t, err, &unavail)
	assert.Equal(t, 1, mock.CallCount())
}

func TestExtract_MissingContentField(t *testing.T) {
	x, _ := newLLMExtractor(candidate(`{"concept_to_explain":"  ","current_topic":"","desired_depth":"unspecified"}`))

	_, err := x.Extract(context.Background(), Input{
		Tool: tools.ConceptExplainer, Message: "explain", Profile: learner.MockProfile("u8"),
	})

	var f *ExtractionFailure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, []string{"concept_to_explain"}, f.Fields)
}

func TestExtract_BadInput(t *testing.T) {
	x, mock := newLLMExtractor(candidate(`{"topic":"cells","subject":"","note_taking_style":"unspecified","include_examples":"unspecified","include_analogies":"unspecified"}`))

	_, err := x.Extract(context.Background(), Input{Tool: tools.NoTool, Message: "hi", Profile: learner.MockProfile("u")})
	var f *ExtractionFailure
	require.ErrorAs(t, err, &f)

	_, err = x.Extract(context.Background(), Input{Tool: tools.NoteMaker, Message: "notes on cells"})
	require.ErrorAs(t, err, &f)
	assert.Equal(t, []string{"user_info"}, f.Fields)
	assert.Zero(t, mock.CallCount())

	// An empty user id only surfaces in full validation.
	_, err = x.Extract(context.Background(), Input{Tool: tools.NoteMaker, Message: "notes on cells", Profile: &learner.Profile{}})
	require.ErrorAs(t, err, &f)
	assert.Equal(t, []string{"user_info.user_id"}, f.Fields)
}

func TestExtract_CancelledContext(t *testing.T) {
	x, _ := newLLMExtractor(candidate(photosynthesisCards))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := x.Extract(ctx, Input{Tool: tools.FlashcardGenerator, Message: "cards", Profile: learner.MockProfile("u")})
	assert.ErrorIs(t, err, context.Canceled)

	var f *ExtractionFailure
	assert.False(t, errors.As(err, &f))
}

func TestExtract_Idempotent(t *testing.T) {
	mock := llm.NewMockProviderFunc(func(llm.Request) llm.MockResponse {
		return candidate(photosynthesisCards)
	})
	x := New(NewLLMSource(mock, DefaultConfig()), DefaultConfig(), nil)
	in := Input{Tool: tools.FlashcardGenerator, Message: "flashcards on photosynthesis", Profile: learner.MockProfile("u")}

	first, err := x.Extract(context.Background(), in)
	require.NoError(t, err)
	second, err := x.Extract(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBuildUserMessage_History(t *testing.T) {
	entry, _ := schema.Lookup(tools.ConceptExplainer)
	in := Input{
		Tool:    tools.ConceptExplainer,
		Message: "what about limits?",
		History: []learner.ChatTurn{
			{Role: learner.RoleUser, Content: "old"},
			{Role: learner.RoleUser, Content: "derivatives please"},
			{Role: learner.RoleAssistant, Content: "Sure, derivatives."},
		},
	}

	msg, err := buildUserMessage(entry, in, 2)
	require.NoError(t, err)
	assert.Contains(t, msg, "Tool: ConceptExplainer")
	assert.Contains(t, msg, "user: derivatives please\nassistant: Sure, derivatives.")
	assert.NotContains(t, msg, "old")
	assert.Contains(t, msg, "Learner message:\nwhat about limits?")

	msg, err = buildUserMessage(entry, Input{Message: "hi"}, 2)
	require.NoError(t, err)
	assert.NotContains(t, msg, "Conversation so far")
}
