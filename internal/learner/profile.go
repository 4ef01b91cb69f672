// Package learner holds the learner profile and chat history passed into
// every orchestration request, plus the deterministic signal parsing that
// the extractor uses to infer missing tool parameters.
package learner

// Profile is the learner's summary as supplied by the caller. It is read
// only for the duration of a request.
type Profile struct {
	UserID                string `json:"user_id" yaml:"user_id" jsonschema:"minLength=1"`
	Name                  string `json:"name" yaml:"name"`
	GradeLevel            string `json:"grade_level" yaml:"grade_level"`
	LearningStyleSummary  string `json:"learning_style_summary" yaml:"learning_style_summary"`
	EmotionalStateSummary string `json:"emotional_state_summary" yaml:"emotional_state_summary"`
	MasteryLevelSummary   string `json:"mastery_level_summary" yaml:"mastery_level_summary"`
}

// Role is the author of a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatTurn is one message of prior conversation.
type ChatTurn struct {
	Role    Role   `json:"role" yaml:"role" jsonschema:"enum=user,enum=assistant"`
	Content string `json:"content" yaml:"content"`
}

// MockProfile returns the stand-in profile used when no profile source is
// configured.
func MockProfile(userID string) *Profile {
	return &Profile{
		UserID:                userID,
		Name:                  "Alex",
		GradeLevel:            "10",
		LearningStyleSummary:  "Prefers visual examples and structured notes.",
		EmotionalStateSummary: "Focused and motivated.",
		MasteryLevelSummary:   "Level 5: Developing competence with guided practice.",
	}
}
