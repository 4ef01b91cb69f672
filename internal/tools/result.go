package tools

// Status values of a tool result.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Result is the payload a tool returns to the learner.
type Result struct {
	Status          string `json:"status"`
	Message         string `json:"message"`
	NotesID         string `json:"notes_id,omitempty"`
	FlashcardDeckID string `json:"flashcard_deck_id,omitempty"`
	ExplanationID   string `json:"explanation_id,omitempty"`
}

// Failure builds a failure result carrying msg.
func Failure(msg string) *Result {
	return &Result{Status: StatusFailure, Message: msg}
}

// Failed reports whether the result represents a failure.
func (r *Result) Failed() bool {
	return r != nil && r.Status != StatusSuccess
}
