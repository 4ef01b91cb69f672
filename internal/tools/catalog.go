package tools

// Entry describes a tool to the router.
type Entry struct {
	ID          ID
	Name        string
	Description string
}

// Catalog lists the invocable tools with the descriptions the router
// classifies against.
var Catalog = []Entry{
	{
		ID:          NoteMaker,
		Name:        "Note Maker",
		Description: "Use when the learner wants notes, summaries, or outlines on a specific topic.",
	},
	{
		ID:          FlashcardGenerator,
		Name:        "Flashcard Generator",
		Description: "Use when the learner wants flashcards for studying, testing their knowledge, or memorization.",
	},
	{
		ID:          ConceptExplainer,
		Name:        "Concept Explainer",
		Description: "Use when the learner asks for an explanation of a concept, idea, or topic.",
	},
}

// Lookup returns the catalog entry for id.
func Lookup(id ID) (Entry, bool) {
	for _, e := range Catalog {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}
