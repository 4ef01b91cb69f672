package tools

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		label string
		want  ID
	}{
		{"NoteMaker", NoteMaker},
		{"Note Maker", NoteMaker},
		{"note_maker", NoteMaker},
		{"FlashcardGenerator", FlashcardGenerator},
		{"Flashcard Generator", FlashcardGenerator},
		{"ConceptExplainer", ConceptExplainer},
		{" concept-explainer ", ConceptExplainer},
		{"'Concept Explainer'", ConceptExplainer},
		{"NoTool", NoTool},
		{"no_tool", NoTool},
		{"WeatherTool", NoTool},
		{"notes", NoTool},
		{"", NoTool},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.label))
		})
	}
}

func TestIDString(t *testing.T) {
	assert.Equal(t, "NoTool", ID(0).String())
	assert.Equal(t, "NoteMaker", NoteMaker.String())
	assert.Equal(t, "NoTool", ID(42).String())
	assert.Equal(t, []string{"NoteMaker", "FlashcardGenerator", "ConceptExplainer", "NoTool"}, Labels())
}

func TestIDText(t *testing.T) {
	b, err := json.Marshal(map[string]ID{"tool": FlashcardGenerator})
	require.NoError(t, err)
	assert.JSONEq(t, `{"tool":"FlashcardGenerator"}`, string(b))

	var got struct {
		Tool ID `json:"tool"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"tool":"Concept Explainer"}`), &got))
	assert.Equal(t, ConceptExplainer, got.Tool)

	require.NoError(t, json.Unmarshal([]byte(`{"tool":"Calculator"}`), &got))
	assert.Equal(t, NoTool, got.Tool)
}

func TestParamsTool(t *testing.T) {
	var p Params = NoteMakerParams{}
	assert.Equal(t, NoteMaker, p.Tool())
	p = FlashcardParams{}
	assert.Equal(t, FlashcardGenerator, p.Tool())
	p = ConceptExplainerParams{}
	assert.Equal(t, ConceptExplainer, p.Tool())
}

func TestCatalog(t *testing.T) {
	require.Len(t, Catalog, len(Tools))
	for i, id := range Tools {
		assert.Equal(t, id, Catalog[i].ID)
		e, ok := Lookup(id)
		require.True(t, ok)
		assert.NotEmpty(t, e.Description)
	}

	_, ok := Lookup(NoTool)
	assert.False(t, ok)
}
