// Package extract turns a routed message into a schema-valid parameter
// set for the chosen tool. A candidate source reports what the learner
// said explicitly; a deterministic Policy fills the rest from the
// learner profile.
package extract

import (
	"fmt"
	"strings"

	"github.com/abhisek/tutorflow/internal/learner"
	"github.com/abhisek/tutorflow/internal/tools"
)

// Input is one extraction request.
type Input struct {
	Tool    tools.ID
	Message string
	Profile *learner.Profile
	History []learner.ChatTurn
}

// ExtractionFailure reports that no valid parameter set could be built.
// Fields lists the offending parameters when they are known.
type ExtractionFailure struct {
	Tool   tools.ID
	Fields []string
	Err    error
}

func (e *ExtractionFailure) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("extract %s parameters (%s): %v", e.Tool, strings.Join(e.Fields, ", "), e.Err)
	}
	return fmt.Sprintf("extract %s parameters: %v", e.Tool, e.Err)
}

func (e *ExtractionFailure) Unwrap() error { return e.Err }
