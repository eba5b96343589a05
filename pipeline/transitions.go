package pipeline

import (
	"github.com/fieldops/missiond/errors"
	"github.com/fieldops/missiond/task"
)

// transitions is the full chaining topology. An executor may only insert
// follow-on tasks listed for its own type; everything else is rejected
// before a row is written.
//
// GENERATE_CAMPAIGN -> SEARCH
// SEARCH            -> ENRICH | CONTACT   (fallback path goes straight to contact)
// ENRICH            -> INVESTIGATE | CONTACT  (deep vs basic enrichment)
// INVESTIGATE       -> CONTACT            (one per lead, individually scheduled)
// EVALUATE          -> CONTACT_CAMPAIGN   (qualified leads only)
// CONTACT, CONTACT_INITIAL, CONTACT_CAMPAIGN, GENERATE_REPORT are terminal.
var transitions = map[task.Type][]task.Type{
	task.TypeGenerateCampaign: {task.TypeSearch},
	task.TypeSearch:           {task.TypeEnrich, task.TypeContact},
	task.TypeEnrich:           {task.TypeInvestigate, task.TypeContact},
	task.TypeInvestigate:      {task.TypeContact},
	task.TypeContact:          nil,
	task.TypeContactInitial:   nil,
	task.TypeEvaluate:         {task.TypeContactCampaign},
	task.TypeContactCampaign:  nil,
	task.TypeGenerateReport:   nil,
}

// CanChain reports whether from may chain into to.
func CanChain(from, to task.Type) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns an error naming the rejected edge.
func ValidateTransition(from, to task.Type) error {
	if !CanChain(from, to) {
		return errors.Newf("invalid transition: %s may not chain into %s", from, to)
	}
	return nil
}

// NextTypes lists the allowed successors of a task type.
func NextTypes(from task.Type) []task.Type {
	out := make([]task.Type, len(transitions[from]))
	copy(out, transitions[from])
	return out
}
