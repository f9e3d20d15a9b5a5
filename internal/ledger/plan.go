package ledger

// EnrichmentPlan describes which foreign identifiers the pipeline must
// resolve against the user directory and which resolved attributes the
// search predicate runs over.
type EnrichmentPlan struct {
	// ResolveOwner and ResolveOriginator are always set: every consumer of a
	// report needs the human-readable identity, not an opaque id.
	ResolveOwner      bool
	ResolveOriginator bool

	// SearchFields lists the originator projections the free-text predicate
	// is evaluated against, post-enrichment. Empty outside search mode.
	SearchFields []string
}

var originatorSearchFields = []string{"username", "email", "name"}

// PlanEnrichment derives the enrichment plan for a predicate. Missing users
// degrade to empty-string placeholders downstream; a row is never dropped
// because its counterpart user record is gone.
func PlanEnrichment(p Predicate) EnrichmentPlan {
	plan := EnrichmentPlan{ResolveOwner: true, ResolveOriginator: true}
	if p.SearchMode {
		plan.SearchFields = append([]string(nil), originatorSearchFields...)
	}
	return plan
}
