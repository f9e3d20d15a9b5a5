package ledger

// Stage identifies one processing step of the report pipeline.
type Stage string

const (
	StageEnrich   Stage = "enrich"
	StageFilter   Stage = "filter"
	StageProject  Stage = "project"
	StageSort     Stage = "sort"
	StagePaginate Stage = "paginate"
)

// Pipeline is the ordered stage sequence submitted to the record store's
// aggregation capability. The stage order is fixed; stores execute the
// stages in the order given.
type Pipeline struct {
	Stages    []Stage
	Predicate Predicate
	Plan      EnrichmentPlan
	Sort      Sort
	Page      Page
}

// Compose combines a predicate and enrichment plan into the executable
// pipeline: enrich, filter/search, project, sort, paginate, always in that
// order. The search predicate reads enriched originator fields and
// pagination must see the sorted set.
func Compose(p Predicate, plan EnrichmentPlan, sort Sort, page Page) Pipeline {
	return Pipeline{
		Stages:    []Stage{StageEnrich, StageFilter, StageProject, StageSort, StagePaginate},
		Predicate: p,
		Plan:      plan,
		Sort:      sort,
		Page:      page,
	}
}
