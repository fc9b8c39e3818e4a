package example

type GapCategory string

const (
	GapCategorySourceCoverage GapCategory = "source_coverage"
)

type JobState string

const (
	JobStateQueued JobState = "queued"
)

type Gap struct {
	Category GapCategory
}

type Job struct {
	State JobState
}

func bad() {
	g := &Gap{}
	g.Category = "sources_coverage" // want "enum field Category assigned string literal"

	j := &Job{}
	j.State = "queud" // want "enum field State assigned string literal"

	_ = Gap{Category: "source_coverage"} // want "enum field Category assigned string literal"
}

func good() {
	g := &Gap{}
	g.Category = GapCategorySourceCoverage

	j := Job{State: JobStateQueued}
	_ = j
}

func alsoGood() {
	// Variable, not literal
	category := GapCategorySourceCoverage
	g := &Gap{Category: category}
	_ = g
}
