package enums

type ContentCategory string

const (
	CategoryCourses    ContentCategory = "courses"
	CategoryStrategies ContentCategory = "strategies"
	CategoryAnalyses   ContentCategory = "analyses"
	CategoryWebinars   ContentCategory = "webinars"
	CategoryPsychology ContentCategory = "psychology"
)

func ContentCategories() []ContentCategory {
	return []ContentCategory{
		CategoryCourses,
		CategoryStrategies,
		CategoryAnalyses,
		CategoryWebinars,
		CategoryPsychology,
	}
}

func ParseContentCategory(raw string) (ContentCategory, bool) {
	switch ContentCategory(raw) {
	case CategoryCourses, CategoryStrategies, CategoryAnalyses, CategoryWebinars, CategoryPsychology:
		return ContentCategory(raw), true
	default:
		return "", false
	}
}

// HasUnlockSet reports whether users carry a per-category unlocked-content
// set for this category. Strategies are gated by plan intersection only.
func (c ContentCategory) HasUnlockSet() bool {
	switch c {
	case CategoryCourses, CategoryWebinars, CategoryPsychology, CategoryAnalyses:
		return true
	default:
		return false
	}
}
