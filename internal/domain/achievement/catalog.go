package achievement

// Categories and unit types used by the default catalog.
const (
	CategoryEnglish = "english"
	CategoryFitness = "fitness"
	CategoryReading = "reading"
	CategoryCoding  = "coding"

	UnitHours    = "hours"
	UnitMinutes  = "minutes"
	UnitWords    = "words"
	UnitPages    = "pages"
	UnitHits     = "hits"
	UnitProblems = "problems"
)

// DefaultCatalog returns the built-in achievement templates.
// IDs are stable so seeding is idempotent.
func DefaultCatalog() []*Achievement {
	return []*Achievement{
		{
			ID:           "english-listener",
			Name:         "English Listener",
			Description:  "Listen to English audio content",
			Category:     CategoryEnglish,
			UnitType:     UnitHours,
			Requirements: Requirements{10, 50, 100, 300, 1000},
		},
		{
			ID:           "word-collector",
			Name:         "Word Collector",
			Description:  "Learn new English words",
			Category:     CategoryEnglish,
			UnitType:     UnitWords,
			Requirements: Requirements{50, 200, 500, 1000, 3000},
		},
		{
			ID:           "conversation-master",
			Name:         "Conversation Master",
			Description:  "Practice speaking English",
			Category:     CategoryEnglish,
			UnitType:     UnitMinutes,
			Requirements: Requirements{300, 1000, 3000, 10000, 30000},
		},
		{
			ID:           "workout-warrior",
			Name:         "Workout Warrior",
			Description:  "Complete workout sessions",
			Category:     CategoryFitness,
			UnitType:     UnitHours,
			Requirements: Requirements{10, 50, 100, 300, 1000},
		},
		{
			ID:           "punch-counter",
			Name:         "Punch Counter",
			Description:  "Track your punches in training",
			Category:     CategoryFitness,
			UnitType:     UnitHits,
			Requirements: Requirements{1000, 5000, 10000, 50000, 100000},
		},
		{
			ID:           "bookworm",
			Name:         "Bookworm",
			Description:  "Read books and articles",
			Category:     CategoryReading,
			UnitType:     UnitPages,
			Requirements: Requirements{100, 500, 1000, 5000, 10000},
		},
		{
			ID:           "code-ninja",
			Name:         "Code Ninja",
			Description:  "Time spent coding",
			Category:     CategoryCoding,
			UnitType:     UnitHours,
			Requirements: Requirements{10, 50, 100, 500, 1000},
		},
		{
			ID:           "problem-solver",
			Name:         "Problem Solver",
			Description:  "Solve programming problems",
			Category:     CategoryCoding,
			UnitType:     UnitProblems,
			Requirements: Requirements{10, 50, 100, 500, 1000},
		},
	}
}
