package index

// ClassifyLevel maps a composite index value to its alert level.
// Boundaries are evaluated from the highest level down and are inclusive,
// so an index exactly on a boundary lands in the higher bracket.
func ClassifyLevel(value float64, t Thresholds) Level {
	boundaries := []struct {
		level Level
		at    float64
	}{
		{LevelCritical, t.Critical},
		{LevelHigh, t.High},
		{LevelMedium, t.Medium},
	}

	for _, b := range boundaries {
		if value >= b.at {
			return b.level
		}
	}
	return LevelLow
}
