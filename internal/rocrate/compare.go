package rocrate

// Comparison contrasts two crates. Diffs are second minus first.
type Comparison struct {
	Manifest1Stats SummaryStats `json:"manifest1_stats"`
	Manifest2Stats SummaryStats `json:"manifest2_stats"`
	FilesDiff      int          `json:"files_diff"`
	EntitiesDiff   int          `json:"entities_diff"`
	PeopleDiff     int          `json:"people_diff"`
}

// Compare computes summary statistics for both manifests and their differences.
func Compare(first, second *Manifest) Comparison {
	s1 := NewAnalyzer(first).SummaryStats()
	s2 := NewAnalyzer(second).SummaryStats()

	return Comparison{
		Manifest1Stats: s1,
		Manifest2Stats: s2,
		FilesDiff:      s2.FilesCount - s1.FilesCount,
		EntitiesDiff:   s2.TotalEntities - s1.TotalEntities,
		PeopleDiff:     s2.PeopleCount - s1.PeopleCount,
	}
}
