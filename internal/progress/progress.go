// Package progress derives participant-facing summaries from the visited
// set and tracking entries. Everything here is a pure projection: nothing
// is persisted and nothing is cached across a refresh.
package progress

import "github.com/onnwee/trailmark/internal/store"

// Score sums score_points over the locations whose ID is in the visited
// set. Zero for an empty set.
func Score(visited map[int]struct{}, locations []store.Location) float64 {
	var total float64
	for _, l := range locations {
		if _, ok := visited[l.ID]; ok {
			total += l.ScorePoints
		}
	}
	return total
}

// TotalScore sums score_points over all locations regardless of visited
// status. Used as the denominator of the "current / total" display.
func TotalScore(locations []store.Location) float64 {
	var total float64
	for _, l := range locations {
		total += l.ScorePoints
	}
	return total
}

// UniqueParticipants returns the number of distinct participant usernames
// across the given tracking entries. Row multiplicity is irrelevant: a
// participant with ten rows counts once.
func UniqueParticipants(entries []store.TrackingEntry) int {
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		seen[e.ParticipantUsername] = struct{}{}
	}
	return len(seen)
}

// Summary is the progress snapshot shown on a project screen.
type Summary struct {
	Score          float64 `json:"score"`
	TotalScore     float64 `json:"total_score"`
	VisitedCount   int     `json:"visited_count"`
	TotalLocations int     `json:"total_locations"`

	// ScoreDisplayed is false when the project's scoring policy is
	// "Not Scored": the points still compute, the screen just omits them.
	ScoreDisplayed bool `json:"score_displayed"`
}

// Summarize builds the progress summary for one participant in one project.
func Summarize(project store.Project, locations []store.Location, visited map[int]struct{}) Summary {
	return Summary{
		Score:          Score(visited, locations),
		TotalScore:     TotalScore(locations),
		VisitedCount:   len(visited),
		TotalLocations: len(locations),
		ScoreDisplayed: project.ParticipantScoring != store.ScoringNotScored,
	}
}
