package world

import "sort"

type Team struct {
	Name  string
	Score int64
	Size  int
}

func (t *Team) addScore(n int) { t.Score += int64(n) }

// TeamRank is one line of the final standings.
type TeamRank struct {
	Name  string
	Score int64
	Rank  int
}

// rankTeams sorts by score, ties by name, and ranks 1..n.
func rankTeams(teams []*Team) []TeamRank {
	out := make([]TeamRank, 0, len(teams))
	for _, t := range teams {
		out = append(out, TeamRank{Name: t.Name, Score: t.Score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
