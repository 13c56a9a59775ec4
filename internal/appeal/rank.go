package appeal

import "sort"

// Ranked is a Record placed in display order.
type Ranked struct {
	Rank  int    `json:"rank"`
	Title string `json:"title"`
	Record
}

// Rank orders records by final appeal (desc), voter count (desc), title (asc)
// and movie ID (asc). Ranks start at 1. Titles missing from the map sort as
// empty strings.
func Rank(result Result, titles map[int64]string) []Ranked {
	ranked := make([]Ranked, 0, len(result.Records))
	for id, rec := range result.Records {
		ranked = append(ranked, Ranked{Title: titles[id], Record: rec})
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.FinalAppeal != b.FinalAppeal {
			return a.FinalAppeal > b.FinalAppeal
		}
		if a.TotalVoters != b.TotalVoters {
			return a.TotalVoters > b.TotalVoters
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.MovieID < b.MovieID
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}
