package catalog

import (
	"sort"
	"strconv"
	"strings"

	"moviepoll/internal/catalog/tmdb"
	"moviepoll/internal/textutil"
	"moviepoll/internal/titlematch"
)

// QueryVariants lists the distinct search strings tried for a title: the title
// as given, whitespace collapsed, lowercased, punctuation stripped, the title
// with the year appended (plain and parenthesized), then alias terms for exact
// and partial alias key matches.
func QueryVariants(title string, year int, aliases map[string][]string) []string {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}

	var out []string
	seen := make(map[string]struct{})
	add := func(q string) {
		q = strings.TrimSpace(q)
		if q == "" {
			return
		}
		if _, ok := seen[q]; ok {
			return
		}
		seen[q] = struct{}{}
		out = append(out, q)
	}

	add(title)
	add(textutil.NormalizeSpacing(title))
	add(strings.ToLower(title))
	add(textutil.NormalizeSpacing(textutil.StripPunctuation(title)))
	if year > 0 {
		y := strconv.Itoa(year)
		add(title + " " + y)
		add(title + " (" + y + ")")
	}

	lower := strings.ToLower(textutil.NormalizeSpacing(title))
	for _, alt := range aliases[lower] {
		add(alt)
	}
	for _, key := range sortedKeys(aliases) {
		if key == lower {
			continue
		}
		if strings.Contains(lower, key) || strings.Contains(key, lower) {
			for _, alt := range aliases[key] {
				add(alt)
			}
		}
	}
	return out
}

// ToCandidate converts a TMDB search result into a match candidate.
func ToCandidate(r tmdb.Result) titlematch.Candidate {
	return titlematch.Candidate{
		ID:            r.ID,
		Title:         r.Title,
		OriginalTitle: r.OriginalTitle,
		ReleaseDate:   r.ReleaseDate,
		Popularity:    r.Popularity,
		VoteAverage:   r.VoteAverage,
		VoteCount:     r.VoteCount,
		Overview:      r.Overview,
		PosterPath:    r.PosterPath,
	}
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
