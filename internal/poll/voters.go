package poll

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"moviepoll/internal/textutil"
	"moviepoll/internal/titlematch"
)

// DefaultNameSimilarity is the score at which two voter names are reported
// as probably the same person. "ana" and "anna" score 0.75.
const DefaultNameSimilarity = 0.7

// NameSimilarity scores two voter names from 0 (unrelated) to 1 (same name
// ignoring case and accents). A name contained in the other scores at least
// 0.8 when the shorter one has three or more runes. Scores under 0.3 are 0.
func NameSimilarity(a, b string) float64 {
	na := strings.ToLower(textutil.FoldAccents(strings.TrimSpace(a)))
	nb := strings.ToLower(textutil.FoldAccents(strings.TrimSpace(b)))
	if na == nb {
		return 1
	}
	la, lb := utf8.RuneCountInString(na), utf8.RuneCountInString(nb)
	longest := max(la, lb)
	if min(la, lb) == 0 {
		return 0
	}

	score := 1 - float64(titlematch.EditDistance(na, nb))/float64(longest)
	if min(la, lb) >= 3 && (strings.Contains(na, nb) || strings.Contains(nb, na)) {
		score = max(score, 0.8)
	}
	if score < 0.3 {
		return 0
	}
	return score
}

// SimilarVoter is an existing voter whose name resembles a queried one.
type SimilarVoter struct {
	Name       string  `json:"name"`
	Votes      int     `json:"votes"`
	Similarity float64 `json:"similarity"`
}

// VoterPair is two voters of one poll whose names resemble each other.
type VoterPair struct {
	A          SimilarVoter `json:"a"`
	B          SimilarVoter `json:"b"`
	Similarity float64      `json:"similarity"`
}

// SimilarVoters lists voters in pollID whose name scores at least threshold
// against name, most similar first. A threshold of zero or less uses
// DefaultNameSimilarity.
func (s *Service) SimilarVoters(ctx context.Context, pollID, name string, threshold float64) ([]SimilarVoter, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name must not be empty", ErrInvalidInput)
	}
	threshold = nameThreshold(threshold)
	voters, err := s.voterCounts(ctx, pollID)
	if err != nil {
		return nil, err
	}
	var out []SimilarVoter
	for _, v := range voters {
		if sim := NameSimilarity(name, v.Name); sim >= threshold {
			v.Similarity = sim
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// VoterCollisions lists every pair of distinct voter names in pollID that
// score at least threshold, most similar first. Such pairs usually split one
// person's votes across two voters, which inflates total voter counts.
func (s *Service) VoterCollisions(ctx context.Context, pollID string, threshold float64) ([]VoterPair, error) {
	threshold = nameThreshold(threshold)
	voters, err := s.voterCounts(ctx, pollID)
	if err != nil {
		return nil, err
	}
	var pairs []VoterPair
	for i := 0; i < len(voters); i++ {
		for j := i + 1; j < len(voters); j++ {
			if sim := NameSimilarity(voters[i].Name, voters[j].Name); sim >= threshold {
				pairs = append(pairs, VoterPair{A: voters[i], B: voters[j], Similarity: sim})
			}
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Similarity > pairs[j].Similarity
	})
	return pairs, nil
}

// voterCounts returns each distinct voter of pollID with their vote count,
// ordered by name.
func (s *Service) voterCounts(ctx context.Context, pollID string) ([]SimilarVoter, error) {
	votes, err := s.store.ListVotes(ctx, pollID)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, v := range votes {
		counts[v.UserName]++
	}
	voters := make([]SimilarVoter, 0, len(counts))
	for name, n := range counts {
		voters = append(voters, SimilarVoter{Name: name, Votes: n})
	}
	sort.Slice(voters, func(i, j int) bool { return voters[i].Name < voters[j].Name })
	return voters, nil
}

func nameThreshold(threshold float64) float64 {
	if threshold <= 0 {
		return DefaultNameSimilarity
	}
	return threshold
}
