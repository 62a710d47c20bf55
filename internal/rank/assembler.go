package rank

import (
	"sort"

	"golang.org/x/sync/errgroup"

	"talentscout-engine/internal/domain"
)

// Assemble scores every profile with up to workers concurrent scorer calls
// and returns the full descending ranking. Profiles the scorer rejects for
// insufficient data are skipped, not failed: a batch with one empty profile
// still ranks the rest. Ties on total score break toward the
// higher-confidence candidate, then keep input order so repeated runs agree;
// results land in input slots before sorting, so worker count never changes
// the outcome.
func Assemble(scorer Scorer, profiles []domain.MergedProfile, req domain.JobRequirement, workers int) ([]domain.RankedCandidate, error) {
	if workers <= 0 {
		workers = 1
	}

	type slot struct {
		score domain.FitScore
		ok    bool
	}
	slots := make([]slot, len(profiles))

	var g errgroup.Group
	g.SetLimit(workers)
	for i := range profiles {
		i := i
		g.Go(func() error {
			score, err := scorer.Score(profiles[i], req)
			if err != nil {
				if _, ok := err.(*domain.InsufficientDataError); ok {
					return nil
				}
				return err
			}
			slots[i] = slot{score: score, ok: true}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ranked := make([]domain.RankedCandidate, 0, len(profiles))
	for i, s := range slots {
		if s.ok {
			ranked = append(ranked, domain.RankedCandidate{Profile: profiles[i], Score: s.score})
		}
	}
	Order(ranked)
	return ranked, nil
}

// Order sorts a ranking in place: descending total, confidence breaking
// ties, stable beyond that.
func Order(ranked []domain.RankedCandidate) {
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score.Total != ranked[j].Score.Total {
			return ranked[i].Score.Total > ranked[j].Score.Total
		}
		return ranked[i].Score.Confidence > ranked[j].Score.Confidence
	})
}

// Top returns the leading k candidates of an assembled ranking without
// mutating it. k <= 0 means everything.
func Top(ranked []domain.RankedCandidate, k int) []domain.RankedCandidate {
	if k <= 0 || k >= len(ranked) {
		return ranked
	}
	return ranked[:k]
}
