package rank

import "talentscout-engine/internal/domain"

type Scorer interface {
	Score(profile domain.MergedProfile, req domain.JobRequirement) (domain.FitScore, error)
}
