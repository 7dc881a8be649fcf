package dispatch

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"courier-dispatch/internal/domain"
)

// Score weights. Every term is normalised to 0..100 before weighting.
const (
	weightDistance   = 0.35
	weightAcceptance = 0.20
	weightRating     = 0.20
	weightExperience = 0.10
	weightPayout     = 0.15

	distanceCapMeters    = 10000.0
	payoutCap            = 500.0
	experienceSaturation = 10
	defaultRatingScore   = 50.0

	highPriorityBonus = 10.0
	activeJobPenalty  = 15.0
)

// Rank scores candidates and returns those with a positive score, best first.
// Ties keep the candidate order.
func Rank(cands []domain.Candidate, couriers map[int64]domain.Courier, payout decimal.Decimal, priority domain.Priority) []domain.RankedCandidate {
	payoutTerm := payoutScore(payout)
	out := make([]domain.RankedCandidate, 0, len(cands))
	for _, cand := range cands {
		c, ok := couriers[cand.CourierID]
		if !ok {
			continue
		}
		s := weightDistance*distanceScore(cand.DistanceMeters) +
			weightAcceptance*clamp(c.AcceptanceRate, 0, 100) +
			weightRating*ratingScore(c.Rating) +
			weightExperience*experienceScore(c.CompletedJobs) +
			weightPayout*payoutTerm
		if priority.Normalize() == domain.PriorityHigh {
			s += highPriorityBonus
		}
		if c.HasActiveJob() {
			s -= activeJobPenalty
		}
		if s <= 0 {
			continue
		}
		out = append(out, domain.RankedCandidate{Candidate: cand, Score: s})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func distanceScore(meters float64) float64 {
	return clamp(100*(1-meters/distanceCapMeters), 0, 100)
}

func ratingScore(r *float64) float64 {
	if r == nil {
		return defaultRatingScore
	}
	return clamp(*r/5*100, 0, 100)
}

func experienceScore(completed int) float64 {
	if completed <= 0 {
		return 0
	}
	return clamp(100*math.Log1p(float64(completed))/math.Log1p(experienceSaturation), 0, 100)
}

func payoutScore(p decimal.Decimal) float64 {
	v, _ := p.Float64()
	return clamp(100*v/payoutCap, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
