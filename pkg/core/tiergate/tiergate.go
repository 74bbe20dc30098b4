package tiergate

import "github.com/jakechorley/training-signups/pkg/core/model"

// ResolveTier returns the highest ranked tier mapped from any of the given
// external group ids. Participants matching no mapping get model.Unrestricted.
//
// Mappings that point at unknown tiers are ignored.
func ResolveTier(groupIDs []string, mappings []model.TierMapping, tiers []model.Tier) model.Tier {
	tiersByID := make(map[int64]model.Tier, len(tiers))
	for _, tier := range tiers {
		tiersByID[tier.ID] = tier
	}

	groups := make(map[string]bool, len(groupIDs))
	for _, id := range groupIDs {
		groups[id] = true
	}

	best := model.Unrestricted
	for _, mapping := range mappings {
		if !groups[mapping.ExternalGroupID] {
			continue
		}
		tier, ok := tiersByID[mapping.TierID]
		if !ok {
			continue
		}
		if tier.Rank > best.Rank || (tier.Rank == best.Rank && tier.ID < best.ID) {
			best = tier
		}
	}

	return best
}

// CheckAdmission reports whether a participant of the resolved tier may sign up
// for a training requiring the given tier. A nil requirement admits everyone.
func CheckAdmission(required *model.Tier, resolved model.Tier) bool {
	if required == nil {
		return true
	}
	return resolved.Rank >= required.Rank
}
