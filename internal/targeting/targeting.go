// Package targeting decides whether a campaign applies to a catalog item
// and whether its attached conditions hold for a viewer. All functions
// are read-only and safe for concurrent use.
package targeting

import "github.com/dipta-sdd/campaignbay-sub001/internal/domain"

// Matches reports whether the campaign's targeting rule applies to the
// item. Checks short-circuit in order: sale-item exclusion, store-wide
// match, then membership of the item's canonical product, categories or
// tags against the target set, inverted when the campaign excludes its
// targets.
func Matches(item domain.CatalogItem, c *domain.Campaign) bool {
	if item.OnSale && c.ExcludeSaleItems {
		return false
	}

	switch c.TargetType {
	case domain.TargetEntireStore:
		return true
	case domain.TargetProduct:
		return applyExclusion(containsID(c.TargetIDs, item.CanonicalID()), c.IsExclude)
	case domain.TargetCategory:
		return applyExclusion(containsAnyID(c.TargetIDs, item.CategoryIDs), c.IsExclude)
	case domain.TargetTag:
		return applyExclusion(containsAnyID(c.TargetIDs, item.TagIDs), c.IsExclude)
	default:
		return false
	}
}

// EvaluateConditions reports whether the campaign's condition rules hold
// for the viewer. With match_type=all every rule must pass; with any, one
// passing rule is enough. An empty rule set always passes.
func EvaluateConditions(set domain.ConditionSet, viewer domain.Viewer) bool {
	if set.IsEmpty() {
		return true
	}

	if set.MatchType == domain.MatchAll {
		for _, rule := range set.Rules {
			if !evaluateRule(rule, viewer) {
				return false
			}
		}
		return true
	}

	for _, rule := range set.Rules {
		if evaluateRule(rule, viewer) {
			return true
		}
	}
	return false
}

func evaluateRule(rule domain.ConditionRule, viewer domain.Viewer) bool {
	switch rule.Type {
	case "user_role":
		// Anonymous viewers hold no role; an include rule is treated as
		// satisfied for them, an exclude rule is not.
		if viewer.IsAnonymous {
			return rule.Condition.IsIncluded
		}
		has := viewer.HasRole(rule.Condition.Option)
		if rule.Condition.IsIncluded {
			return has
		}
		return !has
	default:
		// Unknown condition types never block a match.
		return true
	}
}

func applyExclusion(member, exclude bool) bool {
	if exclude {
		return !member
	}
	return member
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func containsAnyID(ids, candidates []int64) bool {
	for _, c := range candidates {
		if containsID(ids, c) {
			return true
		}
	}
	return false
}
