package progression

// ══════════════════════════════════════════════════════════════════════════════
// REWARD RULE TABLE
// Maps action types to XP values. Independently configurable per action;
// mutated only by administration, read fresh by the service per event.
// ══════════════════════════════════════════════════════════════════════════════

// RewardRule grants a fixed XP value for one action type.
// At most one active rule exists per action type; updates replace the whole
// rule, never merge fields.
type RewardRule struct {
	// Action - the action type this rule pays for.
	Action ActionType

	// XPValue - XP granted per completion.
	XPValue XP

	// IsActive - inactive rules grant nothing and are kept for history.
	IsActive bool
}

// RuleSet is a snapshot of the active reward rules, keyed by action type.
type RuleSet struct {
	rules map[ActionType]RewardRule
}

// NewRuleSet builds a snapshot from a rule list. When several rules exist
// for one action type, an active one wins over inactive ones; the storage
// layer guarantees at most one active rule per action.
func NewRuleSet(rules []RewardRule) *RuleSet {
	byAction := make(map[ActionType]RewardRule, len(rules))
	for _, r := range rules {
		if existing, ok := byAction[r.Action]; ok && existing.IsActive && !r.IsActive {
			continue
		}
		byAction[r.Action] = r
	}
	return &RuleSet{rules: byAction}
}

// XPFor returns the XP value for an action type. Unknown or inactive
// actions grant 0 rather than erroring: an unconfigured action simply
// yields no XP while its counter still updates.
func (s *RuleSet) XPFor(action ActionType) XP {
	rule, ok := s.rules[action]
	if !ok || !rule.IsActive {
		return 0
	}
	return rule.XPValue
}

// Len returns the number of known rules.
func (s *RuleSet) Len() int {
	return len(s.rules)
}
