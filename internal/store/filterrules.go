package store

import "sort"

// AddFilterRule records a block/reject rule keyed by actor id or host, per
// spec.md §6's "add_filter_rule"/"get_filter_rules" collaborator methods.
func (s *Store) AddFilterRule(id, target string, isReject bool, specificity int) error {
	reject := 0
	if isReject {
		reject = 1
	}
	var q string
	if s.driver == "sqlite" {
		q = `INSERT OR REPLACE INTO filter_rules (id, target, is_reject, specificity) VALUES (?, ?, ?, ?)`
	} else {
		q = `INSERT INTO filter_rules (id, target, is_reject, specificity) VALUES ($1, $2, $3, $4)
			ON CONFLICT(id) DO UPDATE SET target=EXCLUDED.target, is_reject=EXCLUDED.is_reject, specificity=EXCLUDED.specificity`
	}
	_, err := s.db.Exec(q, id, target, reject, specificity)
	return err
}

// GetFilterRules returns every rule, ordered most-specific first as spec.md
// §6 requires ("ordered by specificity").
func (s *Store) GetFilterRules() ([]FilterRule, error) {
	rows, err := s.db.Query(`SELECT id, target, is_reject, specificity FROM filter_rules`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FilterRule
	for rows.Next() {
		var r FilterRule
		var reject int
		if err := rows.Scan(&r.ID, &r.Target, &reject, &r.Specificity); err != nil {
			return nil, err
		}
		r.IsReject = reject != 0
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Specificity > out[j].Specificity })
	return out, nil
}

// IsRejected reports whether any rule matching actorID or host rejects it.
// The most specific matching rule wins; absence of any match means allowed.
func IsRejected(rules []FilterRule, actorIDOrHost string) bool {
	for _, r := range rules {
		if r.Target == actorIDOrHost {
			return r.IsReject
		}
	}
	return false
}
