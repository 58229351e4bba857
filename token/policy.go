package token

import "sort"

// RolePolicy is a static mapping from role identifier to an ordered,
// deduplicated permission set. It is configuration data rather than logic:
// adding a role means adding a table entry, not touching verification code.
// Unknown roles resolve to the empty set, so unrecognized input degrades to
// "no privileges" instead of failing token issuance.
type RolePolicy struct {
	table map[string][]string
}

// NewRolePolicy builds an immutable policy from the provided table. Each
// permission set is cloned, deduplicated, and sorted so lookups are stable
// regardless of input order.
func NewRolePolicy(table map[string][]string) RolePolicy {
	cloned := make(map[string][]string, len(table))
	for role, perms := range table {
		seen := make(map[string]struct{}, len(perms))
		set := make([]string, 0, len(perms))
		for _, p := range perms {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			set = append(set, p)
		}
		sort.Strings(set)
		cloned[role] = set
	}
	return RolePolicy{table: cloned}
}

// PermissionsFor returns a copy of the permission set for role. Unknown
// roles yield the empty set.
func (p RolePolicy) PermissionsFor(role string) []string {
	perms, ok := p.table[role]
	if !ok || len(perms) == 0 {
		return nil
	}
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// Roles lists the configured role identifiers in sorted order.
func (p RolePolicy) Roles() []string {
	out := make([]string, 0, len(p.table))
	for role := range p.table {
		out = append(out, role)
	}
	sort.Strings(out)
	return out
}
