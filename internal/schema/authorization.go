package schema

import "sort"

// Principal is the caller a request runs for.
type Principal interface {
	IsInRole(role string) bool
	HasPolicy(policy string) bool
}

// RequiredAuthorization holds four independent requirement clauses. A
// caller is allowed when it satisfies every clause that is not empty.
type RequiredAuthorization struct {
	allRoles    map[string]struct{}
	anyRoles    map[string]struct{}
	allPolicies map[string]struct{}
	anyPolicies map[string]struct{}
}

func (r *RequiredAuthorization) RequiresAllRoles(roles ...string) *RequiredAuthorization {
	r.allRoles = union(r.allRoles, roles)
	return r
}

func (r *RequiredAuthorization) RequiresAnyRole(roles ...string) *RequiredAuthorization {
	r.anyRoles = union(r.anyRoles, roles)
	return r
}

func (r *RequiredAuthorization) RequiresAllPolicies(policies ...string) *RequiredAuthorization {
	r.allPolicies = union(r.allPolicies, policies)
	return r
}

func (r *RequiredAuthorization) RequiresAnyPolicy(policies ...string) *RequiredAuthorization {
	r.anyPolicies = union(r.anyPolicies, policies)
	return r
}

func (r *RequiredAuthorization) AllRoles() []string    { return sorted(r.allRoles) }
func (r *RequiredAuthorization) AnyRoles() []string    { return sorted(r.anyRoles) }
func (r *RequiredAuthorization) AllPolicies() []string { return sorted(r.allPolicies) }
func (r *RequiredAuthorization) AnyPolicies() []string { return sorted(r.anyPolicies) }

// IsEmpty reports whether no clause has requirements. A nil value is empty.
func (r *RequiredAuthorization) IsEmpty() bool {
	return r == nil || len(r.allRoles)+len(r.anyRoles)+len(r.allPolicies)+len(r.anyPolicies) == 0
}

// Merge returns a rule set requiring both r and other. Either may be nil.
func (r *RequiredAuthorization) Merge(other *RequiredAuthorization) *RequiredAuthorization {
	out := r.Clone()
	if other == nil {
		return out
	}
	if out == nil {
		out = &RequiredAuthorization{}
	}
	out.RequiresAllRoles(other.AllRoles()...)
	out.RequiresAnyRole(other.AnyRoles()...)
	out.RequiresAllPolicies(other.AllPolicies()...)
	out.RequiresAnyPolicy(other.AnyPolicies()...)
	return out
}

func (r *RequiredAuthorization) Clone() *RequiredAuthorization {
	if r == nil {
		return nil
	}
	return &RequiredAuthorization{
		allRoles:    union(nil, r.AllRoles()),
		anyRoles:    union(nil, r.AnyRoles()),
		allPolicies: union(nil, r.AllPolicies()),
		anyPolicies: union(nil, r.AnyPolicies()),
	}
}

// Allows evaluates the rule set for p. A nil or empty rule set allows
// everyone; a nil principal is allowed only by an empty rule set.
func (r *RequiredAuthorization) Allows(p Principal) bool {
	if r.IsEmpty() {
		return true
	}
	if p == nil {
		return false
	}
	return all(r.allRoles, p.IsInRole) &&
		anyOf(r.anyRoles, p.IsInRole) &&
		all(r.allPolicies, p.HasPolicy) &&
		anyOf(r.anyPolicies, p.HasPolicy)
}

func all(set map[string]struct{}, has func(string) bool) bool {
	for v := range set {
		if !has(v) {
			return false
		}
	}
	return true
}

func anyOf(set map[string]struct{}, has func(string) bool) bool {
	if len(set) == 0 {
		return true
	}
	for v := range set {
		if has(v) {
			return true
		}
	}
	return false
}

func union(set map[string]struct{}, values []string) map[string]struct{} {
	if len(values) == 0 {
		return set
	}
	if set == nil {
		set = make(map[string]struct{}, len(values))
	}
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func sorted(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// StaticPrincipal is a Principal with fixed roles and policies.
type StaticPrincipal struct {
	Roles    []string
	Policies []string
}

func (p StaticPrincipal) IsInRole(role string) bool { return contains(p.Roles, role) }

func (p StaticPrincipal) HasPolicy(policy string) bool { return contains(p.Policies, policy) }

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
