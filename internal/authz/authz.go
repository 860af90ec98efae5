// Package authz evaluates simple predicates over the scope string embedded in
// verified claims. The core's job ends at producing trustworthy claims; these
// helpers are the policy layer callers build on top.
package authz

import "strings"

const rolePrefix = "ROLE_"

func HasRole(scope, role string) bool {
	return contains(scope, rolePrefix+role)
}

func HasPermission(scope, permission string) bool {
	return contains(scope, permission)
}

// IsOwnerOrRole allows the resource owner or any holder of role through.
func IsOwnerOrRole(scope, subject, owner, role string) bool {
	return subject == owner || HasRole(scope, role)
}

func contains(scope, entry string) bool {
	for _, s := range strings.Fields(scope) {
		if s == entry {
			return true
		}
	}
	return false
}
