package backend

import "golang.org/x/text/cases"

// IsAllowed reports whether principal p may use the backend described by d.
//
// A non-empty RequiredRoles set requires p.Role to be one of them. A non-empty
// AllowedUsers set requires p.UserID to be one of them, compared exactly. Both
// checks must pass; an empty set places no restriction. IsAllowed ignores
// d.Enabled; see Visible.
//
// Role membership is deliberately wider than exact set membership: roles are
// compared under Unicode case folding, so a principal with role "Admin"
// satisfies required role "admin". Role names from identity providers and
// descriptor files differ only in case, and toolgate treats them as one role.
func IsAllowed(d Descriptor, p Principal) bool {
	return hasRole(d.RequiredRoles, p.Role) && hasUser(d.AllowedUsers, p.UserID)
}

// Visible reports whether d is enabled and allowed for p.
func Visible(d Descriptor, p Principal) bool {
	return d.Enabled && IsAllowed(d, p)
}

func hasRole(required []string, role string) bool {
	if len(required) == 0 {
		return true
	}
	// Casers are stateful and must not be shared across goroutines.
	fold := cases.Fold()
	folded := fold.String(role)
	for _, r := range required {
		if fold.String(r) == folded {
			return true
		}
	}
	return false
}

func hasUser(allowed []string, user string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, u := range allowed {
		if u == user {
			return true
		}
	}
	return false
}
