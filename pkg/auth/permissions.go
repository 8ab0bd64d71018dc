package auth

import "strings"

// RouteClass is the gatekeeper's classification of a page route.
type RouteClass int

const (
	// RoutePublic is reachable with or without a session.
	RoutePublic RouteClass = iota
	// RouteAuth is the login flow; sessions are bounced away from it.
	RouteAuth
	// RouteProtected requires a verified session and a permitted role.
	RouteProtected
)

// PermissionTable maps route prefixes to the roles allowed to visit them.
// Matching walks the path upward segment by segment, so a rule for
// "/members" covers "/members/123/edit". The table is static for the life
// of the process.
type PermissionTable struct {
	rules      map[string][]Role
	public     map[string]bool
	authRoutes map[string]bool

	// DefaultAllow governs routes with no matching rule: true admits any
	// authenticated user, false denies everyone.
	DefaultAllow bool
}

// NewPermissionTable returns the application's route permission table.
func NewPermissionTable() *PermissionTable {
	return &PermissionTable{
		public: map[string]bool{
			"/":            true,
			"/favicon.ico": true,
		},
		authRoutes: map[string]bool{
			"/login": true,
		},
		rules: map[string][]Role{
			"/dashboard":  AllRoles,
			"/members":    AllRoles,
			"/events":     {RoleAdmin, RoleGeneralPastor},
			"/attendance": {RoleAdmin, RoleGeneralPastor},
			"/reports":    {RoleAdmin, RoleTreasurer},
			"/users":      {RoleAdmin},
		},
		DefaultAllow: false,
	}
}

// Classify reports whether a path is public, part of the login flow, or
// protected.
func (t *PermissionTable) Classify(path string) RouteClass {
	path = normalize(path)
	if t.public[path] {
		return RoutePublic
	}
	if t.authRoutes[path] || t.authRoutes[topSegment(path)] {
		return RouteAuth
	}
	return RouteProtected
}

// Allows reports whether the role may visit the path. Unmatched paths fall
// back to DefaultAllow.
func (t *PermissionTable) Allows(path string, role Role) bool {
	roles, ok := t.match(path)
	if !ok {
		return t.DefaultAllow
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// match finds the longest rule prefix covering the path.
func (t *PermissionTable) match(path string) ([]Role, bool) {
	path = normalize(path)
	for path != "" && path != "/" {
		if roles, ok := t.rules[path]; ok {
			return roles, true
		}
		idx := strings.LastIndex(path, "/")
		if idx <= 0 {
			break
		}
		path = path[:idx]
	}
	roles, ok := t.rules[path]
	return roles, ok
}

// Resource returns the top path segment, used in the unauthorized
// redirect so the landing page can name what was denied.
func Resource(path string) string {
	seg := topSegment(path)
	return strings.TrimPrefix(seg, "/")
}

func normalize(path string) string {
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

func topSegment(path string) string {
	path = normalize(path)
	if path == "/" {
		return "/"
	}
	rest := path[1:]
	if idx := strings.Index(rest, "/"); idx >= 0 {
		rest = rest[:idx]
	}
	return "/" + rest
}
