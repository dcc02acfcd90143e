package audit

import "strings"

// ActionResource holds action and resource derived from an HTTP route.
type ActionResource struct {
	Action   string
	Resource string
}

// ParseRoute returns action and resource for a request method and ServeMux pattern
// (e.g. "GET /admin/users" or "/notes/{id}").
// Resource is the last literal path segment, singularized (users -> user).
// Action is a verb derived from the method: get/list for GET, create, update, delete.
func ParseRoute(method, pattern string) ActionResource {
	if _, path, ok := strings.Cut(pattern, " "); ok {
		pattern = path
	}
	segs := strings.Split(strings.Trim(pattern, "/"), "/")
	resource := ""
	hasID := false
	for _, s := range segs {
		if strings.HasPrefix(s, "{") {
			hasID = true
			continue
		}
		if s != "" {
			resource = s
			hasID = false
		}
	}
	if resource == "" {
		return ActionResource{Action: "unknown", Resource: "unknown"}
	}
	return ActionResource{Action: methodToAction(method, hasID), Resource: singular(resource)}
}

func methodToAction(method string, hasID bool) string {
	switch strings.ToUpper(method) {
	case "GET", "HEAD":
		if hasID {
			return "get"
		}
		return "list"
	case "POST":
		return "create"
	case "PUT", "PATCH":
		return "update"
	case "DELETE":
		return "delete"
	default:
		return strings.ToLower(method)
	}
}

func singular(s string) string {
	switch {
	case strings.HasSuffix(s, "ies"):
		return strings.TrimSuffix(s, "ies") + "y"
	case strings.HasSuffix(s, "ss"):
		return s
	case strings.HasSuffix(s, "s"):
		return strings.TrimSuffix(s, "s")
	}
	return s
}
