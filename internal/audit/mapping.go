package audit

import (
	"net/http"
	"strings"
)

// ActionResource holds action and resource derived from an HTTP route.
type ActionResource struct {
	Action   string
	Resource string
}

// ParseRoute returns action and resource for an HTTP request (e.g. GET /api/tenant/tenant-data).
// Resource is the first path segment after /api, with dashes as underscores (tenant, permission_check).
// Action is the HTTP verb mapped to get, create, update or delete; the lowercase method otherwise.
func ParseRoute(method, path string) ActionResource {
	path = strings.Trim(path, "/")
	path = strings.TrimPrefix(path, "api")
	path = strings.Trim(path, "/")
	resource := "unknown"
	if path != "" {
		seg := path
		if i := strings.Index(seg, "/"); i >= 0 {
			seg = seg[:i]
		}
		resource = strings.ReplaceAll(strings.ToLower(seg), "-", "_")
	}
	return ActionResource{Action: methodToAction(method), Resource: resource}
}

func methodToAction(method string) string {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead:
		return "get"
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	case "":
		return "unknown"
	default:
		return strings.ToLower(method)
	}
}
