package httpmiddleware

import "net/http"

// RouteFinder resolves the route pattern that serves r, for use as a
// low-cardinality label. It returns "" when no route matches.
type RouteFinder func(r *http.Request) string

// MakeRouteFinder returns a RouteFinder backed by the patterns registered on
// mux.
func MakeRouteFinder(mux *http.ServeMux) RouteFinder {
	return func(r *http.Request) string {
		_, pattern := mux.Handler(r)
		return pattern
	}
}

func routeOf(find RouteFinder, r *http.Request) string {
	if find == nil {
		return ""
	}
	if route := find(r); route != "" {
		return route
	}
	return "unmatched"
}
