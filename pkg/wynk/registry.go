package wynk

import (
	"sort"
	"sync"
)

// RouteInfo contains metadata about a registered route
type RouteInfo struct {
	// Method is the HTTP method (GET, POST, PUT, DELETE, etc.)
	Method string

	// Path is the full route path with parameter placeholders (e.g., "/api/users/{id:int}")
	Path WynkPath

	// HandlerName is the name of the handler function
	HandlerName string

	// ControllerName is the name of the controller that owns this route
	ControllerName string

	// StatusCode is the default success status
	StatusCode int

	// ParameterTypes maps typed parameter names to their types (e.g., {"id": "int"})
	ParameterTypes map[string]string

	// Guards, Pipes, Interceptors and Filters count every scope, global included
	Guards       int
	Pipes        int
	Interceptors int
	Filters      int

	// Redirect is set for redirect routes
	Redirect *RedirectSpec
}

// RouteRegistry provides access to all registered routes in the application
type RouteRegistry interface {
	// GetAllRoutes returns all registered routes
	GetAllRoutes() []RouteInfo

	// GetRoutesByController returns routes filtered by controller name
	GetRoutesByController(controllerName string) []RouteInfo

	// GetRoutesByMethod returns routes filtered by HTTP method
	GetRoutesByMethod(method string) []RouteInfo

	// Lookup finds a route with the same method and path shape
	Lookup(method string, path WynkPath) (RouteInfo, bool)

	// RegisterRoute adds a route to the registry
	RegisterRoute(route RouteInfo)
}

// InMemoryRouteRegistry implements RouteRegistry using an in-memory slice
type InMemoryRouteRegistry struct {
	mu     sync.RWMutex
	routes []RouteInfo
}

// NewInMemoryRouteRegistry creates a new in-memory route registry
func NewInMemoryRouteRegistry() *InMemoryRouteRegistry {
	return &InMemoryRouteRegistry{
		routes: make([]RouteInfo, 0),
	}
}

// GetAllRoutes returns all registered routes
func (r *InMemoryRouteRegistry) GetAllRoutes() []RouteInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]RouteInfo(nil), r.routes...) // Return a copy
}

// GetRoutesByController returns routes filtered by controller name
func (r *InMemoryRouteRegistry) GetRoutesByController(controllerName string) []RouteInfo {
	return r.filter(func(route RouteInfo) bool {
		return route.ControllerName == controllerName
	})
}

// GetRoutesByMethod returns routes filtered by HTTP method
func (r *InMemoryRouteRegistry) GetRoutesByMethod(method string) []RouteInfo {
	return r.filter(func(route RouteInfo) bool {
		return route.Method == method
	})
}

// Lookup finds a route with the same method and path shape
func (r *InMemoryRouteRegistry) Lookup(method string, path WynkPath) (RouteInfo, bool) {
	shape := path.Shape()
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, route := range r.routes {
		if route.Method == method && route.Path.Shape() == shape {
			return route, true
		}
	}
	return RouteInfo{}, false
}

// RegisterRoute adds a route to the registry
func (r *InMemoryRouteRegistry) RegisterRoute(route RouteInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route)
}

func (r *InMemoryRouteRegistry) filter(keep func(RouteInfo) bool) []RouteInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var filtered []RouteInfo
	for _, route := range r.routes {
		if keep(route) {
			filtered = append(filtered, route)
		}
	}
	return filtered
}

// SortRoutes orders routes by path, then method, for stable display
func SortRoutes(routes []RouteInfo) []RouteInfo {
	sorted := append([]RouteInfo(nil), routes...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Path != sorted[j].Path {
			return sorted[i].Path < sorted[j].Path
		}
		return sorted[i].Method < sorted[j].Method
	})
	return sorted
}
