package knowledge

import (
	"sort"
	"strings"

	"github.com/Veraticus/local-guide/internal/model"
)

// Registry is the closed set of cities the application serves.
type Registry struct {
	index  map[model.City]struct{}
	cities []model.City
}

// NewRegistry builds a registry from raw names. Names are normalized and
// duplicates dropped; order is preserved.
func NewRegistry(names ...string) *Registry {
	r := &Registry{index: make(map[model.City]struct{}, len(names))}
	for _, n := range names {
		c := model.NormalizeCity(n)
		if c == "" {
			continue
		}
		if _, ok := r.index[c]; ok {
			continue
		}
		r.index[c] = struct{}{}
		r.cities = append(r.cities, c)
	}
	return r
}

// NewRegistryFromCities builds a registry from already typed cities.
func NewRegistryFromCities(cities []model.City) *Registry {
	names := make([]string, len(cities))
	for i, c := range cities {
		names[i] = string(c)
	}
	return NewRegistry(names...)
}

// Contains reports whether city is registered.
func (r *Registry) Contains(city model.City) bool {
	_, ok := r.index[model.NormalizeCity(string(city))]
	return ok
}

// Cities returns the registered cities in configuration order.
func (r *Registry) Cities() []model.City {
	out := make([]model.City, len(r.cities))
	copy(out, r.cities)
	return out
}

// Names returns the sorted city names, for error messages.
func (r *Registry) Names() string {
	names := make([]string, len(r.cities))
	for i, c := range r.cities {
		names[i] = string(c)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// Len is the number of registered cities.
func (r *Registry) Len() int {
	return len(r.cities)
}
