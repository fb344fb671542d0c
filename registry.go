package territory

import (
	"strings"

	"github.com/paulmach/orb"
)

// Place is a named region with a canonical outline in interchange order.
type Place struct {
	Name string
	Ring orb.Ring
}

// NewPlace returns a place outlined by the bound b, given as [lng, lat].
func NewPlace(name string, b orb.Bound) Place {
	return Place{Name: name, Ring: b.ToRing()}
}

// Registry is an ordered table of place names. Lookups return the first
// entry whose name occurs in the text, in table order, so a broad name
// listed early wins over a more specific one listed later.
type Registry struct {
	places []Place
}

// NewRegistry builds a registry in the given order. Names are matched
// case-insensitively; places with an empty name or an invalid ring are
// dropped.
func NewRegistry(places ...Place) *Registry {
	r := &Registry{places: make([]Place, 0, len(places))}
	for _, p := range places {
		name := strings.ToLower(strings.TrimSpace(p.Name))
		if name == "" || !IsValidRing(p.Ring) {
			continue
		}
		r.places = append(r.places, Place{Name: name, Ring: cloneRing(p.Ring)})
	}
	return r
}

// Match returns the first place whose name is contained in text.
func (r *Registry) Match(text string) (Place, bool) {
	if r == nil {
		return Place{}, false
	}
	text = strings.ToLower(text)
	for _, p := range r.places {
		if strings.Contains(text, p.Name) {
			return Place{Name: p.Name, Ring: cloneRing(p.Ring)}, true
		}
	}
	return Place{}, false
}

// Places returns a copy of the table in lookup order.
func (r *Registry) Places() []Place {
	if r == nil {
		return nil
	}
	out := make([]Place, len(r.places))
	for i, p := range r.places {
		out[i] = Place{Name: p.Name, Ring: cloneRing(p.Ring)}
	}
	return out
}

// Len returns the number of places.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.places)
}

func bound(minLng, minLat, maxLng, maxLat float64) orb.Bound {
	return orb.Bound{Min: orb.Point{minLng, minLat}, Max: orb.Point{maxLng, maxLat}}
}

// DefaultRegion is the outline shown for projects without a usable territory.
var DefaultRegion = NewPlace("new delhi", bound(76.84, 28.40, 77.35, 28.88))

// builtinPlaces is the bundled place table. Order matters: "navi mumbai"
// can never match because "mumbai" is listed first.
var builtinPlaces = []Place{
	NewPlace("mumbai", bound(72.77, 18.89, 73.03, 19.27)),
	NewPlace("navi mumbai", bound(72.98, 18.98, 73.12, 19.20)),
	NewPlace("pune", bound(73.74, 18.43, 73.99, 18.63)),
	NewPlace("delhi", bound(76.84, 28.40, 77.35, 28.88)),
	NewPlace("bengaluru", bound(77.46, 12.83, 77.78, 13.14)),
	NewPlace("bangalore", bound(77.46, 12.83, 77.78, 13.14)),
	NewPlace("chennai", bound(80.15, 12.90, 80.32, 13.23)),
	NewPlace("kolkata", bound(88.25, 22.45, 88.45, 22.65)),
	NewPlace("hyderabad", bound(78.30, 17.30, 78.60, 17.50)),
	NewPlace("ahmedabad", bound(72.48, 22.95, 72.70, 23.12)),
	NewPlace("jaipur", bound(75.70, 26.80, 75.90, 27.00)),
	NewPlace("sundarbans", bound(88.05, 21.50, 89.10, 22.50)),
	NewPlace("kerala", bound(74.85, 8.18, 77.42, 12.79)),
	NewPlace("assam", bound(89.69, 24.13, 96.02, 28.00)),
}

// DefaultRegistry returns the bundled place table.
func DefaultRegistry() *Registry {
	return NewRegistry(builtinPlaces...)
}
