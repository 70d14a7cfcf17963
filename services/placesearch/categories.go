package placesearch

import (
	"fmt"
	"strings"
)

// Category selects which kind of places a capability looks for.
type Category string

const (
	Attractions    Category = "attractions"
	Restaurants    Category = "restaurants"
	Activities     Category = "activities"
	Transportation Category = "transportation"
)

type categoryEntry struct {
	primary   string
	secondary string
	label     string
	tool      string
	describe  string
}

var categoryTable = map[Category]categoryEntry{
	Attractions: {
		primary:   "top tourist attractions near %s",
		secondary: "top attractive places in and around %s",
		label:     "Attractions",
		tool:      "search_attractions",
		describe:  "Search for the top tourist attractions of a place.",
	},
	Restaurants: {
		primary:   "restaurants and eateries in %s",
		secondary: "what are the top 10 restaurants and eateries in and around %s.",
		label:     "Restaurants",
		tool:      "search_restaurants",
		describe:  "Search for restaurants and eateries in a place.",
	},
	Activities: {
		primary:   "popular activities and things to do in %s",
		secondary: "activities in and around %s",
		label:     "Activities",
		tool:      "search_activities",
		describe:  "Search for popular activities and things to do in a place.",
	},
	Transportation: {
		primary:   "transportation options in %s",
		secondary: "What are the different modes of transportations available in %s",
		label:     "Transportation options",
		tool:      "search_transportation",
		describe:  "Search for the transportation options available in a place.",
	},
}

// Categories returns every category in a stable order.
func Categories() []Category {
	return []Category{Attractions, Restaurants, Activities, Transportation}
}

// ParseCategory converts s to a Category, ignoring case and surrounding space.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := categoryTable[c]; !ok {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := categoryTable[c]
	return ok
}

// Label is the human readable heading used in primary results.
func (c Category) Label() string {
	return categoryTable[c].label
}

// PrimaryQuery renders the OpenStreetMap query for place. The place is used as given.
func PrimaryQuery(c Category, place string) string {
	entry, ok := categoryTable[c]
	if !ok {
		return ""
	}
	return fmt.Sprintf(entry.primary, place)
}

// SecondaryQuery renders the answer-search query for place.
func SecondaryQuery(c Category, place string) string {
	entry, ok := categoryTable[c]
	if !ok {
		return ""
	}
	return fmt.Sprintf(entry.secondary, place)
}
