package service

import (
	"slices"

	"github.com/samber/lo"
)

// Whitelist maps each supported upstream resource to its allowed endpoints.
// It is never mutated after package initialization.
var Whitelist = map[string][]string{
	"property": {"summary"},
	"suburb": {
		"amenity",
		"demographics",
		"development_applications",
		"ethnicity_by_pocket",
		"for_sale_properties",
		"list_suburbs",
		"market_insights",
		"market_insights_by_pocket",
		"market_insights_by_street",
		"risk_factors",
		"school_catchments",
		"schools",
		"similar_suburbs",
		"suburb_information",
		"summary",
		"zoning",
	},
	"avm": {"estimate"},
	"cma": {"report"},
}

// IsSupportedResource reports whether resource is a whitelist key.
func IsSupportedResource(resource string) bool {
	_, ok := Whitelist[resource]
	return ok
}

// IsSupportedEndpoint reports whether endpoint is allowed for resource.
func IsSupportedEndpoint(resource, endpoint string) bool {
	return lo.Contains(Whitelist[resource], endpoint)
}

// Resources returns a copy of the whitelist with endpoints sorted, safe for
// callers to encode or modify.
func Resources() map[string][]string {
	return lo.MapValues(Whitelist, func(endpoints []string, _ string) []string {
		sorted := slices.Clone(endpoints)
		slices.Sort(sorted)
		return sorted
	})
}
