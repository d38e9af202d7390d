// Package querygen generates intent-classified search queries from a
// business profile. These queries are what the visibility probes ask each AI
// assistant.
package querygen

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultMaxQueries caps generated queries per business.
const DefaultMaxQueries = 25

// Query is a generated probe query with its commercial intent.
type Query struct {
	Text          string `json:"query"`
	IntentType    string `json:"intent_type"`
	IntentValue   int    `json:"intent_value"`
	CategoryFocus string `json:"category_focus"`
}

// Profile is the subset of a business profile query generation needs.
type Profile struct {
	Name         string
	Categories   []string
	Regions      []string
	BusinessType string
}

var useCasesByIndustry = map[string][]string{
	"industrial packaging": {
		"warehouses", "distribution centers", "manufacturing plants",
		"school districts", "janitorial services", "hospitals",
		"food service", "retail stores", "government facilities",
	},
	"industrial supplies": {
		"warehouses", "factories", "construction sites",
		"maintenance departments", "facilities management",
	},
	"roofing": {
		"residential homes", "commercial buildings", "storm damage",
		"new construction", "roof replacement",
	},
	"plumbing": {
		"residential", "commercial", "emergency repairs",
		"new construction", "remodeling",
	},
	"hvac": {
		"residential homes", "commercial buildings", "offices",
		"restaurants", "warehouses",
	},
}

var defaultUseCases = []string{"businesses", "companies", "organizations", "enterprises"}

var productsByCategory = map[string][]string{
	"industrial packaging": {
		"trash can liners", "garbage bags", "stretch film",
		"pallet wrap", "bubble wrap", "packing tape",
		"55 gallon liners", "heavy duty trash bags",
		"janitorial supplies", "can liners",
	},
	"industrial supplies": {
		"safety equipment", "cleaning supplies", "tools",
		"maintenance supplies", "facility supplies",
	},
	"roofing": {
		"shingle installation", "metal roofing", "flat roof repair",
		"roof inspection", "storm damage repair", "gutter installation",
	},
	"plumbing": {
		"pipe repair", "water heater installation", "drain cleaning",
		"leak detection", "sewer line repair",
	},
	"hvac": {
		"ac installation", "furnace repair", "duct cleaning",
		"hvac maintenance", "thermostat installation",
	},
}

var defaultProducts = []string{"services", "products", "solutions"}

// UseCasesForCategory returns relevant buyer use cases for a category.
func UseCasesForCategory(category string) []string {
	lower := strings.ToLower(category)
	for key, useCases := range useCasesByIndustry {
		if strings.Contains(lower, key) || strings.Contains(key, lower) {
			return useCases
		}
	}
	return defaultUseCases
}

// ProductsForCategory returns specific product/service types for a category.
func ProductsForCategory(category string) []string {
	lower := strings.ToLower(category)
	for key, products := range productsByCategory {
		if strings.Contains(lower, key) || strings.Contains(key, lower) {
			return products
		}
	}
	return defaultProducts
}

type builder struct {
	queries []Query
	seen    map[string]bool
	max     int
}

func (b *builder) add(text, intentType string, intentValue int, category string) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if b.seen[normalized] || len(b.queries) >= b.max {
		return
	}
	b.seen[normalized] = true
	b.queries = append(b.queries, Query{
		Text:          text,
		IntentType:    intentType,
		IntentValue:   intentValue,
		CategoryFocus: category,
	})
}

// Generate produces up to max intent-classified queries for a profile,
// sorted by descending intent value. Duplicate queries (case-insensitive)
// are suppressed.
func Generate(p Profile, max int) []Query {
	if max <= 0 {
		max = DefaultMaxQueries
	}

	regions := p.Regions
	if len(regions) == 0 {
		regions = []string{"United States"}
	}
	primaryRegion := regions[0]
	if len(regions) > 3 {
		regions = regions[:3]
	}

	categories := p.Categories
	if len(categories) == 0 {
		categories = []string{"services"}
	}
	primaryCategory := categories[0]
	if len(categories) > 3 {
		categories = categories[:3]
	}

	useCases := UseCasesForCategory(primaryCategory)
	products := ProductsForCategory(primaryCategory)

	b := &builder{seen: make(map[string]bool), max: max}

	switch p.BusinessType {
	case "ecom":
		for _, category := range categories {
			for _, region := range firstN(regions, 2) {
				b.add(fmt.Sprintf("best place to buy %s online", category), "transactional", 8, category)
				b.add(fmt.Sprintf("bulk %s supplier for businesses", category), "high_ticket", 9, category)
				b.add(fmt.Sprintf("wholesale %s distributor", category), "high_ticket", 9, category)
				b.add(fmt.Sprintf("where to order %s online", category), "transactional", 8, category)
				b.add(fmt.Sprintf("%s supplier in %s", category, region), "informational", 6, category)
			}
			for _, useCase := range firstN(useCases, 4) {
				b.add(fmt.Sprintf("%s supplier for %s", category, useCase), "high_ticket", 9, category)
				b.add(fmt.Sprintf("bulk %s for %s", category, useCase), "high_ticket", 9, category)
			}
			for _, product := range firstN(products, 5) {
				b.add(fmt.Sprintf("where to buy %s in bulk", product), "high_ticket", 9, category)
				b.add(fmt.Sprintf("best %s supplier", product), "transactional", 8, category)
				b.add(fmt.Sprintf("%s wholesale prices", product), "transactional", 8, category)
				b.add(fmt.Sprintf("commercial %s distributor", product), "high_ticket", 9, category)
			}
		}
		b.add(fmt.Sprintf("reliable %s vendor for businesses", primaryCategory), "replenishment", 7, primaryCategory)
		b.add(fmt.Sprintf("consistent %s supplier", primaryCategory), "replenishment", 7, primaryCategory)
		b.add(fmt.Sprintf("top rated %s companies online", primaryCategory), "informational", 5, primaryCategory)
		b.add(fmt.Sprintf("compare %s suppliers", primaryCategory), "informational", 5, primaryCategory)

	case "local_service":
		for _, category := range categories {
			for _, region := range regions {
				b.add(fmt.Sprintf("best %s in %s", category, region), "informational", 6, category)
				b.add(fmt.Sprintf("%s near %s", category, region), "transactional", 8, category)
				b.add(fmt.Sprintf("top rated %s company in %s", category, region), "informational", 6, category)
				b.add(fmt.Sprintf("trusted %s contractor in %s", category, region), "transactional", 8, category)
				b.add(fmt.Sprintf("emergency %s %s", category, region), "emergency", 10, category)
				b.add(fmt.Sprintf("same day %s service %s", category, region), "emergency", 10, category)
			}
			for _, product := range firstN(products, 4) {
				b.add(fmt.Sprintf("%s in %s", product, primaryRegion), "transactional", 8, category)
				b.add(fmt.Sprintf("best %s company near %s", product, primaryRegion), "informational", 6, category)
			}
		}
		b.add(fmt.Sprintf("highly recommended %s %s", primaryCategory, primaryRegion), "informational", 6, primaryCategory)
		b.add(fmt.Sprintf("affordable %s in %s", primaryCategory, primaryRegion), "transactional", 7, primaryCategory)
		b.add(fmt.Sprintf("24 hour %s in %s", primaryCategory, primaryRegion), "emergency", 10, primaryCategory)

	case "b2b_service":
		for _, category := range categories {
			b.add(fmt.Sprintf("best %s company for businesses", category), "high_ticket", 9, category)
			b.add(fmt.Sprintf("top %s service providers", category), "informational", 6, category)
			b.add(fmt.Sprintf("enterprise %s solutions", category), "high_ticket", 9, category)
			b.add(fmt.Sprintf("professional %s services", category), "transactional", 8, category)
			for _, region := range firstN(regions, 2) {
				b.add(fmt.Sprintf("%s services in %s", category, region), "transactional", 8, category)
				b.add(fmt.Sprintf("business %s provider %s", category, region), "transactional", 8, category)
			}
			for _, useCase := range firstN(useCases, 4) {
				b.add(fmt.Sprintf("%s for %s", category, useCase), "high_ticket", 9, category)
				b.add(fmt.Sprintf("%s %s solutions", useCase, category), "high_ticket", 9, category)
			}
		}
		b.add(fmt.Sprintf("scalable %s provider", primaryCategory), "high_ticket", 9, primaryCategory)
		b.add(fmt.Sprintf("reliable %s partner for companies", primaryCategory), "replenishment", 7, primaryCategory)

	default:
		for _, category := range categories {
			for _, region := range regions {
				b.add(fmt.Sprintf("best %s in %s", category, region), "informational", 6, category)
				b.add(fmt.Sprintf("top %s provider in %s", category, region), "informational", 6, category)
			}
			b.add(fmt.Sprintf("where to find %s services", category), "transactional", 7, category)
			b.add(fmt.Sprintf("recommended %s company", category), "informational", 6, category)
		}
	}

	// Stable sort keeps generation order within the same intent value.
	sort.SliceStable(b.queries, func(i, j int) bool {
		return b.queries[i].IntentValue > b.queries[j].IntentValue
	})

	if len(b.queries) > max {
		b.queries = b.queries[:max]
	}
	return b.queries
}

// Strings returns only the query texts.
func Strings(p Profile, max int) []string {
	queries := Generate(p, max)
	out := make([]string, len(queries))
	for i, q := range queries {
		out[i] = q.Text
	}
	return out
}

// IntentMap maps each generated query text to its intent metadata.
func IntentMap(p Profile, max int) map[string]Query {
	queries := Generate(p, max)
	out := make(map[string]Query, len(queries))
	for _, q := range queries {
		out[q.Text] = q
	}
	return out
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
