// Package tenants loads the bootstrap tenant registry: a JSON file mapping
// tenant IDs to analysis configuration, used by the public analyze surface
// before a business signs up.
package tenants

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"ekkoscope/internal/errors"
	"ekkoscope/internal/models"
	"ekkoscope/internal/querygen"
)

// Config is one tenant's analysis configuration.
type Config struct {
	ID              string   `json:"id"`
	DisplayName     string   `json:"display_name"`
	Domains         []string `json:"domains"`
	BrandAliases    []string `json:"brand_aliases"`
	GeoFocus        []string `json:"geo_focus"`
	PriorityQueries []string `json:"priority_queries"`
	Categories      []string `json:"categories,omitempty"`
	BusinessType    string   `json:"business_type,omitempty"`
}

// Summary is the public listing shape: ID and display name only.
type Summary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Registry holds the loaded tenants.
type Registry struct {
	tenants map[string]Config
}

// LoadFile reads and validates a tenants JSON file. A missing file yields an
// empty registry, not an error, so the API can run without demo tenants.
func LoadFile(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Registry{tenants: map[string]Config{}}, nil
		}
		return nil, fmt.Errorf("failed to read tenants file %s: %w", path, err)
	}

	var tenants map[string]Config
	if err := json.Unmarshal(raw, &tenants); err != nil {
		return nil, fmt.Errorf("failed to parse tenants file %s: %w", path, err)
	}

	for id, cfg := range tenants {
		if cfg.DisplayName == "" {
			return nil, fmt.Errorf("tenant %q has no display_name", id)
		}
		cfg.ID = id
		if len(cfg.BrandAliases) == 0 {
			cfg.BrandAliases = []string{cfg.DisplayName}
		}
		if len(cfg.GeoFocus) == 0 {
			cfg.GeoFocus = []string{"United States"}
		}
		tenants[id] = cfg
	}

	return &Registry{tenants: tenants}, nil
}

// Get returns the tenant with the given ID.
func (r *Registry) Get(id string) (Config, error) {
	cfg, ok := r.tenants[id]
	if !ok {
		return Config{}, errors.WithMessage(errors.ErrTenantNotFound, fmt.Sprintf("unknown tenant %q", id))
	}
	return cfg, nil
}

// List returns tenant summaries sorted by ID.
func (r *Registry) List() []Summary {
	summaries := make([]Summary, 0, len(r.tenants))
	for id, cfg := range r.tenants {
		summaries = append(summaries, Summary{ID: id, Name: cfg.DisplayName})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	return summaries
}

// Len returns the number of loaded tenants.
func (r *Registry) Len() int { return len(r.tenants) }

// FromBusiness derives a tenant config from a business row, generating its
// priority queries from the profile.
func FromBusiness(b *models.Business) Config {
	profile := querygen.Profile{
		Name:         b.Name,
		Categories:   b.GetCategories(),
		Regions:      b.GetRegions(),
		BusinessType: string(b.BusinessType),
	}
	queries := querygen.Strings(profile, querygen.DefaultMaxQueries)

	return Config{
		ID:              fmt.Sprintf("business_%d", b.ID),
		DisplayName:     b.Name,
		Domains:         b.AllDomains(),
		BrandAliases:    b.BrandAliases(),
		GeoFocus:        b.GeoFocus(),
		PriorityQueries: queries,
		Categories:      b.GetCategories(),
		BusinessType:    string(b.BusinessType),
	}
}
