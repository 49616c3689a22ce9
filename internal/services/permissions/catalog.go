package permissions

import "github.com/kirosamy12/otrade-backend/internal/domain/enums"

// CatalogEntry describes one grantable module and the actions it supports.
// The catalog is reference data for the admin UI, not state.
type CatalogEntry struct {
	Module  string
	Actions []enums.Action
}

var catalogModules = []string{
	"courses",
	"strategies",
	"analyses",
	"webinars",
	"psychology",
	"plans",
	"admins",
	"users",
	"payments",
}

// Catalog returns a fresh copy on every call so callers cannot mutate the
// shared definition.
func Catalog() []CatalogEntry {
	entries := make([]CatalogEntry, 0, len(catalogModules))
	for _, module := range catalogModules {
		entries = append(entries, CatalogEntry{
			Module:  module,
			Actions: enums.Actions(),
		})
	}
	return entries
}

func knownModule(module string) bool {
	for _, m := range catalogModules {
		if m == module {
			return true
		}
	}
	return false
}
