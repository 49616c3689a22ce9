package permissions

import (
	"encoding/json"
	"strings"

	"github.com/kirosamy12/otrade-backend/internal/domain/enums"
)

// GrantSet is the canonical module -> allowed-actions mapping produced by
// normalization. The stored wire shapes never reach the evaluator.
type GrantSet map[string]map[enums.Action]struct{}

func (g GrantSet) Allows(module string, action enums.Action) bool {
	actions, ok := g[module]
	if !ok {
		return false
	}
	_, ok = actions[action]
	return ok
}

// NormalizeGrants accepts both stored grant shapes: the usual ordered list of
// partial maps ([{"courses":["view"]},{"courses":["create"]}]) where a module
// may appear in several entries and any entry counts, and the older single-map
// shape ({"courses":["view","create"]}). Anything malformed collapses to an
// empty set; absence of data is absence of permission.
func NormalizeGrants(raw []byte) GrantSet {
	grants := GrantSet{}
	if len(raw) == 0 {
		return grants
	}

	var entries []map[string][]string
	if err := json.Unmarshal(raw, &entries); err == nil {
		for _, entry := range entries {
			mergeEntry(grants, entry)
		}
		return grants
	}

	var single map[string][]string
	if err := json.Unmarshal(raw, &single); err == nil {
		mergeEntry(grants, single)
	}
	return grants
}

func mergeEntry(grants GrantSet, entry map[string][]string) {
	for module, actions := range entry {
		module = strings.ToLower(strings.TrimSpace(module))
		if module == "" {
			continue
		}
		for _, raw := range actions {
			action := enums.Action(strings.ToLower(strings.TrimSpace(raw)))
			switch action {
			case enums.ActionView, enums.ActionCreate, enums.ActionUpdate, enums.ActionDelete:
			default:
				continue
			}
			if grants[module] == nil {
				grants[module] = map[enums.Action]struct{}{}
			}
			grants[module][action] = struct{}{}
		}
	}
}

// CanPerform is the single gate for admin-mutating operations. Super admins
// bypass grant evaluation entirely; regular users never pass. It never fails:
// malformed grant data evaluates to no access.
func CanPerform(role enums.Role, rawGrants []byte, module string, action enums.Action) bool {
	switch role {
	case enums.RoleSuperAdmin:
		return true
	case enums.RoleAdmin:
		return NormalizeGrants(rawGrants).Allows(strings.ToLower(strings.TrimSpace(module)), action)
	default:
		return false
	}
}
