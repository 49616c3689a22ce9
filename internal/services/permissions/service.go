package permissions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kirosamy12/otrade-backend/internal/domain/enums"
	pgrepo "github.com/kirosamy12/otrade-backend/internal/repo/postgres"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrForbidden     = errors.New("forbidden")
	ErrAdminNotFound = errors.New("admin not found")
	ErrEmailTaken    = errors.New("email already registered")
)

type AdminStore interface {
	Create(ctx context.Context, rec pgrepo.AdminRecord) (pgrepo.AdminRecord, error)
	FindByID(ctx context.Context, adminID uuid.UUID) (pgrepo.AdminRecord, error)
	UpdateGrants(ctx context.Context, adminID uuid.UUID, rawGrants []byte) (pgrepo.AdminRecord, error)
	List(ctx context.Context) ([]pgrepo.AdminRecord, error)
}

type AdminView struct {
	ID     uuid.UUID
	Email  string
	Name   string
	Role   string
	Grants GrantSet
}

type Service struct {
	admins AdminStore
}

func NewService(admins AdminStore) *Service {
	return &Service{admins: admins}
}

// CanActorPerform loads the actor's stored grants and evaluates the gate.
// Missing admins and malformed grants evaluate to false; only a store failure
// is surfaced as an error.
func (s *Service) CanActorPerform(ctx context.Context, actorID string, role enums.Role, module string, action enums.Action) (bool, error) {
	switch role {
	case enums.RoleSuperAdmin:
		return true, nil
	case enums.RoleAdmin:
	default:
		return false, nil
	}

	adminID, err := uuid.Parse(actorID)
	if err != nil {
		return false, nil
	}

	rec, err := s.admins.FindByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrAdminNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load admin grants: %w", err)
	}

	return CanPerform(enums.Role(rec.Role), rec.RawGrants, module, action), nil
}

func (s *Service) CreateAdmin(ctx context.Context, actorRole enums.Role, email, password, name string, rawGrants []byte) (AdminView, error) {
	if actorRole != enums.RoleSuperAdmin {
		return AdminView{}, ErrForbidden
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return AdminView{}, fmt.Errorf("%w: malformed email", ErrValidation)
	}
	if len(password) < 8 {
		return AdminView{}, fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}
	if err := validateGrantPayload(rawGrants); err != nil {
		return AdminView{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return AdminView{}, fmt.Errorf("hash password: %w", err)
	}

	rec, err := s.admins.Create(ctx, pgrepo.AdminRecord{
		Email:        email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(name),
		Role:         string(enums.RoleAdmin),
		RawGrants:    rawGrants,
	})
	if err != nil {
		if errors.Is(err, pgrepo.ErrAdminEmailTaken) {
			return AdminView{}, ErrEmailTaken
		}
		return AdminView{}, fmt.Errorf("create admin: %w", err)
	}

	return mapAdmin(rec), nil
}

// UpdateAdminGrants replaces an admin's grant set. Super admin only; the
// payload must be one of the two accepted wire shapes and reference only
// cataloged modules and actions.
func (s *Service) UpdateAdminGrants(ctx context.Context, actorRole enums.Role, adminID uuid.UUID, rawGrants []byte) (AdminView, error) {
	if actorRole != enums.RoleSuperAdmin {
		return AdminView{}, ErrForbidden
	}
	if adminID == uuid.Nil {
		return AdminView{}, fmt.Errorf("%w: admin id is required", ErrValidation)
	}
	if err := validateGrantPayload(rawGrants); err != nil {
		return AdminView{}, err
	}

	rec, err := s.admins.UpdateGrants(ctx, adminID, rawGrants)
	if err != nil {
		if errors.Is(err, pgrepo.ErrAdminNotFound) {
			return AdminView{}, ErrAdminNotFound
		}
		return AdminView{}, fmt.Errorf("update admin grants: %w", err)
	}

	return mapAdmin(rec), nil
}

func (s *Service) ListAdmins(ctx context.Context, actorRole enums.Role) ([]AdminView, error) {
	if actorRole != enums.RoleSuperAdmin {
		return nil, ErrForbidden
	}

	recs, err := s.admins.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}

	views := make([]AdminView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, mapAdmin(rec))
	}
	return views, nil
}

func mapAdmin(rec pgrepo.AdminRecord) AdminView {
	return AdminView{
		ID:     rec.ID,
		Email:  rec.Email,
		Name:   rec.Name,
		Role:   rec.Role,
		Grants: NormalizeGrants(rec.RawGrants),
	}
}

// validateGrantPayload is the strict write-side counterpart of
// NormalizeGrants: reads stay permissive, writes reject unknown modules and
// actions so typos do not silently become dead grants.
func validateGrantPayload(raw []byte) error {
	if len(raw) == 0 {
		return nil
	}

	var entries []map[string][]string
	if err := json.Unmarshal(raw, &entries); err != nil {
		var single map[string][]string
		if err := json.Unmarshal(raw, &single); err != nil {
			return fmt.Errorf("%w: grants must be a list of module maps or a single module map", ErrValidation)
		}
		entries = []map[string][]string{single}
	}

	for _, entry := range entries {
		for module, actions := range entry {
			module = strings.ToLower(strings.TrimSpace(module))
			if !knownModule(module) {
				return fmt.Errorf("%w: unknown module %q", ErrValidation, module)
			}
			for _, raw := range actions {
				switch enums.Action(strings.ToLower(strings.TrimSpace(raw))) {
				case enums.ActionView, enums.ActionCreate, enums.ActionUpdate, enums.ActionDelete:
				default:
					return fmt.Errorf("%w: unknown action %q for module %q", ErrValidation, raw, module)
				}
			}
		}
	}
	return nil
}
