package permissions_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/kirosamy12/otrade-backend/internal/domain/enums"
	pgrepo "github.com/kirosamy12/otrade-backend/internal/repo/postgres"
	permsvc "github.com/kirosamy12/otrade-backend/internal/services/permissions"
)

type stubAdminStore struct {
	byID map[uuid.UUID]pgrepo.AdminRecord
	err  error
}

func (s *stubAdminStore) Create(_ context.Context, rec pgrepo.AdminRecord) (pgrepo.AdminRecord, error) {
	if s.err != nil {
		return pgrepo.AdminRecord{}, s.err
	}
	rec.ID = uuid.New()
	s.byID[rec.ID] = rec
	return rec, nil
}

func (s *stubAdminStore) FindByID(_ context.Context, adminID uuid.UUID) (pgrepo.AdminRecord, error) {
	if s.err != nil {
		return pgrepo.AdminRecord{}, s.err
	}
	rec, ok := s.byID[adminID]
	if !ok {
		return pgrepo.AdminRecord{}, pgrepo.ErrAdminNotFound
	}
	return rec, nil
}

func (s *stubAdminStore) UpdateGrants(_ context.Context, adminID uuid.UUID, rawGrants []byte) (pgrepo.AdminRecord, error) {
	rec, ok := s.byID[adminID]
	if !ok {
		return pgrepo.AdminRecord{}, pgrepo.ErrAdminNotFound
	}
	rec.RawGrants = rawGrants
	s.byID[adminID] = rec
	return rec, nil
}

func (s *stubAdminStore) List(_ context.Context) ([]pgrepo.AdminRecord, error) {
	out := make([]pgrepo.AdminRecord, 0, len(s.byID))
	for _, rec := range s.byID {
		out = append(out, rec)
	}
	return out, nil
}

func TestCanActorPerformLoadsStoredGrants(t *testing.T) {
	store := &stubAdminStore{byID: map[uuid.UUID]pgrepo.AdminRecord{}}
	adminID := uuid.New()
	store.byID[adminID] = pgrepo.AdminRecord{
		ID:        adminID,
		Role:      "admin",
		RawGrants: []byte(`[{"courses":["view","create"]}]`),
	}
	svc := permsvc.NewService(store)
	ctx := context.Background()

	ok, err := svc.CanActorPerform(ctx, adminID.String(), enums.RoleAdmin, "courses", enums.ActionCreate)
	if err != nil || !ok {
		t.Fatalf("granted action denied: ok=%v err=%v", ok, err)
	}

	ok, err = svc.CanActorPerform(ctx, adminID.String(), enums.RoleAdmin, "plans", enums.ActionCreate)
	if err != nil || ok {
		t.Fatalf("ungranted module allowed: ok=%v err=%v", ok, err)
	}
}

func TestCanActorPerformDegradesToDenied(t *testing.T) {
	store := &stubAdminStore{byID: map[uuid.UUID]pgrepo.AdminRecord{}}
	svc := permsvc.NewService(store)
	ctx := context.Background()

	// Unknown admin id and unparseable id both fail closed without error.
	if ok, err := svc.CanActorPerform(ctx, uuid.NewString(), enums.RoleAdmin, "courses", enums.ActionView); ok || err != nil {
		t.Fatalf("missing admin: ok=%v err=%v", ok, err)
	}
	if ok, err := svc.CanActorPerform(ctx, "not-a-uuid", enums.RoleAdmin, "courses", enums.ActionView); ok || err != nil {
		t.Fatalf("bad actor id: ok=%v err=%v", ok, err)
	}

	// Super admin short-circuits before any store access.
	store.err = errors.New("store down")
	if ok, err := svc.CanActorPerform(ctx, uuid.NewString(), enums.RoleSuperAdmin, "courses", enums.ActionDelete); !ok || err != nil {
		t.Fatalf("super admin: ok=%v err=%v", ok, err)
	}
}

func TestUpdateAdminGrantsRequiresSuperAdmin(t *testing.T) {
	store := &stubAdminStore{byID: map[uuid.UUID]pgrepo.AdminRecord{}}
	adminID := uuid.New()
	store.byID[adminID] = pgrepo.AdminRecord{ID: adminID, Role: "admin"}
	svc := permsvc.NewService(store)
	ctx := context.Background()

	if _, err := svc.UpdateAdminGrants(ctx, enums.RoleAdmin, adminID, []byte(`[{"courses":["view"]}]`)); !errors.Is(err, permsvc.ErrForbidden) {
		t.Fatalf("admin actor err = %v, want ErrForbidden", err)
	}

	view, err := svc.UpdateAdminGrants(ctx, enums.RoleSuperAdmin, adminID, []byte(`[{"courses":["view"]}]`))
	if err != nil {
		t.Fatalf("super admin update: %v", err)
	}
	if !view.Grants.Allows("courses", enums.ActionView) {
		t.Fatalf("updated grants not reflected: %v", view.Grants)
	}

	if _, err := svc.UpdateAdminGrants(ctx, enums.RoleSuperAdmin, adminID, []byte(`[{"nope":["view"]}]`)); !errors.Is(err, permsvc.ErrValidation) {
		t.Fatalf("unknown module err = %v, want ErrValidation", err)
	}
	if _, err := svc.UpdateAdminGrants(ctx, enums.RoleSuperAdmin, uuid.New(), []byte(`[]`)); !errors.Is(err, permsvc.ErrAdminNotFound) {
		t.Fatalf("missing admin err = %v, want ErrAdminNotFound", err)
	}
}

func TestCreateAdminValidation(t *testing.T) {
	store := &stubAdminStore{byID: map[uuid.UUID]pgrepo.AdminRecord{}}
	svc := permsvc.NewService(store)
	ctx := context.Background()

	if _, err := svc.CreateAdmin(ctx, enums.RoleAdmin, "a@b.c", "password123", "", nil); !errors.Is(err, permsvc.ErrForbidden) {
		t.Fatalf("non-super actor err = %v, want ErrForbidden", err)
	}
	if _, err := svc.CreateAdmin(ctx, enums.RoleSuperAdmin, "not-an-email", "password123", "", nil); !errors.Is(err, permsvc.ErrValidation) {
		t.Fatalf("bad email err = %v, want ErrValidation", err)
	}

	view, err := svc.CreateAdmin(ctx, enums.RoleSuperAdmin, "Ops@Otrade.App", "password123", "Ops", []byte(`[{"payments":["view"]}]`))
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	if view.Email != "ops@otrade.app" {
		t.Fatalf("email not normalized: %q", view.Email)
	}
	if view.Role != "admin" {
		t.Fatalf("role = %q, want admin", view.Role)
	}
}
