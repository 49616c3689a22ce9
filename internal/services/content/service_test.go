package content_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/kirosamy12/otrade-backend/internal/domain/enums"
	"github.com/kirosamy12/otrade-backend/internal/domain/model"
	pgrepo "github.com/kirosamy12/otrade-backend/internal/repo/postgres"
	"github.com/kirosamy12/otrade-backend/internal/services/access"
	contentsvc "github.com/kirosamy12/otrade-backend/internal/services/content"
	planssvc "github.com/kirosamy12/otrade-backend/internal/services/plans"
)

type stubContentStore struct {
	byID map[uuid.UUID]pgrepo.ContentRecord
}

func (s *stubContentStore) Create(_ context.Context, rec pgrepo.ContentRecord) (pgrepo.ContentRecord, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	s.byID[rec.ID] = rec
	return rec, nil
}

func (s *stubContentStore) Update(_ context.Context, rec pgrepo.ContentRecord) (pgrepo.ContentRecord, error) {
	if _, ok := s.byID[rec.ID]; !ok {
		return pgrepo.ContentRecord{}, pgrepo.ErrContentNotFound
	}
	s.byID[rec.ID] = rec
	return rec, nil
}

func (s *stubContentStore) Delete(_ context.Context, contentID uuid.UUID) error {
	if _, ok := s.byID[contentID]; !ok {
		return pgrepo.ErrContentNotFound
	}
	delete(s.byID, contentID)
	return nil
}

func (s *stubContentStore) FindByID(_ context.Context, contentID uuid.UUID) (pgrepo.ContentRecord, error) {
	rec, ok := s.byID[contentID]
	if !ok {
		return pgrepo.ContentRecord{}, pgrepo.ErrContentNotFound
	}
	return rec, nil
}

func (s *stubContentStore) ListByCategory(_ context.Context, category string) ([]pgrepo.ContentRecord, error) {
	var out []pgrepo.ContentRecord
	for _, rec := range s.byID {
		if rec.Category == category {
			out = append(out, rec)
		}
	}
	return out, nil
}

type stubPlanResolver struct {
	byKey map[string]model.Plan
}

func (s *stubPlanResolver) ResolveByKey(_ context.Context, key string) (model.Plan, error) {
	plan, ok := s.byKey[key]
	if !ok {
		return model.Plan{}, planssvc.ErrNotFound
	}
	return plan, nil
}

func (s *stubPlanResolver) KeysForIDs(_ context.Context, planIDs []uuid.UUID) ([]string, error) {
	var keys []string
	for _, id := range planIDs {
		for key, plan := range s.byKey {
			if plan.ID == id {
				keys = append(keys, key)
			}
		}
	}
	return keys, nil
}

func newContentServiceForTest() (*contentsvc.Service, *stubContentStore, *stubPlanResolver) {
	store := &stubContentStore{byID: map[uuid.UUID]pgrepo.ContentRecord{}}
	plans := &stubPlanResolver{byKey: map[string]model.Plan{
		"pro":    {ID: uuid.New(), Key: "pro", Tier: enums.TierPro},
		"master": {ID: uuid.New(), Key: "master", Tier: enums.TierMaster},
		"free":   {ID: uuid.New(), Key: "free", Tier: enums.TierFree},
	}}
	return contentsvc.NewService(store, plans), store, plans
}

func proCourseInput() contentsvc.Input {
	url := "https://cdn.otrade.app/c/1.mp4"
	return contentsvc.Input{
		Category:         enums.CategoryCourses,
		RequiredPlanKeys: []string{"pro"},
		ContentURL:       &url,
		Translations: []model.Translation{
			{Language: enums.LanguageEnglish, Title: "Scalping 101", Description: "Intro", Body: "Body"},
		},
	}
}

func TestCreateRejectsEmptyRequirement(t *testing.T) {
	svc, _, _ := newContentServiceForTest()
	ctx := context.Background()

	in := proCourseInput()
	in.RequiredPlanKeys = nil
	if _, err := svc.Create(ctx, in); !errors.Is(err, contentsvc.ErrValidation) {
		t.Fatalf("empty requirement err = %v, want ErrValidation", err)
	}

	in.Unrestricted = true
	if _, err := svc.Create(ctx, in); err != nil {
		t.Fatalf("unrestricted item should be valid: %v", err)
	}
}

func TestCreateValidatesPlanKeysAndCategory(t *testing.T) {
	svc, _, _ := newContentServiceForTest()
	ctx := context.Background()

	in := proCourseInput()
	in.RequiredPlanKeys = []string{"platinum"}
	if _, err := svc.Create(ctx, in); !errors.Is(err, contentsvc.ErrValidation) {
		t.Fatalf("unknown plan key err = %v, want ErrValidation", err)
	}

	in = proCourseInput()
	in.Category = enums.ContentCategory("podcasts")
	if _, err := svc.Create(ctx, in); !errors.Is(err, contentsvc.ErrValidation) {
		t.Fatalf("unknown category err = %v, want ErrValidation", err)
	}

	in = proCourseInput()
	in.Translations = append(in.Translations, model.Translation{Language: enums.LanguageEnglish, Title: "Dup"})
	if _, err := svc.Create(ctx, in); !errors.Is(err, contentsvc.ErrValidation) {
		t.Fatalf("duplicate translation err = %v, want ErrValidation", err)
	}
}

func TestListForViewerShapesPerEntitlement(t *testing.T) {
	svc, _, _ := newContentServiceForTest()
	ctx := context.Background()

	if _, err := svc.Create(ctx, proCourseInput()); err != nil {
		t.Fatalf("create: %v", err)
	}

	locked, err := svc.ListForViewer(ctx, enums.CategoryCourses, access.Viewer{PlanKeys: []string{"free"}}, enums.LanguageEnglish)
	if err != nil {
		t.Fatalf("list for free viewer: %v", err)
	}
	if len(locked) != 1 || locked[0].Status != access.StatusLocked {
		t.Fatalf("free viewer decisions = %+v, want one LOCKED", locked)
	}

	full, err := svc.ListForViewer(ctx, enums.CategoryCourses, access.Viewer{PlanKeys: []string{"pro"}}, enums.LanguageEnglish)
	if err != nil {
		t.Fatalf("list for pro viewer: %v", err)
	}
	if len(full) != 1 || full[0].Status != access.StatusFull || full[0].Body != "Body" {
		t.Fatalf("pro viewer decisions = %+v, want one FULL with body", full)
	}
}

func TestGetForViewerResolvesPlanReferences(t *testing.T) {
	svc, store, plans := newContentServiceForTest()
	ctx := context.Background()

	// Item restricted through the reference representation only.
	masterID := plans.byKey["master"].ID
	rec, err := store.Create(ctx, pgrepo.ContentRecord{
		Category:        string(enums.CategoryWebinars),
		RequiredPlanIDs: []uuid.UUID{masterID},
		Translations: []pgrepo.TranslationRecord{
			{Language: "en", Title: "Live session"},
		},
	})
	if err != nil {
		t.Fatalf("seed record: %v", err)
	}

	d, err := svc.GetForViewer(ctx, enums.CategoryWebinars, rec.ID, access.Viewer{PlanKeys: []string{"master"}}, enums.LanguageEnglish)
	if err != nil {
		t.Fatalf("get for viewer: %v", err)
	}
	if d.Status != access.StatusFull {
		t.Fatalf("status = %s, want FULL via resolved plan reference", d.Status)
	}

	if _, err := svc.GetForViewer(ctx, enums.CategoryCourses, rec.ID, access.Viewer{}, enums.LanguageEnglish); !errors.Is(err, contentsvc.ErrNotFound) {
		t.Fatalf("category mismatch err = %v, want ErrNotFound", err)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	svc, _, _ := newContentServiceForTest()
	ctx := context.Background()

	created, err := svc.Create(ctx, proCourseInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	in := proCourseInput()
	in.RequiredPlanKeys = []string{"master"}
	updated, err := svc.Update(ctx, created.ID, in)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(updated.RequiredPlanKeys) != 1 || updated.RequiredPlanKeys[0] != "master" {
		t.Fatalf("required keys = %v, want [master]", updated.RequiredPlanKeys)
	}

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.FindByID(ctx, created.ID); !errors.Is(err, contentsvc.ErrNotFound) {
		t.Fatalf("deleted item err = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, created.ID); !errors.Is(err, contentsvc.ErrNotFound) {
		t.Fatalf("double delete err = %v, want ErrNotFound", err)
	}
}
