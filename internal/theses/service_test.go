package theses

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	service, err := NewService(ServiceConfig{
		Database: db,
		Clock:    func() time.Time { return time.Unix(1_700_000_000, 0) },
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return service
}

func mustID(t *testing.T, raw string) ThesisID {
	t.Helper()
	id, err := NewThesisID(raw)
	if err != nil {
		t.Fatalf("failed to build thesis id: %v", err)
	}
	return id
}

func decodeSection(t *testing.T, raw json.RawMessage) Section {
	t.Helper()
	var section Section
	if err := json.Unmarshal(raw, &section); err != nil {
		t.Fatalf("failed to decode section: %v", err)
	}
	return section
}

func TestUpdateFieldTagsRoundTrip(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()
	id := mustID(t, "vertical-saas")

	if _, err := service.UpdateField(ctx, id, "tags", json.RawMessage(`["a","b"]`)); err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}

	document, err := service.Get(ctx, id)
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if len(document.Tags) != 2 || document.Tags[0] != "a" || document.Tags[1] != "b" {
		t.Fatalf("unexpected tags %v", document.Tags)
	}
}

func TestUpdateFieldWrapsBareScalarTag(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()
	id := mustID(t, "vertical-saas")

	if _, err := service.UpdateField(ctx, id, "tags", json.RawMessage(`"solo"`)); err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}
	document, err := service.Get(ctx, id)
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if len(document.Tags) != 1 || document.Tags[0] != "solo" {
		t.Fatalf("expected wrapped scalar tag, got %v", document.Tags)
	}
}

func TestUpdateFieldScalarAssignsDirectly(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()
	id := mustID(t, "vertical-saas")

	if _, err := service.UpdateField(ctx, id, "title", json.RawMessage(`"Vertical SaaS"`)); err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}
	if _, err := service.UpdateField(ctx, id, "readTime", json.RawMessage(`"7 min"`)); err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}

	document, err := service.Get(ctx, id)
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if document.Title != "Vertical SaaS" || document.ReadTime != "7 min" {
		t.Fatalf("unexpected document %+v", document)
	}

	if _, err := service.UpdateField(ctx, id, "title", json.RawMessage(`42`)); !errors.Is(err, ErrInvalidFieldValue) {
		t.Fatalf("expected ErrInvalidFieldValue for non-string title, got %v", err)
	}
}

func TestUpdateFieldAssignsNextRomanNumeral(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()
	id := mustID(t, "vertical-saas")

	content := map[string]json.RawMessage{
		"summary":    mustSection("I. Executive Summary", "body"),
		"conclusion": mustSection("II. Conclusion", "body"),
	}
	encoded, err := json.Marshal(content)
	if err != nil {
		t.Fatalf("failed to encode content: %v", err)
	}
	if _, err := service.UpdateField(ctx, id, "content", encoded); err != nil {
		t.Fatalf("unexpected content update error: %v", err)
	}

	document, err := service.UpdateField(ctx, id, "sources", json.RawMessage(`"Operator interviews"`))
	if err != nil {
		t.Fatalf("unexpected sources update error: %v", err)
	}

	if document.Sources != "Operator interviews" {
		t.Fatalf("expected top-level mirror to be set, got %q", document.Sources)
	}
	section := decodeSection(t, document.Content["sources"])
	if section.Title != "III. Sources" {
		t.Fatalf("expected title %q, got %q", "III. Sources", section.Title)
	}
}

func TestUpdateFieldKeepsExistingSectionNumber(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()
	id := mustID(t, "vertical-saas")

	content := map[string]json.RawMessage{
		"summary": mustSection("I. Executive Summary", "body"),
	}
	encoded, err := json.Marshal(content)
	if err != nil {
		t.Fatalf("failed to encode content: %v", err)
	}
	if _, err := service.UpdateField(ctx, id, "content", encoded); err != nil {
		t.Fatalf("unexpected content update error: %v", err)
	}

	if _, err := service.UpdateField(ctx, id, "sources", json.RawMessage(`"first"`)); err != nil {
		t.Fatalf("unexpected first sources update: %v", err)
	}
	document, err := service.UpdateField(ctx, id, "sources", json.RawMessage(`"second"`))
	if err != nil {
		t.Fatalf("unexpected second sources update: %v", err)
	}

	section := decodeSection(t, document.Content["sources"])
	if section.Title != "II. Sources" {
		t.Fatalf("expected stable section title %q, got %q", "II. Sources", section.Title)
	}
	var body string
	if err := json.Unmarshal(section.Content, &body); err != nil || body != "second" {
		t.Fatalf("expected refreshed section content, got %s", section.Content)
	}
}

func TestUpdateFieldTreatsMalformedPrefixAsLast(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()
	id := mustID(t, "vertical-saas")

	content := map[string]json.RawMessage{
		"summary": mustSection("Overview without numeral", "body"),
	}
	encoded, err := json.Marshal(content)
	if err != nil {
		t.Fatalf("failed to encode content: %v", err)
	}
	if _, err := service.UpdateField(ctx, id, "content", encoded); err != nil {
		t.Fatalf("unexpected content update error: %v", err)
	}

	document, err := service.UpdateField(ctx, id, "contact", json.RawMessage(`"hello@example.com"`))
	if err != nil {
		t.Fatalf("unexpected contact update error: %v", err)
	}
	section := decodeSection(t, document.Content["contact"])
	if section.Title != "M. Contact" {
		t.Fatalf("expected malformed prefixes to rank 999 and yield %q, got %q", "M. Contact", section.Title)
	}
}

func TestUpdateFieldGenericSectionWrittenVerbatim(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()
	id := mustID(t, "vertical-saas")

	raw := json.RawMessage(`{"title":"Thesis Risks","content":"execution risk"}`)
	document, err := service.UpdateField(ctx, id, "risks", raw)
	if err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}
	if string(document.Content["risks"]) != string(raw) {
		t.Fatalf("expected verbatim section write, got %s", document.Content["risks"])
	}
}

func TestUpdateFieldInitializesMissingDocument(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()
	id := mustID(t, "fresh-doc")

	document, err := service.UpdateField(ctx, id, "industry", json.RawMessage(`"Energy"`))
	if err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}
	if document.ThesisID != "fresh-doc" || document.Industry != "Energy" {
		t.Fatalf("unexpected document %+v", document)
	}
	if document.Content == nil || len(document.Content) != 0 {
		t.Fatalf("expected empty content shell, got %v", document.Content)
	}
}

func TestUpdateFeaturedBypassesNumbering(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()
	id := mustID(t, "featured-doc")

	if err := service.UpdateFeatured(ctx, id, true); err != nil {
		t.Fatalf("unexpected featured update error: %v", err)
	}
	document, err := service.Get(ctx, id)
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if !document.Featured {
		t.Fatalf("expected featured flag to be set")
	}
	if len(document.Content) != 0 {
		t.Fatalf("expected no sections to be created, got %v", document.Content)
	}

	if err := service.UpdateFeatured(ctx, id, false); err != nil {
		t.Fatalf("unexpected featured update error: %v", err)
	}
	document, err = service.Get(ctx, id)
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if document.Featured {
		t.Fatalf("expected featured flag to be cleared")
	}
}

func TestDeleteReportsNotFound(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	if err := service.Delete(ctx, mustID(t, "ghost")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	id := mustID(t, "short-lived")
	if _, err := service.UpdateField(ctx, id, "title", json.RawMessage(`"Short"`)); err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}
	if err := service.Delete(ctx, id); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	if _, err := service.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestCreateOrReplaceOverwritesWholeDocument(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()
	id := mustID(t, "replace-me")

	if _, err := service.UpdateField(ctx, id, "title", json.RawMessage(`"Original"`)); err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}
	if _, err := service.UpdateField(ctx, id, "tags", json.RawMessage(`["old"]`)); err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}

	err := service.CreateOrReplace(ctx, id, Document{Title: "Replacement"})
	if err != nil {
		t.Fatalf("unexpected replace error: %v", err)
	}

	document, err := service.Get(ctx, id)
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if document.Title != "Replacement" {
		t.Fatalf("unexpected title %q", document.Title)
	}
	if len(document.Tags) != 0 {
		t.Fatalf("expected tags to be overwritten, got %v", document.Tags)
	}
}

func TestDefaultDocumentsCarryNumberedSections(t *testing.T) {
	documents := DefaultDocuments()
	if len(documents) == 0 {
		t.Fatalf("expected built-in default documents")
	}
	first := documents[0]
	section := decodeSection(t, first.Content["summary"])
	if sectionPosition(section.Title) != 1 {
		t.Fatalf("expected default summary to be section I, got %q", section.Title)
	}
}
