package theses

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrNotFound indicates that no document exists for the requested id.
	ErrNotFound = errors.New("theses: document not found")

	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
)

const (
	opServiceNew      = "theses.service.new"
	opGet             = "theses.get"
	opList            = "theses.list"
	opCreateOrReplace = "theses.create_or_replace"
	opUpdateField     = "theses.update_field"
	opUpdateFeatured  = "theses.update_featured"
	opDelete          = "theses.delete"
)

// Section keys that mirror a top-level scalar and receive a numbered title.
const (
	sectionKeyContact = "contact"
	sectionKeySources = "sources"
)

var numberedSectionTitles = map[string]string{
	sectionKeyContact: "Contact",
	sectionKeySources: "Sources",
}

// ServiceError carries a dotted operation code alongside the underlying cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func newServiceError(operation, reason string, cause error) error {
	return &ServiceError{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

// ServiceConfig describes the dependencies of the thesis document store.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service manages thesis documents: whole-document writes, per-field
// updates with Roman-numeral section numbering, and deletion.
type Service struct {
	db     *gorm.DB
	clock  func() time.Time
	logger *zap.Logger
}

// NewService constructs the thesis document service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{db: cfg.Database, clock: clock, logger: logger}, nil
}

// Get returns the document stored under the given id.
func (s *Service) Get(ctx context.Context, id ThesisID) (Document, error) {
	var record Record
	err := s.db.WithContext(ctx).Where("thesis_id = ?", id.String()).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		s.logError(opGet, "query_failed", err, zap.String("thesis_id", id.String()))
		return Document{}, newServiceError(opGet, "query_failed", err)
	}
	return record.toDocument()
}

// List returns every stored document ordered by id. Callers serve the
// built-in default set when the result is empty.
func (s *Service) List(ctx context.Context) ([]Document, error) {
	var records []Record
	if err := s.db.WithContext(ctx).Order("thesis_id ASC").Find(&records).Error; err != nil {
		s.logError(opList, "query_failed", err)
		return nil, newServiceError(opList, "query_failed", err)
	}
	documents := make([]Document, 0, len(records))
	for _, record := range records {
		document, err := record.toDocument()
		if err != nil {
			s.logError(opList, "decode_failed", err, zap.String("thesis_id", record.ThesisID))
			return nil, newServiceError(opList, "decode_failed", err)
		}
		documents = append(documents, document)
	}
	return documents, nil
}

// CreateOrReplace fully overwrites the document stored under the given id.
func (s *Service) CreateOrReplace(ctx context.Context, id ThesisID, document Document) error {
	document.ThesisID = id.String()
	record, err := recordFromDocument(document, s.clock().UTC().Unix())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFieldValue, err)
	}
	if err := s.db.WithContext(ctx).Save(&record).Error; err != nil {
		s.logError(opCreateOrReplace, "save_failed", err, zap.String("thesis_id", id.String()))
		return newServiceError(opCreateOrReplace, "save_failed", err)
	}
	return nil
}

// UpdateField applies a partial update to a single field. Recognized scalar
// fields assign directly; tags replace the whole sequence; contact and
// sources update both the top-level mirror and a numbered content section;
// content replaces the whole section map; any other field name is written
// verbatim into the section map without numbering. A missing document is
// initialized as an empty shell first.
func (s *Service) UpdateField(ctx context.Context, id ThesisID, field string, value json.RawMessage) (Document, error) {
	var updated Document
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		document, err := s.loadOrInit(tx, id)
		if err != nil {
			return err
		}

		if err := applyFieldUpdate(&document, field, value); err != nil {
			return err
		}

		record, err := recordFromDocument(document, s.clock().UTC().Unix())
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidFieldValue, err)
		}
		if err := tx.Save(&record).Error; err != nil {
			return newServiceError(opUpdateField, "save_failed", err)
		}
		updated = document
		return nil
	})
	if txErr != nil {
		if !errors.Is(txErr, ErrInvalidFieldValue) {
			s.logError(opUpdateField, "transaction_failed", txErr, zap.String("thesis_id", id.String()), zap.String("field", field))
		}
		return Document{}, txErr
	}
	return updated, nil
}

// UpdateFeatured toggles the featured flag without touching section
// numbering, creating an empty document shell when the id is new.
func (s *Service) UpdateFeatured(ctx context.Context, id ThesisID, featured bool) error {
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		document, err := s.loadOrInit(tx, id)
		if err != nil {
			return err
		}
		document.Featured = featured
		record, err := recordFromDocument(document, s.clock().UTC().Unix())
		if err != nil {
			return newServiceError(opUpdateFeatured, "encode_failed", err)
		}
		return tx.Save(&record).Error
	})
	if txErr != nil {
		s.logError(opUpdateFeatured, "transaction_failed", txErr, zap.String("thesis_id", id.String()))
		return newServiceError(opUpdateFeatured, "transaction_failed", txErr)
	}
	return nil
}

// Delete removes the document stored under the given id.
func (s *Service) Delete(ctx context.Context, id ThesisID) error {
	result := s.db.WithContext(ctx).Where("thesis_id = ?", id.String()).Delete(&Record{})
	if result.Error != nil {
		s.logError(opDelete, "delete_failed", result.Error, zap.String("thesis_id", id.String()))
		return newServiceError(opDelete, "delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) loadOrInit(tx *gorm.DB, id ThesisID) (Document, error) {
	var record Record
	err := tx.Where("thesis_id = ?", id.String()).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Document{
			ThesisID: id.String(),
			Tags:     []string{},
			Content:  map[string]json.RawMessage{},
		}, nil
	}
	if err != nil {
		return Document{}, newServiceError(opUpdateField, "query_failed", err)
	}
	return record.toDocument()
}

func applyFieldUpdate(document *Document, field string, value json.RawMessage) error {
	switch field {
	case "title", "industry", "publishDate", "readTime":
		text, err := decodeString(value)
		if err != nil {
			return err
		}
		switch field {
		case "title":
			document.Title = text
		case "industry":
			document.Industry = text
		case "publishDate":
			document.PublishDate = text
		case "readTime":
			document.ReadTime = text
		}
	case "tags":
		tags, err := decodeTags(value)
		if err != nil {
			return err
		}
		document.Tags = tags
	case sectionKeyContact, sectionKeySources:
		text, err := decodeString(value)
		if err != nil {
			return err
		}
		if field == sectionKeyContact {
			document.Contact = text
		} else {
			document.Sources = text
		}
		setNumberedSection(document, field, value)
	case "content":
		var sections map[string]json.RawMessage
		if err := json.Unmarshal(value, &sections); err != nil {
			return fmt.Errorf("%w: content must be a section map", ErrInvalidFieldValue)
		}
		if sections == nil {
			sections = map[string]json.RawMessage{}
		}
		document.Content = sections
	default:
		document.Content[field] = append(json.RawMessage(nil), value...)
	}
	return nil
}

// setNumberedSection writes the mirrored section, keeping an existing
// numbered title stable and otherwise assigning the next ordinal after the
// highest numeral already present in the section map.
func setNumberedSection(document *Document, key string, value json.RawMessage) {
	title := ""
	if existing, ok := document.Content[key]; ok {
		var section Section
		if err := json.Unmarshal(existing, &section); err == nil && sectionPosition(section.Title) != unrankedPosition {
			title = section.Title
		}
	}
	if title == "" {
		title = fmt.Sprintf("%s. %s", romanNumeral(nextSectionOrdinal(document.Content, key)), numberedSectionTitles[key])
	}

	section := Section{Title: title, Content: append(json.RawMessage(nil), value...)}
	encoded, err := json.Marshal(section)
	if err != nil {
		return
	}
	document.Content[key] = encoded
}

// nextSectionOrdinal scans every section except the one being written,
// extracts each title's numeral position (malformed prefixes read as 999),
// and returns max+1.
func nextSectionOrdinal(content map[string]json.RawMessage, skipKey string) int {
	highest := 0
	for key, raw := range content {
		if key == skipKey {
			continue
		}
		var section Section
		if err := json.Unmarshal(raw, &section); err != nil || section.Title == "" {
			continue
		}
		if position := sectionPosition(section.Title); position > highest {
			highest = position
		}
	}
	return highest + 1
}

func decodeString(value json.RawMessage) (string, error) {
	var text string
	if err := json.Unmarshal(value, &text); err != nil {
		return "", fmt.Errorf("%w: expected a string", ErrInvalidFieldValue)
	}
	return text, nil
}

func decodeTags(value json.RawMessage) ([]string, error) {
	var tags []string
	if err := json.Unmarshal(value, &tags); err == nil {
		if tags == nil {
			tags = []string{}
		}
		return tags, nil
	}
	var single string
	if err := json.Unmarshal(value, &single); err == nil {
		return []string{single}, nil
	}
	return nil, fmt.Errorf("%w: tags must be a string or a string sequence", ErrInvalidFieldValue)
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("thesis store error", attrs...)
}
