package theses

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const maxIdentifierLength = 190

var (
	// ErrInvalidThesisID indicates that a document identifier is empty or exceeds storage bounds.
	ErrInvalidThesisID = errors.New("theses: invalid thesis id")
	// ErrInvalidFieldValue indicates that an update value does not fit the target field.
	ErrInvalidFieldValue = errors.New("theses: invalid field value")
)

// ThesisID represents a validated thesis document identifier.
type ThesisID string

// NewThesisID validates raw input and returns a ThesisID.
func NewThesisID(rawInput string) (ThesisID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidThesisID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidThesisID, maxIdentifierLength)
	}
	return ThesisID(trimmed), nil
}

// String returns the underlying string identifier.
func (id ThesisID) String() string {
	return string(id)
}

// Section is the structured shape of a numbered content block. Generic
// section writes may store arbitrary JSON, so the content map holds raw
// messages and sections are decoded on demand.
type Section struct {
	Title   string          `json:"title"`
	Content json.RawMessage `json:"content,omitempty"`
}

// Document is the API-facing representation of a thesis document.
type Document struct {
	ThesisID    string                     `json:"id"`
	Title       string                     `json:"title"`
	Industry    string                     `json:"industry"`
	PublishDate string                     `json:"publishDate"`
	ReadTime    string                     `json:"readTime"`
	Tags        []string                   `json:"tags"`
	Content     map[string]json.RawMessage `json:"content"`
	Contact     string                     `json:"contact"`
	Sources     string                     `json:"sources"`
	Featured    bool                       `json:"featured"`
}

// Record is the persisted row backing a thesis document. Tags and the
// section map are stored as JSON text, following the payload-as-text
// convention used across the stores.
type Record struct {
	ThesisID         string `gorm:"column:thesis_id;primaryKey;size:190;not null"`
	Title            string `gorm:"column:title;size:320;not null;default:''"`
	Industry         string `gorm:"column:industry;size:190;not null;default:''"`
	PublishDate      string `gorm:"column:publish_date;size:64;not null;default:''"`
	ReadTime         string `gorm:"column:read_time;size:64;not null;default:''"`
	TagsJSON         string `gorm:"column:tags_json;type:text;not null;default:'[]'"`
	ContentJSON      string `gorm:"column:content_json;type:text;not null;default:'{}'"`
	Contact          string `gorm:"column:contact;type:text;not null;default:''"`
	Sources          string `gorm:"column:sources;type:text;not null;default:''"`
	Featured         bool   `gorm:"column:featured;not null;default:false"`
	UpdatedAtSeconds int64  `gorm:"column:updated_at_s;not null;default:0"`
}

// TableName provides the explicit table binding for GORM.
func (Record) TableName() string {
	return "thesis_documents"
}

func (r Record) toDocument() (Document, error) {
	doc := Document{
		ThesisID:    r.ThesisID,
		Title:       r.Title,
		Industry:    r.Industry,
		PublishDate: r.PublishDate,
		ReadTime:    r.ReadTime,
		Tags:        []string{},
		Content:     map[string]json.RawMessage{},
		Contact:     r.Contact,
		Sources:     r.Sources,
		Featured:    r.Featured,
	}
	if r.TagsJSON != "" {
		if err := json.Unmarshal([]byte(r.TagsJSON), &doc.Tags); err != nil {
			return Document{}, fmt.Errorf("decode tags for %s: %w", r.ThesisID, err)
		}
	}
	if r.ContentJSON != "" {
		if err := json.Unmarshal([]byte(r.ContentJSON), &doc.Content); err != nil {
			return Document{}, fmt.Errorf("decode content for %s: %w", r.ThesisID, err)
		}
	}
	return doc, nil
}

func recordFromDocument(doc Document, updatedAt int64) (Record, error) {
	tags := doc.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return Record{}, fmt.Errorf("encode tags for %s: %w", doc.ThesisID, err)
	}
	content := doc.Content
	if content == nil {
		content = map[string]json.RawMessage{}
	}
	contentJSON, err := json.Marshal(content)
	if err != nil {
		return Record{}, fmt.Errorf("encode content for %s: %w", doc.ThesisID, err)
	}
	return Record{
		ThesisID:         doc.ThesisID,
		Title:            doc.Title,
		Industry:         doc.Industry,
		PublishDate:      doc.PublishDate,
		ReadTime:         doc.ReadTime,
		TagsJSON:         string(tagsJSON),
		ContentJSON:      string(contentJSON),
		Contact:          doc.Contact,
		Sources:          doc.Sources,
		Featured:         doc.Featured,
		UpdatedAtSeconds: updatedAt,
	}, nil
}
