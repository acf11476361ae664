package visitors

// Visit is an append-only record of a page view on the public site.
type Visit struct {
	VisitID       string `gorm:"column:visit_id;primaryKey;size:190;not null" json:"id"`
	Page          string `gorm:"column:page;size:512;not null" json:"page"`
	Referrer      string `gorm:"column:referrer;size:512;not null;default:''" json:"referrer"`
	UserAgent     string `gorm:"column:user_agent;size:512;not null;default:''" json:"userAgent"`
	SeenAtSeconds int64  `gorm:"column:seen_at_s;not null;index:idx_visits_seen" json:"seenAtSeconds"`
}

// TableName provides the explicit table binding for GORM.
func (Visit) TableName() string {
	return "visits"
}
