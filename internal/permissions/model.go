package permissions

import "strings"

// DefaultGroup is the access group assumed when an admin request omits one.
const DefaultGroup = "investments"

// Entry captures a single allow-listed email within an access group.
// The composite primary key enforces at most one entry per (email, group) pair.
type Entry struct {
	Email          string `gorm:"column:email;primaryKey;size:320;not null"`
	GroupName      string `gorm:"column:group_name;primaryKey;size:64;not null"`
	AddedAtSeconds int64  `gorm:"column:added_at_s;not null;index:idx_permissions_added"`
	AddedBy        string `gorm:"column:added_by;size:190;not null;default:''"`
}

// TableName exposes the table backing permission entries.
func (Entry) TableName() string {
	return "permission_entries"
}

// NormalizeEmail lower-cases and trims an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
