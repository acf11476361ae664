package deals

import (
	"errors"
	"fmt"
	"strings"
)

// Status enumerates the lifecycle of a listed transaction.
type Status string

const (
	// StatusClosed marks a completed transaction.
	StatusClosed Status = "closed"
	// StatusOpen marks a transaction currently raising.
	StatusOpen Status = "open"
	// StatusUpcoming marks a transaction announced but not yet open.
	StatusUpcoming Status = "upcoming"
)

// ErrInvalidStatus indicates an unrecognized deal status value.
var ErrInvalidStatus = errors.New("deals: invalid status")

// ParseStatus validates a raw status string.
func ParseStatus(raw string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusClosed:
		return StatusClosed, nil
	case StatusOpen:
		return StatusOpen, nil
	case StatusUpcoming:
		return StatusUpcoming, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
}

// Deal captures transaction metadata listed on the site. ThesisRoute is a
// plain string identifier resolved by the rendering layer, never a relation.
type Deal struct {
	DealID           string `gorm:"column:deal_id;primaryKey;size:190;not null" json:"id"`
	Company          string `gorm:"column:company;size:320;not null;default:''" json:"company"`
	RaiseUSD         int64  `gorm:"column:raise_usd;not null;default:0" json:"raiseUsd"`
	PreMoneyUSD      int64  `gorm:"column:pre_money_usd;not null;default:0" json:"preMoneyUsd"`
	PostMoneyUSD     int64  `gorm:"column:post_money_usd;not null;default:0" json:"postMoneyUsd"`
	Status           Status `gorm:"column:status;size:32;not null;default:'upcoming'" json:"status"`
	AnnouncementURL  string `gorm:"column:announcement_url;size:512;not null;default:''" json:"announcementUrl"`
	ThesisRoute      string `gorm:"column:thesis_route;size:190;not null;default:''" json:"thesisRoute"`
	UpdatedAtSeconds int64  `gorm:"column:updated_at_s;not null;default:0" json:"updatedAtSeconds"`
}

// TableName provides the explicit table binding for GORM.
func (Deal) TableName() string {
	return "deals"
}
