package reports

import (
	"strings"
	"time"

	"github.com/urbanize/urbanize-backend/internal/apperr"
)

type Category string

const (
	Pothole      Category = "pothole"
	Construction Category = "construction"
	ParkIdea     Category = "park-idea"
	Traffic      Category = "traffic"
)

type Priority string

const (
	Low    Priority = "low"
	Medium Priority = "medium"
	High   Priority = "high"
)

// StatusPending is assigned to reports submitted without a status.
const StatusPending = "pending"

// Report is a citizen submission pinned to a map location.
type Report struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	UserID      string    `gorm:"index" json:"userId"`
	UserEmail   string    `json:"userEmail"`
	Category    Category  `gorm:"type:text" json:"category"`
	Description string    `json:"description"`
	Priority    Priority  `gorm:"type:text" json:"priority"`
	Longitude   float64   `json:"longitude"`
	Latitude    float64   `json:"latitude"`
	Status      string    `gorm:"default:pending" json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (Report) TableName() string {
	return "urbanize.reports"
}

// NewReport is the submission body: a Report without id and createdAt.
type NewReport struct {
	UserID      string   `json:"userId"`
	UserEmail   string   `json:"userEmail"`
	Category    Category `json:"category"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	Longitude   *float64 `json:"longitude"`
	Latitude    *float64 `json:"latitude"`
	Status      string   `json:"status,omitempty"`
}

// Validate checks every field and returns the first ValidationError.
func (n NewReport) Validate() error {
	switch n.Category {
	case Pothole, Construction, ParkIdea, Traffic:
	default:
		return apperr.Invalid("category", "must be one of pothole, construction, park-idea, traffic")
	}
	switch n.Priority {
	case Low, Medium, High:
	default:
		return apperr.Invalid("priority", "must be one of low, medium, high")
	}
	if strings.TrimSpace(n.Description) == "" {
		return apperr.Invalid("description", "is required")
	}
	if n.Latitude == nil || *n.Latitude < -90 || *n.Latitude > 90 {
		return apperr.Invalid("latitude", "must be between -90 and 90")
	}
	if n.Longitude == nil || *n.Longitude < -180 || *n.Longitude > 180 {
		return apperr.Invalid("longitude", "must be between -180 and 180")
	}
	return nil
}

// build turns a validated submission into a Report with the given identity.
func (n NewReport) build(id string, now time.Time) Report {
	status := n.Status
	if status == "" {
		status = StatusPending
	}
	return Report{
		ID:          id,
		UserID:      n.UserID,
		UserEmail:   n.UserEmail,
		Category:    n.Category,
		Description: strings.TrimSpace(n.Description),
		Priority:    n.Priority,
		Longitude:   *n.Longitude,
		Latitude:    *n.Latitude,
		Status:      status,
		CreatedAt:   now.UTC(),
	}
}
