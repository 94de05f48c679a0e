package entity

import (
	"time"

	"github.com/google/uuid"
)

// DefaultServiceRadiusKm applies when a provider has not configured a radius.
const DefaultServiceRadiusKm = 10.0

// Provider is a field worker that can be matched to jobs
type Provider struct {
	ID                uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Name              string     `json:"name" gorm:"type:varchar(255);not null"`
	Phone             string     `json:"phone" gorm:"type:varchar(32)"`
	AvatarURL         string     `json:"avatar_url" gorm:"type:varchar(1024)"`
	Category          string     `json:"category" gorm:"type:varchar(64);not null;index"`
	Rating            float64    `json:"rating" gorm:"not null;default:0"`
	CompletedJobs     int        `json:"completed_jobs" gorm:"not null;default:0"`
	Verified          bool       `json:"verified" gorm:"not null;default:false;index"`
	Available         bool       `json:"available" gorm:"not null;default:false;index"`
	ServiceRadiusKm   float64    `json:"service_radius_km" gorm:"not null;default:10"`
	Latitude          *float64   `json:"latitude,omitempty"`
	Longitude         *float64   `json:"longitude,omitempty"`
	LocationUpdatedAt *time.Time `json:"location_updated_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at" gorm:"not null;autoCreateTime"`
	UpdatedAt         time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Provider) TableName() string { return "providers" }

// Position returns the last known fix, or false when the provider never reported one.
func (p *Provider) Position() (Position, bool) {
	if p.Latitude == nil || p.Longitude == nil {
		return Position{}, false
	}
	return Position{Latitude: *p.Latitude, Longitude: *p.Longitude}, true
}

func (p *Provider) Summary() ProviderSummary {
	return ProviderSummary{
		ID:            p.ID,
		Name:          p.Name,
		Phone:         p.Phone,
		AvatarURL:     p.AvatarURL,
		Category:      p.Category,
		Rating:        p.Rating,
		CompletedJobs: p.CompletedJobs,
		Verified:      p.Verified,
	}
}

// Client is the customer requesting a service
type Client struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null"`
	Phone     string    `json:"phone" gorm:"type:varchar(32)"`
	AvatarURL string    `json:"avatar_url" gorm:"type:varchar(1024)"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;autoCreateTime"`
}

func (Client) TableName() string { return "clients" }

func (c *Client) Summary() ClientSummary {
	return ClientSummary{ID: c.ID, Name: c.Name, Phone: c.Phone, AvatarURL: c.AvatarURL}
}
