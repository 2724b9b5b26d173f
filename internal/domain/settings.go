package domain

import "time"

// ProviderSettings holds the persisted preferences of a gallery provider.
type ProviderSettings struct {
	ProviderName string    `gorm:"type:text;primaryKey" json:"provider_name"`
	RandomMode   bool      `gorm:"not null" json:"random_mode"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name for ProviderSettings.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (ProviderSettings) TableName() string {
	return "provider_settings"
}

// Mode returns the fetch mode selected by these settings.
func (s *ProviderSettings) Mode() FetchMode {
	return ModeFor(s.RandomMode)
}
