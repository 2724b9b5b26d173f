package domain

import "time"

// Artwork is the unit of wallpaper metadata held by a gallery provider.
type Artwork struct {
	ID            string    `gorm:"type:text;primaryKey" json:"id"`
	ProviderName  string    `gorm:"type:text;not null;index:idx_artworks_provider" json:"provider_name"`
	Title         string    `gorm:"type:text" json:"title"`
	Byline        string    `gorm:"type:text" json:"byline"`
	Attribution   string    `gorm:"type:text" json:"attribution"`
	PersistentURI string    `gorm:"type:text;not null" json:"persistent_uri"`
	Token         string    `gorm:"type:text;index:idx_artworks_token" json:"token,omitempty"`
	WebURI        string    `gorm:"type:text" json:"web_uri,omitempty"`
	StorageKey    string    `gorm:"type:text" json:"storage_key,omitempty"`
	MirrorURL     string    `gorm:"type:text" json:"mirror_url,omitempty"`
	Width         int       `json:"width,omitempty"`
	Height        int       `json:"height,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName returns the database table name for Artwork.
func (Artwork) TableName() string {
	return "artworks"
}

// NewArtworkFromPhoto maps a photo to an artwork record.
// The persistent URI prefers the large variant and falls back to the raw image URL.
// The description becomes the token, which the gallery uses to detect duplicates.
func NewArtworkFromPhoto(p *Photo) *Artwork {
	uri := p.LargeURL()
	if uri == "" {
		uri = p.ImageURL
	}
	return &Artwork{
		Title:         p.Title,
		Byline:        p.PublishDate,
		Attribution:   p.Photographer,
		PersistentURI: uri,
		Token:         p.Description,
		WebURI:        p.PageURL,
	}
}
