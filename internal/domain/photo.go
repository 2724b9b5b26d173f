package domain

// SizeLarge is the key of the large image variant in Photo.Sizes.
const SizeLarge = "2048"

// Photo is a dated, captioned image published by the upstream photo-of-the-day service.
type Photo struct {
	Title        string
	PublishDate  string
	Photographer string
	Description  string
	PageURL      string
	ImageURL     string
	Sizes        map[string]string // Sized variants keyed by size name, may be nil
}

// LargeURL returns the large variant URL, or "" when the photo has none.
func (p *Photo) LargeURL() string {
	if p.Sizes == nil {
		return ""
	}
	return p.Sizes[SizeLarge]
}
