package domain

import "testing"

func TestNewArtworkFromPhoto(t *testing.T) {
	testCases := []struct {
		name    string
		photo   Photo
		wantURI string
	}{
		{
			name: "large variant wins",
			photo: Photo{
				ImageURL: "http://x/raw.jpg",
				Sizes:    map[string]string{SizeLarge: "http://x/2048.jpg", "240": "http://x/240.jpg"},
			},
			wantURI: "http://x/2048.jpg",
		},
		{
			name:    "no sizes falls back to raw url",
			photo:   Photo{ImageURL: "http://x/raw.jpg"},
			wantURI: "http://x/raw.jpg",
		},
		{
			name: "empty large variant falls back to raw url",
			photo: Photo{
				ImageURL: "http://x/raw.jpg",
				Sizes:    map[string]string{SizeLarge: ""},
			},
			wantURI: "http://x/raw.jpg",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			art := NewArtworkFromPhoto(&tc.photo)
			if art.PersistentURI != tc.wantURI {
				t.Errorf("PersistentURI = %q, want %q", art.PersistentURI, tc.wantURI)
			}
		})
	}
}

func TestNewArtworkFromPhotoFields(t *testing.T) {
	p := &Photo{
		Title:        "Northern Lights",
		PublishDate:  "October 1, 2020",
		Photographer: "Jane Doe",
		Description:  "Aurora over a frozen lake.",
		PageURL:      "http://x/page",
		ImageURL:     "http://x/raw.jpg",
	}

	art := NewArtworkFromPhoto(p)

	if art.Title != p.Title {
		t.Errorf("Title = %q, want %q", art.Title, p.Title)
	}
	if art.Byline != p.PublishDate {
		t.Errorf("Byline = %q, want %q", art.Byline, p.PublishDate)
	}
	if art.Attribution != p.Photographer {
		t.Errorf("Attribution = %q, want %q", art.Attribution, p.Photographer)
	}
	if art.Token != p.Description {
		t.Errorf("Token = %q, want %q", art.Token, p.Description)
	}
	if art.WebURI != p.PageURL {
		t.Errorf("WebURI = %q, want %q", art.WebURI, p.PageURL)
	}
}

func TestParseFetchMode(t *testing.T) {
	if m, err := ParseFetchMode("random"); err != nil || m != FetchModeRandom {
		t.Errorf("ParseFetchMode(random) = %q, %v", m, err)
	}
	if m, err := ParseFetchMode("latest"); err != nil || m != FetchModeLatest {
		t.Errorf("ParseFetchMode(latest) = %q, %v", m, err)
	}
	if _, err := ParseFetchMode("oldest"); err == nil {
		t.Error("expected error for unknown mode")
	}
	if ModeFor(true) != FetchModeRandom || ModeFor(false) != FetchModeLatest {
		t.Error("ModeFor returned wrong mode")
	}
}
