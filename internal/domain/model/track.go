package model

import "strings"

// Defaults applied to tracks created from uploaded files.
const (
	DefaultBPM       = 128
	DefaultKey       = "Am"
	PlaceholderImage = "https://images.unsplash.com/photo-1470225620780-dba8ba36b745?w=800&q=80"
)

// Track is one uploaded track as the view sees it. Owner and creation time
// live only in the store.
type Track struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Image    string `json:"image"`
	Likes    int    `json:"likes"`
	Comments int    `json:"comments"`
	BPM      int    `json:"bpm"`
	Key      string `json:"key"`
}

// NewTrack is a Track before the store has allocated its identifier.
type NewTrack struct {
	Title    string `json:"title"`
	Image    string `json:"image"`
	Likes    int    `json:"likes"`
	Comments int    `json:"comments"`
	BPM      int    `json:"bpm"`
	Key      string `json:"key"`
}

// Document renders the track fields for the store.
func (t NewTrack) Document() map[string]any {
	return map[string]any{
		"title":    t.Title,
		"image":    t.Image,
		"likes":    t.Likes,
		"comments": t.Comments,
		"bpm":      t.BPM,
		"key":      t.Key,
	}
}

// WithID attaches a store identifier.
func (t NewTrack) WithID(id string) Track {
	return Track{
		ID:       id,
		Title:    t.Title,
		Image:    t.Image,
		Likes:    t.Likes,
		Comments: t.Comments,
		BPM:      t.BPM,
		Key:      t.Key,
	}
}

// TrackFromFile derives a new track from an uploaded file name. An empty
// image falls back to PlaceholderImage.
func TrackFromFile(filename, image string) NewTrack {
	if image == "" {
		image = PlaceholderImage
	}
	return NewTrack{
		Title:    TitleFromFilename(filename),
		Image:    image,
		Likes:    0,
		Comments: 0,
		BPM:      DefaultBPM,
		Key:      DefaultKey,
	}
}

// TitleFromFilename strips the last extension: a trailing dot followed by
// at least one character that is neither a dot nor a slash.
func TitleFromFilename(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 || i == len(name)-1 {
		return name
	}
	if strings.ContainsRune(name[i+1:], '/') {
		return name
	}
	return name[:i]
}

// Extension returns the part TitleFromFilename strips, dot included.
func Extension(name string) string {
	return name[len(TitleFromFilename(name)):]
}
