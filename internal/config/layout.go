package config

import (
	"os"
	"path/filepath"

	"sift/internal/classifier"
)

// Destinations names the target folder for each category.
type Destinations struct {
	ImagesVideos string `json:"imagesVideos"`
	Audio        string `json:"audio"`
	Installers   string `json:"installers"`
	Documents    string `json:"documents"`
	Archives     string `json:"archives"`
	Other        string `json:"other"`
}

// DeriveLayout produces the conventional folder layout under base, one
// subdirectory per category. sift init uses it to seed a settings file.
func DeriveLayout(base string) Destinations {
	return Destinations{
		ImagesVideos: filepath.Join(base, "Media"),
		Audio:        filepath.Join(base, "Audio"),
		Installers:   filepath.Join(base, "Installers"),
		Documents:    filepath.Join(base, "Documents"),
		Archives:     filepath.Join(base, "Archives"),
		Other:        filepath.Join(base, "Other"),
	}
}

type destSlot struct {
	field    string
	category classifier.Category
	path     string
}

// slots lists the destination fields in category display order, pairing
// each JSON field name with its category and configured path.
func (d Destinations) slots() []destSlot {
	return []destSlot{
		{"imagesVideos", classifier.ImageVideo, d.ImagesVideos},
		{"audio", classifier.Audio, d.Audio},
		{"installers", classifier.Setup, d.Installers},
		{"documents", classifier.Document, d.Documents},
		{"archives", classifier.Compressed, d.Archives},
		{"other", classifier.Other, d.Other},
	}
}

// Map returns the category-to-folder mapping the engine consumes.
func (d Destinations) Map() map[classifier.Category]string {
	m := make(map[classifier.Category]string, 6)
	for _, slot := range d.slots() {
		m[slot.category] = slot.path
	}
	return m
}

// Ensure creates every destination folder that does not exist yet.
func (d Destinations) Ensure() error {
	for _, slot := range d.slots() {
		if err := os.MkdirAll(slot.path, 0755); err != nil {
			return err
		}
	}
	return nil
}
