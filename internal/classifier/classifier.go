// Package classifier maps file names to transfer categories for Sift.
package classifier

import (
	"path/filepath"
	"strings"
)

// Category is the classification tag that selects a destination directory.
// The set is closed; Other is the catch-all and the only category ever
// assigned to directories.
type Category string

const (
	ImageVideo Category = "IMAGE_VIDEO"
	Audio      Category = "AUDIO"
	Setup      Category = "SETUP"
	Document   Category = "DOCUMENT"
	Compressed Category = "COMPRESSED"
	Other      Category = "OTHER"
)

// Categories returns every category in display order.
func Categories() []Category {
	return []Category{ImageVideo, Audio, Setup, Document, Compressed, Other}
}

// Label returns the human-readable name used in reports and settings.
func (c Category) Label() string {
	switch c {
	case ImageVideo:
		return "Images/Videos"
	case Audio:
		return "Audio Files"
	case Setup:
		return "Setup Files"
	case Document:
		return "Documents"
	case Compressed:
		return "Compressed Files"
	default:
		return "Other Files"
	}
}

// registry maps lower-cased, dot-prefixed extensions to their category.
// Fixed at process start; never mutated after construction.
var registry = buildRegistry()

func buildRegistry() map[string]Category {
	sets := map[Category][]string{
		ImageVideo: {
			".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".svg", ".webp", ".heic", ".raw",
			".mp4", ".avi", ".mkv", ".mov", ".wmv", ".flv", ".webm", ".mpeg", ".mpg", ".3gp",
		},
		Audio:      {".mp3", ".wav", ".flac", ".aac", ".ogg", ".wma", ".m4a"},
		Setup:      {".exe", ".msi", ".dmg", ".pkg", ".deb"},
		Document:   {".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx", ".txt"},
		Compressed: {".zip", ".rar", ".7z", ".tar", ".gz"},
	}

	r := make(map[string]Category)
	for cat, exts := range sets {
		for _, ext := range exts {
			r[ext] = cat
		}
	}
	return r
}

// Ext returns the lower-cased extension of name, including the leading dot,
// or the empty string when name contains no dot.
func Ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// Classify returns the category registered for the extension of name.
// name may be a full file name or a bare dot-prefixed extension; matching is
// case-insensitive, and unknown or missing extensions return Other. Pure
// lookup, never fails. Directories do not pass through here: the run loop
// assigns them Other by kind before extensions are consulted.
func Classify(name string) Category {
	if cat, ok := registry[Ext(name)]; ok {
		return cat
	}
	return Other
}
