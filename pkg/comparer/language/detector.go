// Package language identifies the programming language of compared files
// for display in the report index.
package language

import (
	"path/filepath"
	"strings"

	"github.com/go-enry/go-enry/v2"
)

// Detector determines the programming language of a file from its content
// and filename.
type Detector interface {
	// Detect returns a lowercase language identifier for content at
	// filePath, with a confidence score from 0.0 to 1.0. Detection never
	// fails hard: unmatched content falls back to "plaintext" and empty
	// content to "unknown", both at zero confidence.
	Detect(content []byte, filePath string) (language string, confidence float64, err error)
}

// enryDetector implements Detector with go-enry, honoring user-supplied
// extension overrides before any library heuristics run.
type enryDetector struct {
	overrides map[string]string // extension (with dot) to language id
}

// NewEnryDetector returns a Detector. Override keys are normalized to a
// lowercase extension with a leading dot; blank entries are dropped.
func NewEnryDetector(overrides map[string]string) Detector {
	normalized := make(map[string]string)
	for ext, lang := range overrides {
		ext = strings.ToLower(strings.TrimSpace(ext))
		lang = strings.ToLower(strings.TrimSpace(lang))
		if ext == "" || ext == "." || lang == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized[ext] = lang
	}
	return &enryDetector{overrides: normalized}
}

func (d *enryDetector) Detect(content []byte, filePath string) (string, float64, error) {
	if len(content) == 0 {
		return "unknown", 0.0, nil
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	if lang, ok := d.overrides[ext]; ok {
		return lang, 1.0, nil
	}

	if lang := enry.GetLanguage(filepath.Base(filePath), content); lang != "" && lang != "Text" {
		return strings.ToLower(lang), 0.8, nil
	}

	if lang, safe := enry.GetLanguageByExtension(filePath); safe && lang != "" && lang != "Text" {
		return strings.ToLower(lang), 0.5, nil
	}

	if lang, safe := enry.GetLanguageByFilename(filePath); safe && lang != "" && lang != "Text" {
		return strings.ToLower(lang), 0.5, nil
	}

	return "plaintext", 0.0, nil
}
