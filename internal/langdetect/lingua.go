package langdetect

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			Build()
	})
	return detector
}

// IsEnglish reports whether text is detected as English. Very short or
// non-alphabetic samples are treated as English so the filter never drops
// items the detector cannot judge.
func IsEnglish(text string) bool {
	sample := strings.TrimSpace(text)
	if sample == "" {
		return true
	}

	letterCount := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letterCount++
		}
	}
	if letterCount < 6 {
		return true
	}

	language, exists := getDetector().DetectLanguageOf(sample)
	if !exists {
		return true
	}
	return language == lingua.English
}
