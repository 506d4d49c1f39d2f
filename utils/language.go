package utils

import (
	"sync"

	"github.com/pemistahl/lingua-go"
)

// LinguaDetector detects the language of event text. The underlying models
// are loaded on first use.
type LinguaDetector struct {
	languages []lingua.Language
	once      sync.Once
	detector  lingua.LanguageDetector
}

// NewLinguaDetector restricts detection to languages, or considers all
// supported languages when none are given. With exactly one language that
// language is always reported.
func NewLinguaDetector(languages ...lingua.Language) *LinguaDetector {
	return &LinguaDetector{languages: languages}
}

func (d *LinguaDetector) DetectLanguage(text string) (string, bool) {
	if len(d.languages) == 1 {
		return d.languages[0].String(), true
	}
	d.once.Do(func() {
		builder := lingua.NewLanguageDetectorBuilder()
		if len(d.languages) > 1 {
			d.detector = builder.FromLanguages(d.languages...).Build()
		} else {
			d.detector = builder.FromAllLanguages().Build()
		}
	})
	language, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	return language.String(), true
}
