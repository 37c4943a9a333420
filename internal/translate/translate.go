// Package translate turns finalized speech transcripts into translation
// results published to the room. Recognition, translation and speech are
// external services behind small interfaces.
package translate

import (
	"context"

	"github.com/dkeye/Parley/internal/domain"
)

type Transcript struct {
	Text  string
	Final bool
	// Language is the speaker's tag; empty means the pipeline's current one.
	Language domain.LanguageTag
}

type Recognizer interface {
	// Transcripts streams results until ctx ends or recognition stops, then
	// closes the channel.
	Transcripts(ctx context.Context) (<-chan Transcript, error)
}

type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

type Speaker interface {
	Speak(ctx context.Context, text, language string) error
}

// Publisher delivers a result to the room. *client.Client implements it.
type Publisher interface {
	SendTranslation(original, translated, targetLanguage string) error
}

const Albanian domain.LanguageTag = "sq-AL"

// Direction returns the source and target language codes for a speaker
// tag: Albanian speakers are translated to English, everyone else to
// Albanian.
func Direction(tag domain.LanguageTag) (source, target string) {
	if tag == Albanian {
		return "sq", "en"
	}
	return "en", "sq"
}
