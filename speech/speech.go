// Package speech turns speech records into MP3 audio. GoogleSynthesizer talks
// to Google Cloud Text-to-Speech; CachedSynthesizer memoizes any Synthesizer in
// memory and, optionally, on disk.
package speech

import (
	"context"
	"errors"
	"fmt"

	sheetcrud "github.com/ideamans/go-sheetcrud"
)

// MaxTextBytes is the request size limit of the synthesis API
const MaxTextBytes = 5000

// MIMETypeMP3 is the only encoding requested from the API
const MIMETypeMP3 = "audio/mpeg"

var (
	// ErrEmptyText is returned for a request without text
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrTextTooLong is returned for text over MaxTextBytes
	ErrTextTooLong = errors.New("text too long")

	// ErrUnsupportedVoice is returned when the voice does not belong to the language
	ErrUnsupportedVoice = errors.New("unsupported voice")
)

// Request is one synthesis call
type Request struct {
	Text         string
	LanguageCode string
	VoiceName    string
}

// Audio is synthesized speech
type Audio struct {
	Data     []byte
	MIMEType string
}

// Synthesizer converts text to speech
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (*Audio, error)
}

// SynthesisError reports a failed synthesis. It is never retried.
type SynthesisError struct {
	Request Request
	Err     error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("speech synthesis failed (%s/%s): %v", e.Request.LanguageCode, e.Request.VoiceName, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// Languages returns the supported language codes in menu order
func Languages() []string {
	return append([]string(nil), sheetcrud.SpeechLanguages...)
}

// Voices returns the voices offered for a language, or nil for an unknown one
func Voices(language string) []string {
	for _, lang := range sheetcrud.SpeechLanguages {
		if lang == language {
			return sheetcrud.SpeechVoices(language)
		}
	}
	return nil
}

// RequestFromRecord builds the request for a speech record, filling the
// default language and voice when the record leaves them empty.
func RequestFromRecord(r *sheetcrud.Record) Request {
	lang := r.GetAsString("language", "")
	if lang == "" {
		lang = sheetcrud.SpeechLanguages[0]
	}
	voice := r.GetAsString("voice", "")
	if voice == "" {
		if voices := Voices(lang); len(voices) > 0 {
			voice = voices[0]
		}
	}
	return Request{
		Text:         r.GetAsString("text_content", ""),
		LanguageCode: lang,
		VoiceName:    voice,
	}
}

// Validate checks the request before it is sent
func (r Request) Validate() error {
	if r.Text == "" {
		return ErrEmptyText
	}
	if len(r.Text) > MaxTextBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrTextTooLong, len(r.Text), MaxTextBytes)
	}
	if r.VoiceName != "" {
		found := false
		for _, v := range Voices(r.LanguageCode) {
			if v == r.VoiceName {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: %s for %s", ErrUnsupportedVoice, r.VoiceName, r.LanguageCode)
		}
	}
	return nil
}
