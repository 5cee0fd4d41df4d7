package speech

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileName turns a record title into a safe "<title>.mp3" file name
func FileName(title string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, strings.TrimSpace(title))
	name = strings.Trim(name, ". ")
	if name == "" {
		name = "speech"
	}
	return name + ".mp3"
}

// WriteFile writes the audio to dir/<title>.mp3 and returns the path
func WriteFile(dir, title string, audio *Audio) (string, error) {
	if audio == nil || len(audio.Data) == 0 {
		return "", fmt.Errorf("no audio to write")
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, FileName(title))
	tmp := path + ".part"
	if err := os.WriteFile(tmp, audio.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to write audio file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to write audio file: %w", err)
	}
	return path, nil
}
