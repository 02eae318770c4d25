// Package naming builds file names for identified songs from templates such
// as "{{ARTIST}} - {{TITLE}}".
package naming

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/RyanBlaney/sonido-split/identify"
)

const (
	Title  = "{{TITLE}}"
	Artist = "{{ARTIST}}"
	Album  = "{{ALBUM}}"
	Year   = "{{YEAR}}"

	DefaultTemplate = Artist + " - " + Title
)

// ErrNoPlaceholder is returned for templates that would give every song the
// same name.
var ErrNoPlaceholder = errors.New("template contains no placeholder")

// Replacement is one search/replace pair for ReplaceAll.
type Replacement struct {
	Search  string
	Replace string
}

// ReplaceAll applies the replacements in order, each to the output of the
// previous one, so an earlier replacement can create matches for a later
// one.
func ReplaceAll(text string, replacements ...Replacement) string {
	for _, r := range replacements {
		text = strings.ReplaceAll(text, r.Search, r.Replace)
	}
	return text
}

// Validate checks that template contains at least one placeholder.
func Validate(template string) error {
	for _, p := range []string{Title, Artist, Album, Year} {
		if strings.Contains(template, p) {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrNoPlaceholder, template)
}

var separators = strings.NewReplacer("/", "_", "\\", "_", "\x00", "")

// clean makes a metadata value safe to use inside a file name.
func clean(value string) string {
	if value == identify.NotSet {
		return ""
	}
	return strings.TrimSpace(separators.Replace(value))
}

// FormatFileName fills template with meta. Placeholders are replaced in the
// order title, artist, album, year. The result is NFC normalized.
func FormatFileName(template string, meta identify.MetadataOption) string {
	name := ReplaceAll(template,
		Replacement{Title, clean(meta.Title)},
		Replacement{Artist, clean(meta.Artist)},
		Replacement{Album, clean(meta.Album)},
		Replacement{Year, clean(meta.Year)},
	)
	return norm.NFC.String(name)
}

// Suggest names every song after its first metadata option. Songs without
// a titled option are called "Track NN". Names that repeat get a " (2)", " (3)", ...
// suffix. ext, if set, is appended with a leading dot.
func Suggest(template string, songs []identify.Song, ext string) []string {
	ext = strings.TrimPrefix(ext, ".")
	seen := map[string]int{}
	names := make([]string, len(songs))

	for i, song := range songs {
		name := ""
		if len(song.MetadataOptions) > 0 && clean(song.MetadataOptions[0].Title) != "" {
			name = FormatFileName(template, song.MetadataOptions[0])
		}
		if strings.TrimSpace(name) == "" {
			name = fmt.Sprintf("Track %02d", i+1)
		}

		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s (%d)", name, n)
		}
		if ext != "" {
			name += "." + ext
		}
		names[i] = name
	}
	return names
}
