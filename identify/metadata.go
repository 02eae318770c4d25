package identify

// NotSet fills every field of the placeholder option a Service starts with.
const NotSet = "not-set"

// MetadataOption is one candidate identification of a recording. Title and
// Artist are always set; the other fields depend on the provider.
type MetadataOption struct {
	Title       string `json:"title" yaml:"title"`
	Artist      string `json:"artist" yaml:"artist"`
	Album       string `json:"album,omitempty" yaml:"album,omitempty"`
	AlbumArtist string `json:"albumartist,omitempty" yaml:"albumartist,omitempty"`
	Year        string `json:"year,omitempty" yaml:"year,omitempty"`
	ISRC        string `json:"isrc,omitempty" yaml:"isrc,omitempty"`
	Genre       string `json:"genre,omitempty" yaml:"genre,omitempty"`
}

// SameRecording reports whether both options name the same title and artist.
// Comparison is exact and case-sensitive.
func (m MetadataOption) SameRecording(other MetadataOption) bool {
	return m.Title == other.Title && m.Artist == other.Artist
}

// placeholderOptions is the state of a fresh Service.
func placeholderOptions() []MetadataOption {
	return []MetadataOption{{
		Title:  NotSet,
		Album:  NotSet,
		Artist: NotSet,
		Year:   NotSet,
	}}
}

// Overlap returns the options of a that name the same recording as some
// option of b. Fields are taken from a only. An empty list matches
// anything: if a is empty b is returned, and if b is empty a is returned.
func Overlap(a, b []MetadataOption) []MetadataOption {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}

	matched := []MetadataOption{}
	for _, candidate := range a {
		for _, other := range b {
			if candidate.SameRecording(other) {
				matched = append(matched, candidate)
				break
			}
		}
	}
	return matched
}
