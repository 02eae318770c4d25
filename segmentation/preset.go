package segmentation

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrUnknownPreset is returned by PresetByName for names outside the closed
// preset set.
var ErrUnknownPreset = errors.New("unknown preset")

// Preset controls how eagerly the segmenter reports boundaries.
type Preset struct {
	Name          string  `json:"name" yaml:"name"`
	FilterLength  int     `json:"filter_length" yaml:"filter_length"`
	Downsampling  int     `json:"downsampling" yaml:"downsampling"`
	PeakThreshold float64 `json:"peak_threshold" yaml:"peak_threshold"`
}

var (
	PresetExtraStrict  = Preset{Name: "extra strict", FilterLength: 57, Downsampling: 2, PeakThreshold: 0.6}
	PresetStrict       = Preset{Name: "strict", FilterLength: 49, Downsampling: 4, PeakThreshold: 0.55}
	PresetNormal       = Preset{Name: "normal", FilterLength: 41, Downsampling: 8, PeakThreshold: 0.5}
	PresetLenient      = Preset{Name: "lenient", FilterLength: 33, Downsampling: 16, PeakThreshold: 0.45}
	PresetExtraLenient = Preset{Name: "extra lenient", FilterLength: 25, Downsampling: 32, PeakThreshold: 0.4}
)

// Presets returns every preset, strictest first.
func Presets() []Preset {
	return []Preset{PresetExtraStrict, PresetStrict, PresetNormal, PresetLenient, PresetExtraLenient}
}

// PresetByName looks a preset up by name. Matching ignores case, and
// underscores or dashes may stand in for the space ("extra_strict").
func PresetByName(name string) (Preset, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer("_", " ", "-", " ").Replace(key)
	for _, p := range Presets() {
		if p.Name == key {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
}

// Title returns the display name, e.g. "Extra Strict".
func (p Preset) Title() string {
	return cases.Title(language.English).String(p.Name)
}

func (p Preset) String() string {
	return p.Name
}
