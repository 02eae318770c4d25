package segmentation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresetsAreOrderedAndOdd(t *testing.T) {
	presets := Presets()
	require.Len(t, presets, 5)
	assert.Equal(t, "extra strict", presets[0].Name)
	assert.Equal(t, "extra lenient", presets[4].Name)

	for i, p := range presets {
		assert.Equal(t, 1, p.FilterLength%2, p.Name)
		assert.Greater(t, p.PeakThreshold, 0.0)
		assert.Less(t, p.PeakThreshold, 1.0)
		if i > 0 {
			assert.Greater(t, p.Downsampling, presets[i-1].Downsampling)
			assert.Less(t, p.PeakThreshold, presets[i-1].PeakThreshold)
		}
	}
}

func TestPresetByName(t *testing.T) {
	p, err := PresetByName("normal")
	require.NoError(t, err)
	assert.Equal(t, PresetNormal, p)

	p, err = PresetByName("Extra_Strict")
	require.NoError(t, err)
	assert.Equal(t, PresetExtraStrict, p)

	p, err = PresetByName(" extra-lenient ")
	require.NoError(t, err)
	assert.Equal(t, 32, p.Downsampling)

	_, err = PresetByName("custom")
	assert.ErrorIs(t, err, ErrUnknownPreset)
}

func TestPresetTitle(t *testing.T) {
	assert.Equal(t, "Extra Strict", PresetExtraStrict.Title())
	assert.Equal(t, "Normal", PresetNormal.Title())
	assert.Equal(t, "lenient", PresetLenient.String())
}
