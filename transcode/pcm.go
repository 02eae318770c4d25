package transcode

import (
	"encoding/binary"
	"math"
)

// EncodePCM16 interleaves channels (channels x samples) into signed 16-bit
// little-endian PCM. Samples are scaled by 32767 and clipped to [-1, 1].
func EncodePCM16(samples [][]float64) []byte {
	if len(samples) == 0 {
		return nil
	}
	frames := len(samples[0])
	out := make([]byte, 0, frames*len(samples)*2)
	for i := range frames {
		for _, ch := range samples {
			v := max(-1, min(1, ch[i]))
			out = binary.LittleEndian.AppendUint16(out, uint16(int16(math.Round(v*math.MaxInt16))))
		}
	}
	return out
}
