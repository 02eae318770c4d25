package identify

import "fmt"

// Result is the outcome of identifying one segment.
type Result int

const (
	// SongExtended means the segment continues the current song.
	SongExtended Result = 0
	// SongFinished means the current song ended and the segment starts a
	// new one. The finished song is available from LastSong.
	SongFinished Result = 1
	// SongMismatch means the start and the end of the segment belong to
	// different songs; the boundary between them was missed and must be
	// placed by hand.
	SongMismatch Result = 2
	// SongNotRecognised means no provider knew the segment.
	SongNotRecognised Result = 3
)

func (r Result) String() string {
	switch r {
	case SongExtended:
		return "extended"
	case SongFinished:
		return "finished"
	case SongMismatch:
		return "mismatch"
	case SongNotRecognised:
		return "not_recognised"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}
