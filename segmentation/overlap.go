package segmentation

import (
	"context"
	"errors"
	"io"

	"github.com/RyanBlaney/sonido-split/transcode"
)

// overlapSteps windows are cut from every pair of consecutive blocks, each
// shifted by a quarter block.
const overlapSteps = 4

// Window is a stretch of audio cut from up to two consecutive blocks.
type Window struct {
	Samples [][]float64 // channels x samples
	Start   int         // first sample, relative to the start of the file
}

// Len returns the number of samples per channel.
func (w *Window) Len() int {
	if len(w.Samples) == 0 {
		return 0
	}
	return len(w.Samples[0])
}

// OverlappingStream turns a block stream into windows overlapping by 75%.
// For blocks b0, b1, ... it yields, for every consecutive pair (cur, next),
// the last 1, 3/4, 1/2 and 1/4 of cur joined with the first 0, 1/4, 1/2 and
// 3/4 of next. When next differs in length from cur (a short final block)
// next is yielded on its own as well. A stream of a single block yields that
// block.
type OverlappingStream struct {
	src       transcode.BlockStream
	cur, next *transcode.AudioBlock
	curStart  int
	step      int
	consumed  int
	started   bool
	done      bool
}

// NewOverlappingStream wraps src. The caller keeps ownership of src.
func NewOverlappingStream(src transcode.BlockStream) *OverlappingStream {
	return &OverlappingStream{src: src}
}

// Consumed returns the number of samples per channel read from the source
// so far. Once Next has returned io.EOF it is the length of the file.
func (o *OverlappingStream) Consumed() int {
	return o.consumed
}

func (o *OverlappingStream) pull(ctx context.Context) (*transcode.AudioBlock, error) {
	block, err := o.src.Next(ctx)
	if err != nil {
		o.done = true
		return nil, err
	}
	o.consumed += block.Len()
	return block, nil
}

// Next returns the next window or io.EOF. Any error ends the stream.
func (o *OverlappingStream) Next(ctx context.Context) (*Window, error) {
	if o.done {
		return nil, io.EOF
	}

	if !o.started {
		o.started = true
		first, err := o.pull(ctx)
		if err != nil {
			return nil, err
		}
		o.cur = first
		o.next, err = o.pull(ctx)
		if errors.Is(err, io.EOF) {
			return &Window{Samples: first.Samples, Start: 0}, nil
		}
		if err != nil {
			return nil, err
		}
	}

	if o.step < overlapSteps {
		w := o.joined(o.step)
		o.step++
		return w, nil
	}

	// all four windows of this pair are out
	if o.step == overlapSteps && o.cur.Len() != o.next.Len() {
		o.step++
		return &Window{Samples: o.next.Samples, Start: o.curStart + o.cur.Len()}, nil
	}

	following, err := o.pull(ctx)
	if err != nil {
		return nil, err
	}

	o.curStart += o.cur.Len()
	o.cur, o.next = o.next, following
	o.step = 1
	return o.joined(0), nil
}

// joined builds the window for one step of the current pair.
func (o *OverlappingStream) joined(step int) *Window {
	curCut := o.cur.Len() * step / overlapSteps
	nextCut := o.next.Len() * step / overlapSteps

	samples := make([][]float64, len(o.cur.Samples))
	for c := range samples {
		ch := make([]float64, 0, o.cur.Len()-curCut+nextCut)
		ch = append(ch, o.cur.Samples[c][curCut:]...)
		if c < len(o.next.Samples) {
			ch = append(ch, o.next.Samples[c][:nextCut]...)
		}
		samples[c] = ch
	}

	return &Window{Samples: samples, Start: o.curStart + curCut}
}
