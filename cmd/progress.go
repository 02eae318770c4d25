package cmd

import (
	"io"
	"path/filepath"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// progress shows one bar per file on stderr. A disabled progress hands out
// bars that draw nothing.
type progress struct {
	p *mpb.Progress
}

func newProgress(w io.Writer, enabled bool) *progress {
	if !enabled {
		return &progress{}
	}
	return &progress{p: mpb.New(mpb.WithOutput(w), mpb.WithWidth(48))}
}

// bar is the part of *mpb.Bar the commands use.
type bar interface {
	Increment()
	SetTotal(total int64, complete bool)
	Abort(drop bool)
}

type nopBar struct{}

func (nopBar) Increment()           {}
func (nopBar) SetTotal(int64, bool) {}
func (nopBar) Abort(bool)           {}

// add creates a bar named after path. A total of zero or less leaves the
// total open until SetTotal is called.
func (pr *progress) add(path, stage string, total int64) bar {
	if pr.p == nil {
		return nopBar{}
	}
	return pr.p.AddBar(total,
		mpb.PrependDecorators(
			decor.Name(filepath.Base(path), decor.WCSyncSpaceR),
			decor.Name(stage+" ", decor.WCSyncSpaceR),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.OnComplete(decor.Percentage(), "done"),
		),
	)
}

// Wait blocks until every bar has completed or been aborted.
func (pr *progress) Wait() {
	if pr.p != nil {
		pr.p.Wait()
	}
}
