package helpers

import (
	"io"

	"github.com/cheggaaa/pb/v3"

	"dirpack/model"
)

// Progress renders a progress bar for a download run. It satisfies the
// scheduler's observer hooks and is safe to call from concurrent workers.
type Progress struct {
	out     io.Writer
	enabled bool
	bar     *pb.ProgressBar
}

func NewProgress(out io.Writer, enabled bool) *Progress {
	return &Progress{out: out, enabled: enabled}
}

// Begin starts the bar. It must be called before any task starts.
func (p *Progress) Begin(total int) {
	if !p.enabled || total == 0 {
		return
	}
	p.bar = pb.Full.New(total)
	p.bar.SetWriter(p.out)
	p.bar.Set("prefix", "downloading ")
	p.bar.Start()
}

func (p *Progress) TaskStarted(model.DownloadTask) {}

func (p *Progress) TaskFinished(model.DownloadOutcome) {
	if p.bar != nil {
		p.bar.Increment()
	}
}

func (p *Progress) End() {
	if p.bar != nil {
		p.bar.Finish()
	}
}

// Done returns the number of finished tasks seen so far.
func (p *Progress) Done() int64 {
	if p.bar == nil {
		return 0
	}
	return p.bar.Current()
}
