// Package progress reports the progress of long-running disk image
// transfers on a terminal.
package progress

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gokrazy/blockfs/humanize"
)

// Reporter counts the bytes written to it and periodically prints the
// transfer rate.
type Reporter struct {
	transferred uint64
	total       uint64

	mu     sync.Mutex
	status string
}

func (p *Reporter) Write(b []byte) (n int, err error) {
	atomic.AddUint64(&p.transferred, uint64(len(b)))
	return len(b), nil
}

// Transferred returns the number of bytes written so far.
func (p *Reporter) Transferred() uint64 {
	return atomic.LoadUint64(&p.transferred)
}

func (p *Reporter) SetStatus(status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = status
}

func (p *Reporter) SetTotal(total uint64) {
	atomic.StoreUint64(&p.total, total)
}

func (p *Reporter) getStatus() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// line formats the current status, given the number of bytes transferred
// during the last interval.
func (p *Reporter) line(transferred, bytesPerS uint64) string {
	rate := humanize.BPS(bytesPerS)
	status := rate
	if total := atomic.LoadUint64(&p.total); total > 0 {
		pct := float64(transferred) / float64(total) * 100
		status = fmt.Sprintf("%02.2f%% of %s, copying at %s",
			pct,
			humanize.Bytes(total),
			rate)
	}
	return fmt.Sprintf("\r[%s] %s                 ", p.getStatus(), status)
}

// Report prints a status line to w every second until ctx is done.
func (p *Reporter) Report(ctx context.Context, w io.Writer) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	last := p.Transferred()
	for {
		select {
		case <-ticker.C:
			transferred := p.Transferred()
			bytesPerS := transferred - last
			last = transferred
			fmt.Fprint(w, p.line(transferred, bytesPerS))
		case <-ctx.Done():
			fmt.Fprintln(w, p.line(p.Transferred(), 0))
			return
		}
	}
}
