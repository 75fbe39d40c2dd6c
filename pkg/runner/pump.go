package runner

import (
	"bufio"
	"context"
	"io"
	"sync"
	"time"
)

type inputResult struct {
	text string
	err  error
}

// linePump turns a blocking reader into a channel so that reads can be
// abandoned when the context is cancelled.
type linePump struct {
	source io.Reader

	ch        chan inputResult
	chanOnce  sync.Once
	startOnce sync.Once
}

func (p *linePump) channel() chan inputResult {
	p.chanOnce.Do(func() {
		p.ch = make(chan inputResult, DefaultInputBufferSize)
	})
	return p.ch
}

func (p *linePump) start() {
	p.startOnce.Do(func() {
		ch := p.channel()
		if p.source != nil {
			go pump(bufio.NewReader(p.source), ch)
		}
	})
}

func pump(reader *bufio.Reader, ch chan inputResult) {
	for {
		text, err := reader.ReadString('\n')
		if text != "" {
			ch <- inputResult{text: text}
		}
		if err != nil {
			if err == io.EOF {
				ch <- inputResult{err: io.EOF}
				return
			}
			ch <- inputResult{err: err}
			// Back off so a persistently failing reader does not spin.
			time.Sleep(50 * time.Millisecond)
		}
	}
}

// FeedInput injects a line (or an error) as if it had been read.
func (p *linePump) FeedInput(text string, err error) {
	p.channel() <- inputResult{text: text, err: err}
}

func (p *linePump) next(ctx context.Context) (string, error) {
	p.start()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-p.ch:
		return res.text, res.err
	}
}
