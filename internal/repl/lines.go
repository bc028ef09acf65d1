package repl

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

type lineResult struct {
	line string
	err  error
}

// lineReader reads one line per request on a helper goroutine so a blocked
// terminal read can be abandoned when ctx ends. It never reads ahead.
type lineReader struct {
	r        *bufio.Reader
	req      chan struct{}
	resp     chan lineResult
	start    sync.Once
	stopOnce sync.Once
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{
		r:    bufio.NewReader(r),
		req:  make(chan struct{}),
		resp: make(chan lineResult, 1),
	}
}

// next returns the next line without its line terminator. io.EOF is returned
// once input is exhausted.
func (l *lineReader) next(ctx context.Context) (string, error) {
	l.start.Do(func() { go l.pump() })
	select {
	case l.req <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	select {
	case res := <-l.resp:
		return res.line, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (l *lineReader) pump() {
	for range l.req {
		line, err := l.r.ReadString('\n')
		if errors.Is(err, io.EOF) && line != "" {
			err = nil
		}
		l.resp <- lineResult{line: strings.TrimRight(line, "\r\n"), err: err}
	}
}

func (l *lineReader) stop() {
	l.stopOnce.Do(func() { close(l.req) })
}
