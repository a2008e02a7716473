package link

import (
	"bytes"
	"context"
	"fmt"
	"io"
)

// maxLineLen bounds how much unterminated data we buffer; the firmware's
// records are well under 40 bytes.
const maxLineLen = 1024

// lineReader splits a byte stream into newline-terminated records.  Reads that
// return no data (a serial read timeout) are retried after checking ctx.
type lineReader struct {
	r       io.Reader
	pending []byte
	buf     [256]byte
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: r}
}

func (l *lineReader) ReadLine(ctx context.Context) (string, error) {
	for {
		if i := bytes.IndexByte(l.pending, '\n'); i >= 0 {
			line := string(l.pending[:i])
			l.pending = l.pending[i+1:]
			return line, nil
		}
		if len(l.pending) > maxLineLen {
			fmt.Printf("LINK: Discarding %d bytes with no newline\n", len(l.pending))
			l.pending = l.pending[:0]
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, err := l.r.Read(l.buf[:])
		l.pending = append(l.pending, l.buf[:n]...)
		if err != nil {
			if err == io.EOF && len(l.pending) > 0 && bytes.IndexByte(l.pending, '\n') < 0 {
				// Final unterminated record.
				line := string(l.pending)
				l.pending = l.pending[:0]
				return line, nil
			}
			if err == io.EOF && bytes.IndexByte(l.pending, '\n') >= 0 {
				continue
			}
			return "", err
		}
	}
}

// Drop forgets any partially received record.
func (l *lineReader) Drop() {
	l.pending = l.pending[:0]
}
