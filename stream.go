package tracefmt

import (
	"context"
	"io"
	"iter"
	"strings"
)

// FormatIter formats messages from seq lazily, one per yielded value.
func FormatIter(f TextFormatter, seq iter.Seq[string]) iter.Seq[string] {
	return func(yield func(string) bool) {
		for msg := range seq {
			if !yield(f.Format(msg)) {
				return
			}
		}
	}
}

// FormatChan formats messages from in as they arrive. The returned channel
// is closed when in is closed or ctx is done.
func FormatChan(ctx context.Context, f TextFormatter, in <-chan string) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- f.Format(msg):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// WriteIter writes every message of seq to w, each terminated by a newline.
// It is a thin wrapper around [FormatIter].
func WriteIter(w io.Writer, f TextFormatter, seq iter.Seq[string]) error {
	for msg := range FormatIter(f, seq) {
		if !strings.HasSuffix(msg, "\n") {
			msg += "\n"
		}
		if _, err := io.WriteString(w, msg); err != nil {
			return err
		}
	}
	return nil
}

func chanToIter[T any](ch <-chan T) iter.Seq[T] {
	return func(yield func(T) bool) {
		for item := range ch {
			if !yield(item) {
				return
			}
		}
	}
}

// WriteChan writes messages from ch to w as they arrive.
func WriteChan(w io.Writer, f TextFormatter, ch <-chan string) error {
	return WriteIter(w, f, chanToIter(ch))
}
