package sse

import "io"

// Reader yields data payloads from an io.Reader carrying an SSE stream.
// Used by the non-streaming collectors; the streaming path drives a Splitter
// directly so backpressure stays with the transport.
type Reader struct {
	src     io.Reader
	split   Splitter
	pending []string
	chunk   []byte
	done    bool
}

// NewReader creates a reader over src.
func NewReader(src io.Reader) *Reader {
	return &Reader{src: src, chunk: make([]byte, 16*1024)}
}

// Next returns the next data payload. Returns io.EOF when the stream ends;
// any residual partial frame is flushed as a final payload first.
func (r *Reader) Next() (string, error) {
	for {
		if len(r.pending) > 0 {
			payload := r.pending[0]
			r.pending = r.pending[1:]
			return payload, nil
		}
		if r.done {
			return "", io.EOF
		}

		n, err := r.src.Read(r.chunk)
		if n > 0 {
			frames, _ := r.split.Feed(string(r.chunk[:n]))
			for _, frame := range frames {
				r.pending = append(r.pending, DataPayloads(frame)...)
			}
		}
		if err != nil {
			r.done = true
			if rest := r.split.Flush(); rest != "" {
				r.pending = append(r.pending, DataPayloads(rest)...)
			}
			if err != io.EOF && len(r.pending) == 0 {
				return "", err
			}
		}
	}
}
