package proxy

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/modelrelay/modelrelay/internal/sse"
)

// streamConverter turns one SSE data payload into canonical JSON-encodable
// values plus literal passthrough strings. One converter instance per stream.
type streamConverter func(payload string) (values []any, raw []string)

// sseSink writes converted output back to the client as an SSE stream. The
// first failed write is recorded and all later writes become no-ops, so a
// disconnected client stops the relay instead of burning conversion work.
type sseSink struct {
	w   http.ResponseWriter
	f   http.Flusher
	err error
}

func newSSESink(w http.ResponseWriter) *sseSink {
	writeSSEHeaders(w, http.StatusOK)
	f, _ := w.(http.Flusher)
	return &sseSink{w: w, f: f}
}

func (s *sseSink) write(text string) {
	if s.err != nil {
		return
	}
	if _, err := io.WriteString(s.w, text); err != nil {
		s.err = err
		return
	}
	if s.f != nil {
		s.f.Flush()
	}
}

func (s *sseSink) writeValue(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.writeRaw(string(data))
}

// writeRaw emits one payload as a data line verbatim.
func (s *sseSink) writeRaw(payload string) {
	s.write("data: " + payload + "\n\n")
}

// writeVerbatim forwards bytes without framing, used for heartbeats.
func (s *sseSink) writeVerbatim(text string) {
	s.write(text)
}

func (s *sseSink) done() {
	s.write("data: " + sse.DoneToken + "\n\n")
}

// relayStream pumps a backend SSE body through the frame splitter and the
// given converter, writing canonical frames to the client. The termination
// marker is written exactly once, after the backend stream ends cleanly; a
// read failure mid-stream aborts without flushing the partial frame or
// writing the marker, so a truncated exchange never looks completed.
func relayStream(w http.ResponseWriter, body io.Reader, convert streamConverter) {
	sink := newSSESink(w)
	var split sse.Splitter
	buf := make([]byte, 16*1024)

	emit := func(frame string) {
		for _, payload := range sse.DataPayloads(frame) {
			values, raw := convert(payload)
			for _, v := range values {
				sink.writeValue(v)
			}
			for _, p := range raw {
				sink.writeRaw(p)
			}
		}
	}

	for {
		n, err := body.Read(buf)
		if n > 0 {
			frames, heartbeat := split.Feed(string(buf[:n]))
			if heartbeat != "" {
				sink.writeVerbatim(heartbeat)
			}
			for _, frame := range frames {
				emit(frame)
			}
		}
		if sink.err != nil {
			return
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return
		}
	}

	if rest := split.Flush(); rest != "" {
		emit(rest)
	}
	sink.done()
}
