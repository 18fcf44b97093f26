// Package sse reassembles server-sent-event frames from an arbitrarily
// chunked byte stream. Backends deliver SSE over HTTP bodies whose read
// boundaries never line up with frame boundaries, so every streaming
// converter feeds its raw chunks through a Splitter first.
package sse

import "strings"

// DoneToken is the literal stream-termination payload. The splitter consumes
// it and never forwards it; the router re-emits it exactly once after
// conversion completes.
const DoneToken = "[DONE]"

const dataPrefix = "data:"

// Splitter accumulates transport chunks and extracts complete SSE frames.
// A frame is the text up to (but not including) a double-newline separator.
// One Splitter belongs to exactly one stream and is not safe for concurrent
// use.
type Splitter struct {
	buf strings.Builder
}

// Feed consumes one transport chunk in arrival order and returns the complete
// frames it finished, leaving any remainder buffered for the next call.
// CRLF pairs are normalized to LF. Whitespace-only frames are discarded.
//
// A whitespace-only chunk arriving on an empty buffer is a heartbeat and is
// returned in passthrough unmodified; when the buffer is non-empty the same
// bytes participate in frame delimiting instead, because the separator itself
// may arrive split across chunks.
func (s *Splitter) Feed(chunk string) (frames []string, passthrough string) {
	if s.buf.Len() == 0 && strings.TrimSpace(chunk) == "" {
		return nil, chunk
	}

	s.buf.WriteString(chunk)
	text := strings.ReplaceAll(s.buf.String(), "\r\n", "\n")
	// A trailing CR may be half of a CRLF pair split across chunks; hold it
	// back until the next chunk arrives.
	tail := ""
	if strings.HasSuffix(text, "\r") {
		tail = "\r"
		text = text[:len(text)-1]
	}
	for {
		idx := strings.Index(text, "\n\n")
		if idx < 0 {
			break
		}
		frame := text[:idx]
		text = text[idx+2:]
		if strings.TrimSpace(frame) == "" {
			continue
		}
		frames = append(frames, frame)
	}

	s.buf.Reset()
	s.buf.WriteString(text)
	s.buf.WriteString(tail)
	return frames, ""
}

// Flush returns any residual non-whitespace buffered text as one final frame.
// Called on stream end, before the terminal marker is written.
func (s *Splitter) Flush() string {
	rest := s.buf.String()
	s.buf.Reset()
	if strings.TrimSpace(rest) == "" {
		return ""
	}
	return rest
}

// Buffered reports whether a partial frame is currently buffered.
func (s *Splitter) Buffered() bool {
	return s.buf.Len() > 0
}

// DataPayloads extracts the values of the `data:` lines of one frame. All
// other lines (event:, id:, comments) are ignored. The termination token is
// consumed, never returned.
func DataPayloads(frame string) []string {
	var payloads []string
	for _, line := range strings.Split(frame, "\n") {
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		payload := strings.TrimSpace(line[len(dataPrefix):])
		if payload == "" || payload == DoneToken {
			continue
		}
		payloads = append(payloads, payload)
	}
	return payloads
}
