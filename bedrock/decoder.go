package bedrock

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/empath-com/Empathetic-Communication/core"
)

var errIncomplete = errors.New("bedrock: incomplete frame")

// Decoder reassembles complete JSON frames from an arbitrarily chunked byte
// stream. Bytes that do not yet form a complete object are retained between
// feeds; extracted frames come out in the exact order their bytes arrived.
//
// Malformed (non-incomplete) JSON is non-fatal: the offending leading
// segment is discarded and decoding resumes at the next plausible object
// start, so one bad frame never stalls or kills the session.
type Decoder struct {
	buf    []byte
	logger *core.Logger
}

func NewDecoder(logger *core.Logger) *Decoder {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Decoder{logger: logger.With(map[string]interface{}{"component": "decoder"})}
}

// Feed appends one chunk and returns every complete frame now available.
func (d *Decoder) Feed(chunk []byte) [][]byte {
	d.buf = append(d.buf, chunk...)

	var frames [][]byte
	for {
		obj, rest, err := nextObject(d.buf)
		if err == nil {
			frames = append(frames, obj)
			d.buf = rest
			continue
		}
		if errors.Is(err, errIncomplete) {
			d.buf = rest
			return frames
		}

		// Malformed segment: discard it and resync. Dropping at least one
		// byte guarantees progress even if the same prefix reappears.
		var syn *json.SyntaxError
		dropped := int64(1)
		if errors.As(err, &syn) && syn.Offset > 1 {
			dropped = syn.Offset
		}
		d.logger.With(map[string]interface{}{
			"error":   err,
			"dropped": dropped,
		}).Warn("discarding malformed frame data")
		d.buf = resync(rest, dropped)
	}
}

// Buffered returns the number of retained, not-yet-parsed bytes.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// nextObject attempts to parse one JSON object at the start of buf.
// On success it returns the object's exact bytes and the unparsed remainder.
// errIncomplete means buf holds only a prefix of an object; any other error
// means the leading segment is malformed.
func nextObject(buf []byte) (obj, rest []byte, err error) {
	trimmed := bytes.TrimLeft(buf, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, trimmed, errIncomplete
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, trimmed, errIncomplete
		}
		return nil, trimmed, fmt.Errorf("bedrock: decode frame: %w", err)
	}
	return raw, trimmed[dec.InputOffset():], nil
}

// resync drops the first n bytes, then skips ahead to the next top-level
// '{' so decoding restarts at a plausible object boundary. When the
// malformed segment was itself an object, its unclosed remainder is dropped
// too, so an object nested inside it is never promoted to a frame. Brace
// counting ignores string context, which is acceptable for input that is
// already broken.
func resync(buf []byte, n int64) []byte {
	if n > int64(len(buf)) {
		n = int64(len(buf))
	}
	dropped, rest := buf[:n], buf[n:]

	if len(dropped) > 0 && dropped[0] == '{' {
		depth := 0
		for _, b := range dropped {
			switch b {
			case '{':
				depth++
			case '}':
				depth--
			}
		}
		for depth > 0 && len(rest) > 0 {
			switch rest[0] {
			case '{':
				depth++
			case '}':
				depth--
			}
			rest = rest[1:]
		}
		if depth > 0 {
			// Everything buffered still belongs to the broken object.
			return nil
		}
	}
	if i := bytes.IndexByte(rest, '{'); i >= 0 {
		return rest[i:]
	}
	return nil
}
