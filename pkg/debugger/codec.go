// Package debugger provides a client for the DAP endpoint exposed by a
// running Godot game (default port 6006). It owns the socket, correlates
// requests with responses by sequence number, tracks session state from
// asynchronous events, and resolves variables for a paused stack frame.
package debugger

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/google/go-dap"
)

// maxFrameSize guards against a corrupt header smuggling in an absurd
// Content-Length and stalling the stream forever.
const maxFrameSize = 16 << 20

// frameDecoder accumulates raw bytes from the wire and yields the complete
// protocol messages they contain. Frames are a `Content-Length: <n>` header
// terminated by a blank line, followed by n bytes of JSON.
//
// The decoder never gives up on the stream: a header without a parseable
// length is discarded through the next blank-line boundary, and a payload
// that fails to decode drops just that one frame.
type frameDecoder struct {
	buf bytes.Buffer
}

func (d *frameDecoder) feed(p []byte) []dap.Message {
	d.buf.Write(p)

	var msgs []dap.Message
	for {
		data := d.buf.Bytes()
		sep, sepLen := findHeaderEnd(data)
		if sep < 0 {
			return msgs
		}

		length, ok := parseContentLength(string(data[:sep]))
		if !ok || length > maxFrameSize {
			// Malformed header: resynchronize at the blank-line boundary.
			d.buf.Next(sep + sepLen)
			continue
		}
		if len(data) < sep+sepLen+length {
			// Payload still in flight.
			return msgs
		}

		d.buf.Next(sep + sepLen)
		payload := make([]byte, length)
		copy(payload, d.buf.Next(length))

		msg, err := dap.DecodeProtocolMessage(payload)
		if err != nil {
			// One bad frame is not worth the connection.
			continue
		}
		msgs = append(msgs, msg)
	}
}

// findHeaderEnd locates the blank line terminating the header block,
// returning its offset and the separator width. Bare-LF peers are
// tolerated alongside the canonical CRLF framing.
func findHeaderEnd(data []byte) (int, int) {
	crlf := bytes.Index(data, []byte("\r\n\r\n"))
	lf := bytes.Index(data, []byte("\n\n"))
	switch {
	case crlf < 0 && lf < 0:
		return -1, 0
	case crlf < 0:
		return lf, 2
	case lf < 0 || crlf <= lf:
		return crlf, 4
	default:
		return lf, 2
	}
}

func parseContentLength(header string) (int, bool) {
	for _, line := range strings.Split(header, "\n") {
		name, value, ok := strings.Cut(strings.TrimSuffix(line, "\r"), ":")
		if !ok {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
