package debugger

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/google/go-dap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeFrames(t *testing.T, msgs ...dap.Message) []byte {
	t.Helper()
	var buf bytes.Buffer
	for _, m := range msgs {
		require.NoError(t, dap.WriteProtocolMessage(&buf, m))
	}
	return buf.Bytes()
}

func outputEvent(seq int, text string) *dap.OutputEvent {
	ev := &dap.OutputEvent{
		Event: dap.Event{
			ProtocolMessage: dap.ProtocolMessage{Seq: seq, Type: "event"},
			Event:           "output",
		},
	}
	ev.Body.Category = "stdout"
	ev.Body.Output = text
	return ev
}

func TestFrameDecoderSingleFrame(t *testing.T) {
	var dec frameDecoder
	msgs := dec.feed(encodeFrames(t, outputEvent(1, "hello\n")))

	require.Len(t, msgs, 1)
	ev, ok := msgs[0].(*dap.OutputEvent)
	require.True(t, ok)
	assert.Equal(t, "hello\n", ev.Body.Output)
}

func TestFrameDecoderChunkedDelivery(t *testing.T) {
	wire := encodeFrames(t,
		outputEvent(1, "one"),
		outputEvent(2, "two"),
		outputEvent(3, "three"),
	)

	// Deliver one byte at a time; frames must come out whole regardless
	// of how reads split them.
	var dec frameDecoder
	var msgs []dap.Message
	for i := range wire {
		msgs = append(msgs, dec.feed(wire[i:i+1])...)
	}

	require.Len(t, msgs, 3)
	for i, want := range []string{"one", "two", "three"} {
		ev, ok := msgs[i].(*dap.OutputEvent)
		require.True(t, ok)
		assert.Equal(t, want, ev.Body.Output)
	}
}

func TestFrameDecoderMultipleFramesOneRead(t *testing.T) {
	wire := encodeFrames(t, outputEvent(1, "a"), outputEvent(2, "b"))

	var dec frameDecoder
	msgs := dec.feed(wire)
	assert.Len(t, msgs, 2)
}

func TestFrameDecoderMalformedHeaderResync(t *testing.T) {
	var wire bytes.Buffer
	wire.WriteString("Content-Length: nonsense\r\n\r\n")
	wire.Write(encodeFrames(t, outputEvent(1, "survivor")))

	var dec frameDecoder
	msgs := dec.feed(wire.Bytes())

	require.Len(t, msgs, 1)
	ev := msgs[0].(*dap.OutputEvent)
	assert.Equal(t, "survivor", ev.Body.Output)
}

func TestFrameDecoderOversizeLengthResync(t *testing.T) {
	var wire bytes.Buffer
	fmt.Fprintf(&wire, "Content-Length: %d\r\n\r\n", maxFrameSize+1)
	wire.Write(encodeFrames(t, outputEvent(1, "after")))

	var dec frameDecoder
	msgs := dec.feed(wire.Bytes())
	require.Len(t, msgs, 1)
}

func TestFrameDecoderBadPayloadDropped(t *testing.T) {
	var wire bytes.Buffer
	payload := "not json"
	fmt.Fprintf(&wire, "Content-Length: %d\r\n\r\n%s", len(payload), payload)
	wire.Write(encodeFrames(t, outputEvent(1, "good")))

	var dec frameDecoder
	msgs := dec.feed(wire.Bytes())

	require.Len(t, msgs, 1)
	ev := msgs[0].(*dap.OutputEvent)
	assert.Equal(t, "good", ev.Body.Output)
}

func TestFrameDecoderBareLFFraming(t *testing.T) {
	body := `{"seq":1,"type":"event","event":"output","body":{"category":"stdout","output":"lf"}}`
	wire := fmt.Sprintf("Content-Length: %d\n\n%s", len(body), body)

	var dec frameDecoder
	msgs := dec.feed([]byte(wire))

	require.Len(t, msgs, 1)
	ev, ok := msgs[0].(*dap.OutputEvent)
	require.True(t, ok)
	assert.Equal(t, "lf", ev.Body.Output)
}

func TestFrameDecoderIncompletePayloadWaits(t *testing.T) {
	wire := encodeFrames(t, outputEvent(1, "partial"))

	var dec frameDecoder
	msgs := dec.feed(wire[:len(wire)-3])
	assert.Empty(t, msgs)

	msgs = dec.feed(wire[len(wire)-3:])
	assert.Len(t, msgs, 1)
}

func TestParseContentLength(t *testing.T) {
	tests := []struct {
		header string
		want   int
		ok     bool
	}{
		{"Content-Length: 42", 42, true},
		{"content-length:7", 7, true},
		{"Other: x\r\nContent-Length: 10", 10, true},
		{"Content-Length: -1", 0, false},
		{"Content-Length: abc", 0, false},
		{"Other: x", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseContentLength(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.want, got, tt.header)
	}
}
