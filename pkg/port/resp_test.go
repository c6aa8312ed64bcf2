package port

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nobletooth/timewheel/pkg/scheduler"
)

func TestNewHandlerRejectsNilScheduler(t *testing.T) {
	_, err := NewHandler(nil)
	assert.Error(t, err)
}

func TestHandlePing(t *testing.T) {
	h, err := NewHandler(scheduler.New(false))
	require.NoError(t, err)

	out := h.handle(command{verb: "PING"})
	assert.Equal(t, []byte("PONG"), out.writeBytes)
	assert.False(t, out.closeConnection)
}

func TestHandleQuitClosesConnection(t *testing.T) {
	h, err := NewHandler(scheduler.New(false))
	require.NoError(t, err)

	out := h.handle(command{verb: "QUIT"})
	assert.True(t, out.closeConnection)
}

func TestHandleStartStopRoundTrip(t *testing.T) {
	h, err := NewHandler(scheduler.New(false))
	require.NoError(t, err)

	start := h.handle(command{verb: "TIMEOUT.START", args: [][]byte{[]byte("k"), []byte("100")}})
	require.Nil(t, start.err)
	assert.Equal(t, []byte("OK"), start.writeBytes)

	stop := h.handle(command{verb: "TIMEOUT.STOP", args: [][]byte{[]byte("k")}})
	require.NotNil(t, stop.writeInt)
	assert.Equal(t, 1, *stop.writeInt)

	again := h.handle(command{verb: "TIMEOUT.STOP", args: [][]byte{[]byte("k")}})
	require.NotNil(t, again.writeInt)
	assert.Equal(t, 0, *again.writeInt)
}

func TestHandleStartRejectsBadArity(t *testing.T) {
	h, err := NewHandler(scheduler.New(false))
	require.NoError(t, err)

	out := h.handle(command{verb: "TIMEOUT.START", args: [][]byte{[]byte("k")}})
	require.NotNil(t, out.err)
}

func TestHandleStartRejectsNonNumericExpiry(t *testing.T) {
	h, err := NewHandler(scheduler.New(false))
	require.NoError(t, err)

	out := h.handle(command{verb: "TIMEOUT.START", args: [][]byte{[]byte("k"), []byte("soon")}})
	require.NotNil(t, out.err)
}

func TestHandleAdvanceAndNext(t *testing.T) {
	h, err := NewHandler(scheduler.New(false))
	require.NoError(t, err)

	h.handle(command{verb: "TIMEOUT.START", args: [][]byte{[]byte("k"), []byte("5")}})
	advance := h.handle(command{verb: "TIMEOUT.ADVANCE", args: [][]byte{[]byte("5")}})
	require.NotNil(t, advance.writeInt)
	assert.Equal(t, 1, *advance.writeInt)

	next := h.handle(command{verb: "TIMEOUT.NEXT"})
	assert.Equal(t, []byte("k"), next.writeBytes)

	empty := h.handle(command{verb: "TIMEOUT.NEXT"})
	assert.True(t, empty.writeNil)
}

func TestHandleTouchOnMissingKey(t *testing.T) {
	h, err := NewHandler(scheduler.New(false))
	require.NoError(t, err)

	out := h.handle(command{verb: "TIMEOUT.TOUCH", args: [][]byte{[]byte("ghost"), []byte("5")}})
	require.NotNil(t, out.writeInt)
	assert.Equal(t, 0, *out.writeInt)
}

func TestHandleInfoReportsMightHaveKey(t *testing.T) {
	h, err := NewHandler(scheduler.New(false))
	require.NoError(t, err)

	h.handle(command{verb: "TIMEOUT.START", args: [][]byte{[]byte("k"), []byte("100")}})
	out := h.handle(command{verb: "TIMEOUT.INFO", args: [][]byte{[]byte("k")}})
	require.Nil(t, out.err)
	assert.Contains(t, string(out.writeBytes), "might_have_key=true")
}

func TestHandleUnknownCommand(t *testing.T) {
	h, err := NewHandler(scheduler.New(false))
	require.NoError(t, err)

	out := h.handle(command{verb: "NOPE"})
	require.NotNil(t, out.err)
}
