// Package port exposes a scheduler.Scheduler over the Redis wire protocol, the same shape
// the teacher lineage uses to front its storage engine — here repurposed as an
// operational/debug console for driving and inspecting a timeout wheel interactively. It
// is a thin front door, not a persistence layer: nothing here is written to disk, and
// TIMEOUT.* commands only ever touch in-memory scheduler state.
package port

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/redcon"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/nobletooth/timewheel/pkg/scheduler"
)

var address = flag.String("wheel_address", "0.0.0.0:6390", "The ip:port to listen on for the wheel RESP port.")

// command is a parsed RESP command: the upper-cased verb and its raw argument bytes.
type command struct {
	verb string
	args [][]byte
}

// output describes how to respond to a connection, mirroring the small builder style the
// teacher lineage uses for its own RESP handler.
type output struct {
	closeConnection bool
	writeNil        bool
	err             *string
	writeInt        *int
	writeBytes      []byte
}

func writeOK() output { return output{writeBytes: []byte("OK")} }

func writeNilOut() output { return output{writeNil: true} }

func writeInt(i int) output { return output{writeInt: &i} }

func writeBytes(b []byte) output { return output{writeBytes: b} }

func writeString(s string) output { return output{writeBytes: []byte(s)} }

func writeErr(err error) output {
	msg := "ERR " + err.Error()
	return output{err: &msg}
}

func closeWith(msg string) output {
	return output{writeBytes: []byte(msg), closeConnection: true}
}

// Handler answers RESP commands against a single scheduler.Scheduler.
type Handler struct {
	sched *scheduler.Scheduler
}

// NewHandler returns a Handler driving sched.
func NewHandler(sched *scheduler.Scheduler) (*Handler, error) {
	if sched == nil {
		return nil, errors.New("expected a non-nil scheduler")
	}
	return &Handler{sched: sched}, nil
}

func parseUint(b []byte) (uint64, error) {
	return strconv.ParseUint(string(b), 10, 64)
}

func (h *Handler) handle(cmd command) output {
	switch cmd.verb {
	case "PING":
		return writeString("PONG")
	case "QUIT":
		return closeWith("OK")

	case "TIMEOUT.START":
		if len(cmd.args) != 2 {
			return writeErr(errors.New("wrong number of arguments for 'TIMEOUT.START'"))
		}
		expiry, err := parseUint(cmd.args[1])
		if err != nil {
			return writeErr(fmt.Errorf("invalid expiry: %w", err))
		}
		key := string(cmd.args[0])
		h.sched.Schedule(key, expiry, key)
		return writeOK()

	case "TIMEOUT.STOP":
		if len(cmd.args) != 1 {
			return writeErr(errors.New("wrong number of arguments for 'TIMEOUT.STOP'"))
		}
		if h.sched.Cancel(string(cmd.args[0])) {
			return writeInt(1)
		}
		return writeInt(0)

	case "TIMEOUT.TOUCH":
		if len(cmd.args) != 2 {
			return writeErr(errors.New("wrong number of arguments for 'TIMEOUT.TOUCH'"))
		}
		expiry, err := parseUint(cmd.args[1])
		if err != nil {
			return writeErr(fmt.Errorf("invalid expiry: %w", err))
		}
		if h.sched.Touch(string(cmd.args[0]), expiry) {
			return writeInt(1)
		}
		return writeInt(0)

	case "TIMEOUT.ADVANCE":
		if len(cmd.args) != 1 {
			return writeErr(errors.New("wrong number of arguments for 'TIMEOUT.ADVANCE'"))
		}
		now, err := parseUint(cmd.args[0])
		if err != nil {
			return writeErr(fmt.Errorf("invalid now: %w", err))
		}
		if h.sched.Advance(now) {
			return writeInt(1)
		}
		return writeInt(0)

	case "TIMEOUT.WAIT":
		if len(cmd.args) != 0 {
			return writeErr(errors.New("wrong number of arguments for 'TIMEOUT.WAIT'"))
		}
		return writeString(strconv.FormatUint(h.sched.Wait(), 10))

	case "TIMEOUT.NEXT":
		if len(cmd.args) != 0 {
			return writeErr(errors.New("wrong number of arguments for 'TIMEOUT.NEXT'"))
		}
		key, _, ok := h.sched.Next()
		if !ok {
			return writeNilOut()
		}
		return writeBytes([]byte(key))

	case "TIMEOUT.INFO":
		if len(cmd.args) != 1 {
			return writeErr(errors.New("wrong number of arguments for 'TIMEOUT.INFO'"))
		}
		key := string(cmd.args[0])
		waitUnits := h.sched.Wait()
		eta := timestamppb.New(time.Now().Add(time.Duration(waitUnits) * time.Millisecond))
		return writeString(fmt.Sprintf("might_have_key=%t next_wakeup_eta=%s",
			h.sched.MightHaveKey(key), eta.AsTime().UTC().Format(time.RFC3339Nano)))

	default:
		return writeErr(fmt.Errorf("unknown command '%s'", cmd.verb))
	}
}

// RunServer starts a RESP server driving sched until ctx is cancelled.
func RunServer(ctx context.Context, sched *scheduler.Scheduler) error {
	if *address == "" {
		return errors.New("expected a non-empty --wheel_address flag")
	}

	handler, err := NewHandler(sched)
	if err != nil {
		return fmt.Errorf("failed to create RESP handler: %w", err)
	}

	server := redcon.NewServerNetwork("tcp", *address,
		func(conn redcon.Conn, cmd redcon.Command) {
			slog.Debug("Handling wheel command.", "cmd", string(cmd.Raw))
			parsed := command{
				verb: strings.ToUpper(string(cmd.Args[0])),
				args: cmd.Args[1:],
			}
			out := handler.handle(parsed)
			switch {
			case out.closeConnection:
				conn.WriteBulk(out.writeBytes)
				if err := conn.Close(); err != nil {
					slog.Error("Failed to close connection.", "error", err)
				}
			case out.writeNil:
				conn.WriteNull()
			case out.err != nil:
				conn.WriteError(*out.err)
			case out.writeInt != nil:
				conn.WriteInt(*out.writeInt)
			default:
				conn.WriteBulk(out.writeBytes)
			}
		},
		func(conn redcon.Conn) bool {
			slog.Info("Accepting wheel connection.", "addr", conn.NetConn().RemoteAddr().String())
			return true
		},
		func(conn redcon.Conn, err error) {},
	)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting wheel RESP server.", "address", *address)
		if err := server.ListenAndServe(); err != nil {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		slog.Info("Server context cancelled.", "err", ctx.Err())
		return server.Close()
	case err := <-serverErr:
		return fmt.Errorf("wheel RESP server stopped unexpectedly: %w", err)
	}
}
