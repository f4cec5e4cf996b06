package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"

	"github.com/skylarkuav/go-follow/internal/log"
	"github.com/skylarkuav/go-follow/pkg/follow"
)

var errSinkFull = errors.New("command sink queue full")

// stdoutSink writes control commands as JSON lines on stdout, where the
// flight-stack bridge consumes them. Dispatch never blocks the control
// loop: commands go through a buffered queue and a full queue drops the
// command with an error, which the manager counts as a dispatch failure.
type stdoutSink struct {
	queue chan follow.ControlCommand
	enc   *json.Encoder
}

func newStdoutSink(ctx context.Context) *stdoutSink {
	s := &stdoutSink{
		queue: make(chan follow.ControlCommand, 64),
		enc:   json.NewEncoder(os.Stdout),
	}
	go s.writeLoop(ctx)
	return s
}

// Supports reports true for every control type; the bridge understands
// all of them.
func (s *stdoutSink) Supports(controlType follow.ControlType) bool {
	return controlType.Valid()
}

func (s *stdoutSink) Dispatch(cmd follow.ControlCommand) error {
	select {
	case s.queue <- cmd:
		return nil
	default:
		return errSinkFull
	}
}

func (s *stdoutSink) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-s.queue:
			if err := s.enc.Encode(cmd); err != nil {
				log.Warn("command write failed", "error", err)
			}
		}
	}
}
