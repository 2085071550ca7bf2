package agent

import (
	"fmt"
	"strings"
	"time"
)

// Await waits up to budget for the agent to produce output, then returns
// everything currently available on stdout without waiting further.
//
// It fails with ErrTimeout when nothing arrives in time and with ErrRead when
// stdout has ended (the agent exited or its stream was closed).
func (h *Handle) Await(budget time.Duration) (string, error) {
	deadline := time.Now().Add(budget)

	var b strings.Builder
	for b.Len() == 0 {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", fmt.Errorf("%w: no output within %v", ErrTimeout, budget)
		}
		timer := time.NewTimer(remaining)
		select {
		case chunk, ok := <-h.out:
			timer.Stop()
			if !ok {
				return "", h.streamEnded()
			}
			b.Write(chunk)
		case <-timer.C:
		}
	}

	for {
		select {
		case chunk, ok := <-h.out:
			if !ok {
				return b.String(), nil
			}
			b.Write(chunk)
		default:
			return b.String(), nil
		}
	}
}

func (h *Handle) streamEnded() error {
	if h.readErr != nil {
		return fmt.Errorf("%w: stdout: %v", ErrRead, h.readErr)
	}
	return fmt.Errorf("%w: stdout closed", ErrRead)
}
