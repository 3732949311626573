//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/oshokin/alarm-scheduler/internal/command"
	"github.com/oshokin/alarm-scheduler/internal/domain/alarm"
	"github.com/oshokin/alarm-scheduler/internal/logger"
	"github.com/oshokin/alarm-scheduler/internal/registry"
)

// Prompt is printed before every console line.
const Prompt = "alarm> "

// Submitter runs alarm requests. Both the local scheduler and the gRPC client satisfy it.
type Submitter interface {
	Submit(ctx context.Context, req alarm.Request) (alarm.Outcome, error)
}

// Console reads command lines, submits them and prints the result.
type Console struct {
	// submitter runs parsed requests.
	submitter Submitter
	// in is the line source.
	in io.Reader
	// out receives prompts, acknowledgements and reports.
	out io.Writer
	// prompt is printed before reading each line; empty disables it.
	prompt string
}

// NewConsole creates a console printing Prompt before each line.
func NewConsole(submitter Submitter, in io.Reader, out io.Writer) *Console {
	return &Console{
		submitter: submitter,
		in:        in,
		out:       out,
		prompt:    Prompt,
	}
}

// Run processes lines until the input ends or ctx is canceled.
// Rejected lines are reported on out and do not stop the loop.
func (c *Console) Run(ctx context.Context) error {
	lines := make(chan string)
	readErr := make(chan error, 1)

	// The reader may stay blocked on an interactive input after ctx ends;
	// it exits with the process.
	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}

		readErr <- scanner.Err()
	}()

	for {
		c.printPrompt()

		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("read console: %w", err)
					}
				default:
				}

				return nil
			}

			if err := c.Execute(ctx, line); err != nil {
				return err
			}
		}
	}
}

// Execute handles one line. Only output failures are returned; malformed
// lines and rejected requests are reported on out.
func (c *Console) Execute(ctx context.Context, line string) error {
	if len(line) == 0 {
		return nil
	}

	req, err := command.Parse(line)
	if err != nil {
		logger.DebugKV(ctx, "Rejected console line", "line", line, "error", err)

		return c.println("Bad command")
	}

	outcome, err := c.submitter.Submit(ctx, req)

	switch {
	case err == nil:
	case errors.Is(err, registry.ErrNotFound):
		return c.println(fmt.Sprintf("Alarm(%d) not found", req.ID))
	case errors.Is(err, alarm.ErrInvalidRequest):
		return c.println("Bad command: " + err.Error())
	default:
		logger.ErrorKV(ctx, "Request failed", "kind", req.Kind.String(), "alarm_id", req.ID, "error", err)

		return c.println("Request failed: " + err.Error())
	}

	if outcome.Snapshot != nil {
		if err := command.FormatSnapshot(c.out, *outcome.Snapshot); err != nil {
			return fmt.Errorf("print report: %w", err)
		}

		return nil
	}

	if text := command.FormatOutcome(outcome.Kind, outcome.Alarm); text != "" {
		return c.println(text)
	}

	return nil
}

func (c *Console) printPrompt() {
	if c.prompt == "" {
		return
	}

	_, _ = io.WriteString(c.out, c.prompt) //nolint:errcheck // A lost prompt is harmless.
}

func (c *Console) println(text string) error {
	if _, err := fmt.Fprintln(c.out, text); err != nil {
		return fmt.Errorf("write console: %w", err)
	}

	return nil
}
