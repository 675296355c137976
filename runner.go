package parley

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

// ContentRenderer transforms a response before it is written.
// This allows for terminal rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

// Runner drives a single session over line-oriented IO, for terminals and pipes.
type Runner struct {
	Input  io.Reader
	Output io.Writer

	// Headless suppresses the banner and prompt.
	Headless bool

	// JSON writes every reply as one JSON object per line.
	JSON bool

	Renderer ContentRenderer

	// Prompt is printed before each line is read (default "> ").
	Prompt string
}

// exitCommands end the loop without being sent to the engine.
var exitCommands = map[string]bool{"exit": true, "quit": true}

// Run opens a session, answers every input line until EOF or an exit command,
// then closes the session.
func (r *Runner) Run(ctx context.Context, engine *Engine) error {
	if r.Input == nil {
		return errors.New("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return errors.New("output writer must be set (use os.Stdout)")
	}
	prompt := r.Prompt
	if prompt == "" {
		prompt = "> "
	}

	connID := "cli-" + uuid.NewString()
	greeting, err := engine.OnConnect(ctx, connID)
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	defer func() {
		_ = engine.OnDisconnect(context.WithoutCancel(ctx), connID)
	}()

	if !r.Headless && !r.JSON {
		fmt.Fprintln(r.Output, "--- Parley chat (type 'exit' to quit) ---")
	}
	if err := r.write(greeting); err != nil {
		return err
	}

	scanner := bufio.NewScanner(r.Input)
	for {
		if !r.Headless && !r.JSON {
			fmt.Fprint(r.Output, prompt)
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if exitCommands[strings.ToLower(line)] {
			return nil
		}

		reply, err := engine.OnMessage(ctx, connID, line)
		if errors.Is(err, ErrInputTooLarge) || errors.Is(err, ErrInvalidUTF8) {
			fmt.Fprintf(r.Output, "input rejected: %v\n", err)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to handle message: %w", err)
		}
		if err := r.write(reply); err != nil {
			return err
		}
	}
}

func (r *Runner) write(reply Reply) error {
	if r.JSON {
		return json.NewEncoder(r.Output).Encode(reply)
	}

	text := reply.Text
	if r.Renderer != nil {
		rendered, err := r.Renderer(text)
		if err != nil {
			return fmt.Errorf("render error: %w", err)
		}
		text = rendered
	}
	_, err := fmt.Fprintln(r.Output, strings.TrimRight(text, "\n"))
	return err
}
