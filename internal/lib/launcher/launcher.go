// Package launcher opens a browser session for a profile.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"profilekeeper/internal/domain"
)

var ErrNoCommand = errors.New("launcher command is empty")

type Launcher interface {
	Launch(ctx context.Context, p *domain.Profile) error
}

// Exec starts Command with Args, replacing the {id} and {name} placeholders.
// The child is not waited for; it outlives the request that started it.
type Exec struct {
	Command string
	Args    []string
	log     *slog.Logger

	// start is swapped in tests.
	start func(cmd *exec.Cmd) error
}

func NewExec(command string, args []string, log *slog.Logger) *Exec {
	return &Exec{
		Command: command,
		Args:    args,
		log:     log,
		start:   startDetached,
	}
}

func startDetached(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

func (e *Exec) Launch(ctx context.Context, p *domain.Profile) error {
	const op = "launcher.Exec.Launch"

	if e.Command == "" {
		return fmt.Errorf("%s: %w", op, ErrNoCommand)
	}

	args := Expand(e.Args, p)
	// Not bound to ctx: the browser keeps running after the call returns.
	cmd := exec.Command(e.Command, args...)

	if err := e.start(cmd); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	e.log.InfoContext(ctx, "Profile launched",
		slog.String("op", op),
		slog.Int64("profile_id", p.ID),
		slog.String("command", e.Command),
		slog.Any("args", args),
	)
	return nil
}

// Expand substitutes profile placeholders in args.
func Expand(args []string, p *domain.Profile) []string {
	r := strings.NewReplacer(
		"{id}", strconv.FormatInt(p.ID, 10),
		"{name}", p.Name,
	)

	out := make([]string, len(args))
	for i, a := range args {
		out[i] = r.Replace(a)
	}
	return out
}

// Log only records launch requests.
type Log struct {
	log *slog.Logger
}

func NewLog(log *slog.Logger) *Log {
	return &Log{log: log}
}

func (l *Log) Launch(ctx context.Context, p *domain.Profile) error {
	l.log.InfoContext(ctx, "Open profile requested",
		slog.Int64("profile_id", p.ID),
		slog.String("name", p.Name),
	)
	return nil
}
