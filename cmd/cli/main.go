package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/specialistvlad/gridflow/internal/cli"
)

func main() {
	// Commands replace this with the configured logger once settings are loaded.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Stdout, os.Stderr, os.Args[1:])
	stop()
	os.Exit(report(os.Stderr, err))
}

// run executes the command line in args. A panic is returned as an error so
// that it still maps onto an exit code.
func run(ctx context.Context, outW, errW io.Writer, args []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("application startup panicked: %v", r)
		}
	}()
	return cli.Execute(ctx, args, outW, errW)
}

// report prints err to errW and returns the process exit code for it.
func report(errW io.Writer, err error) int {
	if err == nil {
		return 0
	}
	code := cli.CodeFailure
	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.Code
	}
	fmt.Fprintf(errW, "%s %v\n", color.New(color.FgRed, color.Bold).Sprint("Error:"), err)
	return code
}
