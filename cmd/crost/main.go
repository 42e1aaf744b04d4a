package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/fang"

	"crost/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := fang.Execute(ctx, newRootCommand(),
		fang.WithVersion(version.GetFullVersion()),
		fang.WithErrorHandler(errorHandler),
	)
	if err != nil {
		stop()
		os.Exit(1)
	}
}

// errorHandler keeps Ctrl-C quiet and adds a next step to classified errors.
func errorHandler(w io.Writer, styles fang.Styles, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	fang.DefaultErrorHandler(w, styles, withHint(err))
}
