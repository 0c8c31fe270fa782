// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command console is the store admin console for the terminal.
//
// It signs in against the retail backend, keeps the session in a durable store
// between invocations and refreshes expired access tokens on its own.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/taibuivan/storeconsole/internal/console"
	"github.com/taibuivan/storeconsole/internal/platform/apperr"
	"github.com/taibuivan/storeconsole/internal/platform/constants"
	"github.com/taibuivan/storeconsole/internal/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command line and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	c := &cli{stdin: stdin, stdout: stdout, stderr: stderr}
	cmd := c.root()
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if finishErr := c.finish(); err == nil {
		err = finishErr
	}
	if err == nil {
		return 0
	}

	fmt.Fprintln(stderr, describe(err))
	return 1
}

// describe turns a command failure into the text shown to the user.
func describe(err error) string {
	var redirect *console.RedirectError
	switch {
	case errors.As(err, &redirect) && redirect.SignInRequired():
		if redirect.Redirect != "" {
			return fmt.Sprintf("Not signed in. Run '%s login', then open %s again.", constants.AppName, redirect.Redirect)
		}
		return fmt.Sprintf("Not signed in. Run '%s login'.", constants.AppName)
	case errors.As(err, &redirect):
		return "You do not have access to this section."
	case session.IsTerminal(err):
		return fmt.Sprintf("Your session has ended. Run '%s login'.", constants.AppName)
	}

	if appError := apperr.As(err); appError != nil {
		var text strings.Builder
		text.WriteString("Error: " + appError.Message)
		for _, detail := range appError.Details {
			fmt.Fprintf(&text, "\n  %s: %s", detail.Field, detail.Message)
		}
		return text.String()
	}
	if apperr.StatusOf(err) != 0 {
		return "Error: " + apperr.Display(err)
	}
	return "Error: " + err.Error()
}
