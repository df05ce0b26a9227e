package internal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/starford/flownote/internal/capability"
	"github.com/starford/flownote/internal/mcpserver"
)

// Connect onboards dir as the flownote directory and moves the local data
// into it. Running the command is the user gesture.
func Connect(ctx context.Context, dir string, opts ...Option) error {
	return oneShot(ctx, opts, func(ctx context.Context, app *application, st *stack) (any, error) {
		res, err := st.onboarding.Connect(capability.WithGesture(ctx, dir), app.config.Storage.SuggestedName)
		if err != nil {
			return nil, err
		}
		if res.Cancelled {
			return nil, fmt.Errorf("connect: no directory given")
		}
		return res, nil
	})
}

// RestoreAccess re-grants access to the configured directory, or to dir
// when the stored one cannot be reopened.
func RestoreAccess(ctx context.Context, dir string, opts ...Option) error {
	return oneShot(ctx, opts, func(ctx context.Context, _ *application, st *stack) (any, error) {
		ok, status, err := st.onboarding.Restore(capability.WithGesture(ctx, dir))
		if err != nil {
			return nil, err
		}
		return map[string]any{"restored": ok, "status": status}, nil
	})
}

// Disconnect forgets the directory; its files stay on disk.
func Disconnect(ctx context.Context, opts ...Option) error {
	return oneShot(ctx, opts, func(ctx context.Context, _ *application, st *stack) (any, error) {
		return st.onboarding.Disconnect(ctx)
	})
}

// Status prints the storage state.
func Status(ctx context.Context, opts ...Option) error {
	return oneShot(ctx, opts, func(ctx context.Context, _ *application, st *stack) (any, error) {
		return st.onboarding.Status(ctx), nil
	})
}

// ServeMCP serves the MCP tools on stdin/stdout until the client hangs up.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	st, err := buildStack(ctx, app.config, app.logger)
	if err != nil {
		return err
	}
	defer st.Close()
	return mcpserver.New(st.notes, st.trash, st.search).ServeStdio()
}

func oneShot(ctx context.Context, opts []Option, fn func(context.Context, *application, *stack) (any, error)) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	st, err := buildStack(ctx, app.config, app.logger)
	if err != nil {
		return err
	}
	defer st.Close()

	out, err := fn(ctx, app, st)
	if err != nil {
		return err
	}
	if err := st.notes.Flush(ctx); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	enc := json.NewEncoder(app.out)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
