package main

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"vstyle/routes"
	"vstyle/state"
)

func outputRoutes(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("routes")
	table := routes.Default()
	out := cmd.Root().Writer

	if cmd.Bool("check") {
		if err := routes.Check(table); err != nil {
			return fmt.Errorf("route table is invalid: %w", err)
		}
		log.Info("Route table is valid", zap.Int("routes", table.Len()))
	}

	if addr := cmd.String("serve"); len(addr) > 0 {
		return serveRoutes(ctx, addr, table, log)
	}

	if cmd.Args().Len() == 0 {
		for i, r := range table.Routes() {
			fmt.Fprintf(out, "%d\t%s\n", i+1, r)
		}
		return nil
	}

	for _, path := range cmd.Args().Slice() {
		dst, err := table.Resolve(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\t%s (%s)", path, dst.Component.Name, dst.Component.File)
		for _, r := range dst.Redirects {
			fmt.Fprintf(out, "\tvia %s", r)
		}
		fmt.Fprintln(out)
	}
	return nil
}

// serveRoutes answers every request with the name of the component the route
// table selects, useful to check redirects with a browser.
func serveRoutes(ctx context.Context, addr string, table routes.Table, log *zap.Logger) error {
	render := func(w http.ResponseWriter, r *http.Request, c routes.Component, status int) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprintf(w, "<!doctype html><title>%[1]s</title><p>%[1]s (%[2]s)</p>\n", html.EscapeString(c.Name), html.EscapeString(c.File))
		log.Debug("Rendered", zap.String("path", r.URL.Path), zap.String("component", c.Name), zap.Int("status", status))
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           routes.Handler(table, render),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	log.Info("Serving route table", zap.String("address", addr))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("unable to stop server: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
