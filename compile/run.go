// Package compile implements the transform command: style sheets and single
// file components are scoped, prefixed and minified into CSS files.
package compile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"vstyle/archive"
	"vstyle/sfc"
	"vstyle/state"
)

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("transform")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	if src, err = filepath.Abs(src); err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) > 0 {
		if dst, err = filepath.Abs(dst); err != nil {
			return err
		}
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	if err := env.SetCharset(cmd.String("charset")); err != nil {
		log.Warn("Unknown character set specification. Ignoring...", zap.Error(err))
	}
	env.Scoped, env.ScopeID = cmd.Bool("scoped"), cmd.String("id")
	if err := env.PrepareRewriter(cmd.Bool("production")); err != nil {
		return err
	}

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst), zap.Bool("production", env.Production))
	defer func(start time.Time) {
		s := env.Rewriter.Stats()
		log.Debug("Transform cache", zap.Uint64("hits", s.Hits), zap.Uint64("misses", s.Misses), zap.Uint64("evictions", s.Evictions))
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, src, dst, cmd.Root().Writer, log)
}

// process handles a single file or a directory tree independently of CLI
// framework. Single file result goes to stdout when there is no destination.
func process(ctx context.Context, src, dst string, stdout io.Writer, log *zap.Logger) error {
	fi, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("input source was not found (%s): %w", src, err)
	}
	if fi.IsDir() {
		return processDir(ctx, src, dst, log)
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("unexpected path mode for (%s)", src)
	}
	if archive.IsArchive(src) {
		return processArchive(ctx, src, dst, log)
	}
	if detectKind(src) == kindUnknown {
		return fmt.Errorf("input was not recognized as stylesheet or component (%s)", src)
	}

	name := filepath.Base(src)
	out, err := processSource(ctx, source{rel: name, open: func() (io.ReadCloser, error) { return os.Open(src) }}, log)
	if err != nil {
		return fmt.Errorf("unable to process file: %w", err)
	}

	if len(dst) == 0 {
		_, err = io.WriteString(stdout, out)
		return err
	}
	if fi, err := os.Stat(dst); err == nil && fi.IsDir() {
		ext := state.EnvFromContext(ctx).Cfg.Compile.Extension
		dst = filepath.Join(dst, outputNames([]string{name}, ext)[name])
	}
	return writeOutput(dst, out)
}

// source is a single style sheet or component found in directory tree or
// archive, rel is its path relative to processing root and determines both
// default scope id and output name.
type source struct {
	rel  string
	open func() (io.ReadCloser, error)
}

// processDir walks directory tree finding style sheets and components and
// transforms them concurrently.
func processDir(ctx context.Context, dir, dst string, log *zap.Logger) error {
	var sources []source
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if detectKind(path) == kindUnknown {
			log.Debug("Skipping file, not recognized as stylesheet or component", zap.String("file", path))
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		sources = append(sources, source{rel: rel, open: func() (io.ReadCloser, error) { return os.Open(path) }})
		return nil
	})
	if err != nil {
		return err
	}
	return processSources(ctx, dir, sources, dst, log)
}

// processArchive transforms style sheets and components packed into zip
// archive, directory structure of archive is kept in destination. Archive
// stays open until all entries are processed.
func processArchive(ctx context.Context, src, dst string, log *zap.Logger) error {
	r, err := archive.Open(src)
	if err != nil {
		return fmt.Errorf("unable to open archive (%s): %w", src, err)
	}
	defer r.Close()

	var sources []source
	err = r.Walk(func(name string) bool {
		if detectKind(name) == kindUnknown {
			log.Debug("Skipping archive entry, not recognized as stylesheet or component", zap.String("entry", name))
			return false
		}
		return true
	}, func(e archive.Entry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		sources = append(sources, source{rel: filepath.FromSlash(e.Name), open: e.Open})
		return nil
	})
	if err != nil {
		return fmt.Errorf("unable to read archive (%s): %w", src, err)
	}
	return processSources(ctx, src, sources, dst, log)
}

// processSources transforms sources concurrently in natural order. Failures
// of individual files are logged and do not stop processing.
func processSources(ctx context.Context, root string, sources []source, dst string, log *zap.Logger) error {
	env := state.EnvFromContext(ctx)

	if len(sources) == 0 {
		log.Debug("Nothing to process", zap.String("source", root))
		return nil
	}
	if len(dst) == 0 {
		var err error
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}

	sort.Slice(sources, func(i, j int) bool { return natural.Less(sources[i].rel, sources[j].rel) })
	rels := make([]string, 0, len(sources))
	for _, s := range sources {
		rels = append(rels, s.rel)
	}
	names := outputNames(rels, env.Cfg.Compile.Extension)

	workers := env.Cfg.Compile.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var failed atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, s := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := processSource(gctx, s, log)
			if err == nil {
				err = writeOutput(filepath.Join(dst, names[s.rel]), out)
			}
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				log.Error("Unable to process file", zap.String("file", filepath.Join(root, s.rel)), zap.Error(err))
				failed.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d file(s) could not be processed", n, len(sources))
	}
	return nil
}

// processSource returns transformed CSS of a single source.
func processSource(ctx context.Context, s source, log *zap.Logger) (string, error) {
	env := state.EnvFromContext(ctx)

	f, err := s.open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(selectReader(f, env.Charset))
	if err != nil {
		return "", fmt.Errorf("unable to read source: %w", err)
	}
	env.Rpt.StoreData(filepath.ToSlash(filepath.Join("sources", s.rel)), data)

	id := env.ScopeID
	if len(id) == 0 {
		id = sfc.ScopeID(s.rel)
	}

	var out string
	switch detectKind(s.rel) {
	case kindStylesheet:
		res, err := env.Rewriter.Transform(ctx, id, string(data), env.Scoped)
		if err != nil {
			return "", err
		}
		out = res.Output
	case kindComponent:
		if out, err = processComponent(ctx, data, id, log.With(zap.String("file", s.rel))); err != nil {
			return "", err
		}
	}

	env.Rpt.StoreData(filepath.ToSlash(filepath.Join("results", s.rel+env.Cfg.Compile.Extension)), []byte(out))
	log.Debug("File processed", zap.String("file", s.rel), zap.String("id", id), zap.Int("size", len(out)))
	return out, nil
}

// processComponent transforms every plain CSS style block of component and
// joins results in document order.
func processComponent(ctx context.Context, data []byte, id string, log *zap.Logger) (string, error) {
	env := state.EnvFromContext(ctx)

	blocks, err := sfc.Extract(bytes.NewReader(data))
	if err != nil {
		return "", err
	}

	sep := "\n"
	if env.Production {
		sep = ""
	}

	var outputs []string
	for _, b := range blocks {
		if !b.IsCSS() {
			log.Warn("Skipping style block, unsupported language", zap.String("lang", b.Lang), zap.Int("line", b.Line))
			continue
		}
		res, err := env.Rewriter.Transform(ctx, id, b.Content, b.Scoped || env.Scoped)
		if err != nil {
			return "", fmt.Errorf("style block at line %d: %w", b.Line, err)
		}
		if len(strings.TrimSpace(res.Output)) > 0 {
			outputs = append(outputs, res.Output)
		}
	}
	return strings.Join(outputs, sep), nil
}

func writeOutput(path, data string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		return fmt.Errorf("unable to write output: %w", err)
	}
	return nil
}
