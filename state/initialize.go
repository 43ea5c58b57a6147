package state

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"

	"vstyle/config"
	"vstyle/style"
)

func newLocalEnv() *LocalEnv {
	return &LocalEnv{start: time.Now()}
}

// PrepareRewriter resolves execution mode (configuration, NODE_ENV and
// forced flag, in order of increasing priority) and creates style rewriter.
func (e *LocalEnv) PrepareRewriter(forceProduction bool) error {
	if e.Cfg == nil {
		return fmt.Errorf("configuration is not loaded")
	}
	log := e.Log
	if log == nil {
		log = zap.NewNop()
	}

	e.Production = e.Cfg.Style.Production(os.Getenv(config.EnvMode), forceProduction)
	opts, err := e.Cfg.Style.Prepare(e.Production)
	if err != nil {
		return fmt.Errorf("unable to prepare style options: %w", err)
	}
	if e.Rewriter, err = style.New(log, opts); err != nil {
		return fmt.Errorf("unable to create style rewriter: %w", err)
	}
	log.Debug("Style rewriter ready", zap.Bool("production", e.Production), zap.Int("cache", opts.CacheSize))
	return nil
}

// SetCharset selects encoding of input files by IANA name, empty name means
// UTF-8 input.
func (e *LocalEnv) SetCharset(name string) error {
	if name == "" {
		e.Charset = nil
		return nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return fmt.Errorf("unknown character set '%s': %w", name, err)
	}
	if enc == nil {
		return fmt.Errorf("character set '%s' is not supported", name)
	}
	e.Charset = enc
	return nil
}
