package style

import (
	"context"

	"vstyle/css"
)

// Plugin is a single step of the transform pipeline.
type Plugin interface {
	Name() string
	Process(ctx context.Context, st *Stage) error
}

type pluginFunc struct {
	name string
	fn   func(context.Context, *Stage) error
}

func (p pluginFunc) Name() string { return p.name }

func (p pluginFunc) Process(ctx context.Context, st *Stage) error { return p.fn(ctx, st) }

// PluginFunc turns a function into a named Plugin.
func PluginFunc(name string, fn func(ctx context.Context, st *Stage) error) Plugin {
	return pluginFunc{name: name, fn: fn}
}

// Stage holds stylesheet while it travels through the pipeline. It keeps
// either the parsed form or the text and converts between them on demand,
// so plugins working on syntax tree and plugins working on text may follow
// each other in any order.
type Stage struct {
	parser *css.Parser
	from   string

	sheet *css.Stylesheet // current when not nil
	text  string          // current when sheet is nil
	raw   bool            // text is the original input, never parsed
}

func newStage(parser *css.Parser, from, source string) *Stage {
	return &Stage{parser: parser, from: from, text: source, raw: true}
}

// From returns the name of the stylesheet being processed.
func (s *Stage) From() string {
	return s.from
}

// Sheet returns the parsed stylesheet, parsing current text if necessary.
// Changes made to the returned stylesheet are visible to the following
// steps.
func (s *Stage) Sheet() (*css.Stylesheet, error) {
	if s.sheet == nil {
		sheet, err := s.parser.Parse([]byte(s.text), s.from)
		if err != nil {
			return nil, err
		}
		s.sheet, s.text, s.raw = sheet, "", false
	}
	return s.sheet, nil
}

// Text returns CSS text of the current state. Input which was never
// processed is parsed first, so malformed input is always reported.
func (s *Stage) Text() (string, error) {
	if s.raw {
		if _, err := s.Sheet(); err != nil {
			return "", err
		}
	}
	if s.sheet != nil {
		return s.sheet.String(), nil
	}
	return s.text, nil
}

// SetText replaces current state with text, previously returned stylesheet
// is no longer used.
func (s *Stage) SetText(text string) {
	s.sheet, s.text, s.raw = nil, text, false
}
