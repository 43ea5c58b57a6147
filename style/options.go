package style

// DefaultCacheSize is the number of transform results kept by a Rewriter.
const DefaultCacheSize = 100

// ProcessOptions are passed along with custom plugins.
type ProcessOptions struct {
	// From names the stylesheet in errors and logs, component id is used when empty.
	From string
}

// Custom is the configured list of user plugins which run before any
// built-in step. Use Plugins or PluginsWithOptions to create it.
type Custom interface {
	plugins() []Plugin
	options() ProcessOptions
}

type pluginList []Plugin

func (l pluginList) plugins() []Plugin       { return l }
func (l pluginList) options() ProcessOptions { return ProcessOptions{} }

type pluginsWithOptions struct {
	list []Plugin
	opts ProcessOptions
}

func (p pluginsWithOptions) plugins() []Plugin       { return p.list }
func (p pluginsWithOptions) options() ProcessOptions { return p.opts }

// Plugins returns custom plugin list.
func Plugins(list ...Plugin) Custom {
	return pluginList(append([]Plugin(nil), list...))
}

// PluginsWithOptions returns custom plugin list with process options.
func PluginsWithOptions(opts ProcessOptions, list ...Plugin) Custom {
	return pluginsWithOptions{list: append([]Plugin(nil), list...), opts: opts}
}

// AutoprefixOptions configures vendor prefixing. Zero value enables
// prefixing for all supported vendors.
type AutoprefixOptions struct {
	Disable bool     // do not add prefixing step at all
	Vendors []string // subset of "webkit", "moz", "ms"; empty means all
	Skip    []string // standard property names which must not be prefixed
}

// MinifyOptions configures minification step. Unset fields take defaults
// which are safe to use after autoprefixing: Safe is true and Autoprefixer
// is false.
type MinifyOptions struct {
	// Safe disables transformations which may change rendering. When false
	// duplicate declarations of a property are collapsed to the one which
	// wins the cascade.
	Safe *bool
	// Autoprefixer removes vendor prefixed declarations when standard
	// property is present in the same block.
	Autoprefixer *bool
	// Precision is the number of significant digits kept in numbers, 0 keeps all.
	Precision int
}

func (o MinifyOptions) merged(user MinifyOptions) MinifyOptions {
	if user.Safe != nil {
		o.Safe = user.Safe
	}
	if user.Autoprefixer != nil {
		o.Autoprefixer = user.Autoprefixer
	}
	if user.Precision != 0 {
		o.Precision = user.Precision
	}
	return o
}

func (o MinifyOptions) safe() bool {
	return o.Safe == nil || *o.Safe
}

func (o MinifyOptions) removePrefixes() bool {
	return o.Autoprefixer != nil && *o.Autoprefixer
}

// Options configures Rewriter.
type Options struct {
	Custom     Custom            // plugins to run first, may be nil
	Autoprefix AutoprefixOptions // vendor prefixing
	Minify     MinifyOptions     // user overrides of minifier defaults
	Production bool              // append minification step
	CacheSize  int               // 0 means DefaultCacheSize
}
