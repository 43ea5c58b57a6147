package style

// Kind identifies the type of transform output.
type Kind string

// KindStyle is the only kind produced by Rewriter.
const KindStyle Kind = "style"

// Result is the outcome of a successful transform.
type Result struct {
	Output string // transformed CSS
	Kind   Kind   // always KindStyle
}
