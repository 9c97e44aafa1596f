package cfg

import "fmt"

// CallExitPolicy decides how function exits are represented.
type CallExitPolicy int

const (
	// CallExitNone leaves returns and a trailing call without successor as
	// blocks with no outgoing edge.
	CallExitNone CallExitPolicy = iota
	// CallExitSentinel adds one synthetic exit block. Blocks ending in a
	// return, and the final block when it does not end in a local jump, get
	// an Unconditional edge to it.
	CallExitSentinel
)

func (p CallExitPolicy) String() string {
	switch p {
	case CallExitNone:
		return "none"
	case CallExitSentinel:
		return "sentinel"
	}
	return fmt.Sprintf("CallExitPolicy(%d)", int(p))
}

// ParseCallExitPolicy parses the textual form produced by String.
func ParseCallExitPolicy(s string) (CallExitPolicy, error) {
	switch s {
	case "", "none":
		return CallExitNone, nil
	case "sentinel":
		return CallExitSentinel, nil
	}
	return CallExitNone, fmt.Errorf("cfg: unknown call exit policy %q", s)
}

type options struct {
	name     string
	callExit CallExitPolicy
}

// Option configures Build.
type Option func(*options)

// WithName names blocks <name>.bb<id>.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithCallExit selects the exit representation.
func WithCallExit(p CallExitPolicy) Option {
	return func(o *options) { o.callExit = p }
}
