package credential

import (
	"errors"
	"fmt"
	"strings"
)

// Source names a place an OpenAI API key can be read from.
type Source string

const (
	// SourceExplicit is a key supplied by the user with the request.
	SourceExplicit Source = "explicit"
	// SourceSession is the stored deployment secret held for the session lifetime.
	SourceSession Source = "session"
	// SourceEnvironment is the ambient OPENAI_API_KEY environment variable.
	SourceEnvironment Source = "environment"
)

// ErrUnknownSource indicates a policy names a source that does not exist.
var ErrUnknownSource = errors.New("unknown credential source")

// ErrEmptyPolicy indicates a policy without any source.
var ErrEmptyPolicy = errors.New("credential policy must list at least one source")

// Values carries the candidate key of every source for one evaluation.
type Values struct {
	Explicit    string
	Session     string
	Environment string
}

func (v Values) lookup(source Source) string {
	switch source {
	case SourceExplicit:
		return v.Explicit
	case SourceSession:
		return v.Session
	case SourceEnvironment:
		return v.Environment
	default:
		return ""
	}
}

// Resolved is the credential chosen by a policy.
type Resolved struct {
	Key    string
	Source Source
}

// Policy is an ordered list of sources evaluated in priority order.
type Policy []Source

// Resolve returns the first source with a non-blank value. The boolean is
// false when none of the policy's sources holds a key.
func (p Policy) Resolve(values Values) (Resolved, bool) {
	for _, source := range p {
		key := strings.TrimSpace(values.lookup(source))
		if key != "" {
			return Resolved{Key: key, Source: source}, true
		}
	}
	return Resolved{}, false
}

// Allows reports whether the policy consults the given source.
func (p Policy) Allows(source Source) bool {
	for _, candidate := range p {
		if candidate == source {
			return true
		}
	}
	return false
}

// String renders the policy in the same comma separated form ParsePolicy accepts.
func (p Policy) String() string {
	names := make([]string, 0, len(p))
	for _, source := range p {
		names = append(names, string(source))
	}
	return strings.Join(names, ",")
}

// MissingWarning is the message shown when the policy resolves no key.
func (p Policy) MissingWarning() string {
	hints := make([]string, 0, len(p))
	for _, source := range p {
		switch source {
		case SourceExplicit:
			hints = append(hints, "provide an OpenAI API key in the sidebar")
		case SourceSession:
			hints = append(hints, "set OPENAI_API_KEY secret")
		case SourceEnvironment:
			hints = append(hints, "set OPENAI_API_KEY environment variable")
		}
	}
	if len(hints) == 0 {
		return "No OpenAI API key source is configured."
	}

	var message string
	switch len(hints) {
	case 1:
		message = hints[0]
	case 2:
		message = hints[0] + " or " + hints[1]
	default:
		message = strings.Join(hints[:len(hints)-1], ", ") + ", or " + hints[len(hints)-1]
	}
	return strings.ToUpper(message[:1]) + message[1:] + "."
}

// ParsePolicy reads a comma separated list such as "explicit,environment".
func ParsePolicy(raw string) (Policy, error) {
	seen := make(map[Source]struct{})
	policy := Policy{}
	for _, part := range strings.Split(raw, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		source := Source(name)
		switch source {
		case SourceExplicit, SourceSession, SourceEnvironment:
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownSource, name)
		}
		if _, dup := seen[source]; dup {
			continue
		}
		seen[source] = struct{}{}
		policy = append(policy, source)
	}
	if len(policy) == 0 {
		return nil, ErrEmptyPolicy
	}
	return policy, nil
}
