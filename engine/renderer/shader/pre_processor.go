// pre_processor.go implements the WGSL include pre-processor. Shader sources may contain lines of
// the form
//
//	//@lumen:include <name>
//
// which are replaced with a registered WGSL snippet, so shared structs and helper functions
// (the quad vertex interface, G-buffer decoding) live in one place.
package shader

import (
	"fmt"
	"strings"
)

// includePrefix is the marker that identifies an include directive within a WGSL comment line.
const includePrefix = "//@lumen:include"

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	includes map[string]string
	included []string
}

// PreProcessor expands include directives in WGSL source.
type PreProcessor interface {
	// Process replaces every include directive with the registered snippet. Snippets are
	// expanded recursively and each snippet is injected at most once per Process call.
	//
	// Parameters:
	//   - source: the raw WGSL source code
	//
	// Returns:
	//   - string: the expanded WGSL source
	//   - error: an error if a directive is malformed or names an unknown snippet
	Process(source string) (string, error)

	// Included returns the snippet names injected by the most recent Process call, in order.
	Included() []string
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor over the given snippet registry.
//
// Parameters:
//   - includes: WGSL snippets keyed by include name
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor
func NewPreProcessor(includes map[string]string) PreProcessor {
	if includes == nil {
		includes = map[string]string{}
	}
	return &preProcessor{includes: includes}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.included = p.included[:0]
	seen := make(map[string]bool)
	return p.expand(source, seen)
}

func (p *preProcessor) Included() []string {
	return p.included
}

func (p *preProcessor) expand(source string, seen map[string]bool) (string, error) {
	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		rest, ok := strings.CutPrefix(strings.TrimSpace(line), includePrefix)
		if !ok {
			out = append(out, line)
			continue
		}
		name := strings.TrimSpace(rest)
		if name == "" || strings.ContainsAny(name, " \t") {
			return "", fmt.Errorf("line %d: malformed include directive %q", i+1, strings.TrimSpace(line))
		}
		if seen[name] {
			continue
		}
		snippet, ok := p.includes[name]
		if !ok {
			return "", fmt.Errorf("line %d: unknown include %q", i+1, name)
		}
		seen[name] = true
		expanded, err := p.expand(snippet, seen)
		if err != nil {
			return "", fmt.Errorf("include %q: %w", name, err)
		}
		p.included = append(p.included, name)
		out = append(out, expanded)
	}
	return strings.Join(out, "\n"), nil
}
