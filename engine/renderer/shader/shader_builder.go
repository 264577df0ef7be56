package shader

// ShaderBuilderOption is a functional option used to configure a Shader during construction.
type ShaderBuilderOption func(*shader)

// WithIncludes makes the given WGSL snippets available to //@lumen:include directives.
// Multiple WithIncludes options merge; later names win.
//
// Parameters:
//   - includes: WGSL snippets keyed by include name
//
// Returns:
//   - ShaderBuilderOption: a function that registers the snippets on the shader
func WithIncludes(includes map[string]string) ShaderBuilderOption {
	return func(s *shader) {
		if s.includes == nil {
			s.includes = make(map[string]string, len(includes))
		}
		for name, src := range includes {
			s.includes[name] = src
		}
	}
}
