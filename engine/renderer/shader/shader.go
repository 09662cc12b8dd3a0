package shader

// ShaderType identifies the pipeline stage a shader targets.
type ShaderType int

const (
	// ShaderTypeVertex indicates a vertex stage entry point.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment indicates a fragment stage entry point.
	ShaderTypeFragment

	// ShaderTypeCompute indicates a compute stage entry point.
	ShaderTypeCompute
)

// shader is the implementation of the Shader interface.
type shader struct {
	key        string
	source     string
	shaderType ShaderType
	entryPoint string
}

// Shader describes a single WGSL entry point: the source text it lives in,
// the stage it targets, and the function name to invoke. Two Shaders may
// share one source file with different entry points.
type Shader interface {
	// Key returns the unique key for this shader, used for labels and caching.
	//
	// Returns:
	//   - string: the shader key
	Key() string

	// Source returns the full WGSL source text containing this entry point.
	//
	// Returns:
	//   - string: the WGSL source
	Source() string

	// Type returns the pipeline stage this shader targets.
	//
	// Returns:
	//   - ShaderType: the shader stage
	Type() ShaderType

	// EntryPoint returns the WGSL function name for this stage.
	//
	// Returns:
	//   - string: the entry point name
	EntryPoint() string
}

var _ Shader = &shader{}

// NewShader creates a new Shader wrapping the given WGSL source.
//
// The entry point defaults by stage to "vs_main", "fs_main", or "cs_main"
// and can be overridden with WithEntryPoint.
//
// Parameters:
//   - key: the unique key for this shader
//   - source: the WGSL source text
//   - shaderType: the stage the entry point targets
//   - opts: variadic list of ShaderBuilderOption functions
//
// Returns:
//   - Shader: a new Shader instance
func NewShader(key, source string, shaderType ShaderType, opts ...ShaderBuilderOption) Shader {
	s := &shader{
		key:        key,
		source:     source,
		shaderType: shaderType,
	}
	switch shaderType {
	case ShaderTypeVertex:
		s.entryPoint = "vs_main"
	case ShaderTypeFragment:
		s.entryPoint = "fs_main"
	case ShaderTypeCompute:
		s.entryPoint = "cs_main"
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) Type() ShaderType {
	return s.shaderType
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

// ShaderBuilderOption is a functional option used to configure a Shader during construction.
type ShaderBuilderOption func(*shader)

// WithEntryPoint overrides the default entry point name for the shader's stage.
//
// Parameters:
//   - entryPoint: the WGSL function name
//
// Returns:
//   - ShaderBuilderOption: the builder option
func WithEntryPoint(entryPoint string) ShaderBuilderOption {
	return func(s *shader) {
		s.entryPoint = entryPoint
	}
}
