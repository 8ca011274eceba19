package onnx

import (
	"context"
	"fmt"
	"os"

	ort "github.com/shota3506/onnxruntime-purego/onnxruntime"
)

// Graph is the execution boundary every model stage depends on: named
// input tensors in, named output tensors out. Satisfied by *Runner and
// by test fakes.
type Graph interface {
	Run(ctx context.Context, inputs map[string]*Tensor) (map[string]*Tensor, error)
}

// NodeSpec declares one input of a graph's signature. A -1 shape entry
// marks a dynamic dimension.
type NodeSpec struct {
	Name  string
	DType TensorDType
	Shape []int64
}

// RunnerConfig holds ORT library settings for creating runners. Values
// are forwarded to the backend unchanged.
type RunnerConfig struct {
	LibraryPath string
	APIVersion  uint32
}

// Runner wraps an ORT session for a single ONNX graph. A Runner is
// exclusively owned by the stage using it and must not be shared
// across concurrent pipelines.
type Runner struct {
	name    string
	inputs  []NodeSpec
	runtime *ort.Runtime
	env     *ort.Env
	session *ort.Session
}

// NewRunner creates a runner for the graph stored at modelPath. The
// declared inputs are validated against every Run call before the
// backend is invoked.
func NewRunner(name, modelPath string, inputs []NodeSpec, cfg RunnerConfig) (*Runner, error) {
	if cfg.APIVersion == 0 {
		cfg.APIVersion = 23
	}

	runtime, err := ort.NewRuntime(cfg.LibraryPath, cfg.APIVersion)
	if err != nil {
		return nil, &BackendError{Graph: name, Err: fmt.Errorf("ort runtime: %w", err)}
	}

	env, err := runtime.NewEnv("koetts-"+name, ort.LoggingLevelWarning)
	if err != nil {
		_ = runtime.Close()
		return nil, &BackendError{Graph: name, Err: fmt.Errorf("ort env: %w", err)}
	}

	session, err := runtime.NewSession(env, modelPath, nil)
	if err != nil {
		env.Close()
		_ = runtime.Close()
		return nil, &BackendError{Graph: name, Err: fmt.Errorf("ort session (%s): %w", modelPath, err)}
	}

	return &Runner{
		name:    name,
		inputs:  append([]NodeSpec(nil), inputs...),
		runtime: runtime,
		env:     env,
		session: session,
	}, nil
}

// NewRunnerFromBytes creates a runner from an in-memory graph blob.
// The upstream library only exposes a file-path API, so the blob is
// staged through a temporary file.
func NewRunnerFromBytes(name string, graph []byte, inputs []NodeSpec, cfg RunnerConfig) (*Runner, error) {
	if len(graph) == 0 {
		return nil, &BackendError{Graph: name, Err: fmt.Errorf("empty graph blob")}
	}

	f, err := os.CreateTemp("", "koetts-"+name+"-*.onnx")
	if err != nil {
		return nil, &BackendError{Graph: name, Err: fmt.Errorf("create temp graph file: %w", err)}
	}

	defer func() { _ = os.Remove(f.Name()) }() // best-effort temp file cleanup

	_, err = f.Write(graph)
	if err != nil {
		_ = f.Close()
		return nil, &BackendError{Graph: name, Err: fmt.Errorf("write graph bytes: %w", err)}
	}

	path := f.Name()

	err = f.Close()
	if err != nil {
		return nil, &BackendError{Graph: name, Err: fmt.Errorf("close temp graph file: %w", err)}
	}

	return NewRunner(name, path, inputs, cfg)
}

// Run executes the graph with the given named input tensors. Inputs are
// checked against the declared signature first; mismatches surface as
// ErrShapeMismatch without touching the backend.
func (r *Runner) Run(ctx context.Context, inputs map[string]*Tensor) (map[string]*Tensor, error) {
	if err := ValidateInputs(r.name, r.inputs, inputs); err != nil {
		return nil, err
	}

	ortInputs := make(map[string]*ort.Value, len(inputs))
	for name, t := range inputs {
		v, err := tensorToORT(r.runtime, t)
		if err != nil {
			closeORTValues(ortInputs)
			return nil, &BackendError{Graph: r.name, Err: fmt.Errorf("input %q: %w", name, err)}
		}

		ortInputs[name] = v
	}

	defer closeORTValues(ortInputs)

	ortOutputs, err := r.session.Run(ctx, ortInputs)
	if err != nil {
		return nil, &BackendError{Graph: r.name, Err: err}
	}
	defer closeORTValues(ortOutputs)

	results := make(map[string]*Tensor, len(ortOutputs))
	for name, v := range ortOutputs {
		t, err := ortToTensor(v)
		if err != nil {
			return nil, &BackendError{Graph: r.name, Err: fmt.Errorf("output %q: %w", name, err)}
		}

		results[name] = t
	}

	return results, nil
}

// Close releases all ORT resources. Safe to call multiple times.
func (r *Runner) Close() {
	if r.session != nil {
		r.session.Close()
		r.session = nil
	}

	if r.env != nil {
		r.env.Close()
		r.env = nil
	}

	if r.runtime != nil {
		_ = r.runtime.Close()
		r.runtime = nil
	}
}

// Name returns the graph name.
func (r *Runner) Name() string {
	return r.name
}

// ValidateInputs checks named tensors against a declared signature.
func ValidateInputs(graph string, specs []NodeSpec, inputs map[string]*Tensor) error {
	byName := make(map[string]NodeSpec, len(specs))
	for _, s := range specs {
		byName[s.Name] = s
	}

	for name := range inputs {
		if _, ok := byName[name]; !ok {
			return fmt.Errorf("%w: graph %q does not declare input %q", ErrShapeMismatch, graph, name)
		}
	}

	for _, spec := range specs {
		t, ok := inputs[spec.Name]
		if !ok {
			return fmt.Errorf("%w: graph %q missing input %q", ErrShapeMismatch, graph, spec.Name)
		}
		if t.DType() != spec.DType {
			return fmt.Errorf(
				"%w: graph %q input %q: dtype %s, want %s",
				ErrShapeMismatch, graph, spec.Name, t.DType(), spec.DType,
			)
		}
		if !t.SameShape(spec.Shape) {
			return fmt.Errorf(
				"%w: graph %q input %q: shape %v, want %v",
				ErrShapeMismatch, graph, spec.Name, t.Shape(), spec.Shape,
			)
		}
	}

	return nil
}

func tensorToORT(runtime *ort.Runtime, t *Tensor) (*ort.Value, error) {
	switch data := t.Data().(type) {
	case []float32:
		return ort.NewTensorValue(runtime, data, t.Shape())
	case []int64:
		return ort.NewTensorValue(runtime, data, t.Shape())
	default:
		return nil, fmt.Errorf("unsupported tensor dtype %T", data)
	}
}

func ortToTensor(v *ort.Value) (*Tensor, error) {
	elemType, err := v.GetTensorElementType()
	if err != nil {
		return nil, fmt.Errorf("get element type: %w", err)
	}

	switch elemType {
	case ort.ONNXTensorElementDataTypeFloat:
		data, shape, err := ort.GetTensorData[float32](v)
		if err != nil {
			return nil, err
		}

		return NewTensor(data, shape)
	case ort.ONNXTensorElementDataTypeInt64:
		data, shape, err := ort.GetTensorData[int64](v)
		if err != nil {
			return nil, err
		}

		return NewTensor(data, shape)
	default:
		return nil, fmt.Errorf("unsupported ORT element type %d", elemType)
	}
}

func closeORTValues(vals map[string]*ort.Value) {
	for _, v := range vals {
		if v != nil {
			v.Close()
		}
	}
}
