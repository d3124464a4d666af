// Copyright 2026 Audioloom, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package backends provides the session layer between the transducer core
// and the tensor-execution runtime (ONNX Runtime via onnxruntime_go).
//
// A Session wraps one loaded graph. It knows the graph's declared input
// and output names, its custom metadata map, and how to run a synchronous
// forward pass over named tensors. It has no knowledge of model semantics
// (encoder vs. decoder vs. joiner); that lives in lib/transducer.
package backends

// Session is a loaded, executable graph. Run is synchronous and blocking;
// a shape or type mismatch between the inputs and the graph's expectations
// surfaces as an error from Run, not a panic.
//
// A Session is immutable after creation and safe for concurrent Run calls
// from multiple goroutines; ONNX Runtime sessions are stateless between
// calls and share only read-only weights.
type Session interface {
	// Run executes the graph over the given inputs. Inputs must be
	// supplied in the order reported by InputInfo. Outputs come back in
	// the order reported by OutputInfo.
	Run(inputs []NamedTensor) ([]NamedTensor, error)

	// InputInfo returns the graph's declared inputs, in graph order.
	InputInfo() []TensorInfo

	// OutputInfo returns the graph's declared outputs, in graph order.
	OutputInfo() []TensorInfo

	// Metadata returns the model's custom metadata map. The returned map
	// is read-only and stable for the life of the session.
	Metadata() map[string]string

	// Close releases the underlying runtime resources.
	Close() error
}

// NamedTensor associates a name with tensor data.
type NamedTensor struct {
	Name  string
	Shape []int64
	Data  any // []float32 or []int64
}

// NumElements returns the element count implied by the shape.
func (t NamedTensor) NumElements() int64 {
	n := int64(1)
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// TensorInfo describes a graph input or output.
type TensorInfo struct {
	Name     string
	Shape    []int64 // -1 for dynamic dimensions
	DataType DataType
}

// DataType represents tensor element types.
type DataType string

const (
	DataTypeFloat32 DataType = "float32"
	DataTypeInt64   DataType = "int64"
)

// SessionFactory creates sessions from model files.
type SessionFactory interface {
	// CreateSession loads the graph at the given path.
	CreateSession(modelPath string, opts ...SessionOption) (Session, error)
}

// SessionOption configures session creation.
type SessionOption func(*SessionConfig)

// SessionConfig holds configuration for session creation.
type SessionConfig struct {
	// IntraOpThreads is the thread count inside a single operator (0 = runtime default).
	IntraOpThreads int

	// InterOpThreads is the thread count across independent operators (0 = runtime default).
	InterOpThreads int
}

// WithIntraOpThreads sets the intra-op thread count.
func WithIntraOpThreads(n int) SessionOption {
	return func(c *SessionConfig) {
		c.IntraOpThreads = n
	}
}

// WithInterOpThreads sets the inter-op thread count.
func WithInterOpThreads(n int) SessionOption {
	return func(c *SessionConfig) {
		c.InterOpThreads = n
	}
}

// ApplySessionOptions applies options to a fresh config.
func ApplySessionOptions(opts ...SessionOption) *SessionConfig {
	cfg := &SessionConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
