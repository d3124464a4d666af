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

package backends

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Runtime requirements:
//   - Set LD_LIBRARY_PATH (or ONNXRUNTIME_ROOT) before running:
//     export LD_LIBRARY_PATH=/path/to/onnxruntime/lib
//   - CGO must be enabled (CGO_ENABLED=1)

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// initONNX initializes the ONNX Runtime environment once per process.
func initONNX() error {
	ortInitOnce.Do(func() {
		if libPath := getOnnxLibraryPath(); libPath != "" {
			ort.SetSharedLibraryPath(filepath.Join(libPath, getOnnxLibraryName()))
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// getOnnxLibraryPath returns the directory containing libonnxruntime.
// Checks ONNXRUNTIME_ROOT first, then LD_LIBRARY_PATH (or DYLD_LIBRARY_PATH on macOS).
func getOnnxLibraryPath() string {
	platform := runtime.GOOS + "-" + runtime.GOARCH
	libName := getOnnxLibraryName()

	if root := os.Getenv("ONNXRUNTIME_ROOT"); root != "" {
		platformDir := filepath.Join(root, platform, "lib")
		if _, err := os.Stat(filepath.Join(platformDir, libName)); err == nil {
			return platformDir
		}
		directDir := filepath.Join(root, "lib")
		if _, err := os.Stat(filepath.Join(directDir, libName)); err == nil {
			return directDir
		}
	}

	ldPath := os.Getenv("LD_LIBRARY_PATH")
	if runtime.GOOS == "darwin" {
		if dyldPath := os.Getenv("DYLD_LIBRARY_PATH"); dyldPath != "" {
			ldPath = dyldPath
		}
	}
	if ldPath != "" {
		for _, dir := range filepath.SplitList(ldPath) {
			if _, err := os.Stat(filepath.Join(dir, libName)); err == nil {
				return dir
			}
		}
	}

	return ""
}

// getOnnxLibraryName returns the platform-specific library name.
func getOnnxLibraryName() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "libonnxruntime.so"
	}
}

// ONNXFactory creates ONNX Runtime sessions.
type ONNXFactory struct{}

var _ SessionFactory = (*ONNXFactory)(nil)

// NewONNXFactory returns a factory backed by ONNX Runtime.
func NewONNXFactory() *ONNXFactory {
	return &ONNXFactory{}
}

// CreateSession loads the ONNX graph at modelPath, applies the configured
// thread counts, and discovers the graph's input/output names and custom
// metadata. Loading is I/O-bound and expected to happen once at startup.
func (f *ONNXFactory) CreateSession(modelPath string, opts ...SessionOption) (Session, error) {
	if err := initONNX(); err != nil {
		return nil, fmt.Errorf("initializing ONNX Runtime: %w", err)
	}

	cfg := ApplySessionOptions(opts...)

	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("ONNX model not found: %s", modelPath)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("getting model info: %w", err)
	}

	inputNames := make([]string, len(inputs))
	inputInfo := make([]TensorInfo, len(inputs))
	for i, info := range inputs {
		inputNames[i] = info.Name
		inputInfo[i] = TensorInfo{
			Name:     info.Name,
			Shape:    info.Dimensions,
			DataType: onnxDataType(info.DataType),
		}
	}
	if len(inputNames) == 0 {
		return nil, fmt.Errorf("no input names found in model %s", modelPath)
	}

	outputNames := make([]string, len(outputs))
	outputInfo := make([]TensorInfo, len(outputs))
	for i, info := range outputs {
		outputNames[i] = info.Name
		outputInfo[i] = TensorInfo{
			Name:     info.Name,
			Shape:    info.Dimensions,
			DataType: onnxDataType(info.DataType),
		}
	}
	if len(outputNames) == 0 {
		return nil, fmt.Errorf("no output names found in model %s", modelPath)
	}

	sessionOpts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("creating session options: %w", err)
	}

	if cfg.IntraOpThreads > 0 {
		if err := sessionOpts.SetIntraOpNumThreads(cfg.IntraOpThreads); err != nil {
			sessionOpts.Destroy()
			return nil, fmt.Errorf("setting intra-op thread count: %w", err)
		}
	}
	if cfg.InterOpThreads > 0 {
		if err := sessionOpts.SetInterOpNumThreads(cfg.InterOpThreads); err != nil {
			sessionOpts.Destroy()
			return nil, fmt.Errorf("setting inter-op thread count: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath, inputNames, outputNames, sessionOpts)
	if err != nil {
		sessionOpts.Destroy()
		return nil, fmt.Errorf("creating ONNX session: %w", err)
	}

	metadata, err := readCustomMetadata(session)
	if err != nil {
		session.Destroy()
		sessionOpts.Destroy()
		return nil, fmt.Errorf("reading model metadata: %w", err)
	}

	return &onnxSession{
		session:     session,
		sessionOpts: sessionOpts,
		inputInfo:   inputInfo,
		outputInfo:  outputInfo,
		metadata:    metadata,
	}, nil
}

// readCustomMetadata copies the model's custom metadata map out of the
// runtime so the ORT-side handle can be released immediately.
func readCustomMetadata(session *ort.DynamicAdvancedSession) (map[string]string, error) {
	meta, err := session.GetModelMetadata()
	if err != nil {
		return nil, err
	}
	defer meta.Destroy()

	keys, err := meta.GetCustomMetadataMapKeys()
	if err != nil {
		return nil, fmt.Errorf("listing custom metadata keys: %w", err)
	}

	result := make(map[string]string, len(keys))
	for _, key := range keys {
		value, present, err := meta.LookupCustomMetadataMap(key)
		if err != nil {
			return nil, fmt.Errorf("looking up metadata key %q: %w", key, err)
		}
		if present {
			result[key] = value
		}
	}
	return result, nil
}

// onnxDataType converts an ONNX element type to our DataType.
func onnxDataType(dt ort.TensorElementDataType) DataType {
	switch dt {
	case ort.TensorElementDataTypeInt64:
		return DataTypeInt64
	default:
		return DataTypeFloat32
	}
}

// onnxSession implements Session over ort.DynamicAdvancedSession.
type onnxSession struct {
	session     *ort.DynamicAdvancedSession
	sessionOpts *ort.SessionOptions
	inputInfo   []TensorInfo
	outputInfo  []TensorInfo
	metadata    map[string]string

	mu sync.Mutex
}

func (s *onnxSession) Run(inputs []NamedTensor) ([]NamedTensor, error) {
	s.mu.Lock()
	closed := s.session == nil
	s.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("session is closed")
	}

	if len(inputs) != len(s.inputInfo) {
		return nil, fmt.Errorf("graph expects %d inputs, got %d", len(s.inputInfo), len(inputs))
	}

	ortInputs := make([]ort.Value, len(inputs))
	for i, input := range inputs {
		tensor, err := createOrtTensor(input)
		if err != nil {
			for j := 0; j < i; j++ {
				ortInputs[j].Destroy()
			}
			return nil, fmt.Errorf("creating input tensor %s: %w", input.Name, err)
		}
		ortInputs[i] = tensor
	}
	defer func() {
		for _, t := range ortInputs {
			if t != nil {
				t.Destroy()
			}
		}
	}()

	// Nil outputs let the session allocate them.
	ortOutputs := make([]ort.Value, len(s.outputInfo))
	if err := s.session.Run(ortInputs, ortOutputs); err != nil {
		return nil, fmt.Errorf("running ONNX session: %w", err)
	}
	defer func() {
		for _, t := range ortOutputs {
			if t != nil {
				t.Destroy()
			}
		}
	}()

	outputs := make([]NamedTensor, len(ortOutputs))
	for i, ortOutput := range ortOutputs {
		if ortOutput == nil {
			continue
		}
		output, err := extractOrtTensor(ortOutput, s.outputInfo[i].Name)
		if err != nil {
			return nil, fmt.Errorf("extracting output tensor %s: %w", s.outputInfo[i].Name, err)
		}
		outputs[i] = output
	}

	return outputs, nil
}

func (s *onnxSession) InputInfo() []TensorInfo {
	return s.inputInfo
}

func (s *onnxSession) OutputInfo() []TensorInfo {
	return s.outputInfo
}

func (s *onnxSession) Metadata() map[string]string {
	return s.metadata
}

func (s *onnxSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		s.session.Destroy()
		s.session = nil
	}
	if s.sessionOpts != nil {
		s.sessionOpts.Destroy()
		s.sessionOpts = nil
	}
	return nil
}

// createOrtTensor creates an ORT tensor from a NamedTensor.
func createOrtTensor(input NamedTensor) (ort.Value, error) {
	shape := ort.NewShape(input.Shape...)

	switch data := input.Data.(type) {
	case []float32:
		return ort.NewTensor(shape, data)
	case []int64:
		return ort.NewTensor(shape, data)
	default:
		return nil, fmt.Errorf("unsupported data type: %T", data)
	}
}

// extractOrtTensor copies an ORT output into a NamedTensor so the ORT
// value can be destroyed before the caller sees the data.
func extractOrtTensor(ortTensor ort.Value, name string) (NamedTensor, error) {
	shape := ortTensor.GetShape()

	if floatTensor, ok := ortTensor.(*ort.Tensor[float32]); ok {
		data := floatTensor.GetData()
		dataCopy := make([]float32, len(data))
		copy(dataCopy, data)
		return NamedTensor{Name: name, Shape: shape, Data: dataCopy}, nil
	}

	if int64Tensor, ok := ortTensor.(*ort.Tensor[int64]); ok {
		data := int64Tensor.GetData()
		dataCopy := make([]int64, len(data))
		copy(dataCopy, data)
		return NamedTensor{Name: name, Shape: shape, Data: dataCopy}, nil
	}

	return NamedTensor{}, fmt.Errorf("unsupported tensor type")
}
