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

package transducer

import (
	"errors"
	"fmt"

	"github.com/audioloom/loom/lib/backends"
)

var (
	// ErrStateConsumed is returned when a State is used after ownership
	// of it has already been transferred into an execution call.
	ErrStateConsumed = errors.New("recurrent state already consumed")

	// ErrChunkConsumed is returned when a FeatureChunk is fed to the
	// encoder more than once.
	ErrChunkConsumed = errors.New("feature chunk already consumed")
)

// State carries the encoder's recurrent tensors between chunks: a hidden
// tensor shaped [layers, batch, d_model] and a cell tensor shaped
// [layers, batch, rnn_hidden_size].
//
// A State is single-use. Passing it to RunEncoder or StackStates consumes
// it; any later use returns ErrStateConsumed. Chunk N's returned state
// must be the sole input state to chunk N+1 — recurrent correctness
// depends on strict ordering.
type State struct {
	hidden backends.NamedTensor
	cell   backends.NamedTensor
	spent  bool
}

// take transfers ownership of the underlying tensors to the caller.
func (s *State) take() (hidden, cell backends.NamedTensor, err error) {
	if s == nil || s.spent {
		return backends.NamedTensor{}, backends.NamedTensor{}, ErrStateConsumed
	}
	s.spent = true
	return s.hidden, s.cell, nil
}

// Hidden returns the hidden tensor for inspection. The tensor must not be
// mutated and is invalid once the state has been consumed.
func (s *State) Hidden() backends.NamedTensor { return s.hidden }

// Cell returns the cell tensor under the same rules as Hidden.
func (s *State) Cell() backends.NamedTensor { return s.cell }

// BatchSize returns the batch dimension of the state.
func (s *State) BatchSize() int64 {
	if len(s.hidden.Shape) != 3 {
		return 0
	}
	return s.hidden.Shape[1]
}

// FeatureChunk is one chunk of acoustic features, produced externally and
// consumed exactly once by RunEncoder.
type FeatureChunk struct {
	tensor backends.NamedTensor
	spent  bool
}

// NewFeatureChunk wraps raw feature data with its shape, typically
// [1, frames, feature_dim].
func NewFeatureChunk(shape []int64, data []float32) *FeatureChunk {
	return &FeatureChunk{tensor: backends.NamedTensor{Shape: shape, Data: data}}
}

func (f *FeatureChunk) take() (backends.NamedTensor, error) {
	if f == nil || f.spent {
		return backends.NamedTensor{}, ErrChunkConsumed
	}
	f.spent = true
	return f.tensor, nil
}

// InitialState returns the zero-filled recurrent state for a new stream,
// with batch size 1. Used exactly once, when the stream begins.
func InitialState(dims Dims) *State {
	layers := int64(dims.NumEncoderLayers)
	hidden := backends.NamedTensor{
		Shape: []int64{layers, 1, int64(dims.DModel)},
		Data:  make([]float32, layers*int64(dims.DModel)),
	}
	cell := backends.NamedTensor{
		Shape: []int64{layers, 1, int64(dims.RNNHiddenSize)},
		Data:  make([]float32, layers*int64(dims.RNNHiddenSize)),
	}
	return &State{hidden: hidden, cell: cell}
}

// StackStates combines the per-stream states of N independent streams
// into one batch-dimension-N state for a single batched encoder call.
// The input states are consumed; stream order is preserved so that
// UnstackStates inverts the combination element-for-element.
func StackStates(states []*State) (*State, error) {
	if len(states) == 0 {
		return nil, errors.New("no states to stack")
	}

	hiddens := make([]backends.NamedTensor, len(states))
	cells := make([]backends.NamedTensor, len(states))
	for i, st := range states {
		h, c, err := st.take()
		if err != nil {
			return nil, fmt.Errorf("stream %d: %w", i, err)
		}
		hiddens[i] = h
		cells[i] = c
	}

	hidden, err := concatBatch(hiddens)
	if err != nil {
		return nil, fmt.Errorf("stacking hidden states: %w", err)
	}
	cell, err := concatBatch(cells)
	if err != nil {
		return nil, fmt.Errorf("stacking cell states: %w", err)
	}

	return &State{hidden: hidden, cell: cell}, nil
}

// UnstackStates splits a batched state back into one state per stream,
// each with batch size 1, in the original stream order. The batched state
// is consumed.
func UnstackStates(st *State) ([]*State, error) {
	hidden, cell, err := st.take()
	if err != nil {
		return nil, err
	}

	hiddens, err := splitBatch(hidden)
	if err != nil {
		return nil, fmt.Errorf("splitting hidden state: %w", err)
	}
	cells, err := splitBatch(cell)
	if err != nil {
		return nil, fmt.Errorf("splitting cell state: %w", err)
	}
	if len(hiddens) != len(cells) {
		return nil, fmt.Errorf("hidden batch %d does not match cell batch %d",
			len(hiddens), len(cells))
	}

	states := make([]*State, len(hiddens))
	for i := range hiddens {
		states[i] = &State{hidden: hiddens[i], cell: cells[i]}
	}
	return states, nil
}

// concatBatch concatenates [layers, b_i, width] tensors along axis 1.
// All tensors must agree on layers and width.
func concatBatch(tensors []backends.NamedTensor) (backends.NamedTensor, error) {
	layers := tensors[0].Shape[0]
	width := tensors[0].Shape[2]

	var totalBatch int64
	for i, t := range tensors {
		if len(t.Shape) != 3 {
			return backends.NamedTensor{}, fmt.Errorf("tensor %d has rank %d, want 3", i, len(t.Shape))
		}
		if t.Shape[0] != layers || t.Shape[2] != width {
			return backends.NamedTensor{}, fmt.Errorf(
				"tensor %d has shape %v, want [%d, *, %d]", i, t.Shape, layers, width)
		}
		totalBatch += t.Shape[1]
	}

	out := make([]float32, layers*totalBatch*width)
	var batchOffset int64
	for _, t := range tensors {
		data, ok := t.Data.([]float32)
		if !ok {
			return backends.NamedTensor{}, fmt.Errorf("state tensor is %T, want []float32", t.Data)
		}
		b := t.Shape[1]
		for l := int64(0); l < layers; l++ {
			src := data[l*b*width : (l+1)*b*width]
			dst := out[(l*totalBatch+batchOffset)*width:]
			copy(dst, src)
		}
		batchOffset += b
	}

	return backends.NamedTensor{
		Shape: []int64{layers, totalBatch, width},
		Data:  out,
	}, nil
}

// splitBatch splits a [layers, batch, width] tensor into batch tensors of
// shape [layers, 1, width].
func splitBatch(t backends.NamedTensor) ([]backends.NamedTensor, error) {
	if len(t.Shape) != 3 {
		return nil, fmt.Errorf("tensor has rank %d, want 3", len(t.Shape))
	}
	data, ok := t.Data.([]float32)
	if !ok {
		return nil, fmt.Errorf("state tensor is %T, want []float32", t.Data)
	}

	layers, batch, width := t.Shape[0], t.Shape[1], t.Shape[2]
	out := make([]backends.NamedTensor, batch)
	for b := int64(0); b < batch; b++ {
		part := make([]float32, layers*width)
		for l := int64(0); l < layers; l++ {
			copy(part[l*width:(l+1)*width], data[(l*batch+b)*width:(l*batch+b+1)*width])
		}
		out[b] = backends.NamedTensor{
			Shape: []int64{layers, 1, width},
			Data:  part,
		}
	}
	return out, nil
}
