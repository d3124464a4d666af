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
	"go.uber.org/zap"
)

// ErrShortHypothesis is returned by BuildDecoderInput when the hypothesis
// is shorter than the decoder's context width.
var ErrShortHypothesis = errors.New("hypothesis shorter than decoder context")

// Model drives the three transducer graphs. The loaded sessions are
// immutable after construction and safe to share read-concurrently across
// all streams; nothing mutates a graph's weights or topology.
type Model struct {
	encoder backends.Session
	decoder backends.Session
	joiner  backends.Session

	dims   Dims
	logger *zap.Logger
}

// NewModel loads the encoder, decoder, and joiner graphs through the
// given factory, applying cfg.NumThreads uniformly, and reads the model
// dimensions from their metadata.
//
// A missing or non-positive metadata value is a deployment error, not a
// runtime condition a stream consumer can recover from: every problem is
// collected and then reported through logger.Fatal, terminating the
// process before any execution call is attempted.
func NewModel(cfg Config, factory backends.SessionFactory, logger *zap.Logger) (*Model, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []backends.SessionOption{
		backends.WithIntraOpThreads(cfg.NumThreads),
		backends.WithInterOpThreads(cfg.NumThreads),
	}

	encoder, err := factory.CreateSession(cfg.Encoder, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading encoder: %w", err)
	}
	decoder, err := factory.CreateSession(cfg.Decoder, opts...)
	if err != nil {
		_ = encoder.Close()
		return nil, fmt.Errorf("loading decoder: %w", err)
	}
	joiner, err := factory.CreateSession(cfg.Joiner, opts...)
	if err != nil {
		_ = encoder.Close()
		_ = decoder.Close()
		return nil, fmt.Errorf("loading joiner: %w", err)
	}

	if cfg.Debug {
		logMetadata(logger, "encoder", encoder.Metadata())
		logMetadata(logger, "decoder", decoder.Metadata())
		logMetadata(logger, "joiner", joiner.Metadata())
	}

	dims, err := readDims(encoder.Metadata(), decoder.Metadata())
	if err != nil {
		_ = encoder.Close()
		_ = decoder.Close()
		_ = joiner.Close()
		logger.Fatal("transducer model metadata is invalid", zap.Error(err))
		return nil, err // unreachable unless the fatal hook is overridden
	}

	logger.Debug("transducer model loaded",
		zap.Int("num_encoder_layers", dims.NumEncoderLayers),
		zap.Int("chunk_frames", dims.T),
		zap.Int("decode_chunk_len", dims.DecodeChunkLen),
		zap.Int("rnn_hidden_size", dims.RNNHiddenSize),
		zap.Int("d_model", dims.DModel),
		zap.Int("vocab_size", dims.VocabSize),
		zap.Int("context_size", dims.ContextSize))

	return &Model{
		encoder: encoder,
		decoder: decoder,
		joiner:  joiner,
		dims:    dims,
		logger:  logger,
	}, nil
}

func logMetadata(logger *zap.Logger, model string, meta map[string]string) {
	fields := make([]zap.Field, 0, len(meta))
	for k, v := range meta {
		fields = append(fields, zap.String(k, v))
	}
	logger.Info("model metadata", append([]zap.Field{zap.String("model", model)}, fields...)...)
}

// Dims returns the dimensions read from model metadata.
func (m *Model) Dims() Dims {
	return m.dims
}

// RunEncoder executes one chunk of acoustic features plus the current
// recurrent state through the encoder graph. It takes ownership of both
// arguments; the caller may not reuse them. The returned next state is
// the sole valid input state for the following chunk.
//
// Execution is synchronous. A shape or type mismatch propagates as an
// error; the stream should be considered unusable for that chunk.
func (m *Model) RunEncoder(features *FeatureChunk, st *State) (backends.NamedTensor, *State, error) {
	x, err := features.take()
	if err != nil {
		return backends.NamedTensor{}, nil, err
	}
	hidden, cell, err := st.take()
	if err != nil {
		return backends.NamedTensor{}, nil, err
	}

	info := m.encoder.InputInfo()
	if len(info) < 3 {
		return backends.NamedTensor{}, nil,
			fmt.Errorf("encoder declares %d inputs, want features, hidden, cell", len(info))
	}

	// Inputs are positional: features, hidden state, cell state.
	x.Name = info[0].Name
	hidden.Name = info[1].Name
	cell.Name = info[2].Name

	outputs, err := m.encoder.Run([]backends.NamedTensor{x, hidden, cell})
	if err != nil {
		return backends.NamedTensor{}, nil, fmt.Errorf("encoder: %w", err)
	}
	if len(outputs) < 3 {
		return backends.NamedTensor{}, nil,
			fmt.Errorf("encoder returned %d outputs, want output, hidden, cell", len(outputs))
	}

	next := &State{hidden: outputs[1], cell: outputs[2]}
	return outputs[0], next, nil
}

// BuildDecoderInput constructs the [1, context_size] context tensor from
// the trailing tokens of hyp. The tensor aliases the hypothesis tokens;
// it is consumed by the immediately following RunDecoder call.
func (m *Model) BuildDecoderInput(hyp *Hypothesis) (backends.NamedTensor, error) {
	n := m.dims.ContextSize
	if hyp.Len() < n {
		return backends.NamedTensor{}, fmt.Errorf(
			"%w: have %d tokens, need %d", ErrShortHypothesis, hyp.Len(), n)
	}
	return backends.NamedTensor{
		Name:  m.decoder.InputInfo()[0].Name,
		Shape: []int64{1, int64(n)},
		Data:  hyp.Tail(n),
	}, nil
}

// RunDecoder executes the decoder graph over a context tensor, returning
// the decoder embedding.
func (m *Model) RunDecoder(input backends.NamedTensor) (backends.NamedTensor, error) {
	input.Name = m.decoder.InputInfo()[0].Name
	outputs, err := m.decoder.Run([]backends.NamedTensor{input})
	if err != nil {
		return backends.NamedTensor{}, fmt.Errorf("decoder: %w", err)
	}
	if len(outputs) < 1 {
		return backends.NamedTensor{}, errors.New("decoder returned no outputs")
	}
	return outputs[0], nil
}

// RunJoiner executes the joiner graph over the encoder and decoder
// embeddings, returning the logit tensor used to extend the hypothesis.
func (m *Model) RunJoiner(encoderOut, decoderOut backends.NamedTensor) (backends.NamedTensor, error) {
	info := m.joiner.InputInfo()
	if len(info) < 2 {
		return backends.NamedTensor{}, fmt.Errorf(
			"joiner declares %d inputs, want encoder and decoder embeddings", len(info))
	}
	encoderOut.Name = info[0].Name
	decoderOut.Name = info[1].Name

	outputs, err := m.joiner.Run([]backends.NamedTensor{encoderOut, decoderOut})
	if err != nil {
		return backends.NamedTensor{}, fmt.Errorf("joiner: %w", err)
	}
	if len(outputs) < 1 {
		return backends.NamedTensor{}, errors.New("joiner returned no outputs")
	}
	return outputs[0], nil
}

// Close releases the three sessions.
func (m *Model) Close() error {
	return errors.Join(
		m.encoder.Close(),
		m.decoder.Close(),
		m.joiner.Close(),
	)
}
