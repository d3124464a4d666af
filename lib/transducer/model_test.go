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
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// panicOnFatalLogger turns logger.Fatal into a panic so the fail-fast
// path can be observed in-process.
func panicOnFatalLogger() *zap.Logger {
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(io.Discard),
		zapcore.DebugLevel,
	)
	return zap.New(core, zap.WithFatalHook(zapcore.WriteThenPanic))
}

func TestNewModelReadsDims(t *testing.T) {
	trio := newFakeTrio(testDims(), nil)

	model, err := NewModel(trio.config, trio.factory, zap.NewNop())
	require.NoError(t, err)
	defer func() { _ = model.Close() }()

	assert.Equal(t, testDims(), model.Dims())
}

func TestNewModelFatalOnMissingVocabSize(t *testing.T) {
	trio := newFakeTrio(testDims(), nil)
	delete(trio.decoder.Meta, "vocab_size")

	require.Panics(t, func() {
		_, _ = NewModel(trio.config, trio.factory, panicOnFatalLogger())
	})

	// Terminated before any execution call was attempted.
	assert.Zero(t, trio.encoder.RunCalls())
	assert.Zero(t, trio.decoder.RunCalls())
	assert.Zero(t, trio.joiner.RunCalls())

	// No partial state: the sessions were released on the way out.
	assert.True(t, trio.encoder.Closed())
	assert.True(t, trio.decoder.Closed())
	assert.True(t, trio.joiner.Closed())
}

func TestNewModelPropagatesLoadErrors(t *testing.T) {
	trio := newFakeTrio(testDims(), nil)
	trio.config.Joiner = "missing.onnx"

	_, err := NewModel(trio.config, trio.factory, zap.NewNop())
	require.Error(t, err)
	assert.True(t, trio.encoder.Closed())
	assert.True(t, trio.decoder.Closed())
}

func newTestModel(t *testing.T, trio *fakeTrio) *Model {
	t.Helper()
	model, err := NewModel(trio.config, trio.factory, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = model.Close() })
	return model
}

func zeroChunk(dims Dims) *FeatureChunk {
	frames := int64(dims.T)
	featureDim := int64(80)
	return NewFeatureChunk([]int64{1, frames, featureDim}, make([]float32, frames*featureDim))
}

func TestRunEncoderStateShapes(t *testing.T) {
	dims := testDims() // 3 layers, d_model 4, rnn_hidden 8
	model := newTestModel(t, newFakeTrio(dims, nil))

	out, next, err := model.RunEncoder(zeroChunk(dims), InitialState(dims))
	require.NoError(t, err)

	// Shape invariants hold independent of feature content.
	assert.Equal(t, []int64{3, 1, 4}, next.Hidden().Shape)
	assert.Equal(t, []int64{3, 1, 8}, next.Cell().Shape)
	assert.Equal(t, []int64{1, int64(dims.T), int64(dims.DModel)}, out.Shape)
}

func TestRunEncoderConsumesArguments(t *testing.T) {
	dims := testDims()
	model := newTestModel(t, newFakeTrio(dims, nil))

	chunk := zeroChunk(dims)
	state := InitialState(dims)

	_, next, err := model.RunEncoder(chunk, state)
	require.NoError(t, err)

	_, _, err = model.RunEncoder(zeroChunk(dims), state)
	assert.ErrorIs(t, err, ErrStateConsumed)

	_, _, err = model.RunEncoder(chunk, next)
	assert.ErrorIs(t, err, ErrChunkConsumed)
}

// chunkWithValue builds a chunk whose every feature equals v.
func chunkWithValue(dims Dims, v float32) *FeatureChunk {
	frames := int64(dims.T)
	featureDim := int64(80)
	data := make([]float32, frames*featureDim)
	for i := range data {
		data[i] = v
	}
	return NewFeatureChunk([]int64{1, frames, featureDim}, data)
}

func TestRunEncoderIsOrderSensitive(t *testing.T) {
	dims := testDims()
	model := newTestModel(t, newFakeTrio(dims, nil))

	run := func(first, second float32) []float32 {
		_, mid, err := model.RunEncoder(chunkWithValue(dims, first), InitialState(dims))
		require.NoError(t, err)
		_, final, err := model.RunEncoder(chunkWithValue(dims, second), mid)
		require.NoError(t, err)
		return final.Hidden().Data.([]float32)
	}

	forward := run(1, 2)
	reversed := run(2, 1)

	// A genuinely recurrent encoder distinguishes chunk order; equal
	// results would mean state was reused or aliased.
	assert.NotEqual(t, forward, reversed)
}

func TestBuildDecoderInput(t *testing.T) {
	dims := testDims()
	dims.ContextSize = 3
	model := newTestModel(t, newFakeTrio(dims, nil))

	hyp := NewHypothesis(3)
	input, err := model.BuildDecoderInput(&hyp)
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 3}, input.Shape)
	assert.Equal(t, []int64{0, 0, 0}, input.Data)
}

func TestBuildDecoderInputTrailingTokens(t *testing.T) {
	model := newTestModel(t, newFakeTrio(testDims(), nil)) // context 2

	hyp := NewHypothesis(2)
	hyp.Push(5)
	hyp.Push(1)
	hyp.Push(4)

	input, err := model.BuildDecoderInput(&hyp)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 4}, input.Data)
}

func TestBuildDecoderInputShortHypothesis(t *testing.T) {
	model := newTestModel(t, newFakeTrio(testDims(), nil)) // context 2

	short := &Hypothesis{tokens: []int64{9}}
	_, err := model.BuildDecoderInput(short)
	assert.ErrorIs(t, err, ErrShortHypothesis)
}

func TestRunDecoderAndJoiner(t *testing.T) {
	dims := testDims()
	model := newTestModel(t, newFakeTrio(dims, []int64{3}))

	hyp := NewHypothesis(dims.ContextSize)
	hyp.Push(5)

	decoderIn, err := model.BuildDecoderInput(&hyp)
	require.NoError(t, err)

	decoderOut, err := model.RunDecoder(decoderIn)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, int64(dims.DModel)}, decoderOut.Shape)
	// The fake decoder echoes the last context token.
	assert.Equal(t, float32(5), decoderOut.Data.([]float32)[0])

	frame := decoderOut // any [1, d_model] float tensor works as a frame
	logit, err := model.RunJoiner(frame, decoderOut)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, int64(dims.VocabSize)}, logit.Shape)

	token, err := argmax(logit)
	require.NoError(t, err)
	assert.EqualValues(t, 3, token)
}
