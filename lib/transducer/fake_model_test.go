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
	"strconv"

	"github.com/audioloom/loom/lib/backends"
	"github.com/audioloom/loom/lib/backends/backendtest"
)

// fakeTrio holds scriptable sessions standing in for the three graphs.
type fakeTrio struct {
	encoder *backendtest.FakeSession
	decoder *backendtest.FakeSession
	joiner  *backendtest.FakeSession
	factory *backendtest.FakeFactory
	config  Config
}

func encoderMetaFor(dims Dims) map[string]string {
	return map[string]string{
		"num_encoder_layers": strconv.Itoa(dims.NumEncoderLayers),
		"T":                  strconv.Itoa(dims.T),
		"decode_chunk_len":   strconv.Itoa(dims.DecodeChunkLen),
		"rnn_hidden_size":    strconv.Itoa(dims.RNNHiddenSize),
		"d_model":            strconv.Itoa(dims.DModel),
	}
}

func decoderMetaFor(dims Dims) map[string]string {
	return map[string]string{
		"vocab_size":   strconv.Itoa(dims.VocabSize),
		"context_size": strconv.Itoa(dims.ContextSize),
	}
}

// newFakeTrio wires fake sessions that behave like a tiny recurrent
// transducer:
//
//   - the encoder computes next state = 2*state + sum(features) + 1 per
//     element, so state threading order is observable in the output;
//   - the decoder emits an embedding filled with the last context token;
//   - the joiner pops one token id per call from script and returns a
//     logit with its argmax there (nil script means always blank).
func newFakeTrio(dims Dims, script []int64) *fakeTrio {
	trio := &fakeTrio{}

	trio.encoder = &backendtest.FakeSession{
		Inputs: []backends.TensorInfo{
			{Name: "x", DataType: backends.DataTypeFloat32},
			{Name: "h", DataType: backends.DataTypeFloat32},
			{Name: "c", DataType: backends.DataTypeFloat32},
		},
		Outputs: []backends.TensorInfo{
			{Name: "encoder_out", DataType: backends.DataTypeFloat32},
			{Name: "next_h", DataType: backends.DataTypeFloat32},
			{Name: "next_c", DataType: backends.DataTypeFloat32},
		},
		Meta: encoderMetaFor(dims),
		RunFn: func(inputs []backends.NamedTensor) ([]backends.NamedTensor, error) {
			x := inputs[0].Data.([]float32)
			h := inputs[1].Data.([]float32)
			c := inputs[2].Data.([]float32)

			var sum float32
			for _, v := range x {
				sum += v
			}

			nextH := make([]float32, len(h))
			for i, v := range h {
				nextH[i] = 2*v + sum + 1
			}
			nextC := make([]float32, len(c))
			for i, v := range c {
				nextC[i] = 2*v + sum + 1
			}

			frames := inputs[0].Shape[1]
			width := int64(dims.DModel)
			out := make([]float32, frames*width)
			for i := range out {
				out[i] = sum + h[0]
			}

			return []backends.NamedTensor{
				{Name: "encoder_out", Shape: []int64{1, frames, width}, Data: out},
				{Name: "next_h", Shape: inputs[1].Shape, Data: nextH},
				{Name: "next_c", Shape: inputs[2].Shape, Data: nextC},
			}, nil
		},
	}

	trio.decoder = &backendtest.FakeSession{
		Inputs: []backends.TensorInfo{
			{Name: "y", DataType: backends.DataTypeInt64},
		},
		Outputs: []backends.TensorInfo{
			{Name: "decoder_out", DataType: backends.DataTypeFloat32},
		},
		Meta: decoderMetaFor(dims),
		RunFn: func(inputs []backends.NamedTensor) ([]backends.NamedTensor, error) {
			context := inputs[0].Data.([]int64)
			out := make([]float32, dims.DModel)
			for i := range out {
				out[i] = float32(context[len(context)-1])
			}
			return []backends.NamedTensor{
				{Name: "decoder_out", Shape: []int64{1, int64(dims.DModel)}, Data: out},
			}, nil
		},
	}

	step := 0
	trio.joiner = &backendtest.FakeSession{
		Inputs: []backends.TensorInfo{
			{Name: "encoder_out", DataType: backends.DataTypeFloat32},
			{Name: "decoder_out", DataType: backends.DataTypeFloat32},
		},
		Outputs: []backends.TensorInfo{
			{Name: "logit", DataType: backends.DataTypeFloat32},
		},
		Meta: map[string]string{},
		RunFn: func(inputs []backends.NamedTensor) ([]backends.NamedTensor, error) {
			token := BlankID
			if step < len(script) {
				token = script[step]
			}
			step++

			logit := make([]float32, dims.VocabSize)
			logit[token] = 10
			return []backends.NamedTensor{
				{Name: "logit", Shape: []int64{1, int64(dims.VocabSize)}, Data: logit},
			}, nil
		},
	}

	trio.factory = &backendtest.FakeFactory{
		Sessions: map[string]*backendtest.FakeSession{
			"encoder.onnx": trio.encoder,
			"decoder.onnx": trio.decoder,
			"joiner.onnx":  trio.joiner,
		},
	}
	trio.config = Config{
		Encoder: "encoder.onnx",
		Decoder: "decoder.onnx",
		Joiner:  "joiner.onnx",
	}

	return trio
}
