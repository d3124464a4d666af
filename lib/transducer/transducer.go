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

// Package transducer implements chunk-wise inference for streaming LSTM
// transducer models: an acoustic encoder carrying recurrent state between
// chunks, a label decoder fed the trailing tokens of the hypothesis, and a
// joiner producing per-step vocabulary logits.
//
// The package preserves the numeric and shape contracts of the exported
// graphs and enforces move-only ownership of recurrent state: a State (or
// FeatureChunk) passed into an execution call is consumed and cannot be
// reused. Model weights are read-only after loading and may be shared
// across any number of concurrent streams; per-stream state must not be.
package transducer

// Config holds the file paths and runtime settings for one transducer
// model family. It is immutable after being passed to NewModel.
type Config struct {
	// Encoder, Decoder, Joiner are paths to the three ONNX graphs.
	Encoder string
	Decoder string
	Joiner  string

	// NumThreads is applied uniformly as both the intra-op and inter-op
	// thread count of all three graphs (0 = runtime default).
	NumThreads int

	// Debug logs each sub-model's full metadata map at load time.
	Debug bool
}

// Dims are the integer dimensions read once from model metadata.
// All values are positive; a missing or non-positive value is a fatal
// misconfiguration caught at load time.
type Dims struct {
	// Encoder metadata.
	NumEncoderLayers int // num_encoder_layers
	T                int // T, frames consumed per chunk
	DecodeChunkLen   int // decode_chunk_len
	RNNHiddenSize    int // rnn_hidden_size
	DModel           int // d_model

	// Decoder metadata.
	VocabSize   int // vocab_size
	ContextSize int // context_size
}

// BlankID is the token id reserved for the transducer blank symbol.
const BlankID int64 = 0
