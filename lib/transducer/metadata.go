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
	"strconv"
	"strings"
)

// metaReader extracts required positive integers from a model's custom
// metadata map. Problems are accumulated rather than reported one at a
// time, so a misconfigured model surfaces every missing or invalid key in
// a single report before the process terminates.
type metaReader struct {
	model    string
	meta     map[string]string
	problems []error
}

func newMetaReader(model string, meta map[string]string) *metaReader {
	return &metaReader{model: model, meta: meta}
}

// posInt returns the value of key parsed as a positive integer, recording
// a problem and returning 0 when the key is absent or the value invalid.
func (r *metaReader) posInt(key string) int {
	raw, ok := r.meta[key]
	if !ok {
		r.problems = append(r.problems,
			fmt.Errorf("%s: %q does not exist in the metadata", r.model, key))
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		r.problems = append(r.problems,
			fmt.Errorf("%s: %q has non-integer value %q", r.model, key, raw))
		return 0
	}
	if n <= 0 {
		r.problems = append(r.problems,
			fmt.Errorf("%s: invalid value %d for %q", r.model, n, key))
		return 0
	}
	return n
}

func (r *metaReader) err() error {
	return errors.Join(r.problems...)
}

// readDims reads every required dimension from the encoder and decoder
// metadata maps. On error the returned Dims is unusable; the error lists
// all problems across both models.
func readDims(encoderMeta, decoderMeta map[string]string) (Dims, error) {
	enc := newMetaReader("encoder", encoderMeta)
	dims := Dims{
		NumEncoderLayers: enc.posInt("num_encoder_layers"),
		T:                enc.posInt("T"),
		DecodeChunkLen:   enc.posInt("decode_chunk_len"),
		RNNHiddenSize:    enc.posInt("rnn_hidden_size"),
		DModel:           enc.posInt("d_model"),
	}

	dec := newMetaReader("decoder", decoderMeta)
	dims.VocabSize = dec.posInt("vocab_size")
	dims.ContextSize = dec.posInt("context_size")

	return dims, errors.Join(enc.err(), dec.err())
}
