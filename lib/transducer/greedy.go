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
	"fmt"

	"github.com/audioloom/loom/lib/backends"
)

// GreedySearch extends hyp by decoding every frame of encoderOut, which
// must be shaped [1, frames, width]. For each frame the joiner combines
// the frame with the current decoder embedding; a non-blank argmax is
// appended to the hypothesis and the decoder re-run over the new context.
//
// Returns the number of tokens emitted. This is the minimal greedy
// hypothesis-extension loop; richer decoding policies live elsewhere.
func (m *Model) GreedySearch(encoderOut backends.NamedTensor, hyp *Hypothesis) (int, error) {
	if len(encoderOut.Shape) != 3 {
		return 0, fmt.Errorf("encoder output has rank %d, want 3", len(encoderOut.Shape))
	}
	data, ok := encoderOut.Data.([]float32)
	if !ok {
		return 0, fmt.Errorf("encoder output is %T, want []float32", encoderOut.Data)
	}
	frames, width := encoderOut.Shape[1], encoderOut.Shape[2]

	decoderIn, err := m.BuildDecoderInput(hyp)
	if err != nil {
		return 0, err
	}
	decoderOut, err := m.RunDecoder(decoderIn)
	if err != nil {
		return 0, err
	}

	emitted := 0
	for t := int64(0); t < frames; t++ {
		frame := backends.NamedTensor{
			Shape: []int64{1, width},
			Data:  data[t*width : (t+1)*width],
		}

		logit, err := m.RunJoiner(frame, decoderOut)
		if err != nil {
			return emitted, fmt.Errorf("frame %d: %w", t, err)
		}

		token, err := argmax(logit)
		if err != nil {
			return emitted, fmt.Errorf("frame %d: %w", t, err)
		}
		if token == BlankID {
			continue
		}

		hyp.Push(token)
		emitted++

		decoderIn, err = m.BuildDecoderInput(hyp)
		if err != nil {
			return emitted, err
		}
		decoderOut, err = m.RunDecoder(decoderIn)
		if err != nil {
			return emitted, err
		}
	}

	return emitted, nil
}

func argmax(logit backends.NamedTensor) (int64, error) {
	data, ok := logit.Data.([]float32)
	if !ok || len(data) == 0 {
		return 0, fmt.Errorf("logit is %T with %d elements", logit.Data, len(data))
	}
	best := 0
	for i, v := range data {
		if v > data[best] {
			best = i
		}
	}
	return int64(best), nil
}
