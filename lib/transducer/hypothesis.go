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

// Hypothesis is the token sequence recognized so far for one stream.
// It is append-only during decoding and always starts padded with the
// blank token to the decoder's context width, so the trailing context is
// well-defined from the first decoding step.
type Hypothesis struct {
	tokens  []int64
	padding int
}

// NewHypothesis returns a fresh hypothesis padded with contextSize blank
// tokens, matching the decoder's trained context width.
func NewHypothesis(contextSize int) Hypothesis {
	tokens := make([]int64, contextSize)
	for i := range tokens {
		tokens[i] = BlankID
	}
	return Hypothesis{tokens: tokens, padding: contextSize}
}

// Push appends one recognized token.
func (h *Hypothesis) Push(token int64) {
	h.tokens = append(h.tokens, token)
}

// Len returns the total length including the initial padding.
func (h *Hypothesis) Len() int {
	return len(h.tokens)
}

// Tail returns a view of the trailing n tokens. The returned slice
// aliases the hypothesis and is valid until the next Push.
func (h *Hypothesis) Tail(n int) []int64 {
	return h.tokens[len(h.tokens)-n:]
}

// Tokens returns the recognized tokens with the initial padding stripped.
func (h *Hypothesis) Tokens() []int64 {
	out := make([]int64, len(h.tokens)-h.padding)
	copy(out, h.tokens[h.padding:])
	return out
}
