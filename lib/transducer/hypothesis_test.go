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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewHypothesisPadding(t *testing.T) {
	hyp := NewHypothesis(3)

	assert.Equal(t, 3, hyp.Len())
	assert.Equal(t, []int64{BlankID, BlankID, BlankID}, hyp.Tail(3))
	assert.Empty(t, hyp.Tokens())
}

func TestHypothesisPushAndTail(t *testing.T) {
	hyp := NewHypothesis(2)
	hyp.Push(7)
	hyp.Push(3)
	hyp.Push(9)

	assert.Equal(t, 5, hyp.Len())
	assert.Equal(t, []int64{3, 9}, hyp.Tail(2))
	assert.Equal(t, []int64{7, 3, 9}, hyp.Tokens())
}

func TestHypothesisTokensIsACopy(t *testing.T) {
	hyp := NewHypothesis(2)
	hyp.Push(1)

	tokens := hyp.Tokens()
	tokens[0] = 42

	assert.Equal(t, []int64{1}, hyp.Tokens())
}
