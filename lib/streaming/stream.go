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

// Package streaming holds the per-stream decoding state machine. A Stream
// owns its recurrent state and hypothesis exclusively; the underlying
// model weights are shared read-only across all streams of a Recognizer.
package streaming

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/audioloom/loom/lib/transducer"
	"go.uber.org/zap"
)

// ErrStreamFinished is returned when a chunk arrives after Finish.
var ErrStreamFinished = errors.New("stream is finished")

// Phase tracks a stream's lifecycle.
type Phase int

const (
	// PhaseCreated means no chunk has been accepted yet.
	PhaseCreated Phase = iota
	// PhaseStreaming means chunks are being decoded.
	PhaseStreaming
	// PhaseFinished means the caller signaled end-of-stream.
	PhaseFinished
)

// Metrics receives decode observations. Implementations must be safe for
// concurrent use; the zero interface value (nil) disables reporting.
type Metrics interface {
	ChunkProcessed(d time.Duration)
	TokensEmitted(n int)
}

// Stream decodes one audio stream chunk by chunk. All methods are safe
// for concurrent use, but calls are serialized: at most one execution is
// in flight per stream, preserving the strict chunk-ordering the
// recurrent state depends on.
type Stream struct {
	model   *transducer.Model
	exec    *Executor
	metrics Metrics
	logger  *zap.Logger

	mu     sync.Mutex
	phase  Phase
	state  *transducer.State
	hyp    transducer.Hypothesis
	chunks int
}

// New creates a stream over the given model. exec bounds concurrent
// executions across streams and must not be nil.
func New(model *transducer.Model, exec *Executor, metrics Metrics, logger *zap.Logger) *Stream {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stream{
		model:   model,
		exec:    exec,
		metrics: metrics,
		logger:  logger,
	}
}

// AcceptChunk feeds one chunk of features, shaped [1, frames, feature_dim],
// through the encoder and extends the hypothesis greedily. The first call
// initializes the recurrent state and the blank-padded hypothesis.
//
// ctx is consulted only while waiting for an execution slot; a running
// graph execution always completes or fails outright.
func (s *Stream) AcceptChunk(ctx context.Context, shape []int64, features []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case PhaseFinished:
		return ErrStreamFinished
	case PhaseCreated:
		dims := s.model.Dims()
		s.state = transducer.InitialState(dims)
		s.hyp = transducer.NewHypothesis(dims.ContextSize)
		s.phase = PhaseStreaming
	}

	if err := s.exec.Acquire(ctx); err != nil {
		return fmt.Errorf("waiting for execution slot: %w", err)
	}
	defer s.exec.Release()

	start := time.Now()

	chunk := transducer.NewFeatureChunk(shape, features)
	encoderOut, next, err := s.model.RunEncoder(chunk, s.state)
	if err != nil {
		// The consumed state cannot be rebuilt; the stream is unusable
		// from this chunk on and the caller decides whether to abort.
		s.state = nil
		return fmt.Errorf("chunk %d: %w", s.chunks, err)
	}
	s.state = next

	emitted, err := s.model.GreedySearch(encoderOut, &s.hyp)
	if err != nil {
		return fmt.Errorf("chunk %d: %w", s.chunks, err)
	}
	s.chunks++

	if s.metrics != nil {
		s.metrics.ChunkProcessed(time.Since(start))
		s.metrics.TokensEmitted(emitted)
	}
	s.logger.Debug("chunk decoded",
		zap.Int("chunk", s.chunks-1),
		zap.Int("tokens_emitted", emitted))

	return nil
}

// Result returns the token ids recognized so far.
func (s *Stream) Result() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseCreated {
		return nil
	}
	return s.hyp.Tokens()
}

// Finish marks end-of-stream. No further chunks are accepted.
func (s *Stream) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = PhaseFinished
}

// Phase returns the stream's current lifecycle phase.
func (s *Stream) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}
