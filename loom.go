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

// Package loom provides streaming speech recognition over ONNX transducer
// models (encoder, decoder, joiner). A Recognizer loads one model family
// once and serves any number of concurrent streams; each stream carries
// its own recurrent state and hypothesis while sharing the read-only
// model weights.
package loom

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/audioloom/loom/lib/backends"
	"github.com/audioloom/loom/lib/streaming"
	"github.com/audioloom/loom/lib/transducer"
	"go.uber.org/zap"
)

// Config configures a Recognizer.
type Config struct {
	// Encoder, Decoder, Joiner are paths to the three ONNX graphs.
	Encoder string
	Decoder string
	Joiner  string

	// NumThreads is the intra-op and inter-op thread count for all three
	// graphs (0 = runtime default).
	NumThreads int

	// MaxConcurrentChunks bounds how many streams may be decoding a chunk
	// at the same time (0 = one per CPU).
	MaxConcurrentChunks int

	// Debug logs full model metadata at load time.
	Debug bool
}

// Recognizer owns one loaded transducer model family and creates streams
// over it. Loading is slow and happens once; streams are cheap.
type Recognizer struct {
	name   string
	model  *transducer.Model
	exec   *streaming.Executor
	logger *zap.Logger
}

// NewRecognizer loads the model family described by cfg using the ONNX
// Runtime backend.
func NewRecognizer(cfg Config, logger *zap.Logger) (*Recognizer, error) {
	return newRecognizer(cfg, backends.NewONNXFactory(), logger)
}

func newRecognizer(cfg Config, factory backends.SessionFactory, logger *zap.Logger) (*Recognizer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	name := recognizerName(cfg.Encoder)

	start := time.Now()
	model, err := transducer.NewModel(transducer.Config{
		Encoder:    cfg.Encoder,
		Decoder:    cfg.Decoder,
		Joiner:     cfg.Joiner,
		NumThreads: cfg.NumThreads,
		Debug:      cfg.Debug,
	}, factory, logger)
	if err != nil {
		return nil, fmt.Errorf("loading transducer model: %w", err)
	}
	recordModelLoad(name, time.Since(start))

	logger.Info("recognizer ready",
		zap.String("model", name),
		zap.Duration("load_time", time.Since(start)))

	return &Recognizer{
		name:   name,
		model:  model,
		exec:   streaming.NewExecutor(cfg.MaxConcurrentChunks),
		logger: logger,
	}, nil
}

// recognizerName derives a short metric label from the encoder path.
func recognizerName(encoderPath string) string {
	if dir := filepath.Base(filepath.Dir(encoderPath)); dir != "." && dir != string(filepath.Separator) {
		return dir
	}
	return filepath.Base(encoderPath)
}

// NewStream creates a stream for one audio source. The stream owns its
// recurrent state and hypothesis exclusively.
func (r *Recognizer) NewStream() *streaming.Stream {
	return streaming.New(r.model, r.exec, streamMetrics{model: r.name}, r.logger)
}

// Dims returns the model dimensions read from metadata.
func (r *Recognizer) Dims() transducer.Dims {
	return r.model.Dims()
}

// Name returns the short name derived from the model path.
func (r *Recognizer) Name() string {
	return r.name
}

// Close releases the loaded sessions. Streams created from this
// recognizer must not be used afterwards.
func (r *Recognizer) Close() error {
	return r.model.Close()
}
