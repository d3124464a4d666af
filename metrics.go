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

package loom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	modelLoadOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "audioloom",
			Subsystem: "loom",
			Name:      "model_load_ops_total",
			Help:      "The total number of transducer model loads.",
		},
		[]string{"model"},
	)

	chunksProcessedOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "audioloom",
			Subsystem: "loom",
			Name:      "chunks_processed_total",
			Help:      "The total number of feature chunks decoded.",
		},
		[]string{"model"},
	)

	tokensEmittedOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "audioloom",
			Subsystem: "loom",
			Name:      "tokens_emitted_total",
			Help:      "The total number of tokens emitted by greedy search.",
		},
		[]string{"model"},
	)

	modelLoadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "audioloom",
			Subsystem: "loom",
			Name:      "model_load_duration_seconds",
			Help:      "Time taken to load a transducer model family.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"model"},
	)

	chunkDecodeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "audioloom",
			Subsystem: "loom",
			Name:      "chunk_decode_duration_seconds",
			Help:      "Time taken to decode one feature chunk.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"model"},
	)
)

func init() {
	prometheus.MustRegister(modelLoadOps)
	prometheus.MustRegister(chunksProcessedOps)
	prometheus.MustRegister(tokensEmittedOps)
	prometheus.MustRegister(modelLoadDuration)
	prometheus.MustRegister(chunkDecodeDuration)
}

// streamMetrics implements streaming.Metrics for one named model.
type streamMetrics struct {
	model string
}

func (m streamMetrics) ChunkProcessed(d time.Duration) {
	chunksProcessedOps.WithLabelValues(m.model).Inc()
	chunkDecodeDuration.WithLabelValues(m.model).Observe(d.Seconds())
}

func (m streamMetrics) TokensEmitted(n int) {
	tokensEmittedOps.WithLabelValues(m.model).Add(float64(n))
}

func recordModelLoad(model string, d time.Duration) {
	modelLoadOps.WithLabelValues(model).Inc()
	modelLoadDuration.WithLabelValues(model).Observe(d.Seconds())
}
