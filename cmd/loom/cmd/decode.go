// Copyright 2026 Audioloom, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package cmd

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/audioloom/loom"
	"github.com/audioloom/loom/lib/symbols"
	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <features.bin>",
	Short: "Decode a precomputed feature file",
	Long: `Stream a file of precomputed acoustic features through the transducer
and print the recognized tokens as JSON.

The feature file holds raw little-endian float32 values, frame-major:
frames * feature-dim values. Frames are fed to the encoder in chunks of
the model's declared chunk length; a trailing partial chunk is
zero-padded. Feature extraction itself is up to the producing pipeline.

Examples:
  loom decode --model-dir ./models/lstm-en --feature-dim 80 utt1.bin`,
	Args: cobra.ExactArgs(1),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)

	decodeCmd.Flags().Int("feature-dim", 80, "Feature dimension per frame")
	mustBindPFlag("feature_dim", decodeCmd.Flags().Lookup("feature-dim"))
}

type decodeResult struct {
	Tokens []int64 `json:"tokens"`
	Text   string  `json:"text,omitempty"`
	Chunks int     `json:"chunks"`
	Frames int     `json:"frames"`
}

func runDecode(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	encoder, decoder, joiner, tokensPath, err := resolveModelPaths()
	if err != nil {
		return err
	}

	featureDim := viper.GetInt("feature_dim")
	if featureDim <= 0 {
		return fmt.Errorf("--feature-dim must be positive")
	}

	features, err := readFeatureFile(args[0], featureDim)
	if err != nil {
		return err
	}
	frames := len(features) / featureDim

	recognizer, err := loom.NewRecognizer(loom.Config{
		Encoder:    encoder,
		Decoder:    decoder,
		Joiner:     joiner,
		NumThreads: viper.GetInt("num_threads"),
	}, logger)
	if err != nil {
		return err
	}
	defer func() { _ = recognizer.Close() }()

	var table *symbols.Table
	if tokensPath != "" {
		if table, err = symbols.Load(tokensPath); err != nil {
			return err
		}
	}

	chunkFrames := recognizer.Dims().T
	stream := recognizer.NewStream()

	chunks := 0
	for start := 0; start < frames; start += chunkFrames {
		chunk := make([]float32, chunkFrames*featureDim)
		end := start + chunkFrames
		if end > frames {
			end = frames
		}
		copy(chunk, features[start*featureDim:end*featureDim])

		shape := []int64{1, int64(chunkFrames), int64(featureDim)}
		if err := stream.AcceptChunk(ctx, shape, chunk); err != nil {
			return fmt.Errorf("decoding chunk %d: %w", chunks, err)
		}
		chunks++
	}
	stream.Finish()

	result := decodeResult{
		Tokens: stream.Result(),
		Chunks: chunks,
		Frames: frames,
	}
	if table != nil {
		result.Text = table.Decode(result.Tokens)
	}

	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")
	return out.Encode(result)
}

// readFeatureFile loads raw little-endian float32 features and checks the
// length is a whole number of frames.
func readFeatureFile(path string, featureDim int) ([]float32, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading feature file: %w", err)
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("feature file %s is not a whole number of float32 values", path)
	}
	values := make([]float32, len(raw)/4)
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	if len(values)%featureDim != 0 {
		return nil, fmt.Errorf("feature file %s holds %d values, not a multiple of feature dim %d",
			path, len(values), featureDim)
	}
	return values, nil
}
