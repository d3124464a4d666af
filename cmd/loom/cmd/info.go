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
	"os"

	"github.com/audioloom/loom"
	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print model dimensions",
	Long: `Load a transducer model family and print the dimensions read from
its metadata as JSON. Full per-graph metadata is logged when --debug is set.

Examples:
  loom info --model-dir ./models/lstm-en
  loom info --model-dir ./models/lstm-en --debug`,
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().Bool("debug", false, "Log full model metadata")
}

func runInfo(cmd *cobra.Command, args []string) error {
	debug, _ := cmd.Flags().GetBool("debug")

	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	encoder, decoder, joiner, _, err := resolveModelPaths()
	if err != nil {
		return err
	}

	recognizer, err := loom.NewRecognizer(loom.Config{
		Encoder:    encoder,
		Decoder:    decoder,
		Joiner:     joiner,
		NumThreads: viper.GetInt("num_threads"),
		Debug:      debug,
	}, logger)
	if err != nil {
		return err
	}
	defer func() { _ = recognizer.Close() }()

	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")
	return out.Encode(recognizer.Dims())
}
