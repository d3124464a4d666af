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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var modelDir string

var rootCmd = &cobra.Command{
	Use:   "loom",
	Short: "Streaming transducer speech recognition",
	Long: `Loom runs streaming speech recognition over ONNX transducer models
(acoustic encoder, label decoder, joiner), carrying recurrent state
between feature chunks.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&modelDir, "model-dir", "",
		"Directory holding encoder*.onnx, decoder*.onnx, joiner*.onnx (and tokens.txt)")
	rootCmd.PersistentFlags().Int("num-threads", 1, "Intra-op and inter-op thread count per graph")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	mustBindPFlag("num_threads", rootCmd.PersistentFlags().Lookup("num-threads"))
	mustBindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	viper.SetEnvPrefix("LOOM")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
}

func mustBindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", key, err))
	}
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger builds a console logger at the configured level.
func newLogger() *zap.Logger {
	level, err := zapcore.ParseLevel(viper.GetString("log_level"))
	if err != nil {
		level = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("building logger: %v", err))
	}
	return logger
}

// resolveModelPaths locates the three graphs (and tokens.txt) inside
// --model-dir.
func resolveModelPaths() (encoder, decoder, joiner, tokens string, err error) {
	if modelDir == "" {
		return "", "", "", "", fmt.Errorf("--model-dir is required")
	}
	encoder = firstGlob(modelDir, "encoder*.onnx")
	decoder = firstGlob(modelDir, "decoder*.onnx")
	joiner = firstGlob(modelDir, "joiner*.onnx")
	if encoder == "" || decoder == "" || joiner == "" {
		return "", "", "", "", fmt.Errorf(
			"%s does not contain encoder*.onnx, decoder*.onnx, and joiner*.onnx", modelDir)
	}
	tokens = filepath.Join(modelDir, "tokens.txt")
	if _, statErr := os.Stat(tokens); statErr != nil {
		tokens = ""
	}
	return encoder, decoder, joiner, tokens, nil
}

func firstGlob(dir, pattern string) string {
	matches, _ := filepath.Glob(filepath.Join(dir, pattern))
	if len(matches) == 0 {
		return ""
	}
	return matches[0]
}
