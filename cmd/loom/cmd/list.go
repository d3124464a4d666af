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

	"github.com/audioloom/loom"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List model families under a models directory",
	Long: `Scan a directory for transducer model families (subdirectories holding
encoder*.onnx, decoder*.onnx, and joiner*.onnx) and list them.

Examples:
  loom list --models-dir ./models`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().String("models-dir", "", "Directory holding model family subdirectories")
}

func runList(cmd *cobra.Command, args []string) error {
	modelsDir, _ := cmd.Flags().GetString("models-dir")
	if modelsDir == "" {
		return fmt.Errorf("--models-dir is required")
	}

	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	registry, err := loom.NewLazyRegistry(loom.RegistryConfig{
		ModelsDir: modelsDir,
	}, logger)
	if err != nil {
		return err
	}
	defer func() { _ = registry.Close() }()

	for _, name := range registry.List() {
		info, _ := registry.Info(name)
		tokens := "no tokens.txt"
		if info.Tokens != "" {
			tokens = "tokens.txt"
		}
		fmt.Printf("%s\t(%s)\n", name, tokens)
	}
	return nil
}
