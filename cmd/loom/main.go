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

// Command loom runs streaming transducer speech recognition over ONNX
// models.
//
// Usage:
//
//	loom info --model-dir <dir>               # Print model dimensions and metadata
//	loom decode --model-dir <dir> <features>  # Decode a precomputed feature file
package main

import "github.com/audioloom/loom/cmd/loom/cmd"

func main() {
	cmd.Execute()
}
