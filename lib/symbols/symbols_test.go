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

package symbols

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadBasicTable(t *testing.T) {
	table, err := Read(strings.NewReader("<blk> 0\n▁HE 1\nLL 2\nO 3\n"))
	require.NoError(t, err)

	assert.Equal(t, 4, table.Len())

	s, ok := table.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, "▁HE", s)

	_, ok = table.Lookup(42)
	assert.False(t, ok)
}

func TestReadBareIDMapsToSpace(t *testing.T) {
	table, err := Read(strings.NewReader("a 0\n1\nb 2\n"))
	require.NoError(t, err)

	s, ok := table.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, " ", s)
}

func TestReadSkipsBlankLines(t *testing.T) {
	table, err := Read(strings.NewReader("a 0\n\n\nb 1\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
}

func TestReadRejectsMalformedLine(t *testing.T) {
	_, err := Read(strings.NewReader("a 0\nb c 1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReadRejectsBadID(t *testing.T) {
	_, err := Read(strings.NewReader("a zero\n"))
	assert.Error(t, err)
}

func TestReadRejectsDuplicateID(t *testing.T) {
	_, err := Read(strings.NewReader("a 0\nb 0\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestDecode(t *testing.T) {
	table, err := Read(strings.NewReader("<blk> 0\n▁HE 1\nLL 2\nO 3\n▁WORLD 4\n"))
	require.NoError(t, err)

	assert.Equal(t, "HELLO WORLD", table.Decode([]int64{1, 2, 3, 4}))
	assert.Equal(t, "HELLO<unk:9>", table.Decode([]int64{1, 2, 3, 9}))
	assert.Equal(t, "", table.Decode(nil))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.txt")
	require.NoError(t, os.WriteFile(path, []byte("a 0\nb 1\n"), 0o644))

	table, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
