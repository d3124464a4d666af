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

// Package symbols maps token ids to their text symbols. Transducer model
// releases ship a tokens.txt with one "symbol id" pair per line.
package symbols

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Table maps token ids to symbols.
type Table struct {
	symbols map[int64]string
}

// Load reads a tokens.txt file.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening token table: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses a token table from r. Each non-empty line holds a symbol
// and its decimal id separated by whitespace. A line holding only an id
// maps that id to a space, matching how some tables encode the word
// separator.
func Read(r io.Reader) (*Table, error) {
	table := &Table{symbols: make(map[int64]string)}

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r\n")
		if text == "" {
			continue
		}

		fields := strings.Fields(text)
		var symbol, rawID string
		switch len(fields) {
		case 1:
			symbol, rawID = " ", fields[0]
		case 2:
			symbol, rawID = fields[0], fields[1]
		default:
			return nil, fmt.Errorf("line %d: expected \"symbol id\", got %q", line, text)
		}

		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid token id %q", line, rawID)
		}
		if _, dup := table.symbols[id]; dup {
			return nil, fmt.Errorf("line %d: duplicate token id %d", line, id)
		}
		table.symbols[id] = symbol
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading token table: %w", err)
	}

	return table, nil
}

// Lookup returns the symbol for id.
func (t *Table) Lookup(id int64) (string, bool) {
	s, ok := t.symbols[id]
	return s, ok
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.symbols)
}

// Decode joins the symbols for the given token ids. Unknown ids render
// as <unk:id>. BPE-style word boundaries (U+2581) become spaces.
func (t *Table) Decode(ids []int64) string {
	var sb strings.Builder
	for _, id := range ids {
		s, ok := t.symbols[id]
		if !ok {
			fmt.Fprintf(&sb, "<unk:%d>", id)
			continue
		}
		sb.WriteString(strings.ReplaceAll(s, "▁", " "))
	}
	return strings.TrimSpace(sb.String())
}
