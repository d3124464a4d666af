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

// Package backendtest provides scriptable in-memory sessions for testing
// code that drives backends.Session without a loaded runtime.
package backendtest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/audioloom/loom/lib/backends"
)

// FakeSession is a Session whose behavior is scripted through RunFn.
type FakeSession struct {
	Inputs  []backends.TensorInfo
	Outputs []backends.TensorInfo
	Meta    map[string]string

	// RunFn handles Run calls. Nil means Run fails.
	RunFn func(inputs []backends.NamedTensor) ([]backends.NamedTensor, error)

	mu       sync.Mutex
	runCalls int
	closed   bool
}

var _ backends.Session = (*FakeSession)(nil)

func (s *FakeSession) Run(inputs []backends.NamedTensor) ([]backends.NamedTensor, error) {
	s.mu.Lock()
	s.runCalls++
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return nil, errors.New("session is closed")
	}
	if s.RunFn == nil {
		return nil, errors.New("no RunFn scripted")
	}
	return s.RunFn(inputs)
}

func (s *FakeSession) InputInfo() []backends.TensorInfo {
	return s.Inputs
}

func (s *FakeSession) OutputInfo() []backends.TensorInfo {
	return s.Outputs
}

func (s *FakeSession) Metadata() map[string]string {
	return s.Meta
}

func (s *FakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// RunCalls returns how many times Run was invoked.
func (s *FakeSession) RunCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runCalls
}

// Closed reports whether Close was called.
func (s *FakeSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// FakeFactory hands out pre-registered sessions keyed by model path.
type FakeFactory struct {
	Sessions map[string]*FakeSession
}

var _ backends.SessionFactory = (*FakeFactory)(nil)

func (f *FakeFactory) CreateSession(modelPath string, opts ...backends.SessionOption) (backends.Session, error) {
	session, ok := f.Sessions[modelPath]
	if !ok {
		return nil, fmt.Errorf("no fake session registered for %q", modelPath)
	}
	return session, nil
}
