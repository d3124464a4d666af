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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/zap"
)

// DefaultKeepAlive is how long an idle model family stays loaded.
const DefaultKeepAlive = 5 * time.Minute

// ModelInfo describes a discovered model family directory (not loaded).
// A family directory holds encoder*.onnx, decoder*.onnx, and joiner*.onnx,
// and usually a tokens.txt.
type ModelInfo struct {
	Name    string
	Path    string
	Encoder string
	Decoder string
	Joiner  string
	Tokens  string // empty if absent
}

// LazyRegistry manages transducer model families with lazy loading and
// TTL-based unloading. Loading three graphs is slow and memory-heavy, so
// families are loaded on first use and evicted after sitting idle.
type LazyRegistry struct {
	modelsDir string
	logger    *zap.Logger

	discovered map[string]*ModelInfo
	mu         sync.RWMutex

	cache *ttlcache.Cache[string, *Recognizer]

	numThreads          int
	maxConcurrentChunks int
}

// RegistryConfig configures a LazyRegistry.
type RegistryConfig struct {
	ModelsDir           string
	KeepAlive           time.Duration // 0 = never unload
	MaxLoadedModels     uint64        // 0 = unlimited
	NumThreads          int
	MaxConcurrentChunks int
}

// NewLazyRegistry discovers model family directories under
// config.ModelsDir and prepares them for lazy loading.
func NewLazyRegistry(config RegistryConfig, logger *zap.Logger) (*LazyRegistry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	keepAlive := config.KeepAlive
	if keepAlive == 0 {
		keepAlive = ttlcache.NoTTL
	}

	registry := &LazyRegistry{
		modelsDir:           config.ModelsDir,
		logger:              logger,
		discovered:          make(map[string]*ModelInfo),
		numThreads:          config.NumThreads,
		maxConcurrentChunks: config.MaxConcurrentChunks,
	}

	cacheOpts := []ttlcache.Option[string, *Recognizer]{
		ttlcache.WithTTL[string, *Recognizer](keepAlive),
	}
	if config.MaxLoadedModels > 0 {
		cacheOpts = append(cacheOpts,
			ttlcache.WithCapacity[string, *Recognizer](config.MaxLoadedModels))
	}
	registry.cache = ttlcache.New(cacheOpts...)

	registry.cache.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *Recognizer]) {
		logger.Info("unloading idle model family",
			zap.String("model", item.Key()),
			zap.Int("reason", int(reason)))
		if err := item.Value().Close(); err != nil {
			logger.Warn("closing evicted model family",
				zap.String("model", item.Key()), zap.Error(err))
		}
	})
	go registry.cache.Start()

	if err := registry.discover(); err != nil {
		registry.cache.Stop()
		return nil, err
	}

	return registry, nil
}

// discover scans the models directory for family directories holding the
// three transducer graphs.
func (r *LazyRegistry) discover() error {
	entries, err := os.ReadDir(r.modelsDir)
	if err != nil {
		return fmt.Errorf("reading models directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(r.modelsDir, entry.Name())

		encoder := firstGlob(dir, "encoder*.onnx")
		decoder := firstGlob(dir, "decoder*.onnx")
		joiner := firstGlob(dir, "joiner*.onnx")
		if encoder == "" || decoder == "" || joiner == "" {
			r.logger.Debug("skipping directory without transducer graphs",
				zap.String("dir", dir))
			continue
		}

		tokens := filepath.Join(dir, "tokens.txt")
		if _, err := os.Stat(tokens); err != nil {
			tokens = ""
		}

		r.discovered[entry.Name()] = &ModelInfo{
			Name:    entry.Name(),
			Path:    dir,
			Encoder: encoder,
			Decoder: decoder,
			Joiner:  joiner,
			Tokens:  tokens,
		}
		r.logger.Info("discovered model family", zap.String("model", entry.Name()))
	}

	return nil
}

func firstGlob(dir, pattern string) string {
	matches, _ := filepath.Glob(filepath.Join(dir, pattern))
	if len(matches) == 0 {
		return ""
	}
	sort.Strings(matches)
	return matches[0]
}

// List returns the discovered model family names, sorted.
func (r *LazyRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.discovered))
	for name := range r.discovered {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Info returns the discovery record for a model family.
func (r *LazyRegistry) Info(name string) (*ModelInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.discovered[name]
	return info, ok
}

// Get returns the recognizer for the named family, loading it on first
// use and refreshing its keep-alive on every call.
func (r *LazyRegistry) Get(name string) (*Recognizer, error) {
	r.mu.RLock()
	info, ok := r.discovered[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown model family %q", name)
	}

	if item := r.cache.Get(name); item != nil {
		return item.Value(), nil
	}

	// Serialize loads so two callers don't load the same family twice.
	r.mu.Lock()
	defer r.mu.Unlock()
	if item := r.cache.Get(name); item != nil {
		return item.Value(), nil
	}

	recognizer, err := NewRecognizer(Config{
		Encoder:             info.Encoder,
		Decoder:             info.Decoder,
		Joiner:              info.Joiner,
		NumThreads:          r.numThreads,
		MaxConcurrentChunks: r.maxConcurrentChunks,
	}, r.logger)
	if err != nil {
		return nil, fmt.Errorf("loading model family %q: %w", name, err)
	}

	r.cache.Set(name, recognizer, ttlcache.DefaultTTL)
	return recognizer, nil
}

// Close unloads every loaded family and stops the eviction loop.
func (r *LazyRegistry) Close() error {
	r.cache.Stop()
	r.cache.DeleteAll()
	return nil
}
