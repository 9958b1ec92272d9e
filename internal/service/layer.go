package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-logr/logr"
)

var (
	// ErrLayerExists is returned when creating a layer whose id is taken.
	ErrLayerExists = errors.New("layer already exists")
	// ErrLayerNotFound is returned for unknown layer ids.
	ErrLayerNotFound = errors.New("layer not found")
)

// LayerService stores layer configurations in dataDir/layers.json.
type LayerService struct {
	dataDir string
	log     logr.Logger
	layers  map[string]LayerConfig
	mu      sync.RWMutex
}

// NewLayerService loads the stored configurations. A missing or unreadable
// file starts an empty store.
func NewLayerService(dataDir string, log logr.Logger) *LayerService {
	s := &LayerService{
		dataDir: dataDir,
		log:     log,
		layers:  make(map[string]LayerConfig),
	}
	if err := s.loadFromDisk(); err != nil {
		log.Error(err, "load layer configs, starting empty", "file", s.configFile())
	}
	return s
}

// List returns all layer configurations.
func (s *LayerService) List() map[string]LayerConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]LayerConfig, len(s.layers))
	for k, v := range s.layers {
		result[k] = v
	}
	return result
}

// IDs returns the stored ids in order.
func (s *LayerService) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.layers))
	for id := range s.layers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Get returns a layer by ID.
func (s *LayerService) Get(id string) (LayerConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	layer, ok := s.layers[id]
	return layer, ok
}

// Create adds a layer configuration, deriving the id from the name when
// none is given.
func (s *LayerService) Create(layer LayerConfig) (LayerConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if layer.ID == "" {
		layer.ID = generateID(layer.Name)
	}
	if layer.ID == "" {
		return LayerConfig{}, fmt.Errorf("layer name %q yields an empty id", layer.Name)
	}
	if _, exists := s.layers[layer.ID]; exists {
		return LayerConfig{}, fmt.Errorf("%w: %q", ErrLayerExists, layer.ID)
	}

	s.layers[layer.ID] = layer
	if err := s.saveToDisk(); err != nil {
		delete(s.layers, layer.ID)
		return LayerConfig{}, err
	}
	return layer, nil
}

// Update replaces a layer configuration by ID.
func (s *LayerService) Update(id string, layer LayerConfig) (LayerConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, exists := s.layers[id]
	if !exists {
		return LayerConfig{}, fmt.Errorf("%w: %q", ErrLayerNotFound, id)
	}

	layer.ID = id
	s.layers[id] = layer
	if err := s.saveToDisk(); err != nil {
		s.layers[id] = prev
		return LayerConfig{}, err
	}
	return layer, nil
}

// Delete removes a layer by ID.
func (s *LayerService) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, exists := s.layers[id]
	if !exists {
		return fmt.Errorf("%w: %q", ErrLayerNotFound, id)
	}

	delete(s.layers, id)
	if err := s.saveToDisk(); err != nil {
		s.layers[id] = prev
		return err
	}
	return nil
}

func (s *LayerService) configFile() string {
	return filepath.Join(s.dataDir, "layers.json")
}

func (s *LayerService) loadFromDisk() error {
	data, err := os.ReadFile(s.configFile())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var layers map[string]LayerConfig
	if err := json.Unmarshal(data, &layers); err != nil {
		return fmt.Errorf("parse %s: %w", s.configFile(), err)
	}
	if layers != nil {
		s.layers = layers
	}
	return nil
}

func (s *LayerService) saveToDisk() error {
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	data, err := json.MarshalIndent(s.layers, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.configFile(), data, 0644); err != nil {
		return fmt.Errorf("write layer configs: %w", err)
	}
	return nil
}

// generateID creates a URL-safe ID from a name.
func generateID(name string) string {
	id := strings.ToLower(name)
	id = strings.ReplaceAll(id, " ", "_")
	var result strings.Builder
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			result.WriteRune(r)
		}
	}
	return result.String()
}
