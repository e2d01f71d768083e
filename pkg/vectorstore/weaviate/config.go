package weaviate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config describes the semantic search backend. The artifact directory holds
// the collection manifest; the manifest is the source of truth for collection
// name and embedding settings, explicit values act as overrides.
type Config struct {
	DBDir           string
	ManifestPath    string
	Collection      string
	EmbeddingModel  string
	EmbeddingDevice string
	Normalize       bool
	NormalizeSet    bool
	Host            string
	Scheme          string
	APIKey          string
}

type manifest struct {
	Collection string `json:"collection"`
	Embeddings struct {
		Model     string `json:"model"`
		Normalize *bool  `json:"normalize"`
	} `json:"embeddings"`
}

const defaultCollection = "book_catalog"

// Resolve fills in collection and embedding settings from the manifest when
// they were not given explicitly. A broken manifest is ignored, not fatal:
// the availability check in the store reports what is still missing.
func Resolve(cfg Config) Config {
	resolved := cfg
	if resolved.EmbeddingDevice == "" {
		resolved.EmbeddingDevice = "cpu"
	}

	manifestPath := strings.TrimSpace(cfg.ManifestPath)
	if manifestPath == "" {
		candidate := filepath.Join(cfg.DBDir, "manifest.json")
		if _, err := os.Stat(candidate); err == nil {
			manifestPath = candidate
		}
	}
	resolved.ManifestPath = manifestPath

	var m *manifest
	if manifestPath != "" {
		if raw, err := os.ReadFile(manifestPath); err == nil {
			var parsed manifest
			if err := json.Unmarshal(raw, &parsed); err == nil {
				m = &parsed
			}
		}
	}

	if resolved.Collection == "" {
		if m != nil && m.Collection != "" {
			resolved.Collection = m.Collection
		} else {
			resolved.Collection = defaultCollection
		}
	}
	if resolved.EmbeddingModel == "" && m != nil {
		resolved.EmbeddingModel = m.Embeddings.Model
	}
	if !resolved.NormalizeSet {
		if m != nil && m.Embeddings.Normalize != nil {
			resolved.Normalize = *m.Embeddings.Normalize
		} else {
			resolved.Normalize = true
		}
	}
	return resolved
}

// cacheKey is the full configuration tuple the cached client handle is keyed
// by. Any change forces a rebuild.
func (c Config) cacheKey() string {
	return fmt.Sprintf("%s|%s|%s|%s|%t", c.DBDir, c.Collection, c.ManifestPath, c.EmbeddingModel, c.Normalize)
}
