package corpus

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bangla-rag-be/pkg/apperror"
	"bangla-rag-be/pkg/chunker"

	"gopkg.in/yaml.v3"
)

// Document is one content file and the chunking profile it is split with.
type Document struct {
	Path        string `yaml:"path"`
	ContentType string `yaml:"content_type"`
}

// Manifest lists the files that make up the knowledge base.
type Manifest struct {
	BaseDir   string     `yaml:"base_dir"`
	Documents []Document `yaml:"documents"`
}

// DefaultManifest is the layout produced by the OCR and splitting step.
func DefaultManifest(baseDir string) *Manifest {
	return &Manifest{
		BaseDir: baseDir,
		Documents: []Document{
			{Path: "mcq_content.txt", ContentType: string(chunker.ContentMCQ)},
			{Path: "creative_questions.txt", ContentType: string(chunker.ContentCreative)},
			{Path: "table_content.txt", ContentType: string(chunker.ContentTable)},
			{Path: "rest_content.txt", ContentType: string(chunker.ContentGeneral)},
		},
	}
}

// Load reads a manifest. A missing file yields DefaultManifest rooted at the manifest's directory.
// A relative base_dir is resolved against the manifest's directory.
func Load(path string) (*Manifest, error) {
	dir := filepath.Dir(path)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultManifest(filepath.Join(dir, "processed")), nil
		}
		return nil, err
	}
	return Parse(data, dir)
}

func Parse(data []byte, dir string) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, apperror.Validation("invalid corpus manifest: %v", err)
	}
	if m.BaseDir == "" {
		m.BaseDir = dir
	} else if !filepath.IsAbs(m.BaseDir) {
		m.BaseDir = filepath.Join(dir, m.BaseDir)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) Validate() error {
	if len(m.Documents) == 0 {
		return apperror.Validation("corpus manifest lists no documents")
	}
	for i, doc := range m.Documents {
		if strings.TrimSpace(doc.Path) == "" {
			return apperror.Validation("document %d has no path", i)
		}
		if _, ok := chunker.ParseContentType(doc.ContentType); !ok {
			return apperror.Validation("document %s: unknown content type %q", doc.Path, doc.ContentType)
		}
	}
	return nil
}

// Resolve returns the file path of doc relative to the manifest's base directory.
func (m *Manifest) Resolve(doc Document) string {
	if filepath.IsAbs(doc.Path) {
		return doc.Path
	}
	return filepath.Join(m.BaseDir, doc.Path)
}

// Read loads the text of doc. A missing file is reported as apperror.ErrNotFound.
func (m *Manifest) Read(doc Document) (string, error) {
	path := m.Resolve(doc)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", apperror.ErrNotFound, path)
		}
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}
