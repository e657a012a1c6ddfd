package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/okian/eventdex/internal/domain/model"
)

// DirSource reads one YAML document per post from a directory. Files are
// named <id>.yaml (or .yml); other files are ignored.
type DirSource struct {
	dir string
}

// NewDirSource returns a source rooted at dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

// Document implements DocumentSource.
func (s *DirSource) Document(ctx context.Context, id int64) (model.SourceDocument, error) {
	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(s.dir, strconv.FormatInt(id, 10)+ext)
		doc, err := ReadDocumentFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return model.SourceDocument{}, err
		}
		if doc.ID == 0 {
			doc.ID = id
		}
		if doc.ID != id {
			return model.SourceDocument{}, fmt.Errorf("%s: id %d does not match file name", path, doc.ID)
		}
		return doc, nil
	}
	return model.SourceDocument{}, ErrNotFound
}

// Candidates implements DocumentSource.
func (s *DirSource) Candidates(ctx context.Context, limit int) ([]int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.dir, err)
	}
	seen := make(map[int64]struct{}, len(entries))
	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id, ok := postIDFromName(e.Name())
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return capIDs(ids, limit), nil
}

// postIDFromName parses a document file name of the form <id>.yaml or <id>.yml.
func postIDFromName(name string) (int64, bool) {
	ext := filepath.Ext(name)
	if ext != ".yaml" && ext != ".yml" {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSuffix(name, ext), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ReadDocumentFile decodes a single YAML document.
func ReadDocumentFile(path string) (model.SourceDocument, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return model.SourceDocument{}, err
	}
	var doc model.SourceDocument
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return model.SourceDocument{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return doc, nil
}

// WriteDocumentFile encodes doc as <dir>/<id>.yaml and returns the path.
func WriteDocumentFile(dir string, doc model.SourceDocument) (string, error) {
	if doc.ID <= 0 {
		return "", fmt.Errorf("write document: invalid id %d", doc.ID)
	}
	b, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode post %d: %w", doc.ID, err)
	}
	path := filepath.Join(dir, strconv.FormatInt(doc.ID, 10)+".yaml")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
