package service

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/datasynth/api/internal/errs"
)

// Artifact is a generated file on disk
type Artifact struct {
	Name        string
	Path        string
	ContentType string
}

var artifactTypes = map[string]struct{ ext, contentType string }{
	"csv":     {".csv", "text/csv"},
	"json":    {".json", "application/json"},
	"parquet": {".parquet", "application/vnd.apache.parquet"},
	"schema":  {".json", "application/json"},
}

// ArtifactService looks up generated files in the staging directory
type ArtifactService struct {
	outputDir string
	schemas   *SchemaService
}

func NewArtifactService(outputDir string, schemas *SchemaService) *ArtifactService {
	return &ArtifactService{outputDir: outputDir, schemas: schemas}
}

// Latest returns the most recent artifact of the given type (csv, json, parquet or schema)
func (s *ArtifactService) Latest(kind string) (*Artifact, error) {
	t, ok := artifactTypes[strings.ToLower(kind)]
	if !ok {
		return nil, &errs.ValidationError{Field: "type", Message: fmt.Sprintf("unknown artifact type %q", kind)}
	}

	var (
		path string
		err  error
	)
	if strings.EqualFold(kind, "schema") {
		path, err = s.schemas.Latest()
	} else {
		path, err = LatestFile(s.outputDir, t.ext)
	}
	if err != nil {
		return nil, err
	}

	return &Artifact{Name: filepath.Base(path), Path: path, ContentType: t.contentType}, nil
}

// Resolve maps a bare file name onto a file in the staging directory
func (s *ArtifactService) Resolve(filename string) (*Artifact, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.ContainsAny(filename, `/\`) ||
		filename == "." || filename == ".." {
		return nil, &errs.ValidationError{Field: "filename", Message: "invalid file name"}
	}

	path := filepath.Join(s.outputDir, filename)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("file %s: %w", filename, errs.ErrNotFound)
	}

	contentType := "application/octet-stream"
	for _, t := range artifactTypes {
		if strings.HasSuffix(filename, t.ext) {
			contentType = t.contentType
			break
		}
	}
	return &Artifact{Name: filename, Path: path, ContentType: contentType}, nil
}

// LatestFile returns the most recently modified file in dir with the given extension
func LatestFile(dir, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("no %s file: %w", ext, errs.ErrNotFound)
		}
		return "", err
	}

	var (
		latest string
		newest int64
	)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		// ties resolve to the lexically greater name, which carries the later timestamp
		if mod := info.ModTime().UnixNano(); latest == "" || mod > newest || (mod == newest && e.Name() > filepath.Base(latest)) {
			latest = filepath.Join(dir, e.Name())
			newest = mod
		}
	}
	if latest == "" {
		return "", fmt.Errorf("no %s file: %w", ext, errs.ErrNotFound)
	}
	return latest, nil
}
