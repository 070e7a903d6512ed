// Package fixtures serves the static JSON fixtures (profiles, trends, posts, hirings,
// explore items, products) from a directory or an S3 bucket.
package fixtures

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Fixture file names.
const (
	UsersFile     = "users.json"
	TrendsFile    = "trends.json"
	CommunityFile = "community.json"
	PostsFile     = "posts.json"
	HiringsFile   = "hirings.json"
	ExploreFile   = "explore.json"
	ProductsFile  = "all.json"
)

// Names lists the fixtures served over HTTP.
var Names = []string{UsersFile, TrendsFile, CommunityFile, PostsFile, HiringsFile, ExploreFile, ProductsFile}

// ErrNotFound is returned for a fixture that does not exist in the source.
var ErrNotFound = errors.New("fixture not found")

// Source reads fixture files by name.
type Source interface {
	Read(ctx context.Context, name string) ([]byte, error)
}

// Sink writes fixture files by name.
type Sink interface {
	Write(ctx context.Context, name string, data []byte) error
}

// DirSource reads fixtures from a local directory.
type DirSource struct {
	Dir string
}

func (d DirSource) path(name string) (string, error) {
	clean := filepath.Clean("/" + name)
	if strings.Contains(name, "..") || clean == "/" {
		return "", fmt.Errorf("invalid fixture name %q", name)
	}
	return filepath.Join(d.Dir, clean), nil
}

func (d DirSource) Read(_ context.Context, name string) ([]byte, error) {
	p, err := d.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return data, err
}

func (d DirSource) Write(_ context.Context, name string, data []byte) error {
	p, err := d.path(name)
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}
