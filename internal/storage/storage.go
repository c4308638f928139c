package storage

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/happyhackingspace/treetopk"
)

// Storage wraps a folder of problem files.
type Storage struct {
	Folder string
}

// NewStorage creates a Storage for the given folder.
func NewStorage(folder string) *Storage {
	return &Storage{Folder: folder}
}

// Entry is one problem file found in the folder.
type Entry struct {
	Name    string // file name relative to the folder
	Problem treetopk.Problem
}

// ProblemFiles lists .json, .yaml and .yml files in the folder, sorted by
// name. Result files written by ResultName are skipped.
func (s *Storage) ProblemFiles() ([]string, error) {
	entries, err := os.ReadDir(s.Folder)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		switch strings.ToLower(filepath.Ext(name)) {
		case ".json", ".yaml", ".yml":
		default:
			continue
		}
		if strings.HasSuffix(name, resultSuffix) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// IterProblems loads every problem file in the folder. Files that fail to
// decode are logged and skipped.
func (s *Storage) IterProblems() ([]Entry, error) {
	names, err := s.ProblemFiles()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(names))
	for _, name := range names {
		p, err := LoadProblem(filepath.Join(s.Folder, name))
		if err != nil {
			slog.Warn("Cannot read problem file", "path", name, "error", err)
			continue
		}
		out = append(out, Entry{Name: name, Problem: p})
	}
	return out, nil
}

const resultSuffix = ".result.json"

// ResultName returns the result file name for a problem file name.
func ResultName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + resultSuffix
}

// ResultPath returns where the result of problem name is stored.
func (s *Storage) ResultPath(name string) string {
	return filepath.Join(s.Folder, ResultName(name))
}
