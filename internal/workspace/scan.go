// Package workspace classifies the files of a source tree and maps them to their
// place inside a patch archive.
package workspace

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

type FileType string

const (
	Source   FileType = "source"
	Resource FileType = "resource"
	Config   FileType = "config"
	SQL      FileType = "sql"
	MetaInfo FileType = "metaInfo"
)

// ExportableFile is a classified file found under a scan root.
type ExportableFile struct {
	Path         string
	Type         FileType
	RelativePath string // slash separated, relative to the scan root
	Scope        string // slash path the type was derived from; Path when empty
}

// scope is the path segment lookups run against.
func (f ExportableFile) scope() string {
	if f.Scope != "" {
		return f.Scope
	}
	return slashPath(f.Path)
}

var prunedDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	"target":       true,
	"build":        true,
	"out":          true,
}

// IsPrunedDir reports whether a directory name is never descended into.
func IsPrunedDir(name string) bool {
	return prunedDirs[name] || strings.HasPrefix(name, ".")
}

// ClassifyPath assigns a file its type. Extension checks come before path
// segment checks, so a .java file under resources/ is still source.
func ClassifyPath(path string) (FileType, bool) {
	p := slashPath(path)
	switch strings.ToLower(filepath.Ext(p)) {
	case ".java":
		return Source, true
	case ".sql":
		return SQL, true
	}
	switch {
	case strings.Contains(p, "/resources/"):
		return Resource, true
	case strings.Contains(p, "/yyconfig/"):
		return Config, true
	case strings.Contains(p, "/META-INF/"):
		return MetaInfo, true
	}
	return "", false
}

func slashPath(path string) string {
	return "/" + strings.TrimPrefix(filepath.ToSlash(path), "/")
}

// scopeBase is the slash path of dir as seen from its project: the nearest
// ancestor holding .project, .classpath or META-INF/module.xml, or dir itself
// when there is none. Segment checks only look below that directory, so folders
// above the project never decide a file's type.
func scopeBase(dir string) string {
	anchor := dir
	for d := dir; ; {
		if isProjectDir(d) {
			anchor = d
			break
		}
		parent := filepath.Dir(d)
		if parent == d {
			break
		}
		d = parent
	}
	rel, err := filepath.Rel(anchor, dir)
	if err != nil || rel == "." {
		return "/" + filepath.Base(anchor)
	}
	return "/" + filepath.Base(anchor) + "/" + filepath.ToSlash(rel)
}

func isProjectDir(dir string) bool {
	for _, marker := range []string{".project", ".classpath", filepath.Join("META-INF", "module.xml")} {
		if info, err := os.Stat(filepath.Join(dir, marker)); err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}

// Scan classifies every file under root in lexical walk order. A root that is a
// file yields at most that file. Symlinked roots, files and directories are
// followed; a directory reached twice (by link or loop) is walked once.
// Unreadable directories are logged and skipped.
func Scan(root string, logger zerolog.Logger) ([]ExportableFile, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("cannot access %s: %w", root, err)
	}
	if !info.IsDir() {
		scope := scopeBase(filepath.Dir(abs)) + "/" + filepath.Base(abs)
		t, ok := ClassifyPath(scope)
		if !ok {
			return nil, nil
		}
		return []ExportableFile{{Path: abs, Type: t, RelativePath: filepath.Base(abs), Scope: scope}}, nil
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve %s: %w", root, err)
	}

	s := &scanner{base: scopeBase(resolved), logger: logger, visited: make(map[string]bool)}
	s.enter(resolved)
	if err := s.walk(resolved, ""); err != nil {
		return nil, err
	}
	return s.files, nil
}

type scanner struct {
	base    string // scope of the scan root
	logger  zerolog.Logger
	visited map[string]bool // canonical directories already walked
	files   []ExportableFile
}

// enter marks dir as walked and reports whether it was new.
func (s *scanner) enter(dir string) bool {
	canonical, err := filepath.EvalSymlinks(dir)
	if err != nil {
		canonical = dir
	}
	if s.visited[canonical] {
		s.logger.Debug().Str("dir", dir).Str("canonical", canonical).Msg("directory already scanned")
		return false
	}
	s.visited[canonical] = true
	return true
}

// walk scans dir, whose path relative to the scan root is base. dir itself
// must already be entered.
func (s *scanner) walk(dir, base string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			s.logger.Warn().Err(err).Str("path", path).Msg("skipping unreadable path")
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.Join(base, rel)

		if d.IsDir() {
			if path != dir && (IsPrunedDir(d.Name()) || !s.enter(path)) {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return s.followLink(path, d.Name(), rel)
		}
		if d.Type().IsRegular() {
			s.add(path, rel)
		}
		return nil
	})
}

func (s *scanner) followLink(path, name, rel string) error {
	info, err := os.Stat(path)
	if err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("skipping broken symlink")
		return nil
	}
	switch {
	case info.IsDir():
		if IsPrunedDir(name) || !s.enter(path) {
			return nil
		}
		target, err := filepath.EvalSymlinks(path)
		if err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("skipping unresolvable symlink")
			return nil
		}
		return s.walk(target, rel)
	case info.Mode().IsRegular():
		s.add(path, rel)
	}
	return nil
}

// add records a regular file, classified by the path it was found under.
func (s *scanner) add(path, rel string) {
	scope := s.base + "/" + filepath.ToSlash(rel)
	t, ok := ClassifyPath(scope)
	if !ok {
		return
	}
	s.files = append(s.files, ExportableFile{Path: path, Type: t, RelativePath: filepath.ToSlash(rel), Scope: scope})
}

// ScanAll scans each selected path in order, dropping files already seen.
func ScanAll(paths []string, logger zerolog.Logger) ([]ExportableFile, error) {
	var all []ExportableFile
	seen := make(map[string]bool)
	for _, p := range paths {
		files, err := Scan(p, logger)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if seen[f.Path] {
				continue
			}
			seen[f.Path] = true
			all = append(all, f)
		}
	}
	return all, nil
}
