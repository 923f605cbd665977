package workspace

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"

	"nc-export/internal/xmlfile"
)

const (
	UnknownModule     = "unknown_module"
	moduleSearchDepth = 5
	defaultOutput     = "build/classes"
)

type moduleXML struct {
	XMLName xml.Name `xml:"module"`
	Name    string   `xml:"name,attr"`
}

type projectXML struct {
	XMLName xml.Name `xml:"projectDescription"`
	Name    string   `xml:"name"`
}

func readModuleName(dir string) string {
	var m moduleXML
	if err := xmlfile.Decode(filepath.Join(dir, "META-INF", "module.xml"), &m); err != nil {
		return ""
	}
	return strings.TrimSpace(m.Name)
}

func readProjectName(dir string) string {
	var p projectXML
	if err := xmlfile.Decode(filepath.Join(dir, ".project"), &p); err != nil {
		return ""
	}
	return strings.TrimSpace(p.Name)
}

func startDir(path string) string {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return path
	}
	return filepath.Dir(path)
}

// FindModuleName names the platform module path belongs to. It searches below the
// file's directory for META-INF/module.xml, then above it, then falls back to the
// nearest .project name, and finally to UnknownModule.
func FindModuleName(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	dir := startDir(abs)

	if name := searchDown(dir, moduleSearchDepth, map[string]bool{}); name != "" {
		return name
	}
	if name := searchUp(dir, readModuleName); name != "" {
		return name
	}
	if name := searchUp(dir, readProjectName); name != "" {
		return name
	}
	return UnknownModule
}

// searchDown follows directory symlinks but never enters the same canonical
// directory twice.
func searchDown(dir string, depth int, visited map[string]bool) string {
	canonical, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return ""
	}
	if visited[canonical] {
		return ""
	}
	visited[canonical] = true

	if name := readModuleName(dir); name != "" {
		return name
	}
	if depth == 0 {
		return ""
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if IsPrunedDir(e.Name()) || e.Name() == "META-INF" {
			continue
		}
		child := filepath.Join(dir, e.Name())
		if !e.IsDir() {
			if e.Type()&os.ModeSymlink == 0 {
				continue
			}
			if info, err := os.Stat(child); err != nil || !info.IsDir() {
				continue
			}
		}
		if name := searchDown(child, depth-1, visited); name != "" {
			return name
		}
	}
	return ""
}

func searchUp(dir string, read func(string) string) string {
	for {
		if name := read(dir); name != "" {
			return name
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// ProjectRoot returns the nearest ancestor of path holding a .classpath file,
// or "" when there is none.
func ProjectRoot(path string) string {
	dir := startDir(path)
	for {
		if info, err := os.Stat(filepath.Join(dir, ".classpath")); err == nil && !info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

type classpathXML struct {
	XMLName xml.Name `xml:"classpath"`
	Entries []struct {
		Kind   string `xml:"kind,attr"`
		Path   string `xml:"path,attr"`
		Output string `xml:"output,attr"`
	} `xml:"classpathentry"`
}

// ClasspathOutput returns the compiled output directory, relative to the project
// root, for sources under srcRoot (e.g. "src/public"). A source entry's own
// output wins over the project default; without either it is build/classes.
func ClasspathOutput(projectRoot, srcRoot string) string {
	var cp classpathXML
	if err := xmlfile.Decode(filepath.Join(projectRoot, ".classpath"), &cp); err != nil {
		return defaultOutput
	}
	srcRoot = strings.Trim(filepath.ToSlash(srcRoot), "/")
	def := ""
	for _, e := range cp.Entries {
		switch e.Kind {
		case "src":
			if srcRoot != "" && strings.Trim(e.Path, "/") == srcRoot && e.Output != "" {
				return e.Output
			}
		case "output":
			if def == "" {
				def = e.Path
			}
		}
	}
	if def == "" {
		return defaultOutput
	}
	return def
}
