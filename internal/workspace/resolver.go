package workspace

import (
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"nc-export/internal/home"

	"github.com/rs/zerolog"
)

const (
	resourcePrefix = "replacement/resources/"
	configPrefix   = "replacement/hotwebs/nccloud/WEB-INF/extend/yyconfig/modules/"
	cloudClasses   = "replacement/hotwebs/nccloud/WEB-INF/classes/"
	sqlPrefix      = "sql/"
)

// Entry is one archive member produced from a workspace file.
type Entry struct {
	Path   string // file on disk
	Target string // slash separated path inside the archive
	Type   FileType
	// JavaOriginal marks a .java file shipped next to its compiled class.
	JavaOriginal bool
	Compiled     bool
}

// SourceRoot is one of the conventional Java source roots of a module project.
type SourceRoot string

const (
	Public  SourceRoot = "src/public"
	Private SourceRoot = "src/private"
	Client  SourceRoot = "src/client"
)

var sourceRoots = []SourceRoot{Public, Private, Client}

// Resolver maps classified files to archive paths for one installation.
type Resolver struct {
	HomePath string
	Cloud    bool
	logger   zerolog.Logger
	modules  map[string]string
}

func NewResolver(homePath string, logger zerolog.Logger) *Resolver {
	return &Resolver{
		HomePath: homePath,
		Cloud:    home.IsCloud(homePath),
		logger:   logger,
		modules:  make(map[string]string),
	}
}

// ModuleName is FindModuleName memoized per directory.
func (r *Resolver) ModuleName(file string) string {
	dir := filepath.Dir(file)
	if name, ok := r.modules[dir]; ok {
		return name
	}
	name := FindModuleName(file)
	r.modules[dir] = name
	return name
}

// Entries resolves f to its archive members. A Java source whose compiled class
// exists becomes the class, its inner classes and the source flagged
// JavaOriginal; otherwise the source itself is packaged.
func (r *Resolver) Entries(f ExportableFile) ([]Entry, error) {
	p := f.scope()
	switch f.Type {
	case Source:
		return r.javaEntries(f)
	case Resource:
		return []Entry{{Path: f.Path, Type: f.Type, Target: resourcePrefix + after(p, "/resources/")}}, nil
	case Config:
		rest := strings.TrimPrefix(after(p, "/yyconfig/"), "modules/")
		return []Entry{{Path: f.Path, Type: f.Type, Target: configPrefix + rest}}, nil
	case MetaInfo:
		module := r.ModuleName(f.Path)
		return []Entry{{Path: f.Path, Type: f.Type, Target: "replacement/modules/" + module + "/META-INF/" + after(p, "/META-INF/")}}, nil
	case SQL:
		return []Entry{{Path: f.Path, Type: f.Type, Target: sqlPrefix + strings.TrimPrefix(f.RelativePath, "/")}}, nil
	}
	return nil, nil
}

func after(p, segment string) string {
	if i := strings.Index(p, segment); i >= 0 {
		return p[i+len(segment):]
	}
	return path.Base(p)
}

// splitSourceRoot finds the source root of a Java file and the package path
// below it. Files outside the known roots are treated as public sources keyed by
// their path relative to the scan root.
func splitSourceRoot(f ExportableFile) (SourceRoot, string) {
	p := f.scope()
	for _, root := range sourceRoots {
		marker := "/" + string(root) + "/"
		if i := strings.Index(p, marker); i >= 0 {
			return root, p[i+len(marker):]
		}
	}
	return Public, strings.TrimPrefix(f.RelativePath, "/")
}

// ClassesPrefix is where compiled classes of root land in the archive.
func (r *Resolver) ClassesPrefix(root SourceRoot, module string) string {
	switch root {
	case Private:
		return "replacement/modules/" + module + "/META-INF/classes/"
	case Client:
		if r.Cloud {
			return cloudClasses
		}
		return "replacement/modules/" + module + "/client/classes/"
	}
	return "replacement/modules/" + module + "/classes/"
}

func (r *Resolver) javaEntries(f ExportableFile) ([]Entry, error) {
	root, pkgPath := splitSourceRoot(f)
	module := r.ModuleName(f.Path)
	prefix := r.ClassesPrefix(root, module)
	javaTarget := prefix + pkgPath

	classes := r.compiledClasses(f.Path, root, pkgPath)
	if len(classes) == 0 {
		r.logger.Debug().Str("file", f.Path).Msg("no compiled class, packaging source")
		return []Entry{{Path: f.Path, Type: Source, Target: javaTarget}}, nil
	}

	pkgDir := path.Dir(pkgPath)
	entries := make([]Entry, 0, len(classes)+1)
	for _, c := range classes {
		target := prefix + filepath.Base(c)
		if pkgDir != "." {
			target = prefix + pkgDir + "/" + filepath.Base(c)
		}
		entries = append(entries, Entry{Path: c, Type: Source, Target: target, Compiled: true})
	}
	entries = append(entries, Entry{Path: f.Path, Type: Source, Target: javaTarget, JavaOriginal: true})
	return entries, nil
}

// compiledClasses returns A.class followed by its A$*.class inner classes, or
// nothing when A.class is missing.
func (r *Resolver) compiledClasses(javaPath string, root SourceRoot, pkgPath string) []string {
	project := ProjectRoot(javaPath)
	if project == "" {
		return nil
	}
	out := ClasspathOutput(project, string(root))
	classRel := strings.TrimSuffix(pkgPath, path.Ext(pkgPath)) + ".class"
	classFile := filepath.Join(project, filepath.FromSlash(out), filepath.FromSlash(classRel))
	if info, err := os.Stat(classFile); err != nil || info.IsDir() {
		return nil
	}

	found := []string{classFile}
	base := strings.TrimSuffix(filepath.Base(classFile), ".class")
	inner, err := filepath.Glob(filepath.Join(filepath.Dir(classFile), globEscape(base)+"$*.class"))
	if err != nil {
		r.logger.Warn().Err(err).Str("class", classFile).Msg("failed to list inner classes")
		return found
	}
	sort.Strings(inner)
	return append(found, inner...)
}

func globEscape(s string) string {
	r := strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`, `\`, `\\`)
	return r.Replace(s)
}
