package workspace

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/rs/zerolog"
)

func mkfile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestClassifyPath(t *testing.T) {
	tests := []struct {
		path string
		want FileType
		ok   bool
	}{
		{"/w/proj/src/public/nc/bs/A.java", Source, true},
		{"/w/proj/src/public/resources/B.java", Source, true}, // extension before segment
		{"/w/proj/resources/lang/simpchn/x.properties", Resource, true},
		{"/w/proj/yyconfig/modules/uapbd/config.xml", Config, true},
		{"/w/proj/yyconfig/modules/init.sql", SQL, true},
		{"/w/proj/script/dbcreate/oracle/tb.SQL", SQL, true},
		{"/w/proj/META-INF/resources/x.xml", Resource, true}, // resources before META-INF
		{"/w/proj/META-INF/uapbd.upm", MetaInfo, true},
		{"/w/proj/lib/x.jar", "", false},
	}
	for _, tt := range tests {
		got, ok := ClassifyPath(filepath.FromSlash(tt.path))
		if got != tt.want || ok != tt.ok {
			t.Errorf("ClassifyPath(%s) = %q, %v; want %q, %v", tt.path, got, ok, tt.want, tt.ok)
		}
	}
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	mkfile(t, filepath.Join(root, "src", "public", "com", "x", "A.java"), "class A {}")
	mkfile(t, filepath.Join(root, "resources", "a.properties"), "k=v")
	mkfile(t, filepath.Join(root, "META-INF", "module.xml"), `<module name="m"/>`)
	mkfile(t, filepath.Join(root, "readme.md"), "skip")
	mkfile(t, filepath.Join(root, "node_modules", "x", "resources", "y.js"), "")
	mkfile(t, filepath.Join(root, ".settings", "resources", "z"), "")
	mkfile(t, filepath.Join(root, "build", "classes", "com", "x", "A.java"), "")

	first, err := Scan(root, zerolog.Nop())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	want := []struct {
		rel string
		typ FileType
	}{
		{"META-INF/module.xml", MetaInfo},
		{"resources/a.properties", Resource},
		{"src/public/com/x/A.java", Source},
	}
	if len(first) != len(want) {
		t.Fatalf("got %+v", first)
	}
	for i, w := range want {
		if first[i].RelativePath != w.rel || first[i].Type != w.typ {
			t.Errorf("file %d = %+v, want %+v", i, first[i], w)
		}
	}

	second, err := Scan(root, zerolog.Nop())
	if err != nil || !reflect.DeepEqual(first, second) {
		t.Errorf("scan not stable: %+v vs %+v (%v)", first, second, err)
	}

	single, err := Scan(filepath.Join(root, "resources", "a.properties"), zerolog.Nop())
	if err != nil || len(single) != 1 || single[0].RelativePath != "a.properties" {
		t.Errorf("single file scan = %+v, %v", single, err)
	}

	all, err := ScanAll([]string{root, filepath.Join(root, "resources")}, zerolog.Nop())
	if err != nil || len(all) != 3 {
		t.Errorf("ScanAll = %+v, %v", all, err)
	}

	if _, err := Scan(filepath.Join(root, "missing"), zerolog.Nop()); err == nil {
		t.Error("expected error for missing root")
	}
}

func symlink(t *testing.T, target, link string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(link), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
}

func relPaths(files []ExportableFile) []string {
	var out []string
	for _, f := range files {
		out = append(out, f.RelativePath+" "+string(f.Type))
	}
	return out
}

func TestScanSymlinkedRoot(t *testing.T) {
	root := t.TempDir()
	mkfile(t, filepath.Join(root, "real", "src", "public", "com", "x", "A.java"), "class A {}")
	link := filepath.Join(root, "link")
	symlink(t, filepath.Join(root, "real"), link)

	files, err := Scan(link, zerolog.Nop())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(files) != 1 || files[0].RelativePath != "src/public/com/x/A.java" || files[0].Type != Source {
		t.Errorf("Scan(link) = %+v", files)
	}
}

func TestScanSymlinkedEntries(t *testing.T) {
	root := t.TempDir()
	tree := filepath.Join(root, "tree")
	mkfile(t, filepath.Join(root, "shared", "a.properties"), "k=v")
	mkfile(t, filepath.Join(root, "shared", "lang", "b.properties"), "k=v")
	mkfile(t, filepath.Join(tree, "yyconfig", "c.xml"), "<c/>")
	symlink(t, filepath.Join(root, "shared", "a.properties"), filepath.Join(tree, "resources", "a.properties"))
	symlink(t, tree, filepath.Join(tree, "resources", "back"))
	symlink(t, filepath.Join(root, "shared", "lang"), filepath.Join(tree, "resources", "lang"))
	symlink(t, filepath.Join(root, "shared", "lang"), filepath.Join(tree, "resources", "zlang"))

	files, err := Scan(tree, zerolog.Nop())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	want := []string{
		"resources/a.properties resource",
		"resources/lang/b.properties resource",
		"yyconfig/c.xml config",
	}
	if got := relPaths(files); !reflect.DeepEqual(got, want) {
		t.Errorf("Scan = %v, want %v", got, want)
	}
	resolved, _ := filepath.EvalSymlinks(tree)
	if files[0].Path != filepath.Join(resolved, "resources", "a.properties") {
		t.Errorf("symlinked file should keep its link path, got %s", files[0].Path)
	}
}

func TestScanIgnoresSegmentsAboveProject(t *testing.T) {
	ws := filepath.Join(t.TempDir(), "resources", "ws")
	mkfile(t, filepath.Join(ws, "proj", "META-INF", "module.xml"), `<module name="m"/>`)
	mkfile(t, filepath.Join(ws, "proj", "yyconfig", "modules", "m", "c.xml"), "<c/>")
	mkfile(t, filepath.Join(ws, "proj", "resources", "lang", "a.properties"), "k=v")

	files, err := Scan(ws, zerolog.Nop())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	want := []string{
		"proj/META-INF/module.xml metaInfo",
		"proj/resources/lang/a.properties resource",
		"proj/yyconfig/modules/m/c.xml config",
	}
	if got := relPaths(files); !reflect.DeepEqual(got, want) {
		t.Fatalf("Scan = %v, want %v", got, want)
	}

	r := NewResolver("", zerolog.Nop())
	targets := map[string]string{
		"proj/META-INF/module.xml":         "replacement/modules/m/META-INF/module.xml",
		"proj/resources/lang/a.properties": "replacement/resources/lang/a.properties",
		"proj/yyconfig/modules/m/c.xml":    "replacement/hotwebs/nccloud/WEB-INF/extend/yyconfig/modules/m/c.xml",
	}
	for _, f := range files {
		got, err := r.Entries(f)
		if err != nil || len(got) != 1 || got[0].Target != targets[f.RelativePath] {
			t.Errorf("Entries(%s) = %+v, %v; want %s", f.RelativePath, got, err, targets[f.RelativePath])
		}
	}

	// Selecting a folder inside the project keeps the project's view.
	sub, err := Scan(filepath.Join(ws, "proj", "resources", "lang"), zerolog.Nop())
	if err != nil || len(sub) != 1 || sub[0].Type != Resource {
		t.Errorf("Scan(lang) = %+v, %v", sub, err)
	}
	single, err := Scan(filepath.Join(ws, "proj", "yyconfig", "modules", "m", "c.xml"), zerolog.Nop())
	if err != nil || len(single) != 1 || single[0].Type != Config {
		t.Errorf("Scan(c.xml) = %+v, %v", single, err)
	}
}

func TestFindModuleName(t *testing.T) {
	root := t.TempDir()

	// Upward: module.xml above the file.
	mkfile(t, filepath.Join(root, "up", "META-INF", "module.xml"), `<?xml version="1.0" encoding="gb2312"?><module name="upmod"></module>`)
	mkfile(t, filepath.Join(root, "up", "src", "public", "A.java"), "")
	if got := FindModuleName(filepath.Join(root, "up", "src", "public", "A.java")); got != "upmod" {
		t.Errorf("upward = %s", got)
	}

	// Downward: module.xml below the directory.
	mkfile(t, filepath.Join(root, "down", "x", "y", "META-INF", "module.xml"), `<module name="downmod"/>`)
	mkfile(t, filepath.Join(root, "down", "file.txt"), "")
	if got := FindModuleName(filepath.Join(root, "down", "file.txt")); got != "downmod" {
		t.Errorf("downward = %s", got)
	}

	// Too deep for the downward search.
	mkfile(t, filepath.Join(root, "deep", "1", "2", "3", "4", "5", "6", "META-INF", "module.xml"), `<module name="deepmod"/>`)
	mkfile(t, filepath.Join(root, "deep", ".project"), `<projectDescription><name>Foo</name></projectDescription>`)
	mkfile(t, filepath.Join(root, "deep", "f.txt"), "")
	if got := FindModuleName(filepath.Join(root, "deep", "f.txt")); got != "Foo" {
		t.Errorf(".project fallback = %s", got)
	}

	mkfile(t, filepath.Join(root, "none", "f.txt"), "")
	if got := FindModuleName(filepath.Join(root, "none", "f.txt")); got != UnknownModule {
		t.Errorf("unknown = %s", got)
	}
}

func TestFindModuleNameSurvivesSymlinkLoop(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "loop", "a")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(root, "loop"), filepath.Join(dir, "back")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	mkfile(t, filepath.Join(root, "loop", "f.txt"), "")
	if got := FindModuleName(filepath.Join(root, "loop", "f.txt")); got != UnknownModule {
		t.Errorf("got %s", got)
	}
}

func TestClasspathOutput(t *testing.T) {
	root := t.TempDir()
	if got := ClasspathOutput(root, "src/public"); got != "build/classes" {
		t.Errorf("missing .classpath = %s", got)
	}

	mkfile(t, filepath.Join(root, ".classpath"), `<?xml version="1.0" encoding="UTF-8"?>
<classpath>
  <classpathentry kind="src" path="src/public"/>
  <classpathentry kind="src" path="src/client" output="classes/client"/>
  <classpathentry kind="output" path="bin"/>
</classpath>`)
	if got := ClasspathOutput(root, "src/public"); got != "bin" {
		t.Errorf("default output = %s", got)
	}
	if got := ClasspathOutput(root, "src/client"); got != "classes/client" {
		t.Errorf("src output = %s", got)
	}

	mkfile(t, filepath.Join(root, ".classpath"), `<classpath><classpathentry kind="src" path="src"/>`)
	if got := ClasspathOutput(root, "src/public"); got != "build/classes" {
		t.Errorf("broken .classpath = %s", got)
	}

	if got := ProjectRoot(filepath.Join(root, "src", "public", "A.java")); got != root {
		t.Errorf("ProjectRoot = %s", got)
	}
}

func newProject(t *testing.T) string {
	t.Helper()
	proj := filepath.Join(t.TempDir(), "proj")
	mkfile(t, filepath.Join(proj, "META-INF", "module.xml"), `<module name="mymod"/>`)
	mkfile(t, filepath.Join(proj, ".classpath"), `<classpath><classpathentry kind="output" path="bin"/></classpath>`)
	mkfile(t, filepath.Join(proj, "src", "public", "com", "x", "A.java"), "class A {}")
	mkfile(t, filepath.Join(proj, "bin", "com", "x", "A.class"), "CAFEBABE-A")
	mkfile(t, filepath.Join(proj, "bin", "com", "x", "A$Inner.class"), "CAFEBABE-A$Inner")
	mkfile(t, filepath.Join(proj, "bin", "com", "x", "AB.class"), "not inner")
	mkfile(t, filepath.Join(proj, "src", "private", "com", "x", "P.java"), "class P {}")
	mkfile(t, filepath.Join(proj, "src", "client", "com", "x", "C.java"), "class C {}")
	return proj
}

func TestEntriesSubstitutesCompiledClass(t *testing.T) {
	proj := newProject(t)
	r := NewResolver("", zerolog.Nop())

	java := filepath.Join(proj, "src", "public", "com", "x", "A.java")
	entries, err := r.Entries(ExportableFile{Path: java, Type: Source, RelativePath: "src/public/com/x/A.java"})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected class, inner class and source, got %+v", entries)
	}
	if entries[0].Target != "replacement/modules/mymod/classes/com/x/A.class" || !entries[0].Compiled {
		t.Errorf("class entry = %+v", entries[0])
	}
	data, _ := os.ReadFile(entries[0].Path)
	if string(data) != "CAFEBABE-A" {
		t.Errorf("class entry reads %q", data)
	}
	if entries[1].Target != "replacement/modules/mymod/classes/com/x/A$Inner.class" {
		t.Errorf("inner class entry = %+v", entries[1])
	}
	if entries[2].Target != "replacement/modules/mymod/classes/com/x/A.java" || !entries[2].JavaOriginal {
		t.Errorf("source entry = %+v", entries[2])
	}
}

func TestEntriesSourceRoots(t *testing.T) {
	proj := newProject(t)
	homeDir := t.TempDir()
	r := NewResolver(homeDir, zerolog.Nop())

	private := filepath.Join(proj, "src", "private", "com", "x", "P.java")
	got, _ := r.Entries(ExportableFile{Path: private, Type: Source})
	if len(got) != 1 || got[0].Target != "replacement/modules/mymod/META-INF/classes/com/x/P.java" || got[0].JavaOriginal {
		t.Errorf("private = %+v", got)
	}

	client := ExportableFile{Path: filepath.Join(proj, "src", "client", "com", "x", "C.java"), Type: Source}
	got, _ = r.Entries(client)
	if got[0].Target != "replacement/modules/mymod/client/classes/com/x/C.java" {
		t.Errorf("client = %+v", got)
	}

	if err := os.MkdirAll(filepath.Join(homeDir, "hotwebs", "nccloud"), 0o755); err != nil {
		t.Fatal(err)
	}
	cloud := NewResolver(homeDir, zerolog.Nop())
	got, _ = cloud.Entries(client)
	if got[0].Target != "replacement/hotwebs/nccloud/WEB-INF/classes/com/x/C.java" {
		t.Errorf("cloud client = %+v", got)
	}
}

func TestEntriesOtherTypes(t *testing.T) {
	proj := newProject(t)
	r := NewResolver("", zerolog.Nop())

	tests := []struct {
		file ExportableFile
		want string
	}{
		{ExportableFile{Path: filepath.Join(proj, "resources", "lang", "a.properties"), Type: Resource}, "replacement/resources/lang/a.properties"},
		{ExportableFile{Path: filepath.Join(proj, "yyconfig", "modules", "uapbd", "c.xml"), Type: Config}, "replacement/hotwebs/nccloud/WEB-INF/extend/yyconfig/modules/uapbd/c.xml"},
		{ExportableFile{Path: filepath.Join(proj, "yyconfig", "d.xml"), Type: Config}, "replacement/hotwebs/nccloud/WEB-INF/extend/yyconfig/modules/d.xml"},
		{ExportableFile{Path: filepath.Join(proj, "META-INF", "x.upm"), Type: MetaInfo}, "replacement/modules/mymod/META-INF/x.upm"},
		{ExportableFile{Path: filepath.Join(proj, "script", "a.sql"), Type: SQL, RelativePath: "script/a.sql"}, "sql/script/a.sql"},
	}
	for _, tt := range tests {
		got, err := r.Entries(tt.file)
		if err != nil || len(got) != 1 || got[0].Target != tt.want {
			t.Errorf("Entries(%s) = %+v, %v; want %s", tt.file.Path, got, err, tt.want)
		}
	}
}
