// Package patch assembles patch archives: the workspace files at their
// installation paths plus the metadata manifests the installer reads.
package patch

import (
	"encoding/xml"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"nc-export/internal/workspace"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// PatchInfo is what the user supplies for one patch export.
type PatchInfo struct {
	Name              string
	Version           string
	Description       string
	Author            string
	IncludeSource     bool
	IncludeResources  bool
	IncludeConfig     bool
	IncludeJavaSource bool
	OutputPath        string
}

const defaultVersion = "1.0"

var unsafeName = strings.NewReplacer("/", "_", `\`, "_", ":", "_", "*", "_", "?", "_", `"`, "_", "<", "_", ">", "_", "|", "_", " ", "_")

// FileName is patch_<name>[_<author>]_<YYYYMMDD>_V<version>.zip with the dots of
// the version turned into underscores.
func FileName(info PatchInfo, now time.Time) string {
	var b strings.Builder
	b.WriteString("patch_")
	b.WriteString(unsafeName.Replace(strings.TrimSpace(info.Name)))
	if a := strings.TrimSpace(info.Author); a != "" {
		b.WriteString("_")
		b.WriteString(unsafeName.Replace(a))
	}
	b.WriteString("_")
	b.WriteString(now.Format("20060102"))
	b.WriteString("_V")
	b.WriteString(strings.ReplaceAll(unsafeName.Replace(version(info)), ".", "_"))
	b.WriteString(".zip")
	return b.String()
}

func version(info PatchInfo) string {
	if v := strings.TrimSpace(info.Version); v != "" {
		return v
	}
	return defaultVersion
}

// Metadata is the content of packmetadata.xml.
type Metadata struct {
	XMLName               xml.Name `xml:"packmetadata"`
	ID                    string   `xml:"id"`
	Name                  string   `xml:"name"`
	Version               string   `xml:"version"`
	Description           string   `xml:"description"`
	Provider              string   `xml:"provider"`
	Time                  string   `xml:"time"`
	PatchType             string   `xml:"patchType"`
	ModifiedJavaClasses   string   `xml:"modifiedJavaClasses"`
	ModifiedModules       string   `xml:"modifiedModules"`
	CanAppliedMiddleware  string   `xml:"canAppliedMiddleware"`
	CanAppliedDB          string   `xml:"canAppliedDB"`
	CanAppliedOS          string   `xml:"canAppliedOS"`
	NeedRecreatedLoginJar bool     `xml:"needRecreatedLoginJar"`
	NeedDeploy            bool     `xml:"needDeploy"`
}

// BuildMetadata describes a patch made of entries under a fresh id.
func BuildMetadata(info PatchInfo, entries []workspace.Entry, now time.Time) Metadata {
	return Metadata{
		ID:                   uuid.NewString(),
		Name:                 info.Name,
		Version:              version(info),
		Description:          info.Description,
		Provider:             info.Author,
		Time:                 now.Format("2006-01-02 15:04:05"),
		PatchType:            "BUGFIX",
		ModifiedJavaClasses:  strings.Join(ModifiedClasses(entries), ","),
		ModifiedModules:      strings.Join(modifiedModules(entries), ","),
		CanAppliedMiddleware: "Weblogic,Websphere 7.0,Yonyou Middleware V5,Yonyou Middleware V6",
		CanAppliedDB:         "DB2 V9.7,SQL Server 2008 R2,Oracle 10,Oracle 11",
		CanAppliedOS:         "Linux,Windows,AIX,Solaris",
	}
}

// ModifiedClasses lists the dotted names of the top-level classes a patch
// replaces, taken from targets below a classes/ directory.
func ModifiedClasses(entries []workspace.Entry) []string {
	seen := make(map[string]bool)
	var names []string
	for _, e := range entries {
		i := strings.Index(e.Target, "/classes/")
		if i < 0 {
			continue
		}
		rel := e.Target[i+len("/classes/"):]
		ext := path.Ext(rel)
		if ext != ".java" && ext != ".class" {
			continue
		}
		rel = strings.TrimSuffix(rel, ext)
		if strings.Contains(path.Base(rel), "$") {
			continue
		}
		name := strings.ReplaceAll(rel, "/", ".")
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func modifiedModules(entries []workspace.Entry) []string {
	seen := make(map[string]bool)
	var mods []string
	for _, e := range entries {
		rest, ok := strings.CutPrefix(e.Target, "replacement/modules/")
		if !ok {
			continue
		}
		mod, _, _ := strings.Cut(rest, "/")
		if mod != "" && !seen[mod] {
			seen[mod] = true
			mods = append(mods, mod)
		}
	}
	sort.Strings(mods)
	return mods
}

// MarshalMetadata renders packmetadata.xml.
func MarshalMetadata(m Metadata) ([]byte, error) {
	out, err := xml.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to render packmetadata.xml: %w", err)
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}

// InstallPatchXML is the copy rule that moves replacement/modules/ into the
// installation's modules directory.
func InstallPatchXML() []byte {
	return []byte(xml.Header + `<installpatch>
  <copy>
    <from>replacement/modules/</from>
    <to>/modules/</to>
  </copy>
</installpatch>
`)
}

// Readme is the human readable summary shipped as readme.txt.
func Readme(info PatchInfo, meta Metadata, entries []workspace.Entry, sizes map[string]int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Patch:       %s\n", info.Name)
	fmt.Fprintf(&b, "Version:     %s\n", version(info))
	if info.Author != "" {
		fmt.Fprintf(&b, "Author:      %s\n", info.Author)
	}
	fmt.Fprintf(&b, "Created:     %s\n", meta.Time)
	fmt.Fprintf(&b, "Patch id:    %s\n", meta.ID)
	if info.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", info.Description)
	}

	counts := make(map[workspace.FileType]int)
	var total int64
	for _, e := range entries {
		counts[e.Type]++
		total += sizes[e.Target]
	}
	fmt.Fprintf(&b, "\nFiles: %s (%s)\n", humanize.Comma(int64(len(entries))), humanize.Bytes(uint64(total)))
	for _, t := range []workspace.FileType{workspace.Source, workspace.Resource, workspace.Config, workspace.MetaInfo, workspace.SQL} {
		if counts[t] > 0 {
			fmt.Fprintf(&b, "  %-9s %d\n", t, counts[t])
		}
	}

	if classes := ModifiedClasses(entries); len(classes) > 0 {
		b.WriteString("\nModified classes:\n")
		for _, c := range classes {
			fmt.Fprintf(&b, "  %s\n", c)
		}
	}

	b.WriteString("\nContents:\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "  %s (%s)\n", e.Target, humanize.Bytes(uint64(sizes[e.Target])))
	}
	return b.String()
}
