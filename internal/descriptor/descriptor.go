// Package descriptor finds and parses the items.xml files that drive a precast
// export.
package descriptor

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"nc-export/internal/schema"
	"nc-export/internal/workspace"
	"nc-export/internal/xmlfile"

	"github.com/rs/zerolog"
)

const ScriptItemDocType = "SDP_SCRIPT_ITEM"

var ErrNoDescriptor = errors.New("no items.xml descriptor found")

// IsDescriptorName reports whether name is a conventional descriptor file name.
func IsDescriptorName(name string) bool {
	n := strings.ToLower(name)
	return n == "items.xml" || n == "item.xml"
}

// Find expands the selection into descriptor files. Selected files are taken as
// they are; selected directories are searched for items.xml / item.xml.
func Find(paths []string) ([]string, error) {
	var found []string
	seen := make(map[string]bool)
	add := func(p string) {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		if !seen[p] {
			seen[p] = true
			found = append(found, p)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", p, err)
		}
		if !info.IsDir() {
			add(p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if path != p && workspace.IsPrunedDir(d.Name()) {
					return fs.SkipDir
				}
				return nil
			}
			if IsDescriptorName(d.Name()) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if len(found) == 0 {
		return nil, ErrNoDescriptor
	}
	return found, nil
}

type itemsXML struct {
	XMLName xml.Name  `xml:"items"`
	DocType string    `xml:"docType,attr"`
	Items   []itemXML `xml:"item"`
}

type itemXML struct {
	ItemKey    string `xml:"itemKey"`
	ItemRule   string `xml:"itemRule"`
	FixedWhere string `xml:"fixedWhere"`
	CorpField  string `xml:"corpField"`
	GrpField   string `xml:"grpField"`
	SysField   string `xml:"sysField"`
}

type legacyXML struct {
	XMLName xml.Name        `xml:"InitDataCfgs"`
	Items   []legacyItemXML `xml:"item"`
	Cfgs    []legacyItemXML `xml:"InitDataCfg"`
}

type legacyItemXML struct {
	ItemKey        string `xml:"itemKey"`
	TableName      string `xml:"tableName"`
	WhereCondition string `xml:"whereCondition"`
	CorpField      string `xml:"corpField"`
	GrpField       string `xml:"grpField"`
	SysField       string `xml:"sysField"`
}

// ParseFile reads one descriptor. Items without a table name are dropped.
func ParseFile(path string) ([]schema.InitDataCfgItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	items, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for i := range items {
		items[i].Source = path
	}
	return items, nil
}

// Parse decodes descriptor content, accepting both the items and the legacy
// InitDataCfgs layouts.
func Parse(data []byte) ([]schema.InitDataCfgItem, error) {
	var doc itemsXML
	err := xmlfile.DecodeBytes(data, &doc)
	if err == nil {
		var out []schema.InitDataCfgItem
		for _, it := range doc.Items {
			item := schema.InitDataCfgItem{
				ItemKey:        strings.TrimSpace(it.ItemKey),
				TableName:      strings.TrimSpace(it.ItemRule),
				WhereCondition: strings.TrimSpace(it.FixedWhere),
				CorpField:      strings.TrimSpace(it.CorpField),
				GrpField:       strings.TrimSpace(it.GrpField),
				SysField:       strings.TrimSpace(it.SysField),
			}
			if item.TableName != "" {
				out = append(out, item)
			}
		}
		return out, nil
	}

	var legacy legacyXML
	if lerr := xmlfile.DecodeBytes(data, &legacy); lerr != nil {
		return nil, fmt.Errorf("unrecognised descriptor: %w", err)
	}
	var out []schema.InitDataCfgItem
	for _, it := range append(legacy.Items, legacy.Cfgs...) {
		item := schema.InitDataCfgItem{
			ItemKey:        strings.TrimSpace(it.ItemKey),
			TableName:      strings.TrimSpace(it.TableName),
			WhereCondition: strings.TrimSpace(it.WhereCondition),
			CorpField:      strings.TrimSpace(it.CorpField),
			GrpField:       strings.TrimSpace(it.GrpField),
			SysField:       strings.TrimSpace(it.SysField),
		}
		if item.TableName != "" {
			out = append(out, item)
		}
	}
	return out, nil
}

// Load parses every descriptor. A file that fails to parse is logged and skipped.
func Load(paths []string, logger zerolog.Logger) []schema.InitDataCfgItem {
	var all []schema.InitDataCfgItem
	for _, p := range paths {
		items, err := ParseFile(p)
		if err != nil {
			logger.Warn().Err(err).Str("file", p).Msg("skipping descriptor")
			continue
		}
		if len(items) == 0 {
			logger.Warn().Str("file", p).Msg("descriptor has no items")
		}
		all = append(all, items...)
	}
	return all
}
