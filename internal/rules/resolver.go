// Package rules loads table rule files: the XML hierarchies describing which child
// tables hang off a primary table, the name mapping that locates them, and the
// list of tables whose timestamp columns are left out of generated INSERTs.
package rules

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"nc-export/internal/schema"
	"nc-export/internal/xmlfile"

	"github.com/rs/zerolog"
)

const (
	ruleSubDir           = "tables/common/tablerule"
	mappingFile          = "mapping.properties"
	excludeTimestampFile = "tables/common/excludeTimestamp.txt"
)

// Resolver reads rule files below Dir. Without a cache every call goes to disk.
type Resolver struct {
	Dir    string
	logger zerolog.Logger
	cache  *fileCache
}

type Option func(*Resolver)

// WithCache turns on the read-through cache keyed by path and modification time.
func WithCache() Option {
	return func(r *Resolver) { r.cache = newFileCache() }
}

func NewResolver(dir string, logger zerolog.Logger, opts ...Option) *Resolver {
	r := &Resolver{Dir: dir, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) ruleDir() string {
	return filepath.Join(r.Dir, filepath.FromSlash(ruleSubDir))
}

// MappingEntry is one key=value line of mapping.properties.
type MappingEntry struct {
	Key   string
	Value string
}

// MappingEntries returns the mapping in file order; empty when the file is absent.
func (r *Resolver) MappingEntries() []MappingEntry {
	path := filepath.Join(r.ruleDir(), mappingFile)
	v, err := r.load(path, func(data []byte) (any, error) {
		return parseMapping(data), nil
	})
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Warn().Err(err).Str("file", path).Msg("failed to read table mapping")
		}
		return nil
	}
	return v.([]MappingEntry)
}

// TableMapping returns the flat key→value mapping.
func (r *Resolver) TableMapping() map[string]string {
	m := make(map[string]string)
	for _, e := range r.MappingEntries() {
		m[e.Key] = e.Value
	}
	return m
}

func parseMapping(data []byte) []MappingEntry {
	var entries []MappingEntry
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k == "" {
			continue
		}
		entries = append(entries, MappingEntry{Key: k, Value: v})
	}
	return entries
}

// ParseTableRule resolves tableName to its structure: a rule file named after the
// table, then a mapping entry whose value is the table, then a mapping entry whose
// key is the table. Returns nil when nothing resolves or the file is unreadable.
func (r *Resolver) ParseTableRule(tableName string) *schema.TableStructure {
	if tableName == "" {
		return nil
	}
	path := r.locate(tableName)
	if path == "" {
		r.logger.Debug().Str("table", tableName).Msg("no table rule")
		return nil
	}

	v, err := r.load(path, func(data []byte) (any, error) {
		return parseHierarchy(data)
	})
	if err != nil {
		r.logger.Warn().Err(err).Str("table", tableName).Str("file", path).Msg("failed to parse table rule")
		return nil
	}
	return v.(*schema.TableStructure)
}

func (r *Resolver) locate(tableName string) string {
	if p := r.ruleFile(tableName); p != "" {
		return p
	}
	entries := r.MappingEntries()
	for _, e := range entries {
		if strings.EqualFold(e.Value, tableName) {
			if p := r.ruleFile(e.Key); p != "" {
				return p
			}
		}
	}
	for _, e := range entries {
		if strings.EqualFold(e.Key, tableName) && e.Value != "" {
			if p := r.ruleFile(strings.TrimSuffix(e.Value, ".xml")); p != "" {
				return p
			}
		}
	}
	return ""
}

func (r *Resolver) ruleFile(name string) string {
	for _, candidate := range []string{name, strings.ToLower(name), strings.ToUpper(name)} {
		p := filepath.Join(r.ruleDir(), candidate+".xml")
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// AvailableTableRules lists the table names that have a rule file, sorted.
func (r *Resolver) AvailableTableRules() []string {
	entries, err := os.ReadDir(r.ruleDir())
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".xml") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
	}
	sort.Strings(names)
	return names
}

// ExcludeTimestampTables returns the tables whose timestamp columns are omitted
// from generated INSERTs.
func (r *Resolver) ExcludeTimestampTables() []string {
	path := filepath.Join(r.Dir, filepath.FromSlash(excludeTimestampFile))
	v, err := r.load(path, func(data []byte) (any, error) {
		var tables []string
		sc := bufio.NewScanner(bytes.NewReader(data))
		for sc.Scan() {
			if line := strings.TrimSpace(sc.Text()); line != "" && !strings.HasPrefix(line, "#") {
				tables = append(tables, line)
			}
		}
		return tables, sc.Err()
	})
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Warn().Err(err).Str("file", path).Msg("failed to read timestamp exclusion list")
		}
		return nil
	}
	return v.([]string)
}

// ExcludeSet is ExcludeTimestampTables as a lower-cased lookup set.
func (r *Resolver) ExcludeSet() map[string]bool {
	set := make(map[string]bool)
	for _, t := range r.ExcludeTimestampTables() {
		set[strings.ToLower(t)] = true
	}
	return set
}

// ExcludesTimestamp reports whether table is on the exclusion list.
func (r *Resolver) ExcludesTimestamp(table string) bool {
	return r.ExcludeSet()[strings.ToLower(table)]
}

func (r *Resolver) load(path string, parse func([]byte) (any, error)) (any, error) {
	if r.cache != nil {
		return r.cache.get(path, parse)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(data)
}

type hierarchyXML struct {
	TableName  string        `xml:"tableName"`
	SQLNo      string        `xml:"sqlNo"`
	PrimaryKey string        `xml:"primaryKey"`
	SubTables  []subTableXML `xml:"subTableGroup>subTable"`
}

type subTableXML struct {
	TableName        string        `xml:"tableName"`
	ForeignKeyColumn string        `xml:"foreignKeyColumn"`
	SQLNo            string        `xml:"sqlNo"`
	PrimaryKey       string        `xml:"primaryKey"`
	SubTables        []subTableXML `xml:"subTableGroup>subTable"`
}

func parseHierarchy(data []byte) (*schema.TableStructure, error) {
	var h hierarchyXML
	if err := xmlfile.DecodeBytes(data, &h); err != nil {
		return nil, err
	}
	return &schema.TableStructure{
		Table:      strings.TrimSpace(h.TableName),
		SQLNo:      strings.TrimSpace(h.SQLNo),
		PrimaryKey: strings.TrimSpace(h.PrimaryKey),
		SubTables:  convertSubTables(h.SubTables),
	}, nil
}

func convertSubTables(in []subTableXML) []*schema.SubTableStructure {
	if len(in) == 0 {
		return nil
	}
	out := make([]*schema.SubTableStructure, 0, len(in))
	for _, s := range in {
		out = append(out, &schema.SubTableStructure{
			Table:            strings.TrimSpace(s.TableName),
			ForeignKeyColumn: strings.TrimSpace(s.ForeignKeyColumn),
			SQLNo:            strings.TrimSpace(s.SQLNo),
			PrimaryKey:       strings.TrimSpace(s.PrimaryKey),
			SubTables:        convertSubTables(s.SubTables),
		})
	}
	return out
}
