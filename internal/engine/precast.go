package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"nc-export/internal/descriptor"
	"nc-export/internal/dialect"
	"nc-export/internal/home"
	"nc-export/internal/progress"
	"nc-export/internal/rules"
	"nc-export/internal/schema"

	"github.com/rs/zerolog"
)

var (
	ErrNoDataSource = errors.New("no data source available")
	ErrNoItems      = errors.New("descriptors contain no items")
)

type PrecastOptions struct {
	Descriptors []string // items.xml files or directories holding them
	OutputDir   string
}

type PrecastResult struct {
	File       string
	DataSource string
	Items      int
	Bytes      int
	Tables     []schema.TableResult
}

// PrecastExporter writes the DELETE/INSERT script for a set of descriptor items
// against the installation's data source.
type PrecastExporter struct {
	Home        home.Config
	Rules       *rules.Resolver
	Credentials home.CredentialResolver
	Reporter    progress.Reporter
	Logger      zerolog.Logger

	// Query replaces the database round-trip; nil uses the data source's dialect.
	Query QueryFunc
	Now   func() time.Time
}

func (p *PrecastExporter) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Export runs the precast export. Any error fails the whole run and no script
// is written.
func (p *PrecastExporter) Export(ctx context.Context, opts PrecastOptions) (*PrecastResult, error) {
	tracker := progress.NewTracker(p.Reporter)
	res, err := p.export(ctx, tracker, opts)
	if err != nil {
		p.Logger.Error().Err(err).Msg("precast export failed")
		tracker.Fail(err)
		return nil, err
	}
	return res, nil
}

func (p *PrecastExporter) export(ctx context.Context, tracker *progress.Tracker, opts PrecastOptions) (*PrecastResult, error) {
	if err := tracker.Enter(progress.Validating, 0, "Validating configuration"); err != nil {
		return nil, err
	}
	if err := p.Home.Validate(); err != nil {
		return nil, err
	}
	if err := checkOutputDir(opts.OutputDir); err != nil {
		return nil, err
	}
	paths, err := descriptor.Find(opts.Descriptors)
	if err != nil {
		return nil, err
	}
	ds, ok := p.Home.SelectDataSource()
	if !ok {
		return nil, ErrNoDataSource
	}
	family, err := dialect.ParseFamily(ds.DatabaseType)
	if err != nil {
		return nil, fmt.Errorf("data source %s: %w", ds.Name, err)
	}

	if err := tracker.Enter(progress.Resolving, 5, fmt.Sprintf("Reading %d descriptor(s)", len(paths))); err != nil {
		return nil, err
	}
	items := descriptor.Load(paths, p.Logger)
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	query, err := p.queryFunc(ctx, family, ds)
	if err != nil {
		return nil, err
	}

	exp := &Expander{
		Family: family,
		Query:  query,
		Warner: tracker,
		Logger: p.Logger,
	}
	if p.Rules != nil {
		exp.Rules = p.Rules
		exp.ExcludeTimestamp = p.Rules.ExcludeSet()
	}

	if err := tracker.Enter(progress.Processing, 10, fmt.Sprintf("Exporting %d item(s) from %s", len(items), ds.Name)); err != nil {
		return nil, err
	}
	started := p.now()
	var b strings.Builder
	writeHeader(&b, ds, family, started, len(items))

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p.Logger.Info().Str("table", item.TableName).Str("item", item.ItemKey).Msg("exporting item")
		lo, hi := progress.Scale(i, len(items), 10, 90), progress.Scale(i+1, len(items), 10, 90)
		total, done := exp.Tables(item), 0
		exp.OnTable = func(r schema.TableResult) {
			done++
			if done > total {
				done = total
			}
			tracker.Step(progress.Scale(done, total, lo, hi), fmt.Sprintf("Processed %s (%s)", r.TableName, r.Status))
		}
		sql, err := exp.Export(ctx, item)
		if err != nil {
			return nil, err
		}
		if item.ItemKey != "" {
			fmt.Fprintf(&b, "-- Item: %s\n", item.ItemKey)
		}
		b.WriteString(sql)
		tracker.Step(progress.Scale(i+1, len(items), 10, 90), fmt.Sprintf("Processed %s (%d/%d)", item.TableName, i+1, len(items)))
	}

	if err := tracker.Enter(progress.Writing, 90, "Writing SQL file"); err != nil {
		return nil, err
	}
	file := filepath.Join(opts.OutputDir, fmt.Sprintf("allsql_%s.sql", started.Format("20060102150405")))
	if err := os.WriteFile(file, []byte(b.String()), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", file, err)
	}

	res := &PrecastResult{
		File:       file,
		DataSource: ds.Name,
		Items:      len(items),
		Bytes:      b.Len(),
		Tables:     exp.Results,
	}
	if _, err := tracker.Done(fmt.Sprintf("Exported %d item(s) to %s", len(items), filepath.Base(file))); err != nil {
		return nil, err
	}
	p.Logger.Info().Str("file", file).Int("items", len(items)).Int("tables", len(exp.Results)).Msg("precast export finished")
	return res, nil
}

func (p *PrecastExporter) queryFunc(ctx context.Context, family dialect.Family, ds home.DataSource) (QueryFunc, error) {
	if p.Query != nil {
		return p.Query, nil
	}
	d, err := dialect.GetDialect(family)
	if err != nil {
		return nil, err
	}
	creds := home.ResolveCredentials(ctx, p.Credentials, p.Home.HomePath, ds)
	return func(ctx context.Context, query string) ([]schema.Row, error) {
		return dialect.QueryRows(ctx, d, ds, creds, query)
	}, nil
}

func checkOutputDir(dir string) error {
	if dir == "" {
		return errors.New("output directory is required")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("output directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output path %s is not a directory", dir)
	}
	return nil
}

func writeHeader(b *strings.Builder, ds home.DataSource, family dialect.Family, at time.Time, items int) {
	b.WriteString("-- Precast SQL export\n")
	fmt.Fprintf(b, "-- Data source: %s (%s)", ds.Name, family)
	if ds.Host != "" {
		fmt.Fprintf(b, " %s", ds.Host)
		if ds.Port != 0 {
			fmt.Fprintf(b, ":%d", ds.Port)
		}
	}
	if ds.DatabaseName != "" {
		fmt.Fprintf(b, "/%s", ds.DatabaseName)
	}
	b.WriteString("\n")
	fmt.Fprintf(b, "-- Exported at: %s\n", at.Format(timeLayout))
	fmt.Fprintf(b, "-- Items: %d\n\n", items)
}
