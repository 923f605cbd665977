package patch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"nc-export/internal/home"
	"nc-export/internal/progress"
	"nc-export/internal/workspace"

	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog"
)

var ErrNothingToExport = errors.New("selection contains nothing to export")

const (
	metadataName = "packmetadata.xml"
	installName  = "installpatch.xml"
	readmeName   = "readme.txt"
)

type Result struct {
	File            string
	Entries         []workspace.Entry
	Bytes           int64 // uncompressed size of the packaged files
	ModifiedClasses []string
	PatchID         string
}

// Exporter builds a patch archive from a selection of workspace paths.
type Exporter struct {
	HomePath string
	Reporter progress.Reporter
	Logger   zerolog.Logger
	Now      func() time.Time
}

func (e *Exporter) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Export writes the archive to info.OutputPath. The archive only appears under
// its final name once every member has been written.
func (e *Exporter) Export(ctx context.Context, selection []string, info PatchInfo) (*Result, error) {
	tracker := progress.NewTracker(e.Reporter)
	res, err := e.export(ctx, tracker, selection, info)
	if err != nil {
		e.Logger.Error().Err(err).Msg("patch export failed")
		tracker.Fail(err)
		return nil, err
	}
	return res, nil
}

func (e *Exporter) export(ctx context.Context, tracker *progress.Tracker, selection []string, info PatchInfo) (*Result, error) {
	if err := tracker.Enter(progress.Validating, 0, "Validating patch settings"); err != nil {
		return nil, err
	}
	if err := (home.Config{HomePath: e.HomePath}).Validate(); err != nil {
		return nil, err
	}
	if info.Name == "" {
		return nil, errors.New("patch name is required")
	}
	if info.OutputPath == "" {
		return nil, errors.New("output directory is required")
	}
	st, err := os.Stat(info.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("output directory: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("output path %s is not a directory", info.OutputPath)
	}
	if len(selection) == 0 {
		return nil, ErrNothingToExport
	}

	if err := tracker.Enter(progress.Resolving, 5, "Scanning selection"); err != nil {
		return nil, err
	}
	files, err := workspace.ScanAll(selection, e.Logger)
	if err != nil {
		return nil, err
	}
	entries, err := e.resolve(files, info, tracker)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNothingToExport
	}

	if err := tracker.Enter(progress.Processing, 10, fmt.Sprintf("Packaging %d file(s)", len(entries))); err != nil {
		return nil, err
	}
	now := e.now()
	final := filepath.Join(info.OutputPath, FileName(info, now))
	tmp, err := os.CreateTemp(info.OutputPath, ".patch-*.zip.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	zw := zip.NewWriter(tmp)
	sizes := make(map[string]int64, len(entries))
	var total int64
	for i, en := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := addFile(zw, en, now)
		if err != nil {
			return nil, err
		}
		sizes[en.Target] = n
		total += n
		tracker.Step(progress.Scale(i+1, len(entries), 10, 90), "Added "+en.Target)
	}

	if err := tracker.Enter(progress.Writing, 90, "Writing manifests"); err != nil {
		return nil, err
	}
	meta := BuildMetadata(info, entries, now)
	metaXML, err := MarshalMetadata(meta)
	if err != nil {
		return nil, err
	}
	manifests := []struct {
		name string
		data []byte
	}{
		{metadataName, metaXML},
		{installName, InstallPatchXML()},
		{readmeName, []byte(Readme(info, meta, entries, sizes))},
	}
	for _, m := range manifests {
		if err := addBytes(zw, m.name, m.data, now); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close archive: %w", err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		return nil, fmt.Errorf("failed to move archive into place: %w", err)
	}
	committed = true

	res := &Result{
		File:            final,
		Entries:         entries,
		Bytes:           total,
		ModifiedClasses: ModifiedClasses(entries),
		PatchID:         meta.ID,
	}
	if _, err := tracker.Done(fmt.Sprintf("Patch written to %s", filepath.Base(final))); err != nil {
		return nil, err
	}
	e.Logger.Info().Str("file", final).Int("entries", len(entries)).Int64("bytes", total).Msg("patch export finished")
	return res, nil
}

// Include reports whether files of type t are part of the patch.
func (info PatchInfo) Include(t workspace.FileType) bool {
	switch t {
	case workspace.Source:
		return info.IncludeSource
	case workspace.Resource:
		return info.IncludeResources
	case workspace.Config, workspace.MetaInfo:
		return info.IncludeConfig
	}
	return true
}

func (e *Exporter) resolve(files []workspace.ExportableFile, info PatchInfo, tracker *progress.Tracker) ([]workspace.Entry, error) {
	r := workspace.NewResolver(e.HomePath, e.Logger)
	seen := make(map[string]string)
	var entries []workspace.Entry
	for _, f := range files {
		if !info.Include(f.Type) {
			continue
		}
		resolved, err := r.Entries(f)
		if err != nil {
			return nil, err
		}
		for _, en := range resolved {
			if en.JavaOriginal && !info.IncludeJavaSource {
				continue
			}
			if prev, dup := seen[en.Target]; dup {
				tracker.Warn(fmt.Sprintf("%s and %s both map to %s; keeping the first", prev, en.Path, en.Target))
				continue
			}
			seen[en.Target] = en.Path
			entries = append(entries, en)
		}
	}
	return entries, nil
}

func addFile(zw *zip.Writer, en workspace.Entry, now time.Time) (int64, error) {
	src, err := os.Open(en.Path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", en.Path, err)
	}
	defer src.Close()

	modified := now
	if st, err := src.Stat(); err == nil {
		modified = st.ModTime()
	}
	w, err := zw.CreateHeader(&zip.FileHeader{Name: en.Target, Method: zip.Deflate, Modified: modified})
	if err != nil {
		return 0, fmt.Errorf("failed to add %s: %w", en.Target, err)
	}
	n, err := io.Copy(w, src)
	if err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", en.Target, err)
	}
	return n, nil
}

func addBytes(zw *zip.Writer, name string, data []byte, now time.Time) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: now})
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
