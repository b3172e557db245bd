// Package backup writes and restores tar.gz archives of the atelier SQLite
// database, its config file and locally stored media.
package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/HerbHall/atelier/internal/version"
)

// ManifestName is the archive entry describing the backup.
const ManifestName = "manifest.json"

// MediaPrefix is the archive directory holding media objects.
const MediaPrefix = "media/"

// ErrExists is returned by Restore when a target file exists and force is
// not set.
var ErrExists = errors.New("file already exists")

// Sources lists what goes into an archive. Only Database is required.
type Sources struct {
	Database string
	Config   string
	MediaDir string
}

// Manifest is stored as the first archive entry.
type Manifest struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Database  string    `json:"database"`
	Config    string    `json:"config,omitempty"`
	Media     int       `json:"media"`
}

// Backup writes a tar.gz archive of src to outputPath. The database is
// copied from a VACUUM INTO snapshot, so a running server can keep writing.
func Backup(ctx context.Context, src Sources, outputPath string) (Manifest, error) {
	if _, err := os.Stat(src.Database); err != nil {
		return Manifest{}, fmt.Errorf("database file not found: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "atelier-backup-*")
	if err != nil {
		return Manifest{}, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	snapshot := filepath.Join(tmpDir, filepath.Base(src.Database))
	if err := snapshotDB(ctx, src.Database, snapshot); err != nil {
		return Manifest{}, fmt.Errorf("database snapshot failed: %w", err)
	}

	m := Manifest{
		Version:   version.Short(),
		CreatedAt: time.Now().UTC(),
		Database:  filepath.Base(src.Database),
	}
	var media []string
	if src.MediaDir != "" {
		media, err = listFiles(src.MediaDir)
		if err != nil {
			return Manifest{}, fmt.Errorf("listing media: %w", err)
		}
		m.Media = len(media)
	}
	hasConfig := false
	if src.Config != "" {
		if _, err := os.Stat(src.Config); err == nil {
			hasConfig = true
			m.Config = filepath.Base(src.Config)
		}
	}

	outFile, err := os.Create(outputPath)
	if err != nil {
		return Manifest{}, fmt.Errorf("creating output file: %w", err)
	}
	defer outFile.Close()

	gw := gzip.NewWriter(outFile)
	tw := tar.NewWriter(gw)

	if err := writeManifest(tw, m); err != nil {
		return Manifest{}, err
	}
	if err := addFileToTar(tw, snapshot, m.Database); err != nil {
		return Manifest{}, fmt.Errorf("adding database to archive: %w", err)
	}
	if hasConfig {
		if err := addFileToTar(tw, src.Config, m.Config); err != nil {
			return Manifest{}, fmt.Errorf("adding config to archive: %w", err)
		}
	}
	for _, rel := range media {
		if err := ctx.Err(); err != nil {
			return Manifest{}, err
		}
		if err := addFileToTar(tw, filepath.Join(src.MediaDir, rel), MediaPrefix+filepath.ToSlash(rel)); err != nil {
			return Manifest{}, fmt.Errorf("adding %s to archive: %w", rel, err)
		}
	}

	if err := tw.Close(); err != nil {
		return Manifest{}, err
	}
	if err := gw.Close(); err != nil {
		return Manifest{}, err
	}
	return m, outFile.Close()
}

func snapshotDB(ctx context.Context, dbPath, dest string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, "VACUUM INTO ?", dest)
	return err
}

func listFiles(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == root {
				return filepath.SkipDir
			}
			return err
		}
		if d.Type().IsRegular() {
			rel, err := filepath.Rel(root, p)
			if err != nil {
				return err
			}
			out = append(out, rel)
		}
		return nil
	})
	return out, err
}

func writeManifest(tw *tar.Writer, m Manifest) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	hdr := &tar.Header{
		Name:    ManifestName,
		Mode:    0o644,
		Size:    int64(len(b)),
		ModTime: m.CreatedAt,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	_, err = tw.Write(b)
	return err
}

// addFileToTar adds a single file to the tar archive under the given name.
func addFileToTar(tw *tar.Writer, filePath, archiveName string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = archiveName

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}

	_, err = io.Copy(tw, f)
	return err
}

// Restore extracts an archive written by Backup into dataDir. Media entries
// land under dataDir/media. Existing files are kept and reported with
// ErrExists unless force is set.
func Restore(ctx context.Context, input, dataDir string, force bool) (Manifest, error) {
	f, err := os.Open(input)
	if err != nil {
		return Manifest{}, fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return Manifest{}, fmt.Errorf("reading archive: %w", err)
	}
	defer gr.Close()

	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return Manifest{}, fmt.Errorf("creating data dir: %w", err)
	}

	var m Manifest
	tr := tar.NewReader(gr)
	for {
		if err := ctx.Err(); err != nil {
			return m, err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return m, fmt.Errorf("reading archive entry: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if hdr.Name == ManifestName {
			if err := json.NewDecoder(tr).Decode(&m); err != nil {
				return m, fmt.Errorf("decoding manifest: %w", err)
			}
			continue
		}
		target, err := safeJoin(dataDir, hdr.Name)
		if err != nil {
			return m, err
		}
		if err := extract(tr, target, force); err != nil {
			return m, fmt.Errorf("restoring %s: %w", hdr.Name, err)
		}
	}
	if m.Database == "" {
		return m, fmt.Errorf("archive %s has no manifest", input)
	}
	return m, nil
}

func safeJoin(dir, name string) (string, error) {
	clean := path.Clean("/" + name)
	if clean == "/" || strings.Contains(name, "..") {
		return "", fmt.Errorf("unsafe archive entry %q", name)
	}
	return filepath.Join(dir, filepath.FromSlash(clean[1:])), nil
}

func extract(r io.Reader, target string, force bool) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	out, err := os.OpenFile(target, flags, 0o640)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s (use -force to overwrite)", ErrExists, target)
		}
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
