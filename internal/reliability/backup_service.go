// Package reliability keeps the databases healthy and backed up off-site.
package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aristath/investlog/internal/database"
	"github.com/rs/zerolog"
)

const (
	archivePrefix    = "investlog-backup-"
	archiveSuffix    = ".tar.gz"
	archiveTimestamp = "2006-01-02-150405"
	metadataFile     = "backup-metadata.json"

	// Keep at least this many backups regardless of age
	minBackupsToKeep = 3
)

// StoredObject is an object in the backup store.
type StoredObject struct {
	Name      string
	SizeBytes int64
}

// ObjectStore is where backup archives are kept.
type ObjectStore interface {
	Upload(ctx context.Context, name string, body io.Reader, size int64) error
	List(ctx context.Context, namePrefix string) ([]StoredObject, error)
	Delete(ctx context.Context, name string) error
}

// BackupService manages cloud backups of all databases
type BackupService struct {
	store     ObjectStore
	databases []*database.DB
	dataDir   string
	now       func() time.Time
	log       zerolog.Logger
}

// BackupMetadata contains metadata about a backup
type BackupMetadata struct {
	Timestamp time.Time          `json:"timestamp"`
	Version   string             `json:"version"`
	Databases []DatabaseMetadata `json:"databases"`
}

// DatabaseMetadata contains metadata about a single database in the backup
type DatabaseMetadata struct {
	Name      string `json:"name"`
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}

// BackupInfo represents information about a stored backup
type BackupInfo struct {
	Filename  string    `json:"filename"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  int64     `json:"age_hours"`
}

// NewBackupService creates a new backup service. Staging files are written
// under dataDir.
func NewBackupService(
	store ObjectStore,
	databases []*database.DB,
	dataDir string,
	log zerolog.Logger,
) *BackupService {
	return &BackupService{
		store:     store,
		databases: databases,
		dataDir:   dataDir,
		now:       time.Now,
		log:       log.With().Str("service", "backup").Logger(),
	}
}

// CreateAndUploadBackup snapshots every database, packs the copies with a
// checksum manifest and uploads the archive. It returns the archive name.
func (s *BackupService) CreateAndUploadBackup(ctx context.Context) (string, error) {
	s.log.Info().Msg("Starting backup")
	startTime := time.Now()

	stagingDir, err := os.MkdirTemp(s.dataDir, "backup-staging-")
	if err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	now := s.now().UTC()
	metadata := BackupMetadata{
		Timestamp: now,
		Version:   "1",
		Databases: make([]DatabaseMetadata, 0, len(s.databases)),
	}

	files := make([]string, 0, len(s.databases)+1)
	for _, db := range s.databases {
		filename := db.Name() + ".db"
		dbPath := filepath.Join(stagingDir, filename)

		s.log.Debug().Str("database", db.Name()).Msg("Backing up database")

		if err := db.VacuumInto(ctx, dbPath); err != nil {
			s.log.Error().Err(err).Str("database", db.Name()).Msg("Failed to backup database")
			return "", fmt.Errorf("failed to backup %s: %w", db.Name(), err)
		}

		info, err := os.Stat(dbPath)
		if err != nil {
			return "", fmt.Errorf("failed to stat %s backup: %w", db.Name(), err)
		}

		checksum, err := calculateChecksum(dbPath)
		if err != nil {
			return "", fmt.Errorf("failed to calculate checksum for %s: %w", db.Name(), err)
		}

		metadata.Databases = append(metadata.Databases, DatabaseMetadata{
			Name:      db.Name(),
			Filename:  filename,
			SizeBytes: info.Size(),
			Checksum:  checksum,
		})
		files = append(files, filename)
	}

	if err := writeMetadata(filepath.Join(stagingDir, metadataFile), metadata); err != nil {
		return "", fmt.Errorf("failed to write metadata: %w", err)
	}
	files = append(files, metadataFile)

	archiveName := archivePrefix + now.Format(archiveTimestamp) + archiveSuffix
	archivePath := filepath.Join(stagingDir, archiveName)

	if err := createArchive(archivePath, stagingDir, files); err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}

	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %w", err)
	}
	defer archiveFile.Close()

	archiveInfo, err := archiveFile.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat archive: %w", err)
	}

	if err := s.store.Upload(ctx, archiveName, archiveFile, archiveInfo.Size()); err != nil {
		return "", fmt.Errorf("failed to upload backup: %w", err)
	}

	s.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Str("archive", archiveName).
		Int64("size_bytes", archiveInfo.Size()).
		Msg("Backup completed successfully")

	return archiveName, nil
}

// ListBackups lists all stored backups, newest first
func (s *BackupService) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	objects, err := s.store.List(ctx, archivePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	backups := make([]BackupInfo, 0, len(objects))
	now := s.now()

	for _, obj := range objects {
		// investlog-backup-2026-01-08-143022.tar.gz
		if !strings.HasPrefix(obj.Name, archivePrefix) || !strings.HasSuffix(obj.Name, archiveSuffix) {
			continue
		}

		timestampStr := strings.TrimSuffix(strings.TrimPrefix(obj.Name, archivePrefix), archiveSuffix)
		timestamp, err := time.Parse(archiveTimestamp, timestampStr)
		if err != nil {
			s.log.Warn().Str("filename", obj.Name).Msg("Failed to parse timestamp from filename")
			continue
		}

		backups = append(backups, BackupInfo{
			Filename:  obj.Name,
			Timestamp: timestamp,
			SizeBytes: obj.SizeBytes,
			AgeHours:  int64(now.Sub(timestamp).Hours()),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})

	return backups, nil
}

// RotateOldBackups deletes backups older than the retention period.
// The newest minBackupsToKeep are always kept; retentionDays 0 keeps all.
func (s *BackupService) RotateOldBackups(ctx context.Context, retentionDays int) (int, error) {
	s.log.Info().Int("retention_days", retentionDays).Msg("Starting backup rotation")

	backups, err := s.ListBackups(ctx)
	if err != nil {
		return 0, err
	}

	if len(backups) <= minBackupsToKeep || retentionDays <= 0 {
		s.log.Info().Int("count", len(backups)).Msg("Nothing to rotate")
		return 0, nil
	}

	cutoffTime := s.now().AddDate(0, 0, -retentionDays)

	deletedCount := 0
	for _, backup := range backups[minBackupsToKeep:] {
		if !backup.Timestamp.Before(cutoffTime) {
			continue
		}

		if err := s.store.Delete(ctx, backup.Filename); err != nil {
			s.log.Error().
				Err(err).
				Str("filename", backup.Filename).
				Msg("Failed to delete old backup")
			continue
		}

		s.log.Info().
			Str("filename", backup.Filename).
			Time("timestamp", backup.Timestamp).
			Msg("Deleted old backup")

		deletedCount++
	}

	s.log.Info().
		Int("deleted", deletedCount).
		Int("remaining", len(backups)-deletedCount).
		Msg("Backup rotation completed")

	return deletedCount, nil
}

// calculateChecksum calculates SHA256 checksum of a file
func calculateChecksum(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}

// writeMetadata writes backup metadata to a JSON file
func writeMetadata(path string, metadata BackupMetadata) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(metadata)
}

// createArchive creates a tar.gz archive of the named files in sourceDir
func createArchive(archivePath, sourceDir string, filenames []string) (err error) {
	archiveFile, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer func() {
		if cerr := archiveFile.Close(); err == nil {
			err = cerr
		}
	}()

	gzipWriter := gzip.NewWriter(archiveFile)
	tarWriter := tar.NewWriter(gzipWriter)

	for _, filename := range filenames {
		if err := addFileToArchive(tarWriter, filepath.Join(sourceDir, filename), filename); err != nil {
			return fmt.Errorf("failed to add %s to archive: %w", filename, err)
		}
	}

	if err := tarWriter.Close(); err != nil {
		return err
	}
	return gzipWriter.Close()
}

// addFileToArchive adds a single file to a tar archive
func addFileToArchive(tarWriter *tar.Writer, filePath, nameInArchive string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header := &tar.Header{
		Name:    nameInArchive,
		Size:    info.Size(),
		Mode:    int64(info.Mode()),
		ModTime: info.ModTime(),
	}

	if err := tarWriter.WriteHeader(header); err != nil {
		return err
	}

	_, err = io.Copy(tarWriter, file)
	return err
}
