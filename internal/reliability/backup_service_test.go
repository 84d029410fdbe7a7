package reliability

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aristath/investlog/internal/database"
	testingpkg "github.com/aristath/investlog/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore keeps uploaded objects in memory
type memStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	deleteErr map[string]error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, deleteErr: map[string]error{}}
}

func (m *memStore) Upload(_ context.Context, name string, body io.Reader, _ int64) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[name] = data
	return nil
}

func (m *memStore) List(_ context.Context, prefix string) ([]StoredObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []StoredObject
	for name, data := range m.objects {
		if strings.HasPrefix(name, prefix) {
			out = append(out, StoredObject{Name: name, SizeBytes: int64(len(data))})
		}
	}
	return out, nil
}

func (m *memStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.deleteErr[name]; err != nil {
		return err
	}
	delete(m.objects, name)
	return nil
}

func (m *memStore) names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for name := range m.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func readArchive(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	gz, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	files := map[string][]byte{}
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		content, err := io.ReadAll(tr)
		require.NoError(t, err)
		files[hdr.Name] = content
	}
	return files
}

func TestCreateAndUploadBackup(t *testing.T) {
	dbs := testingpkg.NewTestDatabases(t)
	testingpkg.SeedTransaction(t, dbs.Ledger, "AAPL", "2025-12-03", 150, 10)

	store := newMemStore()
	svc := NewBackupService(store, []*database.DB{dbs.Ledger, dbs.History, dbs.Cache}, t.TempDir(), zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2026, 1, 8, 14, 30, 22, 0, time.UTC) }

	name, err := svc.CreateAndUploadBackup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "investlog-backup-2026-01-08-143022.tar.gz", name)

	files := readArchive(t, store.objects[name])
	require.Contains(t, files, "ledger.db")
	require.Contains(t, files, "history.db")
	require.Contains(t, files, "cache.db")
	require.Contains(t, files, metadataFile)

	var metadata BackupMetadata
	require.NoError(t, json.Unmarshal(files[metadataFile], &metadata))
	require.Len(t, metadata.Databases, 3)

	for _, m := range metadata.Databases {
		content := files[m.Filename]
		assert.Equal(t, int64(len(content)), m.SizeBytes, m.Name)
		assert.Equal(t, fmt.Sprintf("sha256:%x", sha256.Sum256(content)), m.Checksum, m.Name)
	}
}

func seedBackups(store *memStore, stamps ...string) {
	for _, s := range stamps {
		store.objects[archivePrefix+s+archiveSuffix] = []byte("x")
	}
	store.objects["unrelated.txt"] = []byte("x")
}

func TestListBackups(t *testing.T) {
	store := newMemStore()
	seedBackups(store, "2026-01-01-000000", "2026-01-03-000000", "2026-01-02-000000")
	store.objects[archivePrefix+"garbage"+archiveSuffix] = []byte("x")

	svc := NewBackupService(store, nil, t.TempDir(), zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC) }

	backups, err := svc.ListBackups(context.Background())
	require.NoError(t, err)
	require.Len(t, backups, 3)
	assert.Equal(t, archivePrefix+"2026-01-03-000000"+archiveSuffix, backups[0].Filename)
	assert.Equal(t, int64(24), backups[0].AgeHours)
	assert.Equal(t, int64(72), backups[2].AgeHours)
}

func TestRotateOldBackups(t *testing.T) {
	store := newMemStore()
	seedBackups(store,
		"2026-03-01-000000",
		"2026-02-01-000000",
		"2026-01-01-000000",
		"2025-12-01-000000",
		"2025-11-01-000000",
	)

	svc := NewBackupService(store, nil, t.TempDir(), zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) }

	deleted, err := svc.RotateOldBackups(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	// The newest three are kept even though two of them are past retention.
	assert.Equal(t, []string{
		archivePrefix + "2026-01-01-000000" + archiveSuffix,
		archivePrefix + "2026-02-01-000000" + archiveSuffix,
		archivePrefix + "2026-03-01-000000" + archiveSuffix,
		"unrelated.txt",
	}, store.names())
}

func TestRotateOldBackups_KeepsMinimum(t *testing.T) {
	store := newMemStore()
	seedBackups(store, "2020-01-01-000000", "2020-01-02-000000", "2020-01-03-000000")

	svc := NewBackupService(store, nil, t.TempDir(), zerolog.Nop())

	deleted, err := svc.RotateOldBackups(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
	assert.Len(t, store.names(), 4)
}

func TestRotateOldBackups_DeleteFailureContinues(t *testing.T) {
	store := newMemStore()
	seedBackups(store,
		"2026-03-01-000000",
		"2026-03-02-000000",
		"2026-03-03-000000",
		"2025-01-01-000000",
		"2025-01-02-000000",
	)
	store.deleteErr[archivePrefix+"2025-01-02-000000"+archiveSuffix] = errors.New("denied")

	svc := NewBackupService(store, nil, t.TempDir(), zerolog.Nop())

	deleted, err := svc.RotateOldBackups(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
}
