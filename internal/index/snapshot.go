package index

import (
	"encoding/gob"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/archiva-labs/doclib/internal/domain"
)

// snapshotFormatVersion guards against decoding snapshots written by an
// incompatible layout of snapshotFile.
const snapshotFormatVersion = 1

// ErrNoSnapshot is returned by Load when no snapshot file exists yet.
var ErrNoSnapshot = errors.New("index snapshot does not exist")

type snapshotEntry struct {
	ChunkID string
	Vector  []float32
	Payload Payload
}

type snapshotFile struct {
	FormatVersion int
	ModelVersion  string
	Dimension     int
	Entries       []snapshotEntry
}

// Persist writes all committed vectors to path. The file is written to a
// temporary sibling and renamed so a crash never leaves a half-written
// snapshot behind.
func (m *Memory) Persist(path string) error {
	m.mu.RLock()
	snap := snapshotFile{
		FormatVersion: snapshotFormatVersion,
		ModelVersion:  m.modelVersion,
		Dimension:     m.dimension,
	}
	for _, entries := range m.published {
		for _, e := range entries {
			snap.Entries = append(snap.Entries, snapshotEntry{
				ChunkID: e.chunkID,
				Vector:  e.vector,
				Payload: e.payload,
			})
		}
	}
	m.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(&snap); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}

// Load replaces the committed state with the contents of a snapshot file.
// A snapshot written with a different embedding model version is rejected
// with ErrEmbeddingVersionMismatch; an undecodable or structurally invalid
// file is reported as ErrIndexCorrupted.
func (m *Memory) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNoSnapshot
		}
		return err
	}
	defer f.Close()

	var snap snapshotFile
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "index snapshot is corrupt, rebuild from source documents required", err)
	}

	if snap.FormatVersion != snapshotFormatVersion {
		return domain.ErrIndexCorrupted
	}
	if snap.ModelVersion != m.modelVersion {
		return domain.ErrEmbeddingVersionMismatch
	}
	if snap.Dimension != m.dimension {
		return domain.ErrEmbeddingVersionMismatch
	}

	published := make(map[string][]entry)
	for _, se := range snap.Entries {
		if len(se.Vector) != snap.Dimension || se.Payload.DocumentID == "" {
			return domain.ErrIndexCorrupted
		}
		published[se.Payload.DocumentID] = append(published[se.Payload.DocumentID], entry{
			chunkID: se.ChunkID,
			vector:  se.Vector,
			payload: se.Payload,
		})
	}

	m.mu.Lock()
	m.published = published
	m.mu.Unlock()
	return nil
}
