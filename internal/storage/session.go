/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"examsketch/internal/sketch"
)

const (
	ManifestFileName = "answer.json"
	BackupsDirName   = "backups"

	// ManifestVersion is bumped on breaking manifest format changes.
	ManifestVersion = 1
)

var standardSubDirs = []string{
	"exports",
	BackupsDirName,
}

// Manifest is the canonical on-disk form of an answer session: identity
// metadata plus the latest engine snapshot.
type Manifest struct {
	Version    int             `json:"version"`
	AnswerID   string          `json:"answerId"`
	ExamID     string          `json:"examId,omitempty"`
	QuestionID string          `json:"questionId,omitempty"`
	Student    string          `json:"student,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
	Answer     sketch.Snapshot `json:"answer"`
}

// SessionHandle tracks an answer session loaded from or saved to disk.
// Root is the session directory containing answer.json and subfolders.
type SessionHandle struct {
	Root         string
	ManifestPath string
	Manifest     Manifest
}

// NewManifest builds a fresh manifest around an initial snapshot.
func NewManifest(examID, questionID string, answer sketch.Snapshot) Manifest {
	now := time.Now().UTC()
	return Manifest{
		Version:    ManifestVersion,
		AnswerID:   uuid.NewString(),
		ExamID:     examID,
		QuestionID: questionID,
		CreatedAt:  now,
		UpdatedAt:  now,
		Answer:     answer,
	}
}

// InitSession creates a new session directory at root (creating it if it
// doesn't exist), scaffolds the standard subfolders, and writes the manifest
// transactionally.
func InitSession(root string, m Manifest) (*SessionHandle, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create session root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return nil, fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	if m.Version == 0 {
		m.Version = ManifestVersion
	}
	if m.AnswerID == "" {
		m.AnswerID = uuid.NewString()
	}
	sh := &SessionHandle{
		Root:         root,
		ManifestPath: filepath.Join(root, ManifestFileName),
		Manifest:     m,
	}
	if err := Save(sh); err != nil {
		return nil, err
	}
	return sh, nil
}

// Open loads an existing session from the given root directory. If the
// current manifest cannot be read or parsed, it falls back to the latest
// timestamped backup.
func Open(root string) (*SessionHandle, error) {
	mpath := filepath.Join(root, ManifestFileName)
	b, err := os.ReadFile(mpath)
	if err != nil {
		m, berr := openFromLatestBackup(root)
		if berr != nil {
			return nil, fmt.Errorf("open manifest: %w; backup attempt: %v", err, berr)
		}
		return &SessionHandle{Root: root, ManifestPath: mpath, Manifest: *m}, nil
	}
	var m Manifest
	if uerr := json.Unmarshal(b, &m); uerr != nil {
		bm, berr := openFromLatestBackup(root)
		if berr != nil {
			return nil, fmt.Errorf("parse manifest: %w; backup attempt: %v", uerr, berr)
		}
		return &SessionHandle{Root: root, ManifestPath: mpath, Manifest: *bm}, nil
	}
	return &SessionHandle{Root: root, ManifestPath: mpath, Manifest: m}, nil
}

// Save writes the current manifest to disk with transactional semantics and
// a timestamped backup of the previous manifest (if present). UpdatedAt is
// refreshed on every save.
func Save(sh *SessionHandle) error {
	if sh == nil {
		return errors.New("nil SessionHandle")
	}
	if sh.Root == "" || sh.ManifestPath == "" {
		return errors.New("invalid SessionHandle: missing paths")
	}
	sh.Manifest.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(sh.Manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')

	bdir := filepath.Join(sh.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}

	// Copy the live manifest to a timestamped backup before replacing it.
	if _, statErr := os.Stat(sh.ManifestPath); statErr == nil {
		stamp := time.Now().Format("20060102-150405")
		bname := fmt.Sprintf("%s.%s.bak", ManifestFileName, stamp)
		if cerr := copyFile(sh.ManifestPath, filepath.Join(bdir, bname)); cerr != nil {
			return fmt.Errorf("backup current manifest: %w", cerr)
		}
	}

	// Transactional write: temp file in the same directory, then rename.
	dir := filepath.Dir(sh.ManifestPath)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", ManifestFileName, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp manifest: %w", werr)
	}
	// On Windows, replace by removing destination first if needed.
	if _, err := os.Stat(sh.ManifestPath); err == nil {
		_ = os.Remove(sh.ManifestPath)
	}
	if rerr := os.Rename(temp, sh.ManifestPath); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace manifest: %w", rerr)
	}
	return nil
}

// SaveAs writes the manifest to a new root folder, scaffolding structure if
// needed, and updates the handle.
func SaveAs(sh *SessionHandle, newRoot string) error {
	if sh == nil {
		return errors.New("nil SessionHandle")
	}
	if newRoot == "" {
		return errors.New("new root is empty")
	}
	if err := os.MkdirAll(newRoot, 0o755); err != nil {
		return fmt.Errorf("create new root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(newRoot, d), 0o755); err != nil {
			return fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	sh.Root = newRoot
	sh.ManifestPath = filepath.Join(newRoot, ManifestFileName)
	return Save(sh)
}

// AutosaveCrashSnapshot writes the in-memory manifest to a timestamped file
// under backups/ without touching the live manifest. Used by the crash
// handler, where the live file may be mid-write.
func AutosaveCrashSnapshot(sh *SessionHandle) (string, error) {
	if sh == nil || sh.Root == "" {
		return "", errors.New("no session to snapshot")
	}
	bdir := filepath.Join(sh.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return "", fmt.Errorf("ensure backups dir: %w", err)
	}
	data, err := json.MarshalIndent(sh.Manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(bdir, fmt.Sprintf("crash-autosave-%s.json", stamp))
	if err := writeFileSync(path, data); err != nil {
		return "", fmt.Errorf("write crash snapshot: %w", err)
	}
	return path, nil
}

// writeFileSync writes data to a file and flushes it to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	return nil
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	if err := df.Sync(); err != nil {
		return err
	}
	return nil
}

// openFromLatestBackup tries to open the latest timestamped backup.
func openFromLatestBackup(root string) (*Manifest, error) {
	bdir := filepath.Join(root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	var candidates []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, ManifestFileName+".") && strings.HasSuffix(name, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, name))
		}
	}
	if len(candidates) == 0 {
		return nil, errors.New("no backups found")
	}
	sort.Strings(candidates) // timestamp in name yields lexicographic order
	latest := candidates[len(candidates)-1]
	b, err := os.ReadFile(latest)
	if err != nil {
		return nil, fmt.Errorf("read latest backup: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse latest backup: %w", err)
	}
	return &m, nil
}
