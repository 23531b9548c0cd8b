/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"os"
	"path/filepath"
	"testing"

	"examsketch/internal/geom"
	"examsketch/internal/sketch"
)

func sampleSnapshot() sketch.Snapshot {
	return sketch.Snapshot{
		Lines: []sketch.Line{{
			ID:        "l1",
			Tool:      sketch.ToolPencil,
			Color:     "#1a1a1a",
			Thickness: 3,
			Points:    []geom.Pt{{X: 0, Y: 0}, {X: 10, Y: 5}, {X: 20, Y: 0}},
		}},
		TextAnnotations: []sketch.TextAnnotation{{
			ID: "t1", X: 30, Y: 40, Width: 120, Height: 48, Text: "see figure", FontSize: 16, Color: "#1a1a1a",
		}},
		Tool:         sketch.ToolPencil,
		Color:        "#1a1a1a",
		Thickness:    3,
		CanvasWidth:  1536,
		CanvasHeight: 2048,
	}
}

func TestInitSessionScaffoldsAndSaves(t *testing.T) {
	root := t.TempDir()
	sh, err := InitSession(root, NewManifest("exam-1", "q-2", sampleSnapshot()))
	if err != nil {
		t.Fatalf("InitSession error: %v", err)
	}
	if sh.Manifest.AnswerID == "" {
		t.Fatalf("manifest has no answer id")
	}
	for _, d := range []string{"exports", BackupsDirName} {
		if fi, err := os.Stat(filepath.Join(root, d)); err != nil || !fi.IsDir() {
			t.Fatalf("missing subdir %s: %v", d, err)
		}
	}
	if _, err := os.Stat(sh.ManifestPath); err != nil {
		t.Fatalf("manifest not written: %v", err)
	}
}

func TestOpenRoundTripsManifest(t *testing.T) {
	root := t.TempDir()
	sh, err := InitSession(root, NewManifest("exam-1", "q-2", sampleSnapshot()))
	if err != nil {
		t.Fatalf("InitSession error: %v", err)
	}

	got, err := Open(root)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if got.Manifest.AnswerID != sh.Manifest.AnswerID {
		t.Fatalf("answer id changed across round trip")
	}
	if len(got.Manifest.Answer.Lines) != 1 || len(got.Manifest.Answer.TextAnnotations) != 1 {
		t.Fatalf("answer content lost: %+v", got.Manifest.Answer)
	}
	if got.Manifest.Answer.Lines[0].Points[1].X != 10 {
		t.Fatalf("point coordinates lost: %+v", got.Manifest.Answer.Lines[0])
	}
}

func TestSaveCreatesBackupOfPreviousManifest(t *testing.T) {
	root := t.TempDir()
	sh, err := InitSession(root, NewManifest("", "", sampleSnapshot()))
	if err != nil {
		t.Fatalf("InitSession error: %v", err)
	}
	sh.Manifest.Answer.Color = "#ff0000"
	if err := Save(sh); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	ents, err := os.ReadDir(filepath.Join(root, BackupsDirName))
	if err != nil {
		t.Fatalf("read backups: %v", err)
	}
	if len(ents) == 0 {
		t.Fatalf("no backup written on re-save")
	}
}

func TestOpenRecoversFromCorruptManifest(t *testing.T) {
	root := t.TempDir()
	sh, err := InitSession(root, NewManifest("exam-9", "", sampleSnapshot()))
	if err != nil {
		t.Fatalf("InitSession error: %v", err)
	}
	// Second save produces a backup of the valid manifest.
	if err := Save(sh); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	// Corrupt the live manifest.
	if err := os.WriteFile(sh.ManifestPath, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("corrupt manifest: %v", err)
	}

	got, err := Open(root)
	if err != nil {
		t.Fatalf("Open did not recover from backup: %v", err)
	}
	if got.Manifest.ExamID != "exam-9" {
		t.Fatalf("recovered manifest lost data: %+v", got.Manifest)
	}
}

func TestOpenFailsWithoutManifestOrBackup(t *testing.T) {
	if _, err := Open(t.TempDir()); err == nil {
		t.Fatalf("Open succeeded on empty directory")
	}
}

func TestSaveAsMovesSession(t *testing.T) {
	sh, err := InitSession(t.TempDir(), NewManifest("", "", sampleSnapshot()))
	if err != nil {
		t.Fatalf("InitSession error: %v", err)
	}
	newRoot := filepath.Join(t.TempDir(), "copy")
	if err := SaveAs(sh, newRoot); err != nil {
		t.Fatalf("SaveAs error: %v", err)
	}
	if sh.Root != newRoot {
		t.Fatalf("handle root not updated")
	}
	if _, err := os.Stat(filepath.Join(newRoot, ManifestFileName)); err != nil {
		t.Fatalf("manifest missing at new root: %v", err)
	}
}
