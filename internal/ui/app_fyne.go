//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"examsketch/internal/backend"
	"examsketch/internal/config"
	"examsketch/internal/crash"
	"examsketch/internal/export"
	applog "examsketch/internal/log"
	"examsketch/internal/sketch"
	"examsketch/internal/storage"
	"examsketch/internal/telemetry"
	"examsketch/internal/version"
)

// Run starts the Fyne-based answer surface. Pass an optional session
// directory to open immediately; otherwise a landing view offers open/new.
func Run(sessionDir string) error {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("version", version.String()))

	cfg, token, err := config.Load()
	if err != nil {
		l.Warn("config load failed, using defaults", slog.Any("err", err))
	}

	var sh *storage.SessionHandle
	defer func() { crash.Recover(sh) }()

	fyneApp := app.NewWithID("examsketch")
	w := fyneApp.NewWindow("ExamSketch")
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1200)
	winH := prefs.IntWithFallback("window.height", 800)
	if winW < 800 {
		winW = 800
	}
	if winH < 600 {
		winH = 600
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Ready")
	root := container.NewStack()
	w.SetContent(root)

	var session *editorSession
	var showLanding func()

	openSession := func(dir string) {
		s, oerr := newEditorSession(dir, cfg, token, w, status, l)
		if oerr != nil {
			l.Error("open session failed", slog.Any("err", oerr), slog.String("dir", dir))
			dialog.ShowError(oerr, w)
			return
		}
		session = s
		sh = s.sh
		w.SetTitle(fmt.Sprintf("ExamSketch — %s", filepath.Base(s.sh.Root)))
		status.SetText("Session opened: " + s.sh.Root)
		root.Objects = []fyne.CanvasObject{s.content}
		root.Refresh()
		addRecentSession(prefs, dir)
		telemetry.Event("session_opened", map[string]any{
			"lines": len(s.sh.Manifest.Answer.Lines),
			"texts": len(s.sh.Manifest.Answer.TextAnnotations),
		})
	}

	buildLanding := func() fyne.CanvasObject {
		title := widget.NewLabel("ExamSketch")
		title.TextStyle = fyne.TextStyle{Bold: true}
		openBtn := widget.NewButton("Open Session…", func() {
			dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
				if err != nil || uri == nil {
					return
				}
				openSession(uri.Path())
			}, w).Show()
		})
		newBtn := widget.NewButton("New Session…", func() {
			dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
				if err != nil || uri == nil {
					return
				}
				dir := uri.Path()
				m := storage.NewManifest("", "", sketch.Snapshot{
					CanvasWidth:  cfg.Drawing.CanvasWidth,
					CanvasHeight: cfg.Drawing.CanvasHeight,
				})
				if _, ierr := storage.InitSession(dir, m); ierr != nil {
					dialog.ShowError(ierr, w)
					return
				}
				openSession(dir)
			}, w).Show()
		})

		recent := loadRecentSessions(prefs)
		recList := widget.NewList(
			func() int { return len(recent) },
			func() fyne.CanvasObject { return widget.NewLabel("") },
			func(i widget.ListItemID, o fyne.CanvasObject) {
				if i >= 0 && int(i) < len(recent) {
					o.(*widget.Label).SetText(recent[i])
				}
			},
		)
		recList.OnSelected = func(id widget.ListItemID) {
			if id >= 0 && int(id) < len(recent) {
				openSession(recent[id])
			}
		}
		return container.NewBorder(
			container.NewVBox(title, widget.NewSeparator(), container.NewHBox(openBtn, newBtn), widget.NewLabel("Recent Sessions")),
			nil, nil, nil,
			recList,
		)
	}
	showLanding = func() {
		root.Objects = []fyne.CanvasObject{buildLanding()}
		root.Refresh()
	}

	// Shortcuts mirroring the toolbar
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierControl}, func(fyne.Shortcut) {
		if session != nil {
			session.engine.Undo()
			session.canvas.Refresh()
		}
	})
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyY, Modifier: fyne.KeyModifierControl}, func(fyne.Shortcut) {
		if session != nil {
			session.engine.Redo()
			session.canvas.Refresh()
		}
	})
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierControl}, func(fyne.Shortcut) {
		if session != nil {
			session.save()
		}
	})

	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		if session != nil {
			session.shutdown()
			session = nil
			sh = nil
		}
		w.Close()
	})

	if sessionDir != "" {
		openSession(sessionDir)
		if session == nil {
			showLanding()
		}
	} else {
		showLanding()
	}

	w.ShowAndRun()
	return nil
}

// editorSession bundles the live engine, its persistence plumbing, and the
// assembled editor view for one open answer directory.
type editorSession struct {
	sh        *storage.SessionHandle
	engine    *sketch.Engine
	canvas    *SketchCanvas
	autosaver *storage.Autosaver
	db        *sql.DB
	content   fyne.CanvasObject
	status    *widget.Label
	win       fyne.Window
	log       *slog.Logger
	cfg       config.AppConfig
	token     string
}

func newEditorSession(dir string, cfg config.AppConfig, token string, w fyne.Window, status *widget.Label, l *slog.Logger) (*editorSession, error) {
	sh, err := storage.Open(dir)
	if err != nil {
		return nil, err
	}

	db, err := storage.InitOrOpenAutosave(sh.Root)
	if err != nil {
		return nil, fmt.Errorf("open autosave store: %w", err)
	}

	// Prefer a newer autosave snapshot over the manifest when the app did
	// not exit cleanly last time.
	answer := sh.Manifest.Answer
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if snap, ts, ok, serr := storage.LatestSnapshot(ctx, db); serr == nil && ok && ts.After(sh.Manifest.UpdatedAt) {
		answer = snap
		l.Info("recovered autosave snapshot", slog.Time("ts", ts))
		status.SetText("Recovered unsaved work from autosave.")
	}
	cancel()

	s := &editorSession{
		sh:        sh,
		autosaver: storage.NewAutosaver(db, storage.DefaultAutosaveInterval, storage.DefaultKeepSnapshots),
		db:        db,
		status:    status,
		win:       w,
		log:       l,
		cfg:       cfg,
		token:     token,
	}

	canvasW := answer.CanvasWidth
	canvasH := answer.CanvasHeight
	if canvasW <= 0 || canvasH <= 0 {
		canvasW, canvasH = cfg.Drawing.CanvasWidth, cfg.Drawing.CanvasHeight
	}
	s.engine = sketch.New(sketch.Config{
		InitialLines:           answer.Lines,
		InitialTextAnnotations: answer.TextAnnotations,
		InitialTool:            sketch.ParseTool(cfg.Drawing.Tool),
		InitialColor:           cfg.Drawing.Color,
		InitialThickness:       cfg.Drawing.Thickness,
		ColorPalette:           cfg.Drawing.ColorPalette,
		ThicknessOptions:       cfg.Drawing.ThicknessOptions,
		CanvasWidth:            canvasW,
		CanvasHeight:           canvasH,
		OnChange: func(snap sketch.Snapshot) {
			s.autosaver.OnChange(snap)
			fyne.Do(func() { s.canvas.Refresh() })
		},
		OnExit: func(snap sketch.Snapshot) {
			s.sh.Manifest.Answer = snap
			if serr := storage.Save(s.sh); serr != nil {
				l.Error("save on exit failed", slog.Any("err", serr))
			}
		},
		OnTextPrompt: func(b sketch.Bounds) {
			fyne.Do(func() { s.promptText(b) })
		},
	})
	s.canvas = NewSketchCanvas(s.engine)
	s.content = s.buildContent()
	return s, nil
}

func (s *editorSession) buildContent() fyne.CanvasObject {
	tools := []struct {
		label string
		tool  sketch.Tool
	}{
		{"Pencil", sketch.ToolPencil},
		{"Eraser", sketch.ToolEraser},
		{"Line", sketch.ToolLine},
		{"Rect", sketch.ToolRect},
		{"Ellipse", sketch.ToolEllipse},
		{"Text", sketch.ToolText},
		{"Pan", sketch.ToolPan},
	}
	toolNames := make([]string, len(tools))
	for i, t := range tools {
		toolNames[i] = t.label
	}
	toolSel := widget.NewSelect(toolNames, func(v string) {
		for _, t := range tools {
			if t.label == v {
				s.engine.SetTool(t.tool)
				s.status.SetText("Tool: " + v)
				return
			}
		}
	})
	for _, t := range tools {
		if t.tool == s.engine.Tool() {
			toolSel.SetSelected(t.label)
		}
	}

	colors, thicknesses := s.engine.Palette()
	colorSel := widget.NewSelect(colors, func(v string) { s.engine.SetColor(v) })
	colorSel.SetSelected(s.engine.Color())
	thickNames := make([]string, len(thicknesses))
	for i, v := range thicknesses {
		thickNames[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	thickSel := widget.NewSelect(thickNames, func(v string) {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			s.engine.SetThickness(f)
		}
	})
	thickSel.SetSelected(strconv.FormatFloat(s.engine.Thickness(), 'g', -1, 64))

	undoBtn := widget.NewButton("Undo", func() { s.engine.Undo(); s.canvas.Refresh() })
	redoBtn := widget.NewButton("Redo", func() { s.engine.Redo(); s.canvas.Refresh() })
	clearBtn := widget.NewButton("Clear", func() {
		dialog.NewConfirm("Clear Canvas", "Remove all drawing from this answer? This can be undone.", func(ok bool) {
			if ok {
				s.engine.Clear()
				s.canvas.Refresh()
			}
		}, s.win).Show()
	})
	zoomInBtn := widget.NewButton("Zoom +", func() { s.engine.ZoomBy(sketch.ZoomStepFactor); s.canvas.Refresh() })
	zoomOutBtn := widget.NewButton("Zoom −", func() { s.engine.ZoomBy(1 / sketch.ZoomStepFactor); s.canvas.Refresh() })
	resetBtn := widget.NewButton("Fit", func() { s.engine.ResetView(); s.canvas.Refresh() })

	saveBtn := widget.NewButton("Save", func() { s.save() })
	exportBtn := widget.NewButton("Export PNG", func() { s.exportPNG() })
	submitBtn := widget.NewButton("Submit", func() { s.submit() })

	bar := container.NewHBox(
		toolSel, colorSel, thickSel, widget.NewSeparator(),
		undoBtn, redoBtn, clearBtn, widget.NewSeparator(),
		zoomInBtn, zoomOutBtn, resetBtn, widget.NewSeparator(),
		saveBtn, exportBtn, submitBtn,
	)
	return container.NewBorder(bar, s.status, nil, nil, s.canvas)
}

// promptText shows the modal text entry for a finished text-box draft. The
// engine holds the draft until the user confirms or cancels.
func (s *editorSession) promptText(b sketch.Bounds) {
	entry := widget.NewMultiLineEntry()
	entry.SetPlaceHolder("Answer text…")
	d := dialog.NewCustomConfirm("Add Text", "OK", "Cancel", entry, func(ok bool) {
		if ok {
			s.engine.SubmitTextDraft(entry.Text)
		} else {
			s.engine.CancelTextDraft()
		}
		s.canvas.Refresh()
	}, s.win)
	r := b.Rect()
	d.Resize(fyne.NewSize(float32(r.W)+120, float32(r.H)+120))
	d.Show()
	s.win.Canvas().Focus(entry)
}

func (s *editorSession) save() {
	s.sh.Manifest.Answer = s.engine.Snapshot()
	if err := storage.Save(s.sh); err != nil {
		s.log.Error("save failed", slog.Any("err", err))
		dialog.ShowError(err, s.win)
		return
	}
	s.status.SetText("Saved " + storage.ManifestFileName + ".")
}

func (s *editorSession) exportPNG() {
	snap := s.engine.Snapshot()
	out := filepath.Join(s.sh.Root, "exports", fmt.Sprintf("answer-%s.png", time.Now().Format("20060102-150405")))
	if err := export.WriteSnapshotPNG(out, snap, export.PreviewOptions{}); err != nil {
		s.log.Error("export png failed", slog.Any("err", err))
		dialog.ShowError(err, s.win)
		return
	}
	s.status.SetText("Exported " + out)
}

// submit saves locally first, then uploads the manifest to the collector in
// the background.
func (s *editorSession) submit() {
	s.save()
	m := s.sh.Manifest
	baseURL := s.cfg.Collector.BaseURL
	timeout := time.Duration(s.cfg.Collector.EffectiveTimeoutMs()) * time.Millisecond
	s.status.SetText("Submitting…")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		client := backend.NewClient(baseURL, s.token, timeout, s.cfg.Collector.TLSInsecure)
		if s.token == "" {
			subject := m.Student
			if subject == "" {
				subject, _ = os.Hostname()
			}
			tok, terr := client.RequestToken(ctx, subject, time.Hour)
			if terr != nil {
				s.log.Error("token request failed", slog.Any("err", terr))
				fyne.Do(func() { s.status.SetText("Submit failed: not authorized.") })
				return
			}
			s.token = tok
			if serr := config.Save(s.cfg, tok); serr != nil {
				s.log.Warn("persist token failed", slog.Any("err", serr))
			}
		}
		receipt, err := client.SubmitAnswer(ctx, m)
		fyne.Do(func() {
			if err != nil {
				s.log.Error("submit failed", slog.Any("err", err))
				s.status.SetText("Submit failed: " + err.Error())
				return
			}
			s.status.SetText(fmt.Sprintf("Submitted answer %s (server id %d).", receipt.AnswerID, receipt.ID))
		})
		if err == nil {
			telemetry.Event("answer_submitted", map[string]any{
				"lines": len(m.Answer.Lines),
				"texts": len(m.Answer.TextAnnotations),
			})
		}
	}()
}

// shutdown closes the engine (which saves the manifest), drains the
// autosaver, and releases the session database.
func (s *editorSession) shutdown() {
	final := s.engine.Snapshot()
	s.engine.Close()
	s.autosaver.Close(&final)
	if err := s.db.Close(); err != nil {
		s.log.Error("close autosave store", slog.Any("err", err))
	}
}

const maxRecentSessions = 8

func loadRecentSessions(prefs fyne.Preferences) []string {
	var out []string
	for i := 0; i < maxRecentSessions; i++ {
		v := prefs.String(fmt.Sprintf("recent.%d", i))
		if v == "" {
			break
		}
		out = append(out, v)
	}
	return out
}

func addRecentSession(prefs fyne.Preferences, path string) {
	existing := loadRecentSessions(prefs)
	updated := []string{path}
	for _, p := range existing {
		if p != path && len(updated) < maxRecentSessions {
			updated = append(updated, p)
		}
	}
	for i, p := range updated {
		prefs.SetString(fmt.Sprintf("recent.%d", i), p)
	}
}
