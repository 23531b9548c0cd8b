/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"examsketch/internal/crash"
	"examsketch/internal/export"
	applog "examsketch/internal/log"
	"examsketch/internal/sketch"
	"examsketch/internal/storage"
	"examsketch/internal/ui"
	"examsketch/internal/version"
)

func usage() {
	fmt.Println("ExamSketch — touch answer surface")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  examsketch version|-v|--version            Show version")
	fmt.Println("  examsketch init <dir> [examId] [questionId]  Create a new answer session at <dir>")
	fmt.Println("  examsketch open <dir>                       Open session at <dir> and print summary")
	fmt.Println("  examsketch export <dir> [out.png]           Render the saved answer to PNG")
	fmt.Println("  examsketch ui [<dir>]                        Launch desktop UI (build with -tags fyne for full UI)")
}

func main() {
	// initialize structured logging using environment defaults
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")
	var sh *storage.SessionHandle
	defer func() { crash.Recover(sh) }()

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) > 1 {
		switch args[1] {
		case "version", "--version", "-v":
			fmt.Println("ExamSketch — touch answer surface")
			fmt.Println(version.String())
			return
		case "init":
			if len(args) < 3 {
				fmt.Println("init requires <dir>")
				usage()
				os.Exit(2)
			}
			dir := args[2]
			examID, questionID := "", ""
			if len(args) > 3 {
				examID = args[3]
			}
			if len(args) > 4 {
				questionID = args[4]
			}
			abs, _ := filepath.Abs(dir)
			l.Info("init session", slog.String("root", abs), slog.String("exam", examID))
			m := storage.NewManifest(examID, questionID, sketch.Snapshot{
				CanvasWidth:  sketch.DefaultCanvasWidth,
				CanvasHeight: sketch.DefaultCanvasHeight,
			})
			h, err := storage.InitSession(abs, m)
			if err != nil {
				l.Error("init failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			sh = h
			fmt.Println("Created answer session at", abs)
			fmt.Println("Answer ID:", h.Manifest.AnswerID)
			return
		case "open":
			if len(args) < 3 {
				fmt.Println("open requires <dir>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			l.Info("open session", slog.String("root", abs))
			h, err := storage.Open(abs)
			if err != nil {
				l.Error("open failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			sh = h
			fmt.Printf("Opened answer: %s\n", h.Manifest.AnswerID)
			fmt.Printf("Exam/Question: %s / %s\n", h.Manifest.ExamID, h.Manifest.QuestionID)
			fmt.Printf("Strokes: %d, Text boxes: %d\n", len(h.Manifest.Answer.Lines), len(h.Manifest.Answer.TextAnnotations))
			fmt.Println("Root:", h.Root)
			return
		case "export":
			if len(args) < 3 {
				fmt.Println("export requires <dir>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			h, err := storage.Open(abs)
			if err != nil {
				l.Error("open before export failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			sh = h
			out := filepath.Join(abs, "exports", "answer.png")
			if len(args) > 3 {
				out = args[3]
			}
			if err := export.WriteSnapshotPNG(out, h.Manifest.Answer, export.PreviewOptions{}); err != nil {
				l.Error("export failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Println("Wrote", out)
			return
		case "ui":
			var dir string
			if len(args) >= 3 {
				dir = args[2]
			}
			if err := ui.Run(dir); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			return
		}
	}

	usage()
}
