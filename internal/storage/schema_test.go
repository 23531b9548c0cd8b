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
	"testing"

	"examsketch/internal/schema"
)

func TestManifestConformsToSchema(t *testing.T) {
	root := t.TempDir()
	sh, err := InitSession(root, NewManifest("exam-1", "q-1", sampleSnapshot()))
	if err != nil {
		t.Fatalf("InitSession error: %v", err)
	}
	data, err := os.ReadFile(sh.ManifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}

	msgs, err := schema.ValidateAnswer(data)
	if err != nil {
		t.Fatalf("schema validate error: %v", err)
	}
	if len(msgs) > 0 {
		for _, m := range msgs {
			t.Logf("schema error: %s", m)
		}
		t.Fatalf("manifest does not conform to schema")
	}
}

func TestSchemaRejectsMalformedAnswer(t *testing.T) {
	bad := []byte(`{"version": 1, "answerId": "a", "createdAt": "2026-08-01T00:00:00Z", "updatedAt": "2026-08-01T00:00:00Z", "answer": {"lines": "nope"}}`)
	msgs, err := schema.ValidateAnswer(bad)
	if err != nil {
		t.Fatalf("schema validate error: %v", err)
	}
	if len(msgs) == 0 {
		t.Fatalf("malformed answer passed schema validation")
	}
}
