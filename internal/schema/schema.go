/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package schema carries the canonical JSON Schema for the answer manifest.
// Both the desktop app (session manifests) and the collector server
// (submission ingest) validate against the same embedded document.
package schema

import (
	_ "embed"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

//go:embed answer.schema.json
var Answer []byte

// CompiledAnswer compiles the embedded answer schema.
func CompiledAnswer() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(Answer))
}

// ValidateAnswer checks a JSON document against the answer schema and
// returns the validation errors as strings, empty when the document is valid.
func ValidateAnswer(doc []byte) ([]string, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(Answer),
		gojsonschema.NewBytesLoader(doc),
	)
	if err != nil {
		return nil, err
	}
	if result.Valid() {
		return nil, nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return msgs, nil
}
