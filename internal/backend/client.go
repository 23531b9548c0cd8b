/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"examsketch/internal/storage"
)

// Client is the HTTP client the desktop app uses against the collector API.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewClient creates a new collector client. baseURL may include a trailing
// slash; it will be normalized. timeout <= 0 selects a 10s default.
func NewClient(baseURL, token string, timeout time.Duration, insecureTLS bool) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	hc := &http.Client{Timeout: timeout}
	if insecureTLS {
		hc.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  hc,
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server %s %s: %s", method, u.Path, resp.Status)
	}
	if dest == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	return dec.Decode(dest)
}

// AnswerInfo is the collector's listing projection of a stored answer.
type AnswerInfo struct {
	AnswerID   string    `json:"answer_id"`
	ExamID     string    `json:"exam_id"`
	QuestionID string    `json:"question_id"`
	Student    string    `json:"student"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SubmitReceipt is the collector's response to an accepted submission.
type SubmitReceipt struct {
	ID       int64  `json:"id"`
	AnswerID string `json:"answer_id"`
	Status   string `json:"status"`
}

// RequestToken obtains a bearer token from the collector and stores it on
// the client for subsequent calls.
func (c *Client) RequestToken(ctx context.Context, subject string, ttl time.Duration) (string, error) {
	req := map[string]any{"subject": subject}
	if ttl > 0 {
		req["ttl_seconds"] = int64(ttl.Seconds())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/token", req, &resp); err != nil {
		return "", err
	}
	c.Token = resp.Token
	return resp.Token, nil
}

// SubmitAnswer uploads an answer manifest to the collector.
func (c *Client) SubmitAnswer(ctx context.Context, m storage.Manifest) (*SubmitReceipt, error) {
	var rec SubmitReceipt
	if err := c.doJSON(ctx, http.MethodPost, "/api/answers", m, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListAnswers returns stored answers, optionally filtered by exam id.
func (c *Client) ListAnswers(ctx context.Context, examID string) ([]AnswerInfo, error) {
	p := "/api/answers"
	if examID != "" {
		p += "?exam=" + url.QueryEscape(examID)
	}
	var list []AnswerInfo
	if err := c.doJSON(ctx, http.MethodGet, p, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// AnswerEnvelope is the collector's response for a single stored answer.
type AnswerEnvelope struct {
	AnswerID  string          `json:"answer_id"`
	UpdatedAt string          `json:"updated_at"`
	Answer    json.RawMessage `json:"answer"`
}

// GetAnswer fetches one stored answer payload by its id.
func (c *Client) GetAnswer(ctx context.Context, answerID string) (*AnswerEnvelope, error) {
	var env AnswerEnvelope
	if err := c.doJSON(ctx, http.MethodGet, "/api/answers/"+url.PathEscape(answerID), nil, &env); err != nil {
		return nil, err
	}
	return &env, nil
}
