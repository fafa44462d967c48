// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package httpx

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/yolotrain/yolotrain/internal/httpx/httpxtest"
)

type recordingClient struct {
	req *http.Request
}

func (c *recordingClient) Do(req *http.Request) (*http.Response, error) {
	c.req = req
	return &http.Response{StatusCode: http.StatusOK, Body: httpxtest.Body("")}, nil
}

func TestWithUserAgent(t *testing.T) {
	base := &recordingClient{}
	c := &WithUserAgent{BasicClient: base, UserAgent: "yolotrain/1"}
	req, _ := http.NewRequest(http.MethodGet, "https://example.com", nil)
	if _, err := c.Do(req); err != nil {
		t.Fatal(err)
	}
	if got := base.req.Header.Get("User-Agent"); got != "yolotrain/1" {
		t.Errorf("User-Agent = %q, want yolotrain/1", got)
	}
}

func TestWithBasicAuth(t *testing.T) {
	base := &recordingClient{}
	c := &WithBasicAuth{BasicClient: base, Username: "alice", Password: "key"}
	req, _ := http.NewRequest(http.MethodGet, "https://example.com", nil)
	if _, err := c.Do(req); err != nil {
		t.Fatal(err)
	}
	user, pass, ok := base.req.BasicAuth()
	if !ok || user != "alice" || pass != "key" {
		t.Errorf("BasicAuth() = %q, %q, %v; want alice, key, true", user, pass, ok)
	}
}

func TestFSHandler(t *testing.T) {
	fs := memfs.New()
	if err := util.WriteFile(fs, "sets/a.zip", []byte("zipbytes"), 0644); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(FSHandler(fs))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/sets/a.zip")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(b) != "zipbytes" {
		t.Errorf("GET a.zip = %d %q, want 200 zipbytes", resp.StatusCode, b)
	}
	resp, err = http.Get(srv.URL + "/sets/missing.zip")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET missing = %d, want 404", resp.StatusCode)
	}
}
