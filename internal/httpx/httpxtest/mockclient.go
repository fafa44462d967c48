// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package httpxtest

import (
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// Call is one expected request and its canned reply.
type Call struct {
	Method string
	URL    string
	// Header holds request headers that must be sent with exactly these values.
	Header   http.Header
	Response *http.Response
	Error    error
}

// MockClient replays Calls in order and records every request it receives.
// When T is set each request is checked against its Call; otherwise only
// the number of requests is enforced.
type MockClient struct {
	T        testing.TB
	Calls    []Call
	Requests []*http.Request
}

func (m *MockClient) Do(req *http.Request) (*http.Response, error) {
	if len(m.Requests) >= len(m.Calls) {
		if m.T != nil {
			m.T.Fatalf("unexpected request %s %s", req.Method, req.URL)
		}
		panic("unexpected request: " + req.URL.String())
	}
	call := m.Calls[len(m.Requests)]
	m.Requests = append(m.Requests, req)
	if m.T != nil {
		m.check(call, req)
	}
	if call.Response != nil && call.Response.Request == nil {
		call.Response.Request = req
	}
	return call.Response, call.Error
}

func (m *MockClient) check(call Call, req *http.Request) {
	m.T.Helper()
	if call.URL != "" {
		want, got := call.URL, req.URL.String()
		if call.Method != "" {
			want, got = call.Method+" "+want, req.Method+" "+got
		}
		if diff := cmp.Diff(want, got); diff != "" {
			m.T.Fatalf("request %d URL mismatch (-want +got):\n%s", len(m.Requests), diff)
		}
	}
	for k, want := range call.Header {
		if diff := cmp.Diff(want, req.Header.Values(k)); diff != "" {
			m.T.Errorf("request %d header %s mismatch (-want +got):\n%s", len(m.Requests), k, diff)
		}
	}
}

func (m *MockClient) CallCount() int {
	return len(m.Requests)
}
