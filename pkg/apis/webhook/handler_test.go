/*
Copyright © 2023 The Spray Proxy Contributors

SPDX-License-Identifier: Apache-2.0
*/
package webhook

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/redhat-appstudio/clerkhook/test"
)

type fakeVerifier struct {
	result Result
	calls  int
}

func (f *fakeVerifier) Verify(*http.Request, string) Result {
	f.calls++
	return f.result
}

type recordingDispatcher struct {
	events []Event
	err    error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, event Event) error {
	d.events = append(d.events, event)
	return d.err
}

func serve(h *Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = req
	h.HandleWebhook(ctx)
	return w
}

func expectResponse(t *testing.T, w *httptest.ResponseRecorder, code int, body string) {
	t.Helper()
	if w.Code != code {
		t.Errorf("expected status code %d, got %d", code, w.Code)
	}
	if w.Body.String() != body {
		t.Errorf("expected response %q, got %q", body, w.Body.String())
	}
}

func TestHandleWebhookSecretNotSet(t *testing.T) {
	verifier := &fakeVerifier{result: verified(Event{Type: EventTypeUserCreated})}
	core, logs := observer.New(zapcore.InfoLevel)
	h := NewHandler(Config{}, verifier, nil, zap.New(core))

	for _, req := range []*http.Request{
		signedRequest(t, time.Now(), test.UserCreatedPayload),
		httptest.NewRequest(http.MethodPost, UserCreatedPath, bytes.NewBufferString("hello")),
		httptest.NewRequest(http.MethodPost, UserCreatedPath, nil),
	} {
		expectResponse(t, serve(h, req), http.StatusInternalServerError, "Signing secret not set")
	}
	if verifier.calls != 0 {
		t.Errorf("expected no verification without a secret, got %d calls", verifier.calls)
	}
	if n := logs.FilterMessage(SigningSecretEnv + " is not set").Len(); n != 3 {
		t.Errorf("expected 3 configuration error logs, got %d", n)
	}
}

func TestHandleWebhookVerified(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	core, logs := observer.New(zapcore.InfoLevel)
	h := NewHandler(Config{SigningSecret: test.Secret}, nil, dispatcher, zap.New(core))

	w := serve(h, signedRequest(t, time.Now(), test.UserCreatedPayload))

	expectResponse(t, w, http.StatusOK, "Webhook received")
	if len(dispatcher.events) != 1 || dispatcher.events[0].Type != EventTypeUserCreated {
		t.Fatalf("expected one user.created event dispatched, got %+v", dispatcher.events)
	}
	entries := logs.FilterMessage("received clerk webhook").All()
	if len(entries) != 1 {
		t.Fatalf("expected one event log, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["event-type"]; got != EventTypeUserCreated {
		t.Errorf("expected logged event type %q, got %v", EventTypeUserCreated, got)
	}
	if strings.Contains(w.Body.String(), "user_29w83sxmDNGwOuEthce5gg56FcC") {
		t.Errorf("response must not echo the event")
	}
}

func TestHandleWebhookReplay(t *testing.T) {
	h := NewHandler(Config{SigningSecret: test.Secret}, nil, nil, zap.NewNop())
	signer, err := test.NewSigner(test.Secret)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := []byte(test.UserCreatedPayload)
	header, err := signer.Headers("msg_replayed", time.Now(), body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, UserCreatedPath, bytes.NewReader(body))
		req.Header = header.Clone()
		expectResponse(t, serve(h, req), http.StatusOK, "Webhook received")
	}
}

func TestHandleWebhookVerificationFailed(t *testing.T) {
	for _, tc := range []struct {
		name string
		req  func(t *testing.T) *http.Request
	}{
		{
			name: "unsigned",
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, UserCreatedPath, bytes.NewBufferString(test.UserCreatedPayload))
			},
		},
		{
			name: "corrupted signature",
			req: func(t *testing.T) *http.Request {
				req := signedRequest(t, time.Now(), test.UserCreatedPayload)
				test.CorruptSignature(req.Header)
				return req
			},
		},
		{
			name: "stale timestamp",
			req: func(t *testing.T) *http.Request {
				return signedRequest(t, time.Now().Add(-time.Hour), test.UserCreatedPayload)
			},
		},
		{
			name: "body over the size limit",
			req: func(t *testing.T) *http.Request {
				return signedRequest(t, time.Now(), `{"type":"user.created","data":{"id":"`+strings.Repeat("x", 2048)+`"}}`)
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			dispatcher := &recordingDispatcher{}
			core, logs := observer.New(zapcore.InfoLevel)
			h := NewHandler(Config{SigningSecret: test.Secret, MaxRequestSize: 1024}, nil, dispatcher, zap.New(core))

			expectResponse(t, serve(h, tc.req(t)), http.StatusBadRequest, "Error verifying webhook")
			if len(dispatcher.events) != 0 {
				t.Errorf("expected nothing dispatched, got %d events", len(dispatcher.events))
			}
			if logs.FilterMessage("received clerk webhook").Len() != 0 {
				t.Errorf("rejected payload must not be logged as an event")
			}
			if logs.FilterMessage("error verifying webhook").Len() != 1 {
				t.Errorf("expected the failure to be logged")
			}
		})
	}
}

func TestHandleWebhookZeroResultIsRejected(t *testing.T) {
	h := NewHandler(Config{SigningSecret: test.Secret}, &fakeVerifier{}, nil, nil)
	req := httptest.NewRequest(http.MethodPost, UserCreatedPath, bytes.NewBufferString("{}"))
	expectResponse(t, serve(h, req), http.StatusBadRequest, "Error verifying webhook")
}

func TestHandleWebhookDispatchErrorStillAcknowledged(t *testing.T) {
	dispatcher := &recordingDispatcher{err: errors.New("downstream unavailable")}
	core, logs := observer.New(zapcore.InfoLevel)
	verifier := &fakeVerifier{result: verified(Event{Type: EventTypeUserCreated})}
	h := NewHandler(Config{SigningSecret: test.Secret}, verifier, dispatcher, zap.New(core))

	req := httptest.NewRequest(http.MethodPost, UserCreatedPath, bytes.NewBufferString("{}"))
	expectResponse(t, serve(h, req), http.StatusOK, "Webhook received")
	if logs.FilterMessage("webhook dispatch failed").Len() != 1 {
		t.Errorf("expected dispatch failure to be logged")
	}
}
