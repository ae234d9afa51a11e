/*
Copyright © 2023 The Spray Proxy Contributors

SPDX-License-Identifier: Apache-2.0
*/
package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	svix "github.com/svix/svix-webhooks/go"
)

// RejectReason says why a delivery failed verification. It is logged and
// counted, never sent back to the caller.
type RejectReason string

const (
	ReasonUnverified        RejectReason = "unverified"
	ReasonMissingHeaders    RejectReason = "missing-headers"
	ReasonUnreadableBody    RejectReason = "unreadable-body"
	ReasonInvalidSecret     RejectReason = "invalid-secret"
	ReasonInvalidSignature  RejectReason = "invalid-signature"
	ReasonMalformedEnvelope RejectReason = "malformed-envelope"
)

var (
	errMissingHeaders = errors.New("missing svix-id, svix-timestamp or svix-signature header")
	errMissingType    = errors.New("event envelope has no type")
)

// Result is the outcome of verifying one delivery: either verified, carrying
// the Event, or rejected with a reason. Only this package can build a verified
// Result; the zero value is rejected.
type Result struct {
	event  *Event
	reason RejectReason
	err    error
}

func verified(event Event) Result {
	return Result{event: &event}
}

func rejected(reason RejectReason, err error) Result {
	return Result{reason: reason, err: err}
}

// Verified reports whether the delivery passed verification.
func (r Result) Verified() bool {
	return r.event != nil
}

// Event returns the verified event. ok is false for a rejected Result.
func (r Result) Event() (event Event, ok bool) {
	if r.event == nil {
		return Event{}, false
	}
	return *r.event, true
}

func (r Result) Reason() RejectReason {
	if r.event != nil {
		return ""
	}
	if r.reason == "" {
		return ReasonUnverified
	}
	return r.reason
}

func (r Result) Err() error {
	return r.err
}

// Verifier checks the authenticity of an inbound delivery against a signing secret.
type Verifier interface {
	Verify(req *http.Request, secret string) Result
}

// SvixVerifier verifies deliveries signed with the Svix scheme Clerk uses.
// Timestamps more than five minutes away from the local clock are rejected.
type SvixVerifier struct{}

func NewSvixVerifier() *SvixVerifier {
	return &SvixVerifier{}
}

// Verify reads the request body, checks its signature and decodes the envelope.
func (v *SvixVerifier) Verify(req *http.Request, secret string) Result {
	if !hasSignatureHeaders(req.Header) {
		return rejected(ReasonMissingHeaders, errMissingHeaders)
	}
	if req.Body == nil {
		return rejected(ReasonUnreadableBody, errors.New("request has no body"))
	}
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return rejected(ReasonUnreadableBody, fmt.Errorf("reading body: %w", err))
	}

	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return rejected(ReasonInvalidSecret, fmt.Errorf("loading signing secret: %w", err))
	}
	if err := wh.Verify(body, req.Header); err != nil {
		return rejected(ReasonInvalidSignature, fmt.Errorf("verifying signature: %w", err))
	}

	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return rejected(ReasonMalformedEnvelope, fmt.Errorf("decoding envelope: %w", err))
	}
	if event.Type == "" {
		return rejected(ReasonMalformedEnvelope, errMissingType)
	}
	event.MessageID = messageID(req.Header)
	return verified(event)
}

// hasSignatureHeaders accepts either the svix-* or the unbranded webhook-* header set.
func hasSignatureHeaders(h http.Header) bool {
	for _, prefix := range []string{"svix-", "webhook-"} {
		if h.Get(prefix+"id") != "" && h.Get(prefix+"timestamp") != "" && h.Get(prefix+"signature") != "" {
			return true
		}
	}
	return false
}

func messageID(h http.Header) string {
	if id := h.Get("svix-id"); id != "" {
		return id
	}
	return h.Get("webhook-id")
}
