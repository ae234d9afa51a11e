/*
Copyright © 2023 The Spray Proxy Contributors

SPDX-License-Identifier: Apache-2.0
*/
package test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strconv"
	"time"

	svix "github.com/svix/svix-webhooks/go"
)

const (
	// Secret is the signing secret used across tests.
	Secret = "whsec_test"

	UserCreatedPayload = `{"data":{"id":"user_29w83sxmDNGwOuEthce5gg56FcC","object":"user",` +
		`"email_addresses":[{"id":"idn_29w83yL7CwVlJXylYLxcslromF1","email_address":"example@example.org"}],` +
		`"primary_email_address_id":"idn_29w83yL7CwVlJXylYLxcslromF1","created_at":1654012591514},` +
		`"event_attributes":{"http_request":{"client_ip":"0.0.0.0","user_agent":"test"}},` +
		`"instance_id":"ins_123","object":"event","timestamp":1654012591835,"type":"user.created"}`
)

// Signer signs webhook deliveries the way Clerk does.
type Signer struct {
	wh *svix.Webhook
}

func NewSigner(secret string) (*Signer, error) {
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, err
	}
	return &Signer{wh: wh}, nil
}

// Headers returns the svix-* headers for body sent as message msgID at ts.
func (s *Signer) Headers(msgID string, ts time.Time, body []byte) (http.Header, error) {
	signature, err := s.wh.Sign(msgID, ts, body)
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	header.Set("svix-id", msgID)
	header.Set("svix-timestamp", strconv.FormatInt(ts.Unix(), 10))
	header.Set("svix-signature", signature)
	header.Set("Content-Type", "application/json")
	return header, nil
}

// NewRequest builds a signed POST to path.
func (s *Signer) NewRequest(path, msgID string, ts time.Time, body []byte) (*http.Request, error) {
	header, err := s.Headers(msgID, ts, body)
	if err != nil {
		return nil, err
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header = header
	return req, nil
}

// CorruptSignature changes one character of the signature in header.
func CorruptSignature(header http.Header) {
	sig := []byte(header.Get("svix-signature"))
	// skip the "v1," version prefix
	i := 3 + (len(sig)-3)/2
	if sig[i] == 'A' {
		sig[i] = 'B'
	} else {
		sig[i] = 'A'
	}
	header.Set("svix-signature", string(sig))
}
