/*
Copyright © 2023 The Spray Proxy Contributors

SPDX-License-Identifier: Apache-2.0
*/
package webhook

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const EventTypeUserCreated = "user.created"

// Event is the envelope of a verified Clerk webhook delivery.
type Event struct {
	Type            string           `json:"type"`
	Object          string           `json:"object"`
	Data            json.RawMessage  `json:"data"`
	Timestamp       int64            `json:"timestamp"`
	InstanceID      string           `json:"instance_id"`
	EventAttributes *EventAttributes `json:"event_attributes,omitempty"`

	// MessageID is the svix-id of the delivery. Retries of the same message share it.
	MessageID string `json:"-"`
}

type EventAttributes struct {
	HTTPRequest *HTTPRequestAttributes `json:"http_request,omitempty"`
}

type HTTPRequestAttributes struct {
	ClientIP  string `json:"client_ip"`
	UserAgent string `json:"user_agent"`
}

// UserData is the part of a Clerk user object carried by user.* events.
type UserData struct {
	ID                    string         `json:"id"`
	Username              string         `json:"username"`
	PrimaryEmailAddressID string         `json:"primary_email_address_id"`
	EmailAddresses        []EmailAddress `json:"email_addresses"`
	CreatedAt             int64          `json:"created_at"`
}

type EmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

// User decodes the event data as a Clerk user.
func (e Event) User() (UserData, error) {
	var user UserData
	if len(e.Data) == 0 {
		return user, fmt.Errorf("event %s has no data", e.Type)
	}
	if err := json.Unmarshal(e.Data, &user); err != nil {
		return user, fmt.Errorf("decoding %s data: %w", e.Type, err)
	}
	return user, nil
}

// DataID returns the id of the object the event is about, if any.
func (e Event) DataID() string {
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(e.Data, &obj); err != nil {
		return ""
	}
	return obj.ID
}

// logFields summarizes the event without the user data itself.
func (e Event) logFields() []zapcore.Field {
	return []zapcore.Field{
		zap.String("event-type", e.Type),
		zap.String("event-object", e.Object),
		zap.String("message-id", e.MessageID),
		zap.String("instance-id", e.InstanceID),
		zap.String("data-id", e.DataID()),
		zap.Int64("event-timestamp", e.Timestamp),
	}
}
