/*
Copyright © 2023 The Spray Proxy Contributors

SPDX-License-Identifier: Apache-2.0
*/

// Package webhook receives Clerk webhook deliveries.
//
// A delivery is signed with the Svix scheme: the svix-id, svix-timestamp and
// svix-signature headers carry an HMAC-SHA256 over "id.timestamp.body" keyed
// with the endpoint signing secret. The Handler verifies every delivery before
// decoding it, logs the verified Event and passes it to a Dispatcher. Callers
// only ever see one of three fixed responses.
package webhook
