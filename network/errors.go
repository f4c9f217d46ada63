// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package network

import "errors"

// ErrNoSender is returned by a concrete Sender that has no underlying
// transport configured.
var ErrNoSender = errors.New("network: no sender configured")

// ErrRequestTimeout is returned when a Requester call's context expires
// before a response arrives — the retryable failure spec.md §5
// "Cancellation" describes for RPC deadline expiry.
var ErrRequestTimeout = errors.New("network: request timeout")
