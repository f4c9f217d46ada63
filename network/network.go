// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package network defines the transport *contracts* consensus, mempool
// and sync depend on: gossip channels and request/response RPCs, as
// plain Go interfaces with no concrete P2P implementation (spec.md §1
// scope: discovery/identify handshakes and the wire transport itself
// are external collaborators; `network/` "defines only the transport
// contract"). The request/response bookkeeping below — a pending-request
// map keyed by an allocated request ID, resolved by an AppResponse-style
// callback, torn down on Shutdown — is kept from the teacher's own
// Network type; what changes is the message shape: instead of one
// sender/codec pair routing opaque app-protocol bytes, PendingRequests
// routes by our own Channel enumeration of the six gossip kinds and four
// RPCs spec.md §6 names.
package network

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNoPeers is returned when a request has no candidate peer to send to.
var ErrNoPeers = errors.New("network: no peers available")

// ErrNetworkClosed is returned by Broadcast/Request after Shutdown.
var ErrNetworkClosed = errors.New("network: transport closed")

// ErrRequestCancelled is returned when a pending request's channel is
// torn down (Shutdown) before a response arrives.
var ErrRequestCancelled = errors.New("network: request cancelled")

// Channel names one of the ten gossip/RPC message kinds spec.md §6
// lists under "Network protocols".
type Channel string

const (
	ChannelSignedProposal  Channel = "signed_proposal"
	ChannelSignedVote      Channel = "signed_vote"
	ChannelAggregatedVote  Channel = "aggregated_vote"
	ChannelSignedChoke     Channel = "signed_choke"
	ChannelBroadcastHeight Channel = "broadcast_height"
	ChannelNewTxs          Channel = "new_txs"

	RPCSyncPullBlock Channel = "sync_pull_block"
	RPCSyncPullProof Channel = "sync_pull_proof"
	RPCSyncPullTxs   Channel = "sync_pull_txs"
	RPCPullTxs       Channel = "pull_txs"
)

// RequestDeadline is the default RPC deadline spec.md §5 "Cancellation"
// names: "An RPC call has a deadline (10 s default); expiry returns a
// timeout error that the caller surfaces as a retryable failure."
const RequestDeadline = 10 * time.Second

// PeerID identifies a remote node; transport-specific (e.g. a libp2p
// peer ID or a lux `ids.NodeID`) and opaque to this package.
type PeerID string

// Sender is the minimal send primitive a concrete transport supplies:
// deliver payload to peers on channel, either as a gossip broadcast
// (peer == "") or a directed request (peer != "").
type Sender interface {
	Send(ctx context.Context, peer PeerID, channel Channel, requestID uint32, payload []byte) error
}

// Broadcaster sends a length-prefixed, canonically-encoded payload to
// every connected peer on one gossip channel — spec.md §6's
// `signed_proposal`/`signed_vote`/`aggregated_vote`/`signed_choke`/
// `broadcast_height`/`new_txs` channels.
type Broadcaster interface {
	Broadcast(ctx context.Context, channel Channel, payload []byte) error
}

// Requester issues a request/response RPC against a specific peer, used
// by the sync subsystem for `sync_pull_block`/`sync_pull_proof`/
// `sync_pull_txs` and by the mempool for `pull_txs`. Implementations
// must honor ctx's deadline and return a retryable error on expiry.
type Requester interface {
	Request(ctx context.Context, peer PeerID, channel Channel, payload []byte) ([]byte, error)
}

// HeightAnnouncer reports peer height announcements the sync subsystem
// consumes to decide whether to enter sync mode — spec.md §4.5.4:
// "Peers broadcast their height periodically (BROADCAST_HEIGHT); the
// RemoteHeightMessageHandler updates the sync subsystem's view of peer
// heights."
type HeightAnnouncer interface {
	PeerHeights() map[PeerID]uint64
	AnnounceHeight(ctx context.Context, height uint64) error
}

// Transport bundles the three contracts a consensus engine and sync
// subsystem need from the networking layer.
type Transport interface {
	Broadcaster
	Requester
	HeightAnnouncer
}

// PendingRequests tracks in-flight Requester calls and resolves them
// when a response arrives via Resolve — the request-ID-keyed-channel
// pattern the teacher's Network type uses for SendSyncedAppRequest,
// generalized so any concrete Sender implementation can reuse it
// instead of re-deriving request/response correlation from scratch.
type PendingRequests struct {
	mu        sync.Mutex
	nextID    uint32
	pending   map[uint32]chan []byte
	closed    bool
}

// NewPendingRequests creates an empty request tracker.
func NewPendingRequests() *PendingRequests {
	return &PendingRequests{pending: make(map[uint32]chan []byte)}
}

// Register allocates a fresh request ID with a one-slot response
// channel, returning both so the caller can send the request and then
// Await the channel.
func (p *PendingRequests) Register() (uint32, chan []byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, nil, ErrNetworkClosed
	}
	id := p.nextID
	p.nextID++
	ch := make(chan []byte, 1)
	p.pending[id] = ch
	return id, ch, nil
}

// Release discards a request ID's bookkeeping once its caller is done
// with it, whether it resolved or timed out.
func (p *PendingRequests) Release(id uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pending, id)
}

// Resolve delivers response to the channel registered for id, if any —
// called by a concrete Sender's inbound-response handler (the
// AppResponse-shaped callback).
func (p *PendingRequests) Resolve(id uint32, response []byte) {
	p.mu.Lock()
	ch, ok := p.pending[id]
	p.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- response:
	default:
	}
}

// Await blocks on ch until a response arrives, ctx is cancelled, or the
// tracker is shut down.
func (p *PendingRequests) Await(ctx context.Context, ch chan []byte) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case response, ok := <-ch:
		if !ok {
			return nil, ErrRequestCancelled
		}
		return response, nil
	}
}

// Shutdown closes every pending request channel, unblocking any Await
// call with ErrRequestCancelled.
func (p *PendingRequests) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	for id, ch := range p.pending {
		close(ch)
		delete(p.pending, id)
	}
}
