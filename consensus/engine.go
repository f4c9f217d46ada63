package consensus

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/crypto"
	"github.com/luxfi/axon/execution"
	"github.com/luxfi/axon/internal/merkleutil"
	"github.com/luxfi/axon/mempool"
	"github.com/luxfi/axon/network"
	"github.com/luxfi/axon/storage/chain"
	"github.com/luxfi/axon/storage/kv"
	"github.com/luxfi/axon/storage/wal"
	"github.com/luxfi/axon/types"
)

// EpochSource resolves the active validator set and consensus timing
// parameters effective at a given block height — spec.md §4.5.2: "the
// active validator set is the verifier_list of the epoch returned by
// metadata_for(H)". This package provides no implementation of it; the
// caller supplies one.
type EpochSource interface {
	MetadataAt(height uint64) (*types.Metadata, error)
}

// LocalIdentity is this node's signing material: a secp256k1 key for
// proposal authentication and a BLS key for vote/QC participation.
type LocalIdentity struct {
	Address       common.Address
	Secp256k1Key  []byte // raw private key bytes passed to crypto.SigToPub-compatible signing
	BLSPrivateKey *crypto.BLSPrivateKey
}

// Config carries engine-wide tunables independent of any one epoch.
type Config struct {
	ChainID  uint64
	Identity LocalIdentity
}

// roundTimers holds the three phase timers currently armed for the
// engine's round, so a phase transition can cancel whichever are still
// pending (spec.md §4.5.1 "Timer discipline": "a phase transition
// cancels its timer").
type roundTimers struct {
	propose   *time.Timer
	prevote   *time.Timer
	precommit *time.Timer
}

func (t *roundTimers) cancelAll() {
	for _, timer := range []*time.Timer{t.propose, t.prevote, t.precommit} {
		if timer != nil {
			timer.Stop()
		}
	}
}

// timeoutMsg is what a fired phase timer sends back into the engine's
// single inbound channel, carrying enough identity to discard stale
// timers from a round the engine has already left.
type timeoutMsg struct {
	height uint64
	round  uint64
	phase  Phase
}

// Engine is the single-owner BFT state machine for one chain. All
// inbound messages (proposals, votes, chokes, timers) funnel through
// one channel and are handled serially — spec.md §5 "Ownership of the
// state machine": "eliminating data races in the transition logic."
type Engine struct {
	cfg Config

	mu         sync.Mutex // guards the fields below, read by external accessors (Status)
	height     uint64
	round      uint64
	phase      Phase
	validators types.ValidatorList

	proposal     *SignedProposal
	prevotes     *VoteSet
	precommit    *VoteSet
	chokes       map[uint64]map[common.Address]bool // round -> voter -> voted
	pendingProof *types.Proof                        // QC of the most recently committed block, carried into the next proposal's header

	epochs   EpochSource
	mempool  *mempool.Pool
	executor *execution.Executor
	chain    *chain.Store
	wal      *wal.Log
	kv       *kv.Store
	transport network.Transport

	inbound chan interface{}
	timers  roundTimers

	speculative *speculativeResult
}

// speculativeResult holds the Prevote-phase speculative execution the
// Commit phase waits on, run concurrently per spec.md §5 "Speculative
// execution of a Propose-phase block runs on a worker while the state
// machine is in Prevote."
type speculativeResult struct {
	blockHash common.Hash
	done      chan struct{}
	results   []execution.TxResult
	stateRoot common.Hash
	err       error
}

// NewEngine constructs an engine over its storage/execution/mempool/
// network dependencies, idle until Start is called.
func NewEngine(cfg Config, epochs EpochSource, pool *mempool.Pool, exec *execution.Executor, chainStore *chain.Store, walLog *wal.Log, store *kv.Store, transport network.Transport) *Engine {
	return &Engine{
		cfg:       cfg,
		epochs:    epochs,
		mempool:   pool,
		executor:  exec,
		chain:     chainStore,
		wal:       walLog,
		kv:        store,
		transport: transport,
		inbound:   make(chan interface{}, 256),
		chokes:    make(map[uint64]map[common.Address]bool),
	}
}

// Status returns a snapshot of the engine's current head view.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{Height: e.height, Validators: e.validators}
}

// Resume replays the WAL and restores the engine to its highest
// persisted (height, round, phase), per spec.md §4.5.3: "On restart the
// engine replays the WAL to recover its prior state: the highest
// persisted (height, round, phase) defines the resume point."
func (e *Engine) Resume() error {
	latest, err := e.chain.ReadLatestBlock()
	if err != nil {
		return err
	}
	gcFloor := uint64(0)
	if latest != nil {
		gcFloor = latest.Number()
	}

	resume, _, err := e.wal.Replay(gcFloor)
	if err != nil {
		return err
	}

	proof, err := e.chain.ReadLatestProof()
	if err != nil {
		if !errors.Is(err, chain.ErrNotFound) {
			return err
		}
		proof = types.GenesisProof()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if resume.Found {
		e.height, e.round, e.phase = resume.Height, resume.Round, Phase(resume.Phase)
	} else {
		e.height = gcFloor + 1
	}
	e.pendingProof = proof
	validators, err := e.validatorsForHeightLocked(e.height)
	if err != nil {
		return err
	}
	e.validators = validators
	return nil
}

func (e *Engine) validatorsForHeightLocked(height uint64) (types.ValidatorList, error) {
	parentHeight := uint64(0)
	if height > 0 {
		parentHeight = height - 1
	}
	meta, err := e.epochs.MetadataAt(parentHeight)
	if err != nil {
		return nil, err
	}
	return meta.VerifierList.SortCanonical(), nil
}

// ratioTimeout computes interval * ratio / 10, the timer formula
// spec.md §4.5.1 specifies for each phase ("propose_timeout = interval
// * propose_ratio / 10").
func ratioTimeout(interval, ratio uint64) time.Duration {
	return time.Duration(interval*ratio/10) * time.Millisecond
}

// Run is the single-owner event loop: it drains e.inbound until ctx is
// cancelled, dispatching each message to the matching handler.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	height := e.height
	e.mu.Unlock()
	if err := e.enterNewHeight(height); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			e.timers.cancelAll()
			return ctx.Err()
		case msg := <-e.inbound:
			if err := e.dispatch(msg); err != nil {
				return err
			}
		}
	}
}

// Submit enqueues an inbound network message (a SignedProposal,
// SignedVote, or SignedChoke) for serial handling by Run's loop.
func (e *Engine) Submit(msg interface{}) {
	e.inbound <- msg
}

func (e *Engine) dispatch(msg interface{}) error {
	switch m := msg.(type) {
	case SignedProposal:
		return e.handleProposal(m)
	case SignedVote:
		return e.handleVote(m)
	case SignedChoke:
		return e.handleChoke(m)
	case timeoutMsg:
		return e.handleTimeout(m)
	default:
		return errors.New("consensus: unrecognised inbound message type")
	}
}

// enterNewHeight resets round state to 0/Propose for height and either
// proposes (if local is leader) or arms the propose timeout.
func (e *Engine) enterNewHeight(height uint64) error {
	e.mu.Lock()
	validators, err := e.validatorsForHeightLocked(height)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	e.height = height
	e.round = 0
	e.phase = PhasePropose
	e.validators = validators
	e.proposal = nil
	e.prevotes = NewVoteSet(validators, types.PrevoteType, height, 0)
	e.precommit = NewVoteSet(validators, types.PrecommitType, height, 0)
	e.mu.Unlock()

	return e.enterPropose(height, 0)
}

func (e *Engine) metadataForRound(height uint64) (*types.Metadata, error) {
	parentHeight := uint64(0)
	if height > 0 {
		parentHeight = height - 1
	}
	return e.epochs.MetadataAt(parentHeight)
}

func (e *Engine) enterPropose(height, round uint64) error {
	e.mu.Lock()
	validators := e.validators
	e.mu.Unlock()

	meta, err := e.metadataForRound(height)
	if err != nil {
		return err
	}

	if IsLeader(validators, height, round, e.cfg.Identity.Address) {
		return e.propose(height, round, meta)
	}

	timeout := ratioTimeout(meta.Interval, meta.Consensus.ProposeRatio)
	e.armTimer(&e.timers.propose, height, round, PhasePropose, timeout)
	return nil
}

func (e *Engine) armTimer(slot **time.Timer, height, round uint64, phase Phase, d time.Duration) {
	*slot = time.AfterFunc(d, func() {
		e.inbound <- timeoutMsg{height: height, round: round, phase: phase}
	})
}

// propose assembles a block from the mempool's packaged transactions,
// executes it synchronously so every header commitment (state/receipts/
// transactions roots, gas_used, log_bloom) is final before the header is
// hashed and voted on, then broadcasts it. The leader's own speculative
// execution result is cached so handleProposal doesn't redo it for its
// own proposal.
func (e *Engine) propose(height, round uint64, meta *types.Metadata) error {
	parent, err := e.parentHeader(height)
	if err != nil {
		return err
	}

	baseFee := new(big.Int).SetUint64(meta.GasPrice)
	txs := e.mempool.Package(meta.GasLimit, baseFee, int(meta.TxNumLimit))

	e.mu.Lock()
	proof := e.pendingProof
	validators := e.validators
	e.mu.Unlock()

	signedTxsRoot, err := merkleutil.SignedTxsHash(txs)
	if err != nil {
		return err
	}
	encodedTxs := make([][]byte, len(txs))
	txHashes := make([]common.Hash, len(txs))
	for i, tx := range txs {
		enc, err := tx.UnverifiedTransaction.Encode()
		if err != nil {
			return err
		}
		encodedTxs[i] = enc
		txHashes[i] = tx.Hash()
	}
	txsRoot, err := merkleutil.MerkleRoot(encodedTxs)
	if err != nil {
		return err
	}

	header := &types.Header{
		PrevHash:         parent.Hash(),
		Proposer:         e.cfg.Identity.Address,
		Timestamp:        uint64(nowFunc().Unix()),
		Number:           height,
		Round:            round,
		GasLimit:         meta.GasLimit,
		BaseFeePerGas:    baseFee,
		ChainID:          e.cfg.ChainID,
		Proof:            proof,
		TransactionsRoot: txsRoot,
		SignedTxsHash:    signedTxsRoot,
	}

	execCtx := execution.BlockExecContext{
		Number:   height,
		Time:     header.Timestamp,
		Proposer: header.Proposer,
		BaseFee:  baseFee,
		GasLimit: meta.GasLimit,
	}
	stateRoot, results, err := e.executor.Execute(parent.StateRoot, execCtx, txs, validators)
	if err != nil {
		return err
	}
	receiptsRoot, logBloom, gasUsed, err := summarizeResults(results)
	if err != nil {
		return err
	}
	header.StateRoot = stateRoot
	header.ReceiptsRoot = receiptsRoot
	header.LogBloom = logBloom
	header.GasUsed = gasUsed

	block := &types.Block{Header: header, TxHashes: txHashes}
	hash := block.Hash()

	e.mu.Lock()
	e.speculative = &speculativeResult{blockHash: hash, done: make(chan struct{}), results: results, stateRoot: stateRoot}
	close(e.speculative.done)
	e.mu.Unlock()

	payload, err := block.Encode()
	if err != nil {
		return err
	}
	if err := e.wal.Append(wal.Entry{Height: height, Round: round, Phase: wal.PhasePropose, Payload: payload}); err != nil {
		return err
	}

	proposal := SignedProposal{Block: block, Round: round}
	e.mu.Lock()
	e.proposal = &proposal
	e.phase = PhasePrevote
	e.mu.Unlock()
	if e.timers.propose != nil {
		e.timers.propose.Stop()
	}
	e.armTimer(&e.timers.prevote, height, round, PhasePrevote, ratioTimeout(meta.Interval, meta.Consensus.PrevoteRatio))

	if e.transport != nil {
		enc, err := encodeProposal(proposal)
		if err != nil {
			return err
		}
		if err := e.transport.Broadcast(context.Background(), network.ChannelSignedProposal, enc); err != nil {
			return err
		}
	}

	vote := types.Vote{Height: height, Round: round, VoteType: types.PrevoteType, BlockHash: hash}
	return e.broadcastVote(vote)
}

// summarizeResults folds per-transaction execution results into the
// aggregate facts a header commits to: the MPT root of receipt
// encodings, the OR of every receipt's log bloom, and cumulative gas.
func summarizeResults(results []execution.TxResult) (common.Hash, types.Bloom, uint64, error) {
	receiptEncs := make([][]byte, len(results))
	var logs []*types.Log
	var gasUsed uint64
	for i, r := range results {
		enc, err := r.Receipt.Encode()
		if err != nil {
			return common.Hash{}, types.Bloom{}, 0, err
		}
		receiptEncs[i] = enc
		logs = append(logs, r.Receipt.Logs...)
		gasUsed = r.Receipt.UsedGas
	}
	root, err := merkleutil.MerkleRoot(receiptEncs)
	if err != nil {
		return common.Hash{}, types.Bloom{}, 0, err
	}
	return root, types.CreateBloom(logs), gasUsed, nil
}

func (e *Engine) parentHeader(height uint64) (*types.Header, error) {
	latest, err := e.chain.ReadLatestBlock()
	if err != nil {
		return nil, err
	}
	if latest == nil || latest.Number()+1 != height {
		return nil, ErrUnknownAncestor
	}
	return latest.Header, nil
}

// nowFunc is indirected so tests can substitute a deterministic clock.
var nowFunc = time.Now
