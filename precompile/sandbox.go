package precompile

import (
	"errors"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/execution"
	axonrlp "github.com/luxfi/axon/rlp"
)

// sandboxInvokeRequest is the RLP-encoded input schema for
// SandboxVMInvoke, replacing the Rust original's hand-rolled RLP-list
// layout (tx_hash/index/dep_type fields decoded positionally via
// try_rlp!) with one struct so package rlp can decode it directly.
type sandboxInvokeRequest struct {
	CellDeps []CellKey
	Args     [][]byte
}

// Decode parses the RLP encoding of a sandbox invocation request.
func (r *sandboxInvokeRequest) Decode(data []byte) error {
	return axonrlp.DecodeBytes(data, r)
}

// Encode returns the canonical RLP encoding of the request.
func (r *sandboxInvokeRequest) Encode() ([]byte, error) {
	return axonrlp.EncodeToBytes(r)
}

// ErrSandboxVMUnavailable is returned by the default SandboxVM: this
// chain has no embedded CKB-VM (the sandbox the Rust original's
// call_ckb_vm/verify_by_ckb_vm precompiles dispatch to is a RISC-V
// interpreter for a parent chain's own script language, and embedding
// one is out of this module's scope). A real deployment supplies its own
// SandboxVM implementation; the zero value exists so the precompile
// address is still reserved and gives a clear error instead of a nil
// dereference when invoked.
var ErrSandboxVMUnavailable = errors.New("precompile: sandbox VM invocation is not implemented")

const sandboxVMMinGas = 500

// SandboxVM runs an out-of-EVM script against a parent-chain cell
// dependency set, mirroring call_ckb_vm.rs/verify_by_ckb_vm.rs's
// Interoperation::call_ckb_vm/verify_by_ckb_vm contract: cellDeps
// reference the parent-chain cells the script may read, args are the
// script's invocation arguments, and cycles caps the sandbox's own
// internal metering unit (converted to/from EVM gas by the caller).
type SandboxVM interface {
	Run(cellDeps []CellKey, args [][]byte, cycles uint64) (exitCode int8, cyclesUsed uint64, err error)
}

// NoSandboxVM is the default SandboxVM: it always reports the sandbox as
// unavailable. Wire a real implementation via SandboxVMInvoke.Source once
// one exists.
type NoSandboxVM struct{}

func (NoSandboxVM) Run([]CellKey, [][]byte, uint64) (int8, uint64, error) {
	return 0, 0, ErrSandboxVMUnavailable
}

// cycleToGas and gasToCycle convert between EVM gas and the sandbox's own
// cycle-metering unit; the Rust original's core_interoperation crate
// fixes this conversion at a constant ratio, which this module keeps as
// 1:1 absent a calibrated sandbox to derive a real ratio from.
func gasToCycle(gas uint64) uint64 { return gas }
func cycleToGas(cycles uint64) uint64 { return cycles }

// SandboxVMInvoke is the call_ckb_vm precompile: it runs a script against
// a supplied cell-dependency set and returns the sandbox's exit code.
type SandboxVMInvoke struct {
	Source SandboxVM
}

func (s *SandboxVMInvoke) RequiredGas([]byte) uint64 { return sandboxVMMinGas }

func (s *SandboxVMInvoke) Run(_ *execution.StateDB, _ common.Address, input []byte) ([]byte, error) {
	var req sandboxInvokeRequest
	if err := req.Decode(input); err != nil {
		return nil, err
	}

	source := s.Source
	if source == nil {
		source = NoSandboxVM{}
	}

	exitCode, _, err := source.Run(req.CellDeps, req.Args, gasToCycle(s.RequiredGas(input)))
	if err != nil {
		return nil, err
	}
	return []byte{byte(exitCode)}, nil
}
