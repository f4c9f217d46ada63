package precompile

import (
	"bytes"
	"sort"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/execution"
)

// Module pairs one chain-specific precompile with the fixed address it
// answers to, mirroring the teacher's registry.Module wrapper (address +
// contract singleton) adapted to this module's simpler, config-free
// StatefulPrecompile contract. It satisfies PrecompileModule below; the
// unexported fields and exported methods of the same conceptual name
// follow the teacher's own Module (private field, public accessor)
// shape rather than exposing the fields directly.
type Module struct {
	addr     common.Address
	name     string
	contract execution.StatefulPrecompile
}

// Registry collects every chain-specific precompile this chain runs,
// keyed by address for Executor dispatch; Modules sorts a copy by
// address on each call for deterministic enumeration (genesis dumps,
// diagnostics), following the teacher's moduleArray sort-by-address
// habit.
type Registry struct {
	modules map[common.Address]Module
}

// NewRegistry returns an empty registry; call Register for each
// precompile before handing Map() to execution.NewExecutor.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[common.Address]Module)}
}

// Register adds a precompile at its fixed address. It panics on a
// duplicate address since two precompiles sharing one address is a
// wiring bug, not a runtime condition to recover from.
func (r *Registry) Register(name string, addr common.Address, contract execution.StatefulPrecompile) {
	if _, exists := r.modules[addr]; exists {
		panic("precompile: duplicate address registration for " + name)
	}
	r.modules[addr] = Module{addr: addr, name: name, contract: contract}
}

// Modules returns every registered module, sorted by address.
func (r *Registry) Modules() []Module {
	out := make([]Module, 0, len(r.modules))
	for _, m := range r.modules {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].addr.Bytes(), out[j].addr.Bytes()) < 0
	})
	return out
}

// Map returns the address -> StatefulPrecompile view execution.Executor
// consumes directly.
func (r *Registry) Map() map[common.Address]execution.StatefulPrecompile {
	out := make(map[common.Address]execution.StatefulPrecompile, len(r.modules))
	for addr, m := range r.modules {
		out[addr] = m.contract
	}
	return out
}

// The methods below satisfy this package's own PrecompileRegistry/
// PrecompileModule interfaces (interfaces.go), carried over from the
// teacher's pluggable precompile-config surface. This chain's
// precompiles have no per-epoch JSON config (Configurator/DefaultConfig/
// MakeConfig all return nil), since every one of them is always active
// at a fixed address rather than activated by a configured block height.

// GetPrecompileModule looks up a module by its config key.
func (r *Registry) GetPrecompileModule(key string) (PrecompileModule, bool) {
	for _, m := range r.modules {
		if m.name == key {
			return m, true
		}
	}
	return nil, false
}

// GetPrecompileModuleByAddress looks up a module by its fixed address.
func (r *Registry) GetPrecompileModuleByAddress(address common.Address) (PrecompileModule, bool) {
	m, ok := r.modules[address]
	return m, ok
}

// RegisteredModules returns every registered module, sorted by address.
func (r *Registry) RegisteredModules() []PrecompileModule {
	mods := r.Modules()
	out := make([]PrecompileModule, len(mods))
	for i, m := range mods {
		out[i] = m
	}
	return out
}

func (m Module) Address() common.Address   { return m.addr }
func (m Module) Contract() interface{}     { return m.contract }
func (m Module) Configurator() interface{} { return nil }
func (m Module) DefaultConfig() interface{} { return nil }
func (m Module) MakeConfig() interface{}    { return nil }
func (m Module) ConfigKey() string          { return m.name }
