package syscontract

import (
	"encoding/binary"
	"errors"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/execution"
	"github.com/luxfi/axon/storage/kv"
	"github.com/luxfi/axon/types"
)

// ErrMetadataNotContiguous is returned when an appended epoch's version
// range does not immediately follow the current latest epoch's, the
// segment-index extension check spec.md §4.3 requires.
var ErrMetadataNotContiguous = errors.New("syscontract: metadata version range is not contiguous with the previous epoch")

// ErrInvalidMetadataAppendInput is returned when a call to Metadata
// does not decode as a types.Metadata.
var ErrInvalidMetadataAppendInput = errors.New("syscontract: invalid metadata append input")

const metadataAppendMinGas = 50000

var latestEpochKey = []byte("latest_epoch")

func epochKey(epoch uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, epoch)
	return k
}

func startIndexKey(start uint64) []byte {
	k := make([]byte, 1+8)
	k[0] = 'i'
	binary.BigEndian.PutUint64(k[1:], start)
	return k
}

// Metadata is the epoch-metadata append system contract: each call
// submits one epoch's full types.Metadata, which must extend the
// previous epoch's version range with no gap or overlap (new.Start ==
// old.End + 1) and increment the epoch counter by exactly one. Every
// accepted epoch is retained forever in CFMetadataState so
// precompile.MetadataSource can resolve any historical block number or
// epoch, not just the current one.
type Metadata struct {
	db kv.Database
}

// NewMetadata wraps the metadata-state column family.
func NewMetadata(db kv.Database) *Metadata {
	return &Metadata{db: db}
}

func (m *Metadata) RequiredGas([]byte) uint64 { return metadataAppendMinGas }

func (m *Metadata) Run(_ *execution.StateDB, _ common.Address, input []byte) ([]byte, error) {
	var meta types.Metadata
	if err := meta.Decode(input); err != nil {
		return nil, ErrInvalidMetadataAppendInput
	}
	if err := m.append(&meta); err != nil {
		return nil, err
	}
	return nil, nil
}

// append validates contiguity against the stored latest epoch (if any)
// and persists the new epoch plus its start-index pointer.
func (m *Metadata) append(meta *types.Metadata) error {
	latest, found, err := m.latest()
	if err != nil {
		return err
	}
	if found {
		if meta.Version.Start != latest.Version.End+1 || meta.Epoch != latest.Epoch+1 {
			return ErrMetadataNotContiguous
		}
	}

	enc, err := meta.Encode()
	if err != nil {
		return err
	}
	if err := m.db.Put(epochKey(meta.Epoch), enc); err != nil {
		return err
	}
	if err := m.db.Put(startIndexKey(meta.Version.Start), epochKey(meta.Epoch)); err != nil {
		return err
	}
	return m.db.Put(latestEpochKey, epochKey(meta.Epoch))
}

func (m *Metadata) latest() (*types.Metadata, bool, error) {
	has, err := m.db.Has(latestEpochKey)
	if err != nil {
		return nil, false, err
	}
	if !has {
		return nil, false, nil
	}
	epochEnc, err := m.db.Get(latestEpochKey)
	if err != nil {
		return nil, false, err
	}
	return m.byEpochKey(epochEnc)
}

func (m *Metadata) byEpochKey(key []byte) (*types.Metadata, bool, error) {
	has, err := m.db.Has(key)
	if err != nil {
		return nil, false, err
	}
	if !has {
		return nil, false, nil
	}
	enc, err := m.db.Get(key)
	if err != nil {
		return nil, false, err
	}
	var meta types.Metadata
	if err := meta.Decode(enc); err != nil {
		return nil, false, err
	}
	return &meta, true, nil
}

// MetadataByEpoch implements precompile.MetadataSource.
func (m *Metadata) MetadataByEpoch(_ *execution.StateDB, epoch uint64) (*types.Metadata, error) {
	meta, found, err := m.byEpochKey(epochKey(epoch))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.New("syscontract: no metadata recorded for epoch")
	}
	return meta, nil
}

// MetadataByBlockNumber implements precompile.MetadataSource: it scans
// the start-index ascending and returns the last epoch whose version
// range begins at or before number, i.e. the epoch in effect at that
// height.
func (m *Metadata) MetadataByBlockNumber(_ *execution.StateDB, number uint64) (*types.Metadata, error) {
	it := m.db.NewIterator([]byte{'i'}, nil)
	defer it.Release()

	var bestEpochKey []byte
	for it.Next() {
		start := binary.BigEndian.Uint64(it.Key()[1:])
		if start > number {
			break
		}
		bestEpochKey = append([]byte{}, it.Value()...)
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	if bestEpochKey == nil {
		return nil, errors.New("syscontract: no metadata recorded for block number")
	}
	meta, found, err := m.byEpochKey(bestEpochKey)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.New("syscontract: dangling start-index pointer")
	}
	return meta, nil
}
