package chain

import "strings"

// errIsNotFound recognizes the various "missing key" sentinels the
// ethdb.KeyValueStore implementations in the corpus return
// (goleveldb's leveldb.ErrNotFound, memorydb's identically-worded
// error) without importing either concrete backend here.
func errIsNotFound(err error) bool {
	return strings.Contains(err.Error(), "not found")
}
