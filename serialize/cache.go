package serialize

import "github.com/silcore/compiler/ir"

// entityState tracks how much of a lazily-deserialized entity has been
// turned into real Go values so far (spec.md §4.7's "lazy per-decl-id
// deserialization").
//
// A function has three states because its declaration (signature,
// linkage, flags, generic parameters — cheap, and needed by anything
// that merely references the function) and its body (blocks and
// instructions — the expensive part, and not every reference needs it)
// genuinely differ in cost. Globals, vtables and witness tables have no
// comparable split: nothing about them is deferred once the record is
// read, so they only need two states.
type entityState int

const (
	stateUnread entityState = iota
	stateDeclared           // functions only: signature/linkage/flags resident, body bytes still unparsed
	stateResident
)

type funcCacheEntry struct {
	state     entityState
	offset    int64
	fn        *ir.Function
	bodyBytes []byte // valid only in stateDeclared; consumed and cleared on promotion to stateResident
}

type globalCacheEntry struct {
	state  entityState
	offset int64
	g      *ir.Global
}

type vtableCacheEntry struct {
	state  entityState
	offset int64
	vt     *ir.VTable
}

type witnessCacheEntry struct {
	state  entityState
	offset int64
	wt     *ir.WitnessTable
}
