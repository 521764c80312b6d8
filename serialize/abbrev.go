package serialize

// Abbreviation codes are partitioned into two ranges so AST-level and
// IR-level record tags can share one code space without collision
// (spec.md §4.7 "code ranges are partitioned so AST-shared codes never
// collide with IR-specific codes"). This package only ever emits
// IR-specific codes; astCodeBase is reserved and documented here so a
// future AST-level serializer (out of this package's scope) has
// somewhere to start.
const (
	astCodeBase = 0
	irCodeBase  = 64
)
