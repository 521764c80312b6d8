// Package config holds the pass-driver options recognized by spec.md §6.
// No package in this module imports it: passmgr.New takes its own
// passmgr.Options and the serializer its own serialize.Options.
package config

// Options configures the pass manager and serializer.
type Options struct {
	// SerializeAll bypasses the body-emission heuristic in §4.7: every
	// function body is emitted regardless of linkage or transparency.
	SerializeAll bool

	// VerifyAll runs the IR verifier after every pass.
	VerifyAll bool

	// PrintAll dumps IR after every pass (via the out-of-scope textual
	// printer).
	PrintAll bool

	// TimeTransforms selects per-pass wall-time reporting. No code reads
	// it (passmgr.Options carries the field, but Manager ignores it), so
	// no timing is emitted.
	TimeTransforms bool

	// NumOptPassesToRun is a hard pass-count cap applied once the module
	// has reached canonical stage (§4.4 step 5).
	NumOptPassesToRun uint

	// PrivateDiscriminators selects file-local shadowing rules in
	// redeclaration checking. No code reads it; sema's
	// CheckRedeclarations has no file-local rules.
	PrivateDiscriminators bool
}

// Default returns the zero-valued, most conservative option set.
func Default() Options { return Options{} }
