package tlsf

import (
	"fmt"
	"runtime"
	"unsafe"
)

// Category groups the errors tlsf can produce, in the style of the
// teacher's internal/errors.ErrorCategory.
type Category string

const (
	// CategoryContract marks a misuse of the API by the caller: a nil
	// MapFunc, an alignment mismatch, a backing source that violated its
	// own contract.
	CategoryContract Category = "CONTRACT"

	// CategoryBacking marks a failure reported by the backing source
	// itself (map returning nil).
	CategoryBacking Category = "BACKING"

	// CategoryInvariant marks a broken internal invariant found by Check.
	CategoryInvariant Category = "INVARIANT"
)

// ContractError is returned by Create and other setup-time calls when the
// caller or backing source violated their side of the contract described
// in spec section 7. It is never returned from the hot allocation path
// (Malloc/Free/Realloc/Calloc use the null-return convention there, per
// spec section 7's "Propagation" rule).
type ContractError struct {
	Category Category
	Message  string
	Caller   string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("tlsf[%s]: %s (at %s)", e.Category, e.Message, e.Caller)
}

func newError(category Category, message string) *ContractError {
	caller := "unknown"

	if pc, _, _, ok := runtime.Caller(2); ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			caller = fn.Name()
		}
	}

	return &ContractError{Category: category, Message: message, Caller: caller}
}

func newContractError(message string) *ContractError {
	return newError(CategoryContract, message)
}

// newBackingError reports a failure attributable to the backing source
// itself (a MapFunc returning nil), as opposed to a contract the caller or
// the source violated.
func newBackingError(message string) *ContractError {
	return newError(CategoryBacking, message)
}

// ErrSizeTooLarge reports a request that adjustSize could never satisfy:
// size rounds up to at or beyond blockSizeMax, the largest block the fl/sl
// index can represent. The hot Malloc/Calloc/Realloc path keeps spec
// section 7's null-return convention for this and never constructs one
// itself; MustMalloc raises it for callers that asked for a panic instead
// of a nil.
func ErrSizeTooLarge(size uintptr) *ContractError {
	return newError(CategoryContract, fmt.Sprintf(
		"requested size %d rounds up to at or beyond the maximum representable block size %d", size, blockSizeMax))
}

// ErrDoubleFree reports a pointer passed to Free that was already free.
// The hot Free path never pays for the isFree check this requires; it is
// only raised when WithCheckOnMutation is enabled, making it the debug-
// build-only diagnostic spec section 7 describes C implementations
// asserting on.
func ErrDoubleFree(ptr unsafe.Pointer) *ContractError {
	return newError(CategoryContract, fmt.Sprintf("Free called on pointer %p, which was already free", ptr))
}

// InvariantError describes one broken structural invariant found by Check.
// Spec section 7 describes a debug build that "asserts and aborts"; Check
// returns a slice of these instead so a test or a caller's own debug
// tooling can decide what to do, and MustCheck recovers the C semantics
// for callers that want it.
type InvariantError struct {
	Category  Category
	Invariant string // which spec section 3 invariant was violated.
	Detail    string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("tlsf[%s]: invariant %s violated: %s", e.Category, e.Invariant, e.Detail)
}

// ErrInvariant constructs the InvariantError Check/checkIndex/checkPools
// report for a broken invariant, always tagged CategoryInvariant.
func ErrInvariant(invariant, detail string) *InvariantError {
	return &InvariantError{Category: CategoryInvariant, Invariant: invariant, Detail: detail}
}
