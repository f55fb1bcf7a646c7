package workflow

import "context"

// ResolvedAddress is what an AddressResolver returns for a free-text
// address reference.
type ResolvedAddress struct {
	AddressID uint64
	Pincode   string
}

// AddressResolver resolves a user's free-text address reference ("my home
// address", "the office") to an address_id + pincode pair. User/address
// CRUD is explicitly out of scope (spec.md §1), so the workflow engine
// treats address resolution as an external collaborator rather than
// owning address storage itself.
type AddressResolver interface {
	Resolve(ctx context.Context, userRef uint64, text string) (ResolvedAddress, bool, error)
}
