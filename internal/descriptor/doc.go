// Package descriptor derives debug formatting, equality, hashing and
// goroutine-safety facts for view types from a declared field list.
//
// A Descriptor is an ordered list of (name, accessor) pairs declared once
// per view type:
//
//	var setgidDesc = descriptor.New("EventSetgid", descriptor.ClassShareable,
//		descriptor.Fn("gid", EventSetgid.GID),
//	)
//
// Everything derived from it only ever looks at the declared projections:
//
//	Format   EventSetgid { gid: 501 }
//	Equal    pairwise over declared fields, first mismatch wins
//	Hash     xxhash64 over each field's tagged encoding, in declared order
//	Map      owned copy of the projections, safe to keep after the scope ends
//
// Padding, reserved tails and unrelated union members are never read, so
// they can never make two views unequal.
//
// The field order is part of the hash: reordering a descriptor changes the
// hash of identical content. Published orders must not change.
//
// Classification:
//
//	┌──────────────┬──────────────────────────────────────────────┐
//	│ Transferable │ may be handed to another goroutine            │
//	│ Shareable    │ may be read from several goroutines at once   │
//	└──────────────┴──────────────────────────────────────────────┘
//
// The class is declared, not inferred. New audits the view type's structure
// once, at package initialisation, and panics if the declaration claims more
// than the structure allows.
package descriptor
