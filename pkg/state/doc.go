// Package state persists property snapshots between build sessions.
//
// A snapshot is a flat string map stored per Ref (domain plus scope). The
// session keeps infrastructure hints in the "hints" domain: values such as
// opensource.github.site.repo.name that were calculated once and must be
// visible to later sessions without being recalculated.
//
// Data flow:
//
//	Store -> Resolver.Resolve (strongest scope first) -> layering.MergeLayers -> system scope
//	session hints -> Resolver.Mutate (fill absent, etag checked) -> Store
//
// Ref.Identifier() is the storage key: system/<domain>, user/<domain> or
// project/<id>/<domain>.
package state
