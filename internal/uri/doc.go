// Package uri implements the typed, round-trip-safe templates over the
// object storage keys that carry arclot state.
//
// Three families are supported, each rendered through internal/naming:
//
//	{store}/arcs/name={project}/version={version}/arc={arc}/lot={lot}/{state}.arc
//	{store}/datasets/name={dataset}/version={version}/lot={lot}/{state}[/attempt={attempt}]/manifest.json
//	{store}/{kind}/name={name}/version={version}/{kind}.json
//
// # Path and Identifier Modes
//
// A value whose terminal field (state, or version for metadata) is unset is
// a path. Paths render with a trailing "/" and are the only valid listing
// prefixes. Values with the terminal field set are identifiers and address
// exactly one object.
//
// # Round Trip
//
// For every fully populated value u:
//
//	ref, _ := u.URI()
//	ParseXxx(ref.String()) == u
//
// Parse never fails. Segments shaped like a template placeholder ("{lot}")
// parse as absent fields so that a template string can never masquerade as
// real coordinates.
package uri
