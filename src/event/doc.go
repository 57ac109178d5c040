// Package event defines the immutable, signed records relays serve and the
// filters used to request them.
//
// An Event's ID is the SHA256 of its canonical serialization
//
//	[0, pubkey, created_at, kind, tags, content]
//
// so two events with the same ID are the same logical record no matter which
// relay delivered them. Verify recomputes the ID and checks the author's
// BIP-340 signature over it. Relays are not trusted to filter correctly, so a
// Filter is also used locally, through Matches, to re-check what they send.
package event
