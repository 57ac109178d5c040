// Package keys implements the public key cryptography used to authenticate
// relay events.
//
// Every event is signed by its author with a secp256k1 key. Public keys are
// shared in their 32-byte x-only form (BIP-340) and hex encoded; signatures
// are 64-byte Schnorr signatures over the event id. The session user of a
// relayfold process may also own a private key, stored in the data directory,
// which is used to decrypt the user's own application data.
package keys
