// Package relays manages the list of relays relayfold connects to.
//
// Relays are identified by their normalized URL, so different spellings of
// the same endpoint collapse into one entry. Upon starting up, relayfold
// looks for a relays.json file in its data directory and merges its content
// with the relays given on the command line. The file is meant to be edited
// by hand:
//
//	[
//		{"url": "wss://relay.example.com", "read": true, "write": false}
//	]
package relays
