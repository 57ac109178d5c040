// Package relay implements the subscription transport over websockets.
//
// A Pool keeps at most one connection per relay URL and shares it between
// every executor that targets that relay. Connections are reference
// counted: the first executor to need a relay dials it, and the connection
// is closed once the last executor using it is cleaned up. A relay that
// cannot be reached, or that drops the connection, simply never answers;
// subscriptions rely on their timeout in that case.
//
// The wire protocol is the NIP-01 client protocol:
//
//	client -> relay: ["REQ", <sub id>, <filter>...], ["CLOSE", <sub id>]
//	relay -> client: ["EVENT", <sub id>, <event>], ["EOSE", <sub id>],
//	                 ["NOTICE", <message>], ["CLOSED", <sub id>, <message>]
package relay
