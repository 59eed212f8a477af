// Package protocol turns inbound stream frames into score mutations.
//
// Ownership boundary:
// - frame dispatch (ping/pong, open handshake, namespace connect)
// - event name + payload decode into typed updates
// - applying updates to the shared score state
//
// Decoding is two stage: frame.Decode splits the envelope and reads the event
// name from its fixed position, then Decode maps the payload onto one update
// variant. Nothing here searches the raw bytes for substrings.
package protocol
