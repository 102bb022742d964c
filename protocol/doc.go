// Package protocol implements the hioload-tcp wire format.
//
// Every message is a frame: a 4-byte big-endian unsigned payload length N
// followed by N raw bytes. Heartbeats are ordinary frames carrying the
// literal bytes "HEARTBEAT".
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package protocol
