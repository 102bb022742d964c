// Package session
// Author: momentics <momentics@gmail.com>
//
// Registry of live sessions keyed by identity. Used by the server to track
// accepted connections and to enumerate them during shutdown.

package session
