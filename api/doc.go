// Package api defines the shared contracts of hioload-tcp: sentinel errors,
// the Executor and Control interfaces, and session state types.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package api
