// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Concurrency primitives shared by hioload-tcp components. The Executor is a
// bounded worker pool for work that must not run on an event loop.
package concurrency
