/*
Package client serializes all access to the ledger engine.

The engine holds mutable state that must never be touched by two operations
at once. Start constructs it on a dedicated goroutine, locked to its OS
thread, and runs a loop that takes commands off a bounded queue one at a
time. Each command carries its own single use reply channel.

Handle is the front end. It is a small value that may be copied and used by
any number of goroutines. Every method enqueues one command and waits for
its reply. A full queue blocks the caller until space frees up.

A caller that gives up waiting does not cancel the command. It still runs to
completion and its result is dropped.
*/
package client
