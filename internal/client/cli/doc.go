// Package cli provides the interactive Inkpad command-line client.
//
// It wires configuration, the local store, the remote adapter, the
// connectivity monitor and the sync engine into an interactive REPL that
// works online and offline. Typical flow: open the local database, start a
// background connectivity watcher and the remote change feed, and execute
// user commands.
//
// Key features:
//   - Add / Edit / Delete notes, durable whether or not the server is up
//   - List / Show notes
//   - Sync on demand, plus automatic sync on reconnect
//   - Status: connectivity, queue depth and last sync time
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
