// Package notes implements the local durable store for synchronized notes.
//
// The store holds exactly one record per (owner, id) pair. Writes are full
// upserts: the caller always supplies the complete note, and the previous
// row is overwritten in its entirety. There is no implied ordering on reads.
package notes
