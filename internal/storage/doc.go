// Package storage provides a minimal persistence layer for the selection
// audit trail: which post was served, when, from where, and how large
// the candidate pool was. It exists for after-the-fact analysis; the
// engine works fine with storage disabled.
package storage
