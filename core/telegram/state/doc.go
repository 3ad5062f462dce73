// Package state keeps per-user conversation sessions for Telegram bots.
//
// Sessions live in a Store (process memory or Redis). All read-modify-write
// access goes through Manager.Transact, which serializes work per user while
// leaving different users fully concurrent. The package knows nothing about
// the states a bot defines; Steps maps them to handlers.
package state
