// Package cache stores pipeline results on disk so unchanged documents are
// not edited twice.
//
// Entries are JSON files named by the SHA-256 of their key and live in the
// user cache directory (XDG_CACHE_HOME, ~/Library/Caches or %LOCALAPPDATA%)
// unless a directory is configured. Entries older than the TTL are treated as
// misses and removed on read.
package cache
