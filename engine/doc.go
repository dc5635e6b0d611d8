// Package engine assembles the sync core into one runnable unit: log,
// notifier, stores, connection cache and resolver, wired so that every
// store write wakes the long polls watching it.
package engine
