package seglog

import intstorage "github.com/seglog/seglog/internal/storage"

// Backend provides access to a flat namespace of append-only objects. One
// backend instance corresponds to one log directory. Implement it to run the
// log on a storage target of your own.
type Backend = intstorage.Backend

// Handle provides access to a single object of a backend.
type Handle = intstorage.Handle

// Truncater is an optional capability of a Handle which allows the recovery
// scanner to discard a damaged tail in place.
type Truncater = intstorage.Truncater

// Disk is a Backend storing every object as a file in a single directory on
// the local filesystem.
type Disk = intstorage.Disk

// NewDisk returns a disk backend rooted at the given directory.
var NewDisk = intstorage.NewDisk

// Memory is a Backend keeping all objects in memory, able to simulate a
// crash by dropping every byte which was never synced.
type Memory = intstorage.Memory

// NewMemory returns an empty in-memory backend.
var NewMemory = intstorage.NewMemory
