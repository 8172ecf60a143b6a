package ledger

import "github.com/jathurchan/namereg/types"

const (
	// DefaultRegistryAccount is the account that holds rent and escrow on behalf of the registry.
	DefaultRegistryAccount types.Address = "registry"

	// ownRWOthR is the permission mode for journal files.
	ownRWOthR = 0644

	// ownRWXOthRX is the permission mode for journal directories.
	ownRWXOthRX = 0755

	// frameHeaderSize is the length prefix plus the CRC32C checksum of a file journal frame.
	frameHeaderSize = 8

	// maxEntrySizeBytes bounds a single encoded journal entry.
	maxEntrySizeBytes = 16 * 1024 * 1024
)
