package archive

import (
	"time"

	"github.com/stcorp/muninn/internal/properties"
	"github.com/stcorp/muninn/internal/storage"
)

// IngestRequest carries the caller-supplied side of an ingest (spec
// §4.8's Ingest algorithm).
type IngestRequest struct {
	// Paths are the source file(s) to move/copy/symlink into storage.
	// More than one path means a multi-part product.
	Paths []string

	// ProductType is caller-supplied; if empty, the registry's
	// IdentifyProductType selects the first plug-in whose Identify
	// matches Paths.
	ProductType string

	// ProductName must uniquely identify the product within ProductType.
	ProductName string

	// Properties are caller-supplied properties; if nil, the product
	// type plugin's Analyze is invoked on Paths instead.
	Properties *properties.Container

	UseSymlinks bool
	VerifyHash  bool
	// Force skips the default conflict check against a stale, still
	// reserved (active=false) row left by a prior failed ingest
	// targeting the same (product_type, product_name), clearing it
	// before reserving the slot again.
	Force bool

	ValidityStart *time.Time
	ValidityStop  *time.Time
	CreationDate  *time.Time
}

// AttachRequest carries the caller-supplied side of Attach: binding an
// existing catalogue row (with no bytes yet) to bytes already sitting
// outside the archive.
type AttachRequest struct {
	ProductType string
	// PhysicalName and ArchivePath together locate both the existing
	// catalogue row (by product_type, physical_name) and the storage slot
	// the incoming bytes are written to.
	PhysicalName string
	ArchivePath  string
	Paths        []string
	UseSymlinks  bool
	VerifyHash   bool
	// Force skips the default size-equality check between Paths and the
	// row's recorded size.
	Force bool
}

// RetrieveResult is what Retrieve/Export return: the paths written into
// the caller's target directory.
type RetrieveResult struct {
	Paths []string
}

// hashAlgorithmFor maps a product type's configured hash_type string to
// the storage package's enum, with "" meaning hashing is disabled.
func hashAlgorithmFor(hashType string) (storage.HashAlgorithm, bool) {
	switch hashType {
	case "", "none":
		return "", false
	case "md5":
		return storage.HashMD5, true
	case "sha1":
		return storage.HashSHA1, true
	case "sha256":
		return storage.HashSHA256, true
	default:
		return "", false
	}
}
