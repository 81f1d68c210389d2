package mmrblobs

import "fmt"

const (
	V1MMRPrefix                    = "v1/mmrs"
	V1MMRBundleBlobNameFmt         = "%016d.bundle"
	V1MMRSignedTreeHeadBlobNameFmt = "%016d.sth"
	V1MMSealSignedRoot             = "sth" // Signed Tree Head
)

// DataTrails specifics of managing MMR bundles in azure blob storage

func TenantBundlePrefix(tenantIdentity string) string {
	return fmt.Sprintf(
		"%s/%s/bundles/", V1MMRPrefix, tenantIdentity,
	)
}

// TenantSignedRootsPrefix returns the blob path for the log operator seals.
// The signatures and proofs necessary to associate the operator with the log
// and attest to its good operation.
func TenantSignedRootsPrefix(tenantIdentity string) string {
	return fmt.Sprintf(
		"%s/%s/signedroots/", V1MMRPrefix, tenantIdentity,
	)
}

// TenantBundleBlobPath returns the appropriate blob path for the blob
//
// The returned string forms a relative resource name with a versioned resource
// prefix of 'v1/mmrs/{tenant-identity}/bundles'
//
// Because azure blob names and tags sort and compare only *lexically*, the
// number is represented in that path as a 16 digit, zero padded decimal
// string.
func TenantBundleBlobPath(tenantIdentity string, number uint64) string {
	return fmt.Sprintf(
		"%s%s", TenantBundlePrefix(tenantIdentity), fmt.Sprintf(V1MMRBundleBlobNameFmt, number),
	)
}

// TenantSignedRootPath returns the appropriate blob path for the blob
// root seal
//
// The returned string forms a relative resource name with a versioned resource
// prefix of 'v1/mmrs/{tenant-identity}/signedroots/'
//
// Because azure blob names and tags sort and compare only *lexically*, the
// number is represented in that path as a 16 digit, zero padded decimal
// string.
func TenantSignedRootPath(tenantIdentity string, number uint64) string {
	return fmt.Sprintf(
		"%s%s.%s",
		TenantSignedRootsPrefix(tenantIdentity),
		fmt.Sprintf(V1MMRSignedTreeHeadBlobNameFmt, number),
		V1MMSealSignedRoot,
	)
}
