package repro

import "strings"

// Names pinned to the front of every stripped archive. The JAR tooling
// convention is that the manifest comes first so it can be read without
// scanning the whole file.
const (
	manifestPath   = "META-INF/MANIFEST.MF"
	metaInfDirPath = "META-INF/"
)

// entryRank buckets an entry name for canonical ordering:
// the manifest first, the META-INF directory entry second,
// everything else after.
func entryRank(name string) int {
	switch name {
	case manifestPath:
		return 0
	case metaInfDirPath:
		return 1
	default:
		return 2
	}
}

// compareEntryNames is the canonical order for archive entries. Outside
// the two pinned names it is a plain ordinal comparison, independent of
// locale and environment.
func compareEntryNames(a, b string) int {
	ra, rb := entryRank(a), entryRank(b)
	if ra < rb {
		return -1
	}
	if ra > rb {
		return 1
	}
	return strings.Compare(a, b)
}
