package repro

import (
	"encoding/binary"
	"time"
)

// Extra-field header IDs dropped from every entry. The three timestamp
// records take precedence over the DOS fields in most readers, so they
// have to go for the DOS rewrite to be authoritative. The zip64 record
// is regenerated by the writer from the actual sizes; a stale copy
// would be emitted twice.
const (
	// extTimeTag is the extended timestamp field ("UT"), Unix seconds.
	extTimeTag = 0x5455
	// ntfsTimeTag carries NTFS 100ns timestamps.
	ntfsTimeTag = 0x000a
	// unixTimeTag is the old Info-ZIP Unix field with atime and mtime.
	unixTimeTag = 0x5855
	// zip64Tag holds 64-bit sizes for large entries.
	zip64Tag = 0x0001
)

// wallClockUTC reinterprets the wall-clock reading of t as a UTC
// instant. 2000-01-01 00:00 in any zone becomes 2000-01-01 00:00 UTC,
// which keeps outputs identical across machines in different zones.
func wallClockUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

// dosRepresentable reports whether t fits the MS-DOS date range
// (1980-01-01 through 2107-12-31).
func dosRepresentable(t time.Time) bool {
	y := t.Year()
	return y >= 1980 && y <= 2107
}

// timeToDOS encodes the wall-clock reading of t as MS-DOS date and time
// words. Seconds round down to the two-second resolution of the format.
func timeToDOS(t time.Time) (dosDate, dosTime uint16) {
	dosDate = uint16(t.Day() | int(t.Month())<<5 | (t.Year()-1980)<<9)
	dosTime = uint16(t.Second()/2 | t.Minute()<<5 | t.Hour()<<11)
	return dosDate, dosTime
}

// scrubExtra removes timestamp and zip64 records from a ZIP extra
// field, preserving every other record byte for byte. An unparseable
// tail (fewer bytes than its record header declares) is dropped. The
// input slice is not modified.
func scrubExtra(extra []byte) []byte {
	if len(extra) == 0 {
		return extra
	}

	out := make([]byte, 0, len(extra))
	for len(extra) >= 4 {
		tag := binary.LittleEndian.Uint16(extra[0:2])
		size := int(binary.LittleEndian.Uint16(extra[2:4]))
		if len(extra) < 4+size {
			break
		}
		switch tag {
		case extTimeTag, ntfsTimeTag, unixTimeTag, zip64Tag:
		default:
			out = append(out, extra[:4+size]...)
		}
		extra = extra[4+size:]
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
