// Package mp4tag reads and rewrites iTunes-style tag atoms in ISO Base
// Media Format files (M4A/M4B/M4P/MP4).
package mp4tag

// BoxType is a 4-byte box type identifier (FourCC).
type BoxType [4]byte

func (t BoxType) String() string {
	return string(t[:])
}

func newBoxType(s string) BoxType {
	var t BoxType
	copy(t[:], s)
	return t
}

// Structural boxes this engine needs to recognize by name while walking
// the tree toward ilst or a soun track.
var (
	typeFtyp = newBoxType("ftyp")
	typeMoov = newBoxType("moov")
	typeMvhd = newBoxType("mvhd")
	typeTrak = newBoxType("trak")
	typeMdia = newBoxType("mdia")
	typeMdhd = newBoxType("mdhd")
	typeHdlr = newBoxType("hdlr")
	typeMinf = newBoxType("minf")
	typeStbl = newBoxType("stbl")
	typeStsd = newBoxType("stsd")
	typeMp4a = newBoxType("mp4a")
	typeEsds = newBoxType("esds")
	typeUdta = newBoxType("udta")
	typeMeta = newBoxType("meta")
	typeIlst = newBoxType("ilst")
	typeFree = newBoxType("free")
	typeMdat = newBoxType("mdat")
	typeStco = newBoxType("stco")
	typeCo64 = newBoxType("co64")
	typeMoof = newBoxType("moof")
	typeTraf = newBoxType("traf")
	typeTfhd = newBoxType("tfhd")

	// tag atoms
	typeData = newBoxType("data")
	typeMean = newBoxType("mean")
	typeName = newBoxType("name")
	typeFreeform = newBoxType("----")
	typeTrkn = newBoxType("trkn")
	typeDisk = newBoxType("disk")
	typeTmpo = newBoxType("tmpo")
	typeCovr = newBoxType("covr")
	typeGnre = newBoxType("gnre")
	typeGen  = newBoxType("\xa9gen")
)

// containerTypes holds the box types that always contain child boxes and
// must be parsed recursively.
var containerTypes = map[BoxType]bool{
	typeMoov: true,
	typeUdta: true,
	typeTrak: true,
	typeMdia: true,
	typeMeta: true,
	typeIlst: true,
	typeStbl: true,
	typeMinf: true,
	typeMoof: true,
	typeTraf: true,
	// stsd and mp4a are not containers in the structural sense (they
	// carry fixed-format fields of their own), but streaminfo needs to
	// descend through them to reach esds, so they are walked the same
	// way, each with its own fixed-prefix length below.
	typeStsd: true,
	typeMp4a: true,
}

// versionPrefixLen returns the number of bytes to skip before a
// container's children begin, beyond the standard 8/16-byte box header.
func versionPrefixLen(t BoxType) int {
	switch t {
	case typeMeta:
		// 4-byte version+flags field, a historical wart inherited from
		// being declared a full box despite acting as a plain container.
		return 4
	case typeStsd:
		return 8 // version+flags(4) + entry_count(4)
	case typeMp4a:
		return 28 // fixed audio sample entry fields preceding esds
	}
	return 0
}

func isContainer(t BoxType) bool {
	return containerTypes[t]
}
