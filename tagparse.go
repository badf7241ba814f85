package mp4tag

func parseText(atoms []dataAtom) ([]Value, error) {
	values := make([]Value, 0, len(atoms))
	for _, a := range atoms {
		values = append(values, TextValue(a.value))
	}
	return values, nil
}

func parseBytes(atoms []dataAtom) ([]Value, error) {
	values := make([]Value, 0, len(atoms))
	for _, a := range atoms {
		values = append(values, ByteValue(append([]byte(nil), a.value...)))
	}
	return values, nil
}

func parseBool(atoms []dataAtom) ([]Value, error) {
	values := make([]Value, 0, len(atoms))
	for _, a := range atoms {
		if len(a.value) < 1 {
			return nil, &InvalidValueError{Reason: "bool tag atom has no payload"}
		}
		values = append(values, Bool(a.value[0] != 0))
	}
	return values, nil
}

// parseIntPair parses an 8-byte trkn-style value:
// [reserved:2][index:2][total:2][reserved:2].
func parseIntPair(atoms []dataAtom) ([]Value, error) {
	values := make([]Value, 0, len(atoms))
	for _, a := range atoms {
		if len(a.value) < 6 {
			return nil, &InvalidValueError{Reason: "trkn/disk atom too short"}
		}
		values = append(values, IntPair{
			Index: int(be.Uint16(a.value[2:4])),
			Total: int(be.Uint16(a.value[4:6])),
		})
	}
	return values, nil
}

// parseIntPairShort is the same layout; disk and trkn share the field
// positions, disk simply omits the trailing reserved pair.
func parseIntPairShort(atoms []dataAtom) ([]Value, error) {
	return parseIntPair(atoms)
}

func parseTempo(atoms []dataAtom) ([]Value, error) {
	values := make([]Value, 0, len(atoms))
	for _, a := range atoms {
		if len(a.value) < 2 {
			return nil, &InvalidValueError{Reason: "tmpo atom too short"}
		}
		values = append(values, Tempo(be.Uint16(a.value[0:2])))
	}
	return values, nil
}

func parseCover(atoms []dataAtom) ([]Value, error) {
	values := make([]Value, 0, len(atoms))
	for _, a := range atoms {
		format := CoverFormatJPEG
		if a.flags == flagsPNG {
			format = CoverFormatPNG
		}
		values = append(values, Cover{Format: format, Data: append([]byte(nil), a.value...)})
	}
	return values, nil
}

// parseGnre translates the legacy ID3v1 genre index atom into the same
// text value a ©gen atom would carry. It is read-only: gnre is never
// written back, only ©gen is, per the format's own deprecation of gnre.
func parseGnre(atoms []dataAtom) ([]Value, error) {
	values := make([]Value, 0, len(atoms))
	for _, a := range atoms {
		if len(a.value) < 2 {
			return nil, &InvalidValueError{Reason: "gnre atom too short"}
		}
		index := int(be.Uint16(a.value[0:2]))
		name, ok := genreName(index)
		if !ok {
			continue // unknown legacy index: skip rather than fail the whole load
		}
		values = append(values, TextValue(name))
	}
	return values, nil
}

// parseFreeform decodes a "----" atom's mean/name/data children into a
// "----:mean:name" keyed Freeform value.
func parseFreeform(payload []byte) (string, Value, error) {
	children, err := parseSubBoxes(payload, typeFreeform)
	if err != nil {
		return "", nil, err
	}
	mean, name, err := freeformLabels(children)
	if err != nil {
		return "", nil, err
	}

	dataBody := children[typeData]
	if len(dataBody) < 8 {
		return "", nil, &InvalidValueError{Reason: "freeform data atom too short"}
	}
	if dataBody[0] != 0 {
		return "", nil, &UnsupportedVersionError{Version: dataBody[0]}
	}
	flags := be.Uint32(dataBody[0:4]) &^ 0xFF000000

	key := "----:" + mean + ":" + name
	return key, Freeform{Mean: mean, Name: name, Data: append([]byte(nil), dataBody[8:]...), Flags: flags}, nil
}

// freeformLabels reads the mean/name sub-atoms' bodies: a 4-byte
// version+flags field (no reserved field, unlike a data atom) followed
// by the literal string.
func freeformLabels(children map[BoxType][]byte) (mean, name string, err error) {
	meanBody := children[typeMean]
	nameBody := children[typeName]
	if len(meanBody) < 4 || len(nameBody) < 4 {
		return "", "", &InvalidValueError{Reason: "freeform atom missing mean or name"}
	}
	return string(meanBody[4:]), string(nameBody[4:]), nil
}
