package mp4tag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextTagRoundTrip(t *testing.T) {
	cases := []struct {
		key   string
		value TextValue
	}{
		{"\xa9nam", "Bohemian Rhapsody"},
		{"\xa9ART", "Queen"},
		{"\xa9alb", "A Night at the Opera"},
	}
	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			tags := TagMap{tc.key: {tc.value}}
			rendered, err := RenderTags(tags)
			require.NoError(t, err)

			roundTripped := parseIlstPayload(t, rendered)
			require.Len(t, roundTripped[tc.key], 1)
			assert.Equal(t, tc.value, roundTripped[tc.key][0])
		})
	}
}

func TestIntPairRoundTrip(t *testing.T) {
	tags := TagMap{
		"trkn": {IntPair{Index: 3, Total: 12}},
		"disk": {IntPair{Index: 1, Total: 2}},
	}
	rendered, err := RenderTags(tags)
	require.NoError(t, err)

	got := parseIlstPayload(t, rendered)
	assert.Equal(t, IntPair{Index: 3, Total: 12}, got["trkn"][0])
	assert.Equal(t, IntPair{Index: 1, Total: 2}, got["disk"][0])
}

func TestTempoAndBoolRoundTrip(t *testing.T) {
	tags := TagMap{
		"tmpo": {Tempo(128)},
		"cpil": {Bool(true)},
		"pgap": {Bool(false)},
	}
	rendered, err := RenderTags(tags)
	require.NoError(t, err)

	got := parseIlstPayload(t, rendered)
	assert.Equal(t, Tempo(128), got["tmpo"][0])
	assert.Equal(t, Bool(true), got["cpil"][0])
	assert.Equal(t, Bool(false), got["pgap"][0])
}

func TestFreeformRoundTrip(t *testing.T) {
	ff := Freeform{Mean: "com.apple.iTunes", Name: "iTunNORM", Data: []byte("hello"), Flags: flagsUTF8}
	key := "----:com.apple.iTunes:iTunNORM"
	tags := TagMap{key: {ff}}

	rendered, err := RenderTags(tags)
	require.NoError(t, err)

	got := parseIlstPayload(t, rendered)
	require.Len(t, got[key], 1)
	assert.Equal(t, ff, got[key][0])
}

func TestCoverRoundTrip(t *testing.T) {
	tags := TagMap{"covr": {Cover{Format: CoverFormatPNG, Data: []byte{0x89, 'P', 'N', 'G'}}}}
	rendered, err := RenderTags(tags)
	require.NoError(t, err)

	got := parseIlstPayload(t, rendered)
	require.Len(t, got["covr"], 1)
	cover := got["covr"][0].(Cover)
	assert.Equal(t, CoverFormatPNG, cover.Format)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, cover.Data)
}

func TestLegacyGenreFallback(t *testing.T) {
	payload := buildBox("gnre", buildDataAtom(flagsBinary, []byte{0, 16})) // stored index 16 -> "Rap"
	got, err := parseTagsFromPayload(t, payload)
	require.NoError(t, err)
	require.Len(t, got["\xa9gen"], 1)
	assert.Equal(t, TextValue("Rap"), got["\xa9gen"][0])
}

func TestGnreNeverRendered(t *testing.T) {
	tags := TagMap{"gnre": {TextValue("Rap")}}
	rendered, err := RenderTags(tags)
	require.NoError(t, err)
	assert.Empty(t, rendered, "gnre must never be written back")
}

func TestUnsupportedDataAtomVersion(t *testing.T) {
	body := make([]byte, 8) // version+flags(4) + reserved(4), no value
	body[0] = 1              // unsupported version
	dataAtom := buildBox("data", body)
	payload := buildBox("\xa9nam", dataAtom)
	_, err := parseTagsFromPayload(t, payload)
	require.Error(t, err)
	var verr *UnsupportedVersionError
	require.ErrorAs(t, err, &verr)
}

func TestUnexpectedAtomInTagData(t *testing.T) {
	bogus := buildBox("widt", []byte{0, 0, 0, 1})
	payload := buildBox("\xa9nam", bogus)
	_, err := parseTagsFromPayload(t, payload)
	require.Error(t, err)
	var uerr *UnexpectedAtomError
	require.ErrorAs(t, err, &uerr)
}

func TestFreeformUnexpectedAtom(t *testing.T) {
	mean := buildBox("mean", append([]byte{0, 0, 0, 0}, []byte("com.apple.iTunes")...))
	name := buildBox("name", append([]byte{0, 0, 0, 0}, []byte("iTunNORM")...))
	bogus := buildBox("widt", []byte{0, 0, 0, 1})
	payload := buildBox("----", append(append(mean, name...), bogus...))
	_, err := parseTagsFromPayload(t, payload)
	require.Error(t, err)
	var uerr *UnexpectedAtomError
	require.ErrorAs(t, err, &uerr)
}

func TestBoolAndTempoUseReservedFlags(t *testing.T) {
	boolAtom, err := renderBool([]Value{Bool(true)})
	require.NoError(t, err)
	// A rendered data atom is [size:4]["data":4][version+flags:4][reserved:4]...;
	// the low byte of the flags word sits at index 11.
	require.True(t, len(boolAtom) > 11)
	assert.Equal(t, byte(flagsBoolTempo), boolAtom[11])

	tempoAtom, err := renderTempo([]Value{Tempo(120)})
	require.NoError(t, err)
	require.True(t, len(tempoAtom) > 11)
	assert.Equal(t, byte(flagsBoolTempo), tempoAtom[11])
}

func TestTagRenderOrderMatchesFixedPreference(t *testing.T) {
	tags := TagMap{
		"\xa9lyr":                      {TextValue("la la la")},
		"covr":                         {Cover{Format: CoverFormatPNG, Data: []byte{1}}},
		"----:com.apple.iTunes:iTunNORM": {Freeform{Mean: "com.apple.iTunes", Name: "iTunNORM", Data: []byte{0}}},
		"tmpo":                         {Tempo(100)},
		"\xa9nam":                      {TextValue("Title")},
		"catg":                         {TextValue("Fiction")}, // not on the fixed list
	}
	rendered, err := RenderTags(tags)
	require.NoError(t, err)

	got, err := parseTagsFromPayload(t, rendered)
	require.NoError(t, err)
	for _, key := range []string{"\xa9nam", "tmpo", "----:com.apple.iTunes:iTunNORM", "covr", "\xa9lyr", "catg"} {
		require.Contains(t, got, key)
	}

	order := sortedTagKeys(tags)
	index := make(map[string]int, len(order))
	for i, k := range order {
		index[k] = i
	}
	// Fixed-order keys must appear in their iTunes relevance order...
	assert.Less(t, index["\xa9nam"], index["tmpo"])
	assert.Less(t, index["tmpo"], index["----:com.apple.iTunes:iTunNORM"])
	assert.Less(t, index["----:com.apple.iTunes:iTunNORM"], index["covr"])
	assert.Less(t, index["covr"], index["\xa9lyr"])
	// ...and an off-list key (catg) sorts after every fixed-order key.
	assert.Greater(t, index["catg"], index["\xa9lyr"])
}

// parseIlstPayload renders an ilst payload round trip through the on-disk
// tag parser, using an in-memory synthetic box tree built the same way
// tree_test.go does.
func parseIlstPayload(t *testing.T, payload []byte) TagMap {
	t.Helper()
	tags, err := parseTagsFromPayload(t, payload)
	require.NoError(t, err)
	return tags
}

func parseTagsFromPayload(t *testing.T, ilstPayload []byte) (TagMap, error) {
	t.Helper()
	ilst := buildBox("ilst", ilstPayload)
	meta := append([]byte{0, 0, 0, 0}, ilst...)
	metaBox := buildBox("meta", meta)
	udta := buildBox("udta", metaBox)
	moov := buildBox("moov", udta)

	path := tempFile(t, moov)
	c, err := Open(path)
	require.NoError(t, err)
	defer c.Close()

	tree, err := Parse(c)
	require.NoError(t, err)

	return ParseTags(c, tree)
}
