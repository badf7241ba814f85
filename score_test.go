package mp4tag

import "testing"

func TestScoreIndependentTerms(t *testing.T) {
	cases := []struct {
		name   string
		header []byte
		want   int
	}{
		{"neither", []byte("riff wave"), 0},
		{"ftyp only", []byte("....ftypM4A "), 1},
		{"mp4 only, no ftyp", []byte("mp41somethingelse"), 1},
		{"both", []byte("....ftypmp42isom"), 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Score(tc.header); got != tc.want {
				t.Fatalf("Score(%q) = %d, want %d", tc.header, got, tc.want)
			}
		})
	}
}
