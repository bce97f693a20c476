package schema

import "testing"

func TestNormalizeFormWidth(t *testing.T) {
	t.Parallel()

	cases := map[string]FormWidth{
		"100":      FormWidth100,
		"85":       FormWidth85,
		"70":       FormWidth70,
		"55":       FormWidth55,
		"40":       FormWidth40,
		"25":       FormWidth25,
		"15":       FormWidth15,
		"full":     FormWidth100,
		"half":     FormWidth55,
		"third":    FormWidth40,
		"quarter":  FormWidth25,
		"full%":    FormWidth100,
		"55%":      FormWidth55,
		" Half ":   FormWidth55,
		"":         DefaultFormWidth,
		"banana":   DefaultFormWidth,
		"0":        DefaultFormWidth,
		"quarter%": FormWidth25,
	}

	for input, want := range cases {
		if got := NormalizeFormWidth(input); got != want {
			t.Fatalf("NormalizeFormWidth(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestWidthGridSpan(t *testing.T) {
	t.Parallel()

	cases := map[Width]int{
		WidthFull:    12,
		WidthHalf:    6,
		WidthThird:   4,
		WidthQuarter: 3,
		Width(""):    12,
		Width("odd"): 12,
	}
	for width, want := range cases {
		if got := width.GridSpan(); got != want {
			t.Fatalf("GridSpan(%q) = %d, want %d", width, got, want)
		}
	}
}
