package schema

import "strings"

// FormWidth is the overall width of the rendered form, as a percentage code.
type FormWidth string

const (
	FormWidth100 FormWidth = "100"
	FormWidth85  FormWidth = "85"
	FormWidth70  FormWidth = "70"
	FormWidth55  FormWidth = "55"
	FormWidth40  FormWidth = "40"
	FormWidth25  FormWidth = "25"
	FormWidth15  FormWidth = "15"
)

// DefaultFormWidth is used when a stored width token is unrecognised.
const DefaultFormWidth = FormWidth55

// NormalizeFormWidth maps a stored width token onto the canonical percentage
// codes. It accepts the canonical numeric strings, their %-suffixed forms and
// the legacy vocabulary older documents carry (full/half/third/quarter).
func NormalizeFormWidth(value string) FormWidth {
	token := strings.ToLower(strings.TrimSpace(value))
	token = strings.TrimSuffix(token, "%")

	switch token {
	case "100", "85", "70", "55", "40", "25", "15":
		return FormWidth(token)
	case "full":
		return FormWidth100
	case "half":
		return FormWidth55
	case "third":
		return FormWidth40
	case "quarter":
		return FormWidth25
	}
	return DefaultFormWidth
}

// GridSpan converts a field width fraction into a 12-column grid span.
// Unknown or empty widths take the whole row.
func (w Width) GridSpan() int {
	switch w {
	case WidthHalf:
		return 6
	case WidthThird:
		return 4
	case WidthQuarter:
		return 3
	case WidthFull:
		return 12
	}
	return 12
}
