package features

import "strconv"

// Widget is the input control a field is edited with
type Widget string

const (
	WidgetSlider Widget = "slider"
	WidgetNumber Widget = "number"
	WidgetSelect Widget = "select"
)

// Option is one choice of a select field
type Option struct {
	Value float64 `json:"value"`
	Label string  `json:"label"`
}

// Field describes how one attribute is presented and edited
type Field struct {
	Key     Key      `json:"key"`
	Label   string   `json:"label"`
	Tooltip string   `json:"tooltip"`
	Widget  Widget   `json:"widget"`
	Min     float64  `json:"min"`
	Max     float64  `json:"max,omitempty"`
	Step    float64  `json:"step,omitempty"`
	Options []Option `json:"options,omitempty"`
}

// rangeOptions returns the integer choices 0..n-1
func rangeOptions(n int) []Option {
	opts := make([]Option, n)
	for i := range opts {
		opts[i] = Option{Value: float64(i), Label: strconv.Itoa(i)}
	}
	return opts
}

var fields = []Field{
	{Key: CRIM, Label: "Crime Rate", Tooltip: "Per capita crime rate by town", Widget: WidgetSlider, Max: 100, Step: 0.1},
	{Key: NOX, Label: "NOx Concentration", Tooltip: "Nitric oxide concentration (parts per 10 million)", Widget: WidgetSlider, Max: 1, Step: 0.01},
	{Key: TAX, Label: "Property Tax", Tooltip: "Full-value property-tax rate per $10,000", Widget: WidgetSlider, Max: 700, Step: 0.1},
	{Key: PTRATIO, Label: "Pupil-Teacher Ratio", Tooltip: "Pupil-teacher ratio by town", Widget: WidgetSlider, Max: 25, Step: 0.1},
	{Key: B, Label: "Black Population", Tooltip: "1000(Bk - 0.63)^2 where Bk is the proportion of blacks by town", Widget: WidgetSlider, Max: 400, Step: 0.1},
	{Key: LSTAT, Label: "Lower Status %", Tooltip: "Percentage of lower status population", Widget: WidgetSlider, Max: 40, Step: 0.1},
	{Key: RM, Label: "Average Rooms", Tooltip: "Average number of rooms per dwelling", Widget: WidgetNumber},
	{Key: AGE, Label: "Age of Property", Tooltip: "Proportion of owner-occupied units built prior to 1940", Widget: WidgetNumber},
	{Key: DIS, Label: "Distance to Centers", Tooltip: "Weighted distances to employment centers", Widget: WidgetNumber},
	{Key: CHAS, Label: "Charles River", Tooltip: "1 if tract bounds river; 0 otherwise", Widget: WidgetSelect,
		Options: []Option{{Value: 0, Label: "No"}, {Value: 1, Label: "Yes"}}},
	{Key: RAD, Label: "Highway Access", Tooltip: "Index of accessibility to radial highways", Widget: WidgetSelect, Options: rangeOptions(25)},
	{Key: ZN, Label: "Residential Zone", Tooltip: "Proportion of residential land zoned for lots >25,000 sq.ft.", Widget: WidgetSelect, Options: rangeOptions(25)},
	{Key: INDUS, Label: "Industrial Proportion", Tooltip: "Proportion of non-retail business acres per town", Widget: WidgetSlider, Max: 30, Step: 0.1},
}

// Fields returns the field descriptors in display order
func Fields() []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

// Lookup returns the descriptor for k
func Lookup(k Key) (Field, bool) {
	for _, f := range fields {
		if f.Key == k {
			return f, true
		}
	}
	return Field{}, false
}
