package chartjs

// Chart is the configuration object handed to `new Chart(ctx, config)`.
type Chart struct {
	Type    string  `json:"type"`
	Data    Data    `json:"data"`
	Options Options `json:"options"`
}

type Data struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// Dataset values are pointers so a missing point is sent as null.
type Dataset struct {
	Label       string     `json:"label"`
	Data        []*float64 `json:"data"`
	Fill        bool       `json:"fill"`
	BorderColor string     `json:"borderColor"`
	YAxisID     string     `json:"yAxisID"`
}

type Options struct {
	Responsive bool             `json:"responsive"`
	Plugins    Plugins          `json:"plugins"`
	Scales     map[string]Scale `json:"scales"`
}

type Plugins struct {
	Title Title `json:"title"`
}

type Title struct {
	Display bool   `json:"display"`
	Text    string `json:"text,omitempty"`
	Color   string `json:"color,omitempty"`
}

type Scale struct {
	Type     string `json:"type"`
	Position string `json:"position"`
	Title    Title  `json:"title"`
}
