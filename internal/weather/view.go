package weather

import (
	"strconv"
	"strings"
)

// Tab is one of the two mode selectors.
type Tab struct {
	Label  string `json:"label"`
	Mode   Mode   `json:"mode"`
	Active bool   `json:"active"`
}

// SearchForm is the city search input.
type SearchForm struct {
	Placeholder string `json:"placeholder"`
	Value       string `json:"value"`
}

// View is the render model of the active widget view.
type View struct {
	Title       string      `json:"title"`
	Tabs        []Tab       `json:"tabs"`
	Mode        Mode        `json:"mode"`
	Prompt      string      `json:"prompt,omitempty"`
	GrantAccess bool        `json:"grantAccess"`
	SearchForm  *SearchForm `json:"searchForm,omitempty"`
	Loading     bool        `json:"loading"`
	Heading     string      `json:"heading,omitempty"`
	Lines       []string    `json:"lines,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// Render builds the view for s. Location errors only appear in the
// MyLocation view and city lookup errors only in the search view.
func Render(s State) View {
	v := View{
		Title: "Weather App",
		Tabs: []Tab{
			{Label: "Your Weather", Mode: ModeMyLocation, Active: s.Mode == ModeMyLocation},
			{Label: "Search Weather", Mode: ModeSearchByCity, Active: s.Mode == ModeSearchByCity},
		},
		Mode:    s.Mode,
		Loading: s.Loading,
	}

	switch s.Mode {
	case ModeSearchByCity:
		v.SearchForm = &SearchForm{Placeholder: "Search for city ...", Value: s.SearchText}
		v.Error = s.SearchError
	default:
		if s.Coordinates == nil {
			v.Prompt = "Allow Access To Get Weather Information"
			v.GrantAccess = true
		}
		v.Error = s.LocationError
	}

	if s.Reading != nil && !s.Loading {
		if s.Mode == ModeMyLocation && s.SearchedCity == "" {
			v.Heading = "Current Weather Info"
		} else {
			v.Heading = "Weather Info for " + s.SearchedCity
		}
		v.Lines = []string{
			"Temperature: " + formatNumber(s.Reading.Temperature) + "°C",
			"Wind Speed: " + formatNumber(s.Reading.WindSpeed) + " m/s",
			"Humidity: " + formatNumber(s.Reading.Humidity) + "%",
		}
	}

	return v
}

// Text renders the view as plain text, one element per line.
func (v View) Text() string {
	var b strings.Builder

	b.WriteString(v.Title)
	b.WriteByte('\n')
	for i, t := range v.Tabs {
		if i > 0 {
			b.WriteByte(' ')
		}
		if t.Active {
			b.WriteString("[" + t.Label + "]")
		} else {
			b.WriteString(t.Label)
		}
	}
	b.WriteByte('\n')

	if v.Prompt != "" {
		b.WriteString(v.Prompt + "\n")
	}
	if v.GrantAccess {
		b.WriteString("(Grant Access)\n")
	}
	if v.SearchForm != nil {
		value := v.SearchForm.Value
		if value == "" {
			value = v.SearchForm.Placeholder
		}
		b.WriteString("> " + value + " (Search)\n")
	}
	if v.Loading {
		b.WriteString("Loading...\n")
	}
	if v.Heading != "" {
		b.WriteString(v.Heading + "\n")
		for _, l := range v.Lines {
			b.WriteString(l + "\n")
		}
	}
	if v.Error != "" {
		b.WriteString("! " + v.Error + "\n")
	}

	return b.String()
}

// formatNumber prints the shortest decimal form, so 20 renders as "20".
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
