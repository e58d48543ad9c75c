package models

type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

func (t Theme) Valid() bool {
	switch t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return true
	}
	return false
}

// Palette is the colour table the client applies for a resolved theme.
type Palette struct {
	Background      string `json:"background"`
	Surface         string `json:"surface"`
	Card            string `json:"card"`
	CardSecondary   string `json:"cardSecondary"`
	Text            string `json:"text"`
	TextSecondary   string `json:"textSecondary"`
	TextTertiary    string `json:"textTertiary"`
	Border          string `json:"border"`
	BorderSecondary string `json:"borderSecondary"`
	Primary         string `json:"primary"`
	PrimaryLight    string `json:"primaryLight"`
	PrimaryDark     string `json:"primaryDark"`
	Success         string `json:"success"`
	SuccessLight    string `json:"successLight"`
	Warning         string `json:"warning"`
	WarningLight    string `json:"warningLight"`
	Error           string `json:"error"`
	ErrorLight      string `json:"errorLight"`
	Action          string `json:"action"`
	ActionHover     string `json:"actionHover"`
	Positive        string `json:"positive"`
	Negative        string `json:"negative"`
	Neutral         string `json:"neutral"`
}

type ThemeState struct {
	Theme  Theme   `json:"theme"`
	IsDark bool    `json:"isDark"`
	Colors Palette `json:"colors"`
}
