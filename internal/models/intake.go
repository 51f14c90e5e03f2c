// internal/models/intake.go
package models

// Intake is a validated pitch submission. Values are stored exactly as
// submitted apart from surrounding whitespace. Free-text fields may be empty;
// presence is checked by the validator against the raw form.
type Intake struct {
	StartupName    string `json:"startup_name"`
	FounderEmail   string `json:"founder_email" validate:"email"`
	Industry       string `json:"industry"`
	Stage          string `json:"stage"`
	Location       string `json:"location"`
	OneLiner       string `json:"one_liner"`
	Problem        string `json:"problem"`
	Solution       string `json:"solution"`
	Traction       string `json:"traction"`
	Revenue        string `json:"revenue"`
	TeamBackground string `json:"team_background"`
	DeckURL        string `json:"deck_url" validate:"url"`
}

// IntakeFields lists the intake keys in submission order.
var IntakeFields = []string{
	"startup_name",
	"founder_email",
	"industry",
	"stage",
	"location",
	"one_liner",
	"problem",
	"solution",
	"traction",
	"revenue",
	"team_background",
	"deck_url",
}
