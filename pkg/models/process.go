package models

// ProcessIcon names an illustration slot for a process step.
type ProcessIcon string

const (
	ProcessIconMoney    ProcessIcon = "money"
	ProcessIconLocation ProcessIcon = "location"
	ProcessIconDesign   ProcessIcon = "design"
	ProcessIconWrench   ProcessIcon = "wrench"
	ProcessIconHome     ProcessIcon = "home"
)

// ProcessIcons lists the icons offered by the step editor, in display order.
var ProcessIcons = []ProcessIcon{
	ProcessIconMoney, ProcessIconLocation, ProcessIconDesign, ProcessIconWrench, ProcessIconHome,
}

// processGlyph maps a ProcessIcon to its Lucide icon name (https://lucide.dev).
var processGlyph = map[ProcessIcon]string{
	ProcessIconMoney:    "banknote",
	ProcessIconLocation: "map-pin",
	ProcessIconDesign:   "pen-tool",
	ProcessIconWrench:   "wrench",
	ProcessIconHome:     "home",
}

// Glyph returns the Lucide icon name for the icon.
// Unknown icons fall back to the home glyph.
func (i ProcessIcon) Glyph() string {
	if g, ok := processGlyph[i]; ok {
		return g
	}
	return processGlyph[ProcessIconHome]
}

// ProcessStep is one numbered step of the studio's working process.
// Titles are kept in English and Indonesian.
type ProcessStep struct {
	ID          string      `json:"id" yaml:"id"`
	Num         string      `json:"num" yaml:"num"`
	TitleEN     string      `json:"title_en" yaml:"title_en"`
	TitleID     string      `json:"title_id" yaml:"title_id"`
	Description string      `json:"description" yaml:"description"`
	IconName    ProcessIcon `json:"icon_name" yaml:"icon_name"`
	SortOrder   int         `json:"sort_order" yaml:"sort_order"`
}

func (p ProcessStep) RecordID() string     { return p.ID }
func (p ProcessStep) RecordSortOrder() int { return p.SortOrder }
