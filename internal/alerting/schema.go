package alerting

import "github.com/glucoalert/alertcore/internal/units"

// Schema describes the alert kinds and form rows for the settings UI.
type Schema struct {
	Unit       string       `json:"unit"`
	Kinds      []KindSchema `json:"kinds"`
	TypeFields []TypeField  `json:"type_fields"`
}

// KindSchema is a catalog entry rendered for one display unit.
type KindSchema struct {
	Code         int     `json:"code"`
	Name         string  `json:"name"`
	Title        string  `json:"title"`
	NeedsValue   bool    `json:"needs_value"`
	UnitText     string  `json:"unit_text,omitempty"`
	DefaultValue float64 `json:"default_value"`
	Trigger      Trigger `json:"trigger"`
}

// GetSchema returns the catalog as presented in display.
func GetSchema(display units.Unit) Schema {
	kinds := Kinds()
	s := Schema{
		Unit:       string(display),
		Kinds:      make([]KindSchema, 0, len(kinds)),
		TypeFields: append([]TypeField(nil), allTypeFields...),
	}
	for _, k := range kinds {
		s.Kinds = append(s.Kinds, KindSchema{
			Code:         k.Code,
			Name:         k.Name,
			Title:        k.Title,
			NeedsValue:   k.NeedsValue,
			UnitText:     k.UnitText(display),
			DefaultValue: k.DisplayValue(k.DefaultValue, display),
			Trigger:      k.Trigger,
		})
	}
	return s
}
