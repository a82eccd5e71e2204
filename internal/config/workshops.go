package config

import (
	"errors"
	"fmt"
	"strings"

	rt "resin_tracker"
)

var (
	ErrUnknownWorkshop = errors.New("unknown workshop")
	errNoWorkshops     = errors.New("workshop table is empty")
)

// Workshops is the static workshop table, in display order.
type Workshops []rt.WorkshopConfig

// DefaultWorkshops mirrors the counter mapping of the FX1..FX4 lines.
func DefaultWorkshops() Workshops {
	return Workshops{
		{
			Name:   "FX1",
			LotTag: "CIn_OF_Num",
			CounterTags: []string{
				"CIn1P_T1_ConsoMasse_ISO_Tot", "CIn1P_T1_ConsoMasse_PO_Tot",
				"CIn1P_T2_ConsoMasse_ISO_Tot", "CIn1P_T2_ConsoMasse_PO_Tot",
			},
		},
		{
			Name:   "FX2",
			LotTag: "FIn_OF_Num",
			CounterTags: []string{
				"FIn1P_T1_ConsoMasse_ISO_Tot", "FIn2P_T1_ConsoMasse_ISO_Tot",
				"FIn1P_T1_ConsoMasse_PO_Tot", "FIn2P_T1_ConsoMasse_PO_Tot",
				"FIn1P_T2_ConsoMasse_ISO_Tot", "FIn2P_T2_ConsoMasse_ISO_Tot",
				"FIn1P_T2_ConsoMasse_PO_Tot", "FIn2P_T2_ConsoMasse_PO_Tot",
			},
		},
		{
			Name:   "FX3",
			LotTag: "JInj_OF_Num",
			CounterTags: []string{
				"JInjP_T1_ConsoMasse_ISO_Tot", "JInjP_T1_ConsoMasse_PO_Tot",
				"JInjP_T2_ConsoMasse_ISO_Tot", "JInjP_T2_ConsoMasse_PO_Tot",
			},
		},
		{
			Name:   "FX4",
			LotTag: "LDIn_OF_Num",
			CounterTags: []string{
				"LDIn1P_T1_ConsoMasse_ISO_Tot", "LDIn2P_T1_ConsoMasse_ISO_Tot",
				"LDIn1P_T1_ConsoMasse_PO_Tot", "LDIn2P_T1_ConsoMasse_PO_Tot",
				"LDIn1P_T2_ConsoMasse_ISO_Tot", "LDIn2P_T2_ConsoMasse_ISO_Tot",
				"LDIn1P_T2_ConsoMasse_PO_Tot", "LDIn2P_T2_ConsoMasse_PO_Tot",
			},
		},
	}
}

// Lookup finds a workshop by display name, case-insensitively.
func (w Workshops) Lookup(name string) (rt.WorkshopConfig, bool) {
	name = strings.TrimSpace(name)
	for _, ws := range w {
		if strings.EqualFold(ws.Name, name) {
			return ws, true
		}
	}
	return rt.WorkshopConfig{}, false
}

// Names lists the workshops in table order.
func (w Workshops) Names() []string {
	out := make([]string, 0, len(w))
	for _, ws := range w {
		out = append(out, ws.Name)
	}
	return out
}

// KindOf classifies a historian tag: lot tags carry lot changes, anything
// else is read as a counter sample.
func (w Workshops) KindOf(tag string) rt.EventKind {
	for _, ws := range w {
		if ws.LotTag == tag {
			return rt.KindLotChange
		}
	}
	return rt.KindCounterSample
}

// Tags returns the lot tag followed by the counter tags of one workshop.
func Tags(ws rt.WorkshopConfig) []string {
	out := make([]string, 0, len(ws.CounterTags)+1)
	out = append(out, ws.LotTag)
	return append(out, ws.CounterTags...)
}

// Family maps a counter tag to its resin family.
func Family(tag string) string {
	switch {
	case strings.Contains(tag, "_ISO_"):
		return rt.FamilyISO
	case strings.Contains(tag, "_PO_"):
		return rt.FamilyPOL
	default:
		return rt.FamilyOther
	}
}

// Validate rejects tables the analysis cannot run on.
func (w Workshops) Validate() error {
	if len(w) == 0 {
		return errNoWorkshops
	}
	names := make(map[string]bool, len(w))
	lotTags := make(map[string]string, len(w))
	for _, ws := range w {
		key := strings.ToLower(strings.TrimSpace(ws.Name))
		if key == "" {
			return errors.New("workshop without a name")
		}
		if names[key] {
			return fmt.Errorf("workshop %q declared twice", ws.Name)
		}
		names[key] = true
		if strings.TrimSpace(ws.LotTag) == "" {
			return fmt.Errorf("workshop %q: lot_tag is required", ws.Name)
		}
		if len(ws.CounterTags) == 0 {
			return fmt.Errorf("workshop %q: counter_tags is empty", ws.Name)
		}
		lotTags[ws.LotTag] = ws.Name
	}
	for _, ws := range w {
		seen := make(map[string]bool, len(ws.CounterTags))
		for _, tag := range ws.CounterTags {
			if seen[tag] {
				return fmt.Errorf("workshop %q: counter %q listed twice", ws.Name, tag)
			}
			seen[tag] = true
			if owner, ok := lotTags[tag]; ok {
				return fmt.Errorf("workshop %q: counter %q is the lot tag of %q", ws.Name, tag, owner)
			}
		}
	}
	return nil
}
