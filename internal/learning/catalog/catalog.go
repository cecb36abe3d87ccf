package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yungbote/neurobridge-roadmap/internal/domain/curriculum"
	"github.com/yungbote/neurobridge-roadmap/internal/domain/roadmap"
)

// Catalog is the in-memory template store. It is built once at startup and
// read-only afterwards.
type Catalog struct {
	templates map[string]curriculum.TaskTemplate
	order     []string
	bySlot    map[string][]string
}

func New(templates []curriculum.TaskTemplate) (*Catalog, error) {
	c := &Catalog{
		templates: make(map[string]curriculum.TaskTemplate, len(templates)),
		bySlot:    map[string][]string{},
	}
	for _, t := range templates {
		id := strings.TrimSpace(t.TaskTemplateID)
		if id == "" {
			return nil, fmt.Errorf("catalog: template without task_template_id in slot %q", t.SlotID)
		}
		if _, dup := c.templates[id]; dup {
			return nil, fmt.Errorf("catalog: duplicate task_template_id %q", id)
		}
		if t.BaseTemplateID == "" {
			t.BaseTemplateID = t.BaseID()
		}
		if t.Variant == "" && strings.Contains(id, curriculum.RemediationSuffix) {
			t.Variant = curriculum.VariantRemediation
		}
		c.templates[id] = t
		c.order = append(c.order, id)
		if t.SlotID != "" {
			c.bySlot[t.SlotID] = append(c.bySlot[t.SlotID], id)
		}
	}
	return c, nil
}

func (c *Catalog) Len() int { return len(c.order) }

func (c *Catalog) GetTemplate(id string) (curriculum.TaskTemplate, error) {
	t, ok := c.templates[id]
	if !ok {
		return curriculum.TaskTemplate{}, roadmap.NewError(roadmap.KindTemplateResolution, "catalog.GetTemplate", "task template "+id+" not found", nil)
	}
	return t, nil
}

// AllTemplates returns every template in load order.
func (c *Catalog) AllTemplates() []curriculum.TaskTemplate {
	out := make([]curriculum.TaskTemplate, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.templates[id])
	}
	return out
}

// TemplatesForSlot returns the slot's templates in load order.
func (c *Catalog) TemplatesForSlot(slotID string) []curriculum.TaskTemplate {
	ids := c.bySlot[slotID]
	out := make([]curriculum.TaskTemplate, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.templates[id])
	}
	return out
}

// DefaultBaseID is the conventional first template of a slot: "<slot>_v1"
// when present, else the slot's first standard template.
func (c *Catalog) DefaultBaseID(slotID string) (string, bool) {
	if t, ok := c.templates[slotID+"_v1"]; ok && t.IsStandard() {
		return t.TaskTemplateID, true
	}
	for _, t := range c.TemplatesForSlot(slotID) {
		if t.IsStandard() {
			return t.BaseID(), true
		}
	}
	return "", false
}

// ResolveTemplateID picks the concrete template for a slot from a base id.
// A slot awaiting remediation gets the latest "<base>__remediation*" variant;
// when none exists it falls back to the standard variant only if allowed.
// Among several matches the lexicographically greatest id wins.
func (c *Catalog) ResolveTemplateID(slot roadmap.Slot, baseID string, allowFallback bool) (string, error) {
	const op = "catalog.ResolveTemplateID"
	baseID = strings.TrimSpace(baseID)
	if baseID == "" {
		return "", roadmap.NewError(roadmap.KindTemplateResolution, op, "empty base template id for slot "+slot.SlotID, nil)
	}
	if slot.Status == roadmap.SlotRemediationRequired {
		prefix := baseID + curriculum.RemediationSuffix
		if id, ok := c.latest(func(t curriculum.TaskTemplate) bool {
			return strings.HasPrefix(t.TaskTemplateID, prefix)
		}); ok {
			return id, nil
		}
		if !allowFallback {
			return "", roadmap.NewError(roadmap.KindTemplateResolution, op, "remediation template not found: "+prefix, nil)
		}
	}
	if id, ok := c.latest(func(t curriculum.TaskTemplate) bool {
		return t.IsStandard() && (t.TaskTemplateID == baseID || t.BaseTemplateID == baseID)
	}); ok {
		return id, nil
	}
	return "", roadmap.NewError(roadmap.KindTemplateResolution, op, "task template not found: "+baseID, nil)
}

func (c *Catalog) latest(match func(curriculum.TaskTemplate) bool) (string, bool) {
	best := ""
	for _, id := range c.order {
		if match(c.templates[id]) && id > best {
			best = id
		}
	}
	return best, best != ""
}

// GapReport lists curriculum slots without templates, and slots with no
// remediation variant.
type GapReport struct {
	TotalSlots     int      `json:"total_slots"`
	SlotsWithTasks int      `json:"slots_with_tasks"`
	MissingTasks   []string `json:"missing_tasks"`
	NoRemediation  []string `json:"no_remediation"`
	UnknownSlots   []string `json:"unknown_slots"`
}

func (g GapReport) Clean() bool {
	return len(g.MissingTasks) == 0 && len(g.NoRemediation) == 0 && len(g.UnknownSlots) == 0
}

// CheckRemediationGaps cross-checks the catalog against a curriculum.
func (c *Catalog) CheckRemediationGaps(cur *curriculum.Curriculum) GapReport {
	rep := GapReport{MissingTasks: []string{}, NoRemediation: []string{}, UnknownSlots: []string{}}
	expected := map[string]bool{}
	if cur != nil {
		for _, p := range cur.Phases {
			for _, s := range p.Slots {
				expected[s.SlotID] = true
			}
		}
	}
	rep.TotalSlots = len(expected)
	for slotID := range expected {
		ts := c.TemplatesForSlot(slotID)
		if len(ts) == 0 {
			rep.MissingTasks = append(rep.MissingTasks, slotID)
			rep.NoRemediation = append(rep.NoRemediation, slotID)
			continue
		}
		rep.SlotsWithTasks++
		hasRem := false
		for _, t := range ts {
			if t.IsRemediation() {
				hasRem = true
				break
			}
		}
		if !hasRem {
			rep.NoRemediation = append(rep.NoRemediation, slotID)
		}
	}
	for slotID := range c.bySlot {
		if !expected[slotID] {
			rep.UnknownSlots = append(rep.UnknownSlots, slotID)
		}
	}
	sort.Strings(rep.MissingTasks)
	sort.Strings(rep.NoRemediation)
	sort.Strings(rep.UnknownSlots)
	return rep
}
