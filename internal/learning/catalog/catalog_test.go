package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/yungbote/neurobridge-roadmap/internal/domain/curriculum"
	"github.com/yungbote/neurobridge-roadmap/internal/domain/roadmap"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/logger"
)

func TestBuiltinCurriculumAndCatalog(t *testing.T) {
	cur, err := LoadCurriculum(logger.Nop(), "")
	if err != nil {
		t.Fatalf("LoadCurriculum: %v", err)
	}
	if cur.TrackID != "python_fundamentals" || len(cur.Phases) != 3 {
		t.Fatalf("unexpected curriculum: %s phases=%d", cur.TrackID, len(cur.Phases))
	}
	if bad := cur.MalformedThresholds(); len(bad) != 0 {
		t.Fatalf("builtin thresholds must parse: %v", bad)
	}
	cat, err := LoadCatalog(logger.Nop(), "")
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	for _, p := range cur.Phases {
		for _, s := range p.Slots {
			for _, tmpl := range cat.TemplatesForSlot(s.SlotID) {
				if tmpl.Skill != s.Skill || tmpl.Difficulty != s.Difficulty {
					t.Fatalf("%s does not match slot %s", tmpl.TaskTemplateID, s.SlotID)
				}
			}
		}
	}
	rep := cat.CheckRemediationGaps(cur)
	if diff := cmp.Diff([]string{"conditionals_medium"}, rep.NoRemediation); diff != "" {
		t.Fatalf("gaps (-want +got):\n%s", diff)
	}
	if len(rep.MissingTasks) != 0 || rep.SlotsWithTasks != rep.TotalSlots {
		t.Fatalf("report: %+v", rep)
	}
}

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := New([]curriculum.TaskTemplate{
		{TaskTemplateID: "loops_easy_v1", SlotID: "loops_easy"},
		{TaskTemplateID: "loops_easy_v2", SlotID: "loops_easy", BaseTemplateID: "loops_easy_v1"},
		{TaskTemplateID: "loops_easy_v1__remediation", SlotID: "loops_easy"},
		{TaskTemplateID: "loops_easy_v1__remediation_v2", SlotID: "loops_easy"},
		{TaskTemplateID: "arrays_easy_v1", SlotID: "arrays_easy"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestResolveTemplateID(t *testing.T) {
	c := testCatalog(t)
	cases := []struct {
		name     string
		status   roadmap.SlotStatus
		base     string
		fallback bool
		want     string
		wantErr  bool
	}{
		{"standard prefers latest version", roadmap.SlotAvailable, "loops_easy_v1", false, "loops_easy_v2", false},
		{"remediation prefers latest variant", roadmap.SlotRemediationRequired, "loops_easy_v1", false, "loops_easy_v1__remediation_v2", false},
		{"no remediation without fallback", roadmap.SlotRemediationRequired, "arrays_easy_v1", false, "", true},
		{"no remediation with fallback", roadmap.SlotRemediationRequired, "arrays_easy_v1", true, "arrays_easy_v1", false},
		{"unknown base", roadmap.SlotAvailable, "ghost", true, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := c.ResolveTemplateID(roadmap.Slot{SlotID: "x", Status: tc.status}, tc.base, tc.fallback)
			if tc.wantErr {
				if !roadmap.IsKind(err, roadmap.KindTemplateResolution) {
					t.Fatalf("want TemplateResolutionError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveTemplateID: %v", err)
			}
			if got != tc.want {
				t.Fatalf("want=%s got=%s", tc.want, got)
			}
		})
	}
}

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := New([]curriculum.TaskTemplate{{TaskTemplateID: "a"}, {TaskTemplateID: "a"}})
	if err == nil {
		t.Fatalf("want duplicate error")
	}
}

func TestGetTemplateNormalizesVariants(t *testing.T) {
	c := testCatalog(t)
	tmpl, err := c.GetTemplate("loops_easy_v1__remediation")
	if err != nil {
		t.Fatalf("GetTemplate: %v", err)
	}
	if tmpl.Variant != curriculum.VariantRemediation || tmpl.BaseTemplateID != "loops_easy_v1" {
		t.Fatalf("template: %+v", tmpl)
	}
	if _, err := c.GetTemplate("nope"); err == nil {
		t.Fatalf("want error for unknown id")
	}
	if id, ok := c.DefaultBaseID("loops_easy"); !ok || id != "loops_easy_v1" {
		t.Fatalf("DefaultBaseID: %s %v", id, ok)
	}
}

func TestLoadCatalogFromDirectory(t *testing.T) {
	dir := t.TempDir()
	body := []byte(`
slots:
  - slot_id: s1
    skill: loops
    difficulty: easy
    templates:
      - task_template_id: s1_v1
        question_type: coding
        prompt: hi
`)
	if err := os.WriteFile(filepath.Join(dir, "one.yaml"), body, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cat, err := LoadCatalog(logger.Nop(), dir)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	tmpl, err := cat.GetTemplate("s1_v1")
	if err != nil {
		t.Fatalf("GetTemplate: %v", err)
	}
	if tmpl.Skill != "loops" || tmpl.SlotID != "s1" || tmpl.Difficulty != curriculum.DifficultyEasy {
		t.Fatalf("inherited fields missing: %+v", tmpl)
	}
}
