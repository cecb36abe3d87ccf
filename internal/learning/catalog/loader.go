package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/neurobridge-roadmap/internal/domain/curriculum"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/logger"
)

//go:embed data/curriculum.yaml data/tasks/*.yaml
var builtinFS embed.FS

type yamlTaskFile struct {
	Slots []yamlTaskSlot `yaml:"slots"`
}

type yamlTaskSlot struct {
	SlotID     string                    `yaml:"slot_id"`
	Skill      string                    `yaml:"skill"`
	Difficulty curriculum.Difficulty     `yaml:"difficulty"`
	Templates  []curriculum.TaskTemplate `yaml:"templates"`
}

// LoadCurriculum reads the curriculum at path, or the built-in track when
// path is empty.
func LoadCurriculum(log *logger.Logger, path string) (*curriculum.Curriculum, error) {
	var (
		data []byte
		err  error
	)
	if path = strings.TrimSpace(path); path != "" {
		data, err = os.ReadFile(path)
	} else {
		data, err = builtinFS.ReadFile("data/curriculum.yaml")
	}
	if err != nil {
		return nil, fmt.Errorf("read curriculum: %w", err)
	}
	return ParseCurriculum(log, data)
}

func ParseCurriculum(log *logger.Logger, data []byte) (*curriculum.Curriculum, error) {
	var c curriculum.Curriculum
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse curriculum: %w", err)
	}
	c.Normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if bad := c.MalformedThresholds(); len(bad) > 0 && log != nil {
		log.Warn("curriculum has malformed thresholds; they will never match", "track_id", c.TrackID, "thresholds", bad)
	}
	return &c, nil
}

// LoadCatalog reads every *.yaml under path (a file or directory), or the
// built-in task files when path is empty.
func LoadCatalog(log *logger.Logger, path string) (*Catalog, error) {
	var fsys fs.FS = builtinFS
	root := "data/tasks"
	if path = strings.TrimSpace(path); path != "" {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat catalog: %w", err)
		}
		if info.IsDir() {
			fsys, root = os.DirFS(path), "."
		} else {
			fsys, root = os.DirFS(filepath.Dir(path)), filepath.Base(path)
		}
	}

	var files []string
	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && (strings.HasSuffix(p, ".yaml") || strings.HasSuffix(p, ".yml")) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk catalog: %w", err)
	}
	sort.Strings(files)

	var all []curriculum.TaskTemplate
	for _, f := range files {
		data, err := fs.ReadFile(fsys, f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		ts, err := ParseTasks(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		all = append(all, ts...)
	}
	cat, err := New(all)
	if err != nil {
		return nil, err
	}
	if log != nil {
		log.Info("template catalog loaded", "files", len(files), "templates", cat.Len())
	}
	return cat, nil
}

// ParseTasks decodes one task file. Templates inherit slot, skill and
// difficulty from their enclosing slot.
func ParseTasks(data []byte) ([]curriculum.TaskTemplate, error) {
	var f yamlTaskFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse tasks: %w", err)
	}
	var out []curriculum.TaskTemplate
	for _, s := range f.Slots {
		for _, t := range s.Templates {
			if t.SlotID == "" {
				t.SlotID = s.SlotID
			}
			if t.Skill == "" {
				t.Skill = s.Skill
			}
			if t.Difficulty == "" {
				t.Difficulty = s.Difficulty
			}
			if !t.QuestionType.Valid() {
				return nil, fmt.Errorf("template %s has unknown question_type %q", t.TaskTemplateID, t.QuestionType)
			}
			if !t.Difficulty.Valid() {
				return nil, fmt.Errorf("template %s has unknown difficulty %q", t.TaskTemplateID, t.Difficulty)
			}
			out = append(out, t)
		}
	}
	return out, nil
}
