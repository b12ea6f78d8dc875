package orchestrator

import (
	"path/filepath"
	"strings"

	"github.com/simonhull/firebird-suite/nest/internal/model"
	"github.com/simonhull/firebird-suite/nest/internal/render"
	"github.com/simonhull/firebird-suite/nest/internal/writer"
)

// categoryExtensions maps a template category to the file suffix it produces.
var categoryExtensions = map[string]string{
	"CONTROLLER": "controller.ts",
	"SERVICE":    "service.ts",
	"DTO":        "dto.ts",
	"ENTITY":     "entity.ts",
	"CONFIG":     "config.ts",
}

// extension returns the suffix for a template category, honouring the
// requested output format.
func extension(category string, format model.OutputFormat) string {
	ext, ok := categoryExtensions[strings.ToUpper(strings.TrimSpace(category))]
	if !ok {
		ext = "ts"
	}
	if format == model.FormatJavaScript {
		ext = strings.TrimSuffix(ext, "ts") + "js"
	}
	return ext
}

// filePaths returns the base and biz paths for one entity and template.
//
//	<out>/base/<kebab(code)>.base.<ext>
//	<out>/biz/<kebab(code)>.<ext>
func filePaths(out string, e model.Entity, t model.Template, format model.OutputFormat) (base, biz string) {
	name := render.KebabCase(e.Code)
	ext := extension(t.Category, format)
	base = filepath.Join(writer.LayerDir(out, model.LayerBase), name+".base."+ext)
	biz = filepath.Join(writer.LayerDir(out, model.LayerBiz), name+"."+ext)
	return base, biz
}
