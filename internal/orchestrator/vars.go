package orchestrator

import (
	"github.com/simonhull/firebird-suite/nest/internal/model"
	"github.com/simonhull/firebird-suite/nest/internal/typemap"
)

// templateData builds the variables a template is executed with:
//
//	.entity   name, code, description, hasAuth, hasValidation, hasSwagger,
//	          fields (with mapped types), relations
//	.project  name, code, namespace
//	.config   the request's base options
func templateData(p *model.Project, e model.Entity, req *model.GenerationConfig, m *typemap.Mapper) map[string]any {
	opts := req.BaseOptions

	description := e.Description
	if description == "" {
		description = e.Name
	}

	fields := make([]map[string]any, 0, len(e.Fields))
	for _, f := range e.Fields {
		mapped := m.Map(f)
		fields = append(fields, map[string]any{
			"name":             f.Name,
			"code":             f.Code,
			"type":             typemap.Normalize(f.Type),
			"length":           f.Length,
			"nullable":         f.Nullable,
			"isPrimaryKey":     f.IsPrimaryKey,
			"isUnique":         f.IsUnique,
			"defaultValue":     f.DefaultValue,
			"description":      f.Description,
			"prismaType":       mapped.PrismaType,
			"tsType":           mapped.TSType,
			"sqlType":          mapped.SQLType,
			"attributes":       mapped.Attributes,
			"formattedDefault": mapped.DefaultValue,
		})
	}

	relations := make([]map[string]any, 0, len(e.Relations))
	for _, r := range e.Relations {
		relations = append(relations, map[string]any{
			"name":   r.Name,
			"type":   r.Type,
			"target": r.Target,
		})
	}

	project := map[string]any{"name": "", "code": "", "namespace": ""}
	if p != nil {
		project = map[string]any{"name": p.Name, "code": p.Code, "namespace": p.Code}
	}

	return map[string]any{
		"entity": map[string]any{
			"name":          e.Name,
			"code":          e.Code,
			"description":   description,
			"hasAuth":       opts.GenerateAuth,
			"hasValidation": opts.GenerateValidation,
			"hasSwagger":    opts.GenerateSwagger,
			"fields":        fields,
			"relations":     relations,
		},
		"project": project,
		"config": map[string]any{
			"generateAuth":       opts.GenerateAuth,
			"generateValidation": opts.GenerateValidation,
			"generateSwagger":    opts.GenerateSwagger,
			"generateTests":      opts.GenerateTests,
			"outputFormat":       string(opts.OutputFormat),
		},
	}
}
