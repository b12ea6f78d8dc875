package validate

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/simonhull/firebird-suite/nest/internal/model"
)

// DifferenceType classifies a Difference.
type DifferenceType string

const (
	DiffAdded    DifferenceType = "added"
	DiffRemoved  DifferenceType = "removed"
	DiffModified DifferenceType = "modified"
)

// Difference is one change between two requests.
type Difference struct {
	Path     string         `json:"path"`
	Type     DifferenceType `json:"type"`
	OldValue any            `json:"oldValue,omitempty"`
	NewValue any            `json:"newValue,omitempty"`
}

// Comparison describes how far one request moved from another.
type Comparison struct {
	Differences []Difference `json:"differences"`
	// Compatibility is 1 for identical requests and falls to 0.
	Compatibility   float64  `json:"compatibility"`
	Recommendations []string `json:"recommendations"`
}

var differenceWeight = map[DifferenceType]float64{
	DiffAdded:    0.1,
	DiffRemoved:  0.2,
	DiffModified: 0.15,
}

// Compare reports the differences from old to updated.
func Compare(old, updated *model.GenerationConfig) Comparison {
	var diffs []Difference

	if old.OutputPath != updated.OutputPath {
		diffs = append(diffs, Difference{Path: "outputPath", Type: DiffModified, OldValue: old.OutputPath, NewValue: updated.OutputPath})
	}
	diffs = append(diffs, compareIDs("entityIds", old.UniqueEntityIDs(), updated.UniqueEntityIDs())...)
	diffs = append(diffs, compareIDs("templateIds", old.UniqueTemplateIDs(), updated.UniqueTemplateIDs())...)

	option := func(path string, a, b any) {
		if a != b {
			diffs = append(diffs, Difference{Path: path, Type: DiffModified, OldValue: a, NewValue: b})
		}
	}
	ob, nb := old.BaseOptions, updated.BaseOptions
	option("baseOptions.generateAuth", ob.GenerateAuth, nb.GenerateAuth)
	option("baseOptions.generateValidation", ob.GenerateValidation, nb.GenerateValidation)
	option("baseOptions.generateSwagger", ob.GenerateSwagger, nb.GenerateSwagger)
	option("baseOptions.generateTests", ob.GenerateTests, nb.GenerateTests)
	option("baseOptions.outputFormat", ob.OutputFormat, nb.OutputFormat)
	oz, nz := old.BizOptions, updated.BizOptions
	option("bizOptions.allowCustomization", oz.AllowCustomization, nz.AllowCustomization)
	option("bizOptions.preserveCustomCode", oz.PreserveCustomCode, nz.PreserveCustomCode)
	option("bizOptions.generateInterfaces", oz.GenerateInterfaces, nz.GenerateInterfaces)

	if diffs == nil {
		diffs = []Difference{}
	}
	return Comparison{
		Differences:     diffs,
		Compatibility:   compatibility(diffs),
		Recommendations: comparisonRecommendations(diffs),
	}
}

func compareIDs(path string, old, updated []string) []Difference {
	var out []Difference
	for _, id := range updated {
		if !slices.Contains(old, id) {
			out = append(out, Difference{Path: path + "." + id, Type: DiffAdded, NewValue: id})
		}
	}
	for _, id := range old {
		if !slices.Contains(updated, id) {
			out = append(out, Difference{Path: path + "." + id, Type: DiffRemoved, OldValue: id})
		}
	}
	return out
}

func compatibility(diffs []Difference) float64 {
	score := 1.0
	for _, d := range diffs {
		score -= differenceWeight[d.Type]
	}
	// Round away float noise from the repeated subtraction.
	return math.Max(0, math.Round(score*100)/100)
}

func comparisonRecommendations(diffs []Difference) []string {
	var entities, templates, options int
	for _, d := range diffs {
		switch {
		case strings.HasPrefix(d.Path, "entityIds"):
			entities++
		case strings.HasPrefix(d.Path, "templateIds"):
			templates++
		case strings.Contains(d.Path, "Options."):
			options++
		}
	}

	out := []string{}
	if entities > 0 {
		out = append(out, fmt.Sprintf("%d entity changes; check code that depends on them", entities))
	}
	if templates > 0 {
		out = append(out, fmt.Sprintf("%d template changes; generated output will differ", templates))
	}
	if options > 0 {
		out = append(out, fmt.Sprintf("%d option changes; validate the request again", options))
	}
	return out
}
