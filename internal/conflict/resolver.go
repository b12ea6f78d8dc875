// Package conflict proposes resolutions for merge conflicts.
//
// The resolver is deliberately biased toward the biz side: no category ever
// defaults to UseBase.
package conflict

import (
	"math"
	"regexp"
	"strings"

	"github.com/simonhull/firebird-suite/nest/internal/model"
)

// Strategy is a proposed way to settle a conflict.
type Strategy string

const (
	KeepBiz Strategy = "keep_biz"
	UseBase Strategy = "use_base"
	Merge   Strategy = "merge"
	Manual  Strategy = "manual"
)

// Resolution is the resolver's proposal for one conflict.
type Resolution struct {
	Strategy   Strategy `json:"strategy"`
	Reason     string   `json:"reason"`
	Confidence float64  `json:"confidence"`
}

// DefaultSignificantLineRatio is the share of the larger side's line count
// that two method versions must differ by before a merge is proposed.
const DefaultSignificantLineRatio = 0.2

var businessLogic = regexp.MustCompile(`(?i)custom|business|logic|TODO|FIXME|NOTE`)

// Resolver maps a conflict to a Resolution. The zero value is ready to use.
type Resolver struct {
	// SignificantLineRatio overrides DefaultSignificantLineRatio when > 0.
	SignificantLineRatio float64
}

// NewResolver returns a resolver using ratio, or the default when ratio <= 0.
func NewResolver(ratio float64) *Resolver {
	return &Resolver{SignificantLineRatio: ratio}
}

func (r *Resolver) ratio() float64 {
	if r == nil || r.SignificantLineRatio <= 0 {
		return DefaultSignificantLineRatio
	}
	return r.SignificantLineRatio
}

// Resolve proposes a strategy for a conflict between baseContent and
// bizContent. It is a pure function of its inputs.
func (r *Resolver) Resolve(baseContent, bizContent string, category model.ConflictCategory) Resolution {
	switch category {
	case model.CategoryCustomMarked:
		return Resolution{KeepBiz, "explicitly marked custom code is always kept", 0.95}

	case model.CategoryImport:
		return Resolution{Merge, "imports can be unioned", 0.9}

	case model.CategoryMethod:
		if businessLogic.MatchString(bizContent) {
			return Resolution{KeepBiz, "biz method carries business logic markers", 0.8}
		}
		baseLines := lineCount(baseContent)
		bizLines := lineCount(bizContent)
		larger := math.Max(float64(baseLines), float64(bizLines))
		if math.Abs(float64(baseLines-bizLines)) > larger*r.ratio() {
			return Resolution{Merge, "method versions differ significantly", 0.6}
		}
		return Resolution{KeepBiz, "conservative default for methods", 0.5}

	case model.CategoryProperty:
		return Resolution{KeepBiz, "property declarations are kept from biz", 0.7}

	default:
		return Resolution{Manual, "unknown conflict category", 0}
	}
}

// Assign fills c.Resolution from Resolve when it is still unset.
// Merge and Manual proposals both require a person and map to ManualMerge.
func (r *Resolver) Assign(c *model.CodeConflict) Resolution {
	res := r.Resolve(c.BaseContent, c.BizContent, c.Category)
	if c.Resolution == model.ResolutionUnset {
		c.Resolution = res.Strategy.Resolution()
	}
	return res
}

// Resolution maps a strategy onto the conflict resolution it implies.
func (s Strategy) Resolution() model.Resolution {
	switch s {
	case KeepBiz:
		return model.ResolutionKeepBiz
	case UseBase:
		return model.ResolutionUseBase
	default:
		return model.ResolutionManualMerge
	}
}

func lineCount(s string) int {
	return strings.Count(s, "\n") + 1
}
