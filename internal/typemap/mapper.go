package typemap

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/simonhull/firebird-suite/nest/internal/logger"
	"github.com/simonhull/firebird-suite/nest/internal/model"
)

// Mapping is the full mapping of one field.
type Mapping struct {
	PrismaType   string   `json:"prismaType"`
	TSType       string   `json:"tsType"`
	SQLType      string   `json:"sqlType"`
	DefaultValue string   `json:"defaultValue,omitempty"`
	Attributes   []string `json:"attributes"`
}

// Mapper maps fields and logs unknown types.
type Mapper struct {
	log logger.Logger
}

// NewMapper creates a mapper. A nil logger uses the default logger.
func NewMapper(log logger.Logger) *Mapper {
	if log == nil {
		log = logger.Default()
	}
	return &Mapper{log: log}
}

func (m *Mapper) info(f model.Field) (string, TypeInfo) {
	t := Normalize(f.Type)
	info, ok := Registry[t]
	if !ok {
		m.log.Warn("unknown field type, defaulting to string",
			logger.F("field", f.Code), logger.F("type", f.Type))
		return t, fallback
	}
	return t, info
}

// Map returns every mapping of f.
func (m *Mapper) Map(f model.Field) Mapping {
	t, info := m.info(f)
	return Mapping{
		PrismaType:   info.Prisma,
		TSType:       tsType(f, info),
		SQLType:      sqlType(f, info),
		DefaultValue: FormatDefault(f),
		Attributes:   attributes(f, t, info),
	}
}

// PrismaType maps f to its Prisma scalar type.
func (m *Mapper) PrismaType(f model.Field) string {
	_, info := m.info(f)
	return info.Prisma
}

// TSType maps f to its TypeScript type, with "| null" when nullable.
func (m *Mapper) TSType(f model.Field) string {
	_, info := m.info(f)
	return tsType(f, info)
}

// SQLType maps f to its column type.
func (m *Mapper) SQLType(f model.Field) string {
	_, info := m.info(f)
	return sqlType(f, info)
}

// Attributes returns the Prisma attributes of f.
func (m *Mapper) Attributes(f model.Field) []string {
	t, info := m.info(f)
	return attributes(f, t, info)
}

func tsType(f model.Field, info TypeInfo) string {
	if f.Nullable {
		return info.TS + " | null"
	}
	return info.TS
}

func sqlType(f model.Field, info TypeInfo) string {
	switch info.sizing {
	case sizeLength:
		return fmt.Sprintf("%s(%d)", info.SQL, length(f, info.defaultLength))
	case sizePrecision:
		p, s := precision(f)
		return fmt.Sprintf("%s(%d, %d)", info.SQL, p, s)
	}
	return info.SQL
}

func attributes(f model.Field, t string, info TypeInfo) []string {
	attrs := []string{}

	if f.IsPrimaryKey {
		attrs = append(attrs, "@id")
		switch {
		case t == "UUID" || (t == "STRING" && f.Code == "id"):
			if f.DefaultValue == "uuid()" {
				attrs = append(attrs, "@default(uuid())")
			} else {
				attrs = append(attrs, "@default(cuid())")
			}
		case t == "INTEGER" || t == "INT":
			attrs = append(attrs, "@default(autoincrement())")
		}
	} else {
		if f.IsUnique {
			attrs = append(attrs, "@unique")
		}
		if d := FormatDefault(f); d != "" {
			attrs = append(attrs, "@default("+d+")")
		}
	}

	if info.Family == FamilyDateTime {
		switch {
		case f.Code == "updatedAt":
			attrs = append(attrs, "@updatedAt")
		case f.Code == "createdAt" && f.DefaultValue == "":
			attrs = append(attrs, "@default(now())")
		}
	}

	switch t {
	case "STRING", "VARCHAR":
		attrs = append(attrs, fmt.Sprintf("@db.VarChar(%d)", length(f, 255)))
	case "TEXT":
		attrs = append(attrs, "@db.Text")
	case "DECIMAL", "NUMERIC":
		p, s := precision(f)
		attrs = append(attrs, fmt.Sprintf("@db.Decimal(%d, %d)", p, s))
	case "CHAR":
		attrs = append(attrs, fmt.Sprintf("@db.Char(%d)", length(f, 1)))
	}
	return attrs
}

// FormatDefault renders the field default as a Prisma literal, or "" when
// the field has none.
func FormatDefault(f model.Field) string {
	v := f.DefaultValue
	if v == "" {
		return ""
	}

	t := Normalize(f.Type)
	info, ok := Registry[t]
	if !ok {
		return strconv.Quote(v)
	}

	switch info.Family {
	case FamilyDateTime:
		if v == "now()" || strings.EqualFold(v, "CURRENT_TIMESTAMP") {
			return "now()"
		}
		return strconv.Quote(v)
	case FamilyBoolean:
		return strconv.FormatBool(v == "true" || v == "TRUE" || v == "1")
	case FamilyNumber:
		return v
	case FamilySpecial:
		if (t == "JSON" || t == "JSONB") && json.Valid([]byte(v)) {
			return v
		}
	}
	return strconv.Quote(v)
}

// length parses a plain numeric length, falling back to def.
func length(f model.Field, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(f.Length))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// precision parses "p,s" or "p" lengths. Defaults are 10 and 2.
func precision(f model.Field) (int, int) {
	p, s := 10, 2
	parts := strings.SplitN(f.Length, ",", 2)
	if n, err := strconv.Atoi(strings.TrimSpace(parts[0])); err == nil && n > 0 {
		p = n
	}
	if len(parts) == 2 {
		if n, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil && n > 0 {
			s = n
		}
	}
	return p, s
}
