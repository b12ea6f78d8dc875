// Package typemap maps metadata field types to Prisma, TypeScript and SQL.
package typemap

import (
	"sort"
	"strings"
)

// Family groups related field types.
type Family string

const (
	FamilyString   Family = "String"
	FamilyNumber   Family = "Number"
	FamilyBoolean  Family = "Boolean"
	FamilyDateTime Family = "DateTime"
	FamilySpecial  Family = "Special"
)

// sizing selects how the SQL type takes the field length.
type sizing int

const (
	sizeNone      sizing = iota
	sizeLength           // VARCHAR(n)
	sizePrecision        // DECIMAL(p, s)
)

// TypeInfo describes one supported field type.
type TypeInfo struct {
	Prisma      string
	TS          string
	SQL         string // base SQL type name; sized types add their length
	Family      Family
	Description string
	// Listed types appear in Supported; the rest are accepted aliases.
	Listed bool

	sizing        sizing
	defaultLength int
}

// Registry contains every accepted field type keyed by its upper-case name.
var Registry = map[string]TypeInfo{
	"STRING":  {Prisma: "String", TS: "string", SQL: "VARCHAR", Family: FamilyString, Description: "Variable length string", Listed: true, sizing: sizeLength, defaultLength: 255},
	"VARCHAR": {Prisma: "String", TS: "string", SQL: "VARCHAR", Family: FamilyString, Description: "Variable length string", sizing: sizeLength, defaultLength: 255},
	"CHAR":    {Prisma: "String", TS: "string", SQL: "CHAR", Family: FamilyString, Description: "Fixed length string", sizing: sizeLength, defaultLength: 1},
	"TEXT":    {Prisma: "String", TS: "string", SQL: "TEXT", Family: FamilyString, Description: "Long text", Listed: true},
	"UUID":    {Prisma: "String", TS: "string", SQL: "UUID", Family: FamilyString, Description: "Universally unique identifier", Listed: true},
	"ENUM":    {Prisma: "String", TS: "string", SQL: "VARCHAR(50)", Family: FamilyString, Description: "Enumeration", Listed: true},

	"INTEGER": {Prisma: "Int", TS: "number", SQL: "INTEGER", Family: FamilyNumber, Description: "32-bit integer", Listed: true},
	"INT":     {Prisma: "Int", TS: "number", SQL: "INTEGER", Family: FamilyNumber, Description: "32-bit integer"},
	"BIGINT":  {Prisma: "BigInt", TS: "bigint", SQL: "BIGINT", Family: FamilyNumber, Description: "64-bit integer", Listed: true},
	"DECIMAL": {Prisma: "Decimal", TS: "number", SQL: "DECIMAL", Family: FamilyNumber, Description: "Fixed-point decimal", Listed: true, sizing: sizePrecision},
	"NUMERIC": {Prisma: "Decimal", TS: "number", SQL: "NUMERIC", Family: FamilyNumber, Description: "Fixed-point decimal", sizing: sizePrecision},
	"FLOAT":   {Prisma: "Float", TS: "number", SQL: "FLOAT", Family: FamilyNumber, Description: "Floating-point number", Listed: true},
	"DOUBLE":  {Prisma: "Float", TS: "number", SQL: "DOUBLE PRECISION", Family: FamilyNumber, Description: "Double precision number"},
	"REAL":    {Prisma: "Float", TS: "number", SQL: "REAL", Family: FamilyNumber, Description: "Single precision number"},

	"BOOLEAN": {Prisma: "Boolean", TS: "boolean", SQL: "BOOLEAN", Family: FamilyBoolean, Description: "True/false value", Listed: true},
	"BOOL":    {Prisma: "Boolean", TS: "boolean", SQL: "BOOLEAN", Family: FamilyBoolean, Description: "True/false value"},

	"DATE":      {Prisma: "DateTime", TS: "Date", SQL: "DATE", Family: FamilyDateTime, Description: "Date only", Listed: true},
	"DATETIME":  {Prisma: "DateTime", TS: "Date", SQL: "TIMESTAMP", Family: FamilyDateTime, Description: "Date and time", Listed: true},
	"TIMESTAMP": {Prisma: "DateTime", TS: "Date", SQL: "TIMESTAMP", Family: FamilyDateTime, Description: "Timestamp with timezone", Listed: true},
	"TIME":      {Prisma: "DateTime", TS: "Date", SQL: "TIME", Family: FamilyDateTime, Description: "Time of day"},

	"JSON":   {Prisma: "Json", TS: "any", SQL: "JSON", Family: FamilySpecial, Description: "JSON data", Listed: true},
	"JSONB":  {Prisma: "Json", TS: "any", SQL: "JSONB", Family: FamilySpecial, Description: "Binary JSON data"},
	"BINARY": {Prisma: "Bytes", TS: "Buffer", SQL: "BYTEA", Family: FamilySpecial, Description: "Binary data", Listed: true},
	"BLOB":   {Prisma: "Bytes", TS: "Buffer", SQL: "BYTEA", Family: FamilySpecial, Description: "Binary data"},
}

// fallback is used for unknown types.
var fallback = TypeInfo{Prisma: "String", TS: "string", SQL: "TEXT", Family: FamilyString}

// Normalize upper-cases and trims a field type. Empty means STRING.
func Normalize(typeName string) string {
	t := strings.ToUpper(strings.TrimSpace(typeName))
	if t == "" {
		return "STRING"
	}
	return t
}

// Lookup retrieves type info by name, case-insensitively.
func Lookup(typeName string) (TypeInfo, bool) {
	info, ok := Registry[Normalize(typeName)]
	return info, ok
}

// IsSupported reports whether typeName is a known field type.
func IsSupported(typeName string) bool {
	_, ok := Lookup(typeName)
	return ok
}

// SupportedType is one entry of Supported.
type SupportedType struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Category    Family `json:"category"`
}

// Supported lists the primary field types, grouped by family.
func Supported() []SupportedType {
	var out []SupportedType
	for name, info := range Registry {
		if info.Listed {
			out = append(out, SupportedType{Type: name, Description: info.Description, Category: info.Family})
		}
	}
	order := map[Family]int{FamilyString: 0, FamilyNumber: 1, FamilyBoolean: 2, FamilyDateTime: 3, FamilySpecial: 4}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return order[out[i].Category] < order[out[j].Category]
		}
		return out[i].Type < out[j].Type
	})
	return out
}
