package ir

// SchemaKind discriminates the variants of Schema. Go has no sum types, so
// Schema carries every variant's fields and Kind says which ones are live.
type SchemaKind string

const (
	SchemaString  SchemaKind = "string"
	SchemaInteger SchemaKind = "integer"
	SchemaNumber  SchemaKind = "number"
	SchemaBoolean SchemaKind = "boolean"
	SchemaNull    SchemaKind = "null"
	SchemaArray   SchemaKind = "array"
	SchemaObject  SchemaKind = "object"
	SchemaEnum    SchemaKind = "enum"
	SchemaUnion   SchemaKind = "union"
	SchemaRef     SchemaKind = "ref"
	SchemaAny     SchemaKind = "any"
)

// StringFormat enumerates the recognized string formats.
type StringFormat string

const (
	FormatNone     StringFormat = ""
	FormatEmail    StringFormat = "email"
	FormatUUID     StringFormat = "uuid"
	FormatDate     StringFormat = "date"
	FormatDateTime StringFormat = "date-time"
	FormatIPv4     StringFormat = "ipv4"
	FormatIPv6     StringFormat = "ipv6"
	FormatURI      StringFormat = "uri"
	FormatOther    StringFormat = "other"
)

// Constraints holds every bound a Schema variant might carry. Fields that do
// not apply to a given variant are simply left at their zero value; consumers
// only read the fields relevant to the Schema's Kind.
type Constraints struct {
	// String
	MinLen   *int
	MaxLen   *int
	Pattern  string
	Format   StringFormat
	Nullable bool

	// Integer / Number
	Min          *float64
	Max          *float64
	ExclusiveMin bool
	ExclusiveMax bool
	MultipleOf   *float64

	// Array
	MinItems    *int
	MaxItems    *int
	UniqueItems bool

	// Object
	MinProps          *int
	MaxProps          *int
	DependentRequired map[string][]string
}

// Schema is the IR's type-description sum type. See SchemaKind for variants.
type Schema struct {
	Kind        SchemaKind
	Constraints Constraints

	// Array
	Items *Schema

	// Object
	Properties        *OrderedMap[*Schema]
	Required          *OrderedSet
	AdditionalAllowed bool

	// Enum
	EnumValues      []any
	EnumBaseType    SchemaKind
	EnumNamedType   string // non-empty if the enum was declared as a named TypeDecl

	// Union
	Variants []*Schema

	// Ref
	RefTo string

	// Object, when declared as a named TypeDecl (preserved for rendering imports)
	NamedType string
}

// IsNullable reports whether nil/null is a legal value for this schema.
func (s *Schema) IsNullable() bool {
	if s == nil {
		return false
	}
	return s.Constraints.Nullable
}

// NewObjectSchema returns an empty Object schema with initialized collections.
func NewObjectSchema() *Schema {
	return &Schema{
		Kind:       SchemaObject,
		Properties: NewOrderedMap[*Schema](),
		Required:   NewOrderedSet(),
	}
}
