package model

// DefaultSchemaName is the schema statements belong to until a
// search_path says otherwise.
const DefaultSchemaName = "public"

func NewDatabase() Database {
	return &database{
		byName: make(map[string]Schema),
	}
}

func (d *database) isDatabase() bool {
	return true
}

func (d *database) Schemas() []Schema {
	return d.schemas
}

func (d *database) LookupSchema(name string) (Schema, bool) {
	s, ok := d.byName[name]
	return s, ok
}

func (d *database) Schema(name string) Schema {
	if s, ok := d.byName[name]; ok {
		return s
	}
	s := NewSchema(name)
	d.byName[name] = s
	d.schemas = append(d.schemas, s)
	return s
}

func (d *database) IgnoredStatements() []string {
	return d.ignored
}

func (d *database) AddIgnoredStatement(s string) {
	d.ignored = append(d.ignored, s)
}
