package model

// NewSchema creates an empty schema snapshot with the given name
func NewSchema(name string) Schema {
	return &schema{
		name:  name,
		stmts: make(map[Category]Stmts),
	}
}

func (s *schema) isSchema() bool {
	return true
}

func (s *schema) Name() string {
	return s.name
}

func (s *schema) Statements(c Category) Stmts {
	return s.stmts[c]
}

func (s *schema) Grants() Stmts {
	return s.Statements(CategoryGrant)
}

func (s *schema) AddStatement(c Category, stmt Stmt) {
	s.stmts[c] = append(s.stmts[c], stmt)
}

func (s *schema) Len() int {
	var n int
	for _, list := range s.stmts {
		n += len(list)
	}
	return n
}
