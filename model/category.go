package model

var categoryNames = map[Category]string{
	CategorySchema:     "schema",
	CategoryExtension:  "extension",
	CategoryType:       "type",
	CategorySequence:   "sequence",
	CategoryTable:      "table",
	CategoryFunction:   "function",
	CategoryAlter:      "alter",
	CategoryConstraint: "constraint",
	CategoryIndex:      "index",
	CategoryTrigger:    "trigger",
	CategoryView:       "view",
	CategoryRule:       "rule",
	CategoryPolicy:     "policy",
	CategoryGrant:      "grant",
	CategoryComment:    "comment",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "invalid"
}

// Valid returns true if c names an actual category
func (c Category) Valid() bool {
	return c > CategoryInvalid && c < CategoryMax
}

// Categories returns every valid category in emission order
func Categories() []Category {
	list := make([]Category, 0, int(CategoryMax)-1)
	for c := CategoryInvalid + 1; c < CategoryMax; c++ {
		list = append(list, c)
	}
	return list
}

// LookupCategory returns the category with the given name
func LookupCategory(name string) (Category, bool) {
	for c, n := range categoryNames {
		if n == name {
			return c, true
		}
	}
	return CategoryInvalid, false
}
