package sheet

// Record maps a field name to the cell found under it.
// Records are built once by the tabularizer and never written afterwards.
type Record map[string]Cell

// Get returns the cell for a field, Missing when the field is absent
func (r Record) Get(field string) Cell {
	c, ok := r[field]
	if !ok {
		return Missing
	}
	return c
}

// Collection is every record produced from one file
type Collection struct {
	// Fields lists field names in header order, each once
	Fields  []string `json:"fields"`
	Records []Record `json:"records"`
}

// Len returns the number of records
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Records)
}

// IsEmpty reports whether the collection holds no records
func (c *Collection) IsEmpty() bool {
	return c.Len() == 0
}

// Headers returns the field names of the first record, in header order
func (c *Collection) Headers() []string {
	if c.IsEmpty() {
		return nil
	}
	out := make([]string, len(c.Fields))
	copy(out, c.Fields)
	return out
}

// Clone returns a deep copy so the collection can cross a goroutine boundary by value
func (c *Collection) Clone() *Collection {
	if c == nil {
		return nil
	}
	out := &Collection{
		Fields:  append([]string(nil), c.Fields...),
		Records: make([]Record, len(c.Records)),
	}
	for i, rec := range c.Records {
		cp := make(Record, len(rec))
		for k, v := range rec {
			cp[k] = v
		}
		out.Records[i] = cp
	}
	return out
}
