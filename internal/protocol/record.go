package protocol

// NamedValue is one entry of a Record in layout order.
type NamedValue struct {
	Name  string
	Value Value
}

// Record is the decoded form of one bank. Fields keep layout order.
type Record struct {
	Bank   string
	Fields []NamedValue
	// End is the payload offset just past the last decoded byte.
	End int

	index map[string]int
}

func NewRecord(bank string) *Record {
	return &Record{Bank: bank, index: make(map[string]int)}
}

// Set stores v under name, replacing an earlier value with the same name.
func (r *Record) Set(name string, v Value) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[name]; ok {
		r.Fields[i].Value = v
		return
	}
	r.index[name] = len(r.Fields)
	r.Fields = append(r.Fields, NamedValue{Name: name, Value: v})
}

func (r *Record) Get(name string) (Value, bool) {
	if r == nil {
		return Value{}, false
	}
	i, ok := r.index[name]
	if !ok {
		return Value{}, false
	}
	return r.Fields[i].Value, true
}

func (r *Record) Names() []string {
	names := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		names[i] = f.Name
	}
	return names
}
