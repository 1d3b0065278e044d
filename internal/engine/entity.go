package engine

// Entity is a stored record: an identifier, the collection it belongs to,
// and a flat field map. Entities are immutable once committed; updates
// write a new version under the same ID.
type Entity struct {
	ID         string                 `json:"id"`
	Collection string                 `json:"collection"`
	Fields     map[string]interface{} `json:"fields"`
}

// Field returns a field value, or nil when absent.
func (e Entity) Field(name string) interface{} {
	if e.Fields == nil {
		return nil
	}
	return e.Fields[name]
}

// StringField returns a field coerced to string, or "" when absent or not
// a string.
func (e Entity) StringField(name string) string {
	s, _ := e.Field(name).(string)
	return s
}
