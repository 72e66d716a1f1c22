package domain

// Record is one normalized row ready to be appended to the relational store.
// Columns and Values are positional and must have the same length.
type Record interface {
	Table() string
	Columns() []string
	Values() []any
}
