package relational

type (
	Op string

	// Mutation is one row's worth of column assignments bound for Table.
	Mutation struct {
		Table   string  `json:"table"`
		Op      Op      `json:"op"`
		Columns []Field `json:"columns" validate:"required"`
	}

	// MutationGroup is applied as a unit. Primary is ordered after every attached mutation.
	MutationGroup struct {
		Primary  Mutation   `json:"primary" validate:"required"`
		Attached []Mutation `json:"attached"`
	}
)

const (
	OpInsert         Op = "INSERT"
	OpUpdate         Op = "UPDATE"
	OpInsertOrUpdate Op = "INSERT_OR_UPDATE"
	OpReplace        Op = "REPLACE"
)

func NewMutation(table string, op Op, columns ...Field) Mutation {
	return Mutation{Table: table, Op: op, Columns: columns}
}

// Value finds a column by name.
func (m Mutation) Value(column string) (Value, bool) {
	for _, c := range m.Columns {
		if c.Name == column {
			return c.Value, true
		}
	}
	return Value{}, false
}

// Mutations returns attached mutations in order followed by the primary.
func (g MutationGroup) Mutations() []Mutation {
	out := make([]Mutation, 0, len(g.Attached)+1)
	out = append(out, g.Attached...)
	return append(out, g.Primary)
}
