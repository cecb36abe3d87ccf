package aggregates

// Contract names an aggregate and the tables its writes own. Reads outside
// the write path go through table repos directly.
type Contract struct {
	Name   string
	Tables []string
	// Versioned writes compare-and-swap the version column of the first
	// table's row.
	Versioned bool
}

type Aggregate interface {
	Contract() Contract
}

// Owns reports whether table is written by the aggregate.
func (c Contract) Owns(table string) bool {
	for _, t := range c.Tables {
		if t == table {
			return true
		}
	}
	return false
}
