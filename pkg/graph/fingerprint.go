package graph

import (
	"strconv"

	"github.com/cespare/xxhash/v2"

	"tabula-hq/formula/pkg/schema"
)

// Fingerprint hashes the parts of a schema that shape the graph: column
// ids, keys, names, expressions and declared dependencies. Two schemas with
// the same fingerprint produce the same graph.
func Fingerprint(columns []schema.Column) string {
	d := xxhash.New()
	write := func(s string) {
		_, _ = d.WriteString(s)
		_, _ = d.Write([]byte{0})
	}

	for i := range columns {
		c := &columns[i]
		write(c.ID)
		write(c.Key)
		write(c.Name)
		if c.Formula != nil {
			write(c.Formula.Expression)
			for _, dep := range c.Formula.Dependencies {
				write(dep)
			}
		}
		_, _ = d.Write([]byte{1})
	}
	return strconv.FormatUint(d.Sum64(), 16)
}
