package shape

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Describe writes a plain-text rendering of the three shapes.
func Describe(w io.Writer, s *Shapes) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, s.Filter.Name)
	for i := 0; i < len(s.Filter.Slots); {
		f := s.Filter.Slots[i].Field
		var ops []string
		for ; i < len(s.Filter.Slots) && s.Filter.Slots[i].Field.Name == f.Name; i++ {
			ops = append(ops, string(s.Filter.Slots[i].Op))
		}
		fmt.Fprintf(bw, "  %-20s %-9s %s\n", f.Name, f.Type, strings.Join(ops, " "))
	}

	fmt.Fprintln(bw)
	fmt.Fprintln(bw, s.Ordering.Name)
	for _, name := range s.Ordering.Fields {
		fmt.Fprintf(bw, "  %s\n", name)
	}

	fmt.Fprintln(bw)
	fmt.Fprintln(bw, s.Update.Name)
	for _, f := range s.Update.Fields {
		fmt.Fprintf(bw, "  %-20s %s\n", f.Name, f.Type)
	}

	return bw.Flush()
}
