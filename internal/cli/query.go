package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/specatalog/internal/catalog"
	"github.com/roach88/specatalog/internal/catalogerr"
	"github.com/roach88/specatalog/internal/schema"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Where []string
	Order []string
}

// QueryResult is the JSON payload of query.
type QueryResult struct {
	Entity  string           `json:"entity"`
	Count   int              `json:"count"`
	Records []map[string]any `json:"records"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <entity>",
		Short: "List records matching a filter",
		Long: `List the records of an entity. Every --where term must match.

Filter keys are "field" (equality) or "field__op" with op one of
ne, gt, lt, ge, le, like, ilike, contains depending on the field type.
Run "specatalog describe <entity>" for the keys an entity accepts.

Examples:
  specatalog query cwepr --where frequency_band=X --order date:desc
  specatalog query measurement --where temperature__ge=80 --where solvent=toluene
  specatalog query rp --where name__contains=TRP --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Where, "where", "w", nil, "key=value filter term (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.Order, "order", "o", nil, "sort term field[:asc|desc] (repeatable)")

	return cmd
}

func runQuery(opts *QueryOptions, cmd *cobra.Command, name string) error {
	return opts.withCatalog(cmd, func(s *session) error {
		e, err := schema.Lookup(name)
		if err != nil {
			return err
		}
		shapes, err := s.cat.Shapes(e)
		if err != nil {
			return err
		}

		filter := shapes.Filter.New()
		for _, term := range opts.Where {
			key, raw, ok := strings.Cut(term, "=")
			if !ok {
				return catalogerr.Validation(e.Name, "", "invalid filter term %q (want key=value)", term)
			}
			if err := filter.SetRaw(strings.TrimSpace(key), raw); err != nil {
				return err
			}
		}
		ordering := shapes.Ordering.New()
		for _, term := range opts.Order {
			if err := ordering.Parse(term); err != nil {
				return err
			}
		}
		s.out.VerboseLog("query %s: %d filter term(s), %d sort term(s)", e.Name, filter.Len(), ordering.Len())

		recs, err := catalog.Collect(s.cat.RunQuery(cmd.Context(), e, filter, ordering))
		if err != nil {
			return err
		}

		result := QueryResult{Entity: e.Name, Count: len(recs), Records: recordMaps(recs)}
		return s.out.Render(result, func(w io.Writer) error {
			if len(recs) == 0 {
				_, err := fmt.Fprintln(w, "No records found.")
				return err
			}
			return writeTable(w, e, recs)
		})
	})
}
