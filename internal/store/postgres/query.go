package postgres

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/dipbuyer/internal/domain"
)

// listQuery builds a filtered, paged SELECT with positional arguments.
type listQuery struct {
	sb   strings.Builder
	args []any
}

func newListQuery(base string) *listQuery {
	q := &listQuery{}
	q.sb.WriteString(base)
	q.sb.WriteString(" WHERE 1=1")
	return q
}

func (q *listQuery) where(cond string, arg any) {
	q.args = append(q.args, arg)
	fmt.Fprintf(&q.sb, " AND "+cond, len(q.args))
}

func (q *listQuery) filter(opts domain.ListOpts, symbolCol string) {
	if opts.Symbol != "" && symbolCol != "" {
		q.where(symbolCol+" = $%d", strings.ToUpper(opts.Symbol))
	}
	if opts.Since != nil {
		q.where("created_at >= $%d", *opts.Since)
	}
	if opts.Until != nil {
		q.where("created_at <= $%d", *opts.Until)
	}
}

func (q *listQuery) page(orderBy string, opts domain.ListOpts) {
	q.sb.WriteString(" ORDER BY " + orderBy)
	if opts.Limit > 0 {
		q.args = append(q.args, opts.Limit)
		fmt.Fprintf(&q.sb, " LIMIT $%d", len(q.args))
	}
	if opts.Offset > 0 {
		q.args = append(q.args, opts.Offset)
		fmt.Fprintf(&q.sb, " OFFSET $%d", len(q.args))
	}
}

func (q *listQuery) String() string { return q.sb.String() }
