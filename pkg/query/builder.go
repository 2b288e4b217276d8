// Package query builds simple SQL statements and routes classified queries to
// the matching connector operation.
//
// Statements produced here are plain text. Identifiers and values are placed
// into the statement verbatim and must already be sanitized by the caller;
// pass untrusted values as statement arguments instead.
package query

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Where comparison kinds.
const (
	Equal = "="
	Like  = "LIKE"
	In    = "IN"
)

// OrderBy directions.
const (
	Asc  = "ASC"
	Desc = "DESC"
)

// Where is one condition of a WHERE clause. Type defaults to "=". Value must
// be a slice when Type is IN and must not be one otherwise.
type Where struct {
	Field string
	Type  string
	Value any
}

// OrderBy is one ORDER BY entry. Type defaults to ASC.
type OrderBy struct {
	Field string
	Type  string
}

// Select describes a single-table SELECT statement.
type Select struct {
	Table   string
	Columns []string
	Wheres  []Where
	OrderBy []OrderBy
	Limit   int
	Offset  int

	// Conjunction joins WHERE conditions. Empty keeps the historical ", "
	// joiner used by BuildSimpleSelect; set it to "AND" or "OR" to produce a
	// boolean condition.
	Conjunction string
}

// ValidationError is returned when a Select cannot be rendered.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid select: " + e.Message
	}
	return fmt.Sprintf("invalid select: %s: %s", e.Field, e.Message)
}

// BuildSimpleSelect renders a SELECT statement. columns defaults to "*".
// Limit and offset are omitted when zero.
//
// WHERE conditions are joined with ", " rather than a boolean connective, as
// the statement format has always done; use BuildSelect with a Conjunction
// for a proper AND.
func BuildSimpleSelect(table string, columns []string, wheres []Where, orderBys []OrderBy, limit, offset int) (string, error) {
	return BuildSelect(Select{
		Table:   table,
		Columns: columns,
		Wheres:  wheres,
		OrderBy: orderBys,
		Limit:   limit,
		Offset:  offset,
	})
}

// BuildSelect renders s as a SELECT statement.
func BuildSelect(s Select) (string, error) {
	if s.Table == "" {
		return "", &ValidationError{Message: "table is required"}
	}

	columns := s.Columns
	if len(columns) == 0 {
		columns = []string{"*"}
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(columns, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(s.Table)

	if len(s.Wheres) > 0 {
		joiner := ", "
		if c := strings.TrimSpace(s.Conjunction); c != "" {
			joiner = " " + strings.ToUpper(c) + " "
		}

		conds := make([]string, 0, len(s.Wheres))
		for _, w := range s.Wheres {
			cond, err := renderWhere(w)
			if err != nil {
				return "", err
			}
			conds = append(conds, cond)
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, joiner))
	}

	if len(s.OrderBy) > 0 {
		orders := make([]string, 0, len(s.OrderBy))
		for _, o := range s.OrderBy {
			dir := strings.ToUpper(o.Type)
			if dir == "" {
				dir = Asc
			}
			if dir != Asc && dir != Desc {
				return "", &ValidationError{Field: o.Field, Message: fmt.Sprintf("order type must be ASC or DESC, got %q", o.Type)}
			}
			orders = append(orders, o.Field+" "+dir)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(orders, ", "))
	}

	if s.Limit > 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(s.Limit))
	}
	if s.Offset > 0 {
		sb.WriteString(" OFFSET ")
		sb.WriteString(strconv.Itoa(s.Offset))
	}

	return sb.String(), nil
}

func renderWhere(w Where) (string, error) {
	kind := strings.ToUpper(strings.TrimSpace(w.Type))
	if kind == "" {
		kind = Equal
	}

	items, isList := listValues(w.Value)
	switch kind {
	case In:
		if !isList {
			return "", &ValidationError{Field: w.Field, Message: "value must be a list if type is IN"}
		}
		rendered := make([]string, len(items))
		for i, item := range items {
			rendered[i] = fmt.Sprint(item)
		}
		return fmt.Sprintf("%s IN (%s)", w.Field, strings.Join(rendered, ", ")), nil
	case Equal, Like:
		if isList {
			return "", &ValidationError{Field: w.Field, Message: "value may only be a list if type is IN"}
		}
		return fmt.Sprintf("%s %s %v", w.Field, kind, w.Value), nil
	default:
		return "", &ValidationError{Field: w.Field, Message: fmt.Sprintf("unsupported comparison %q", w.Type)}
	}
}

// listValues returns the elements of v when v is a slice or array.
func listValues(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}
