package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const maxChainDepth = 8

// Diagnostic is the log-oriented view of an error: its code, unwrap chain
// and, when the root cause is a Postgres error, the server-side fields.
type Diagnostic struct {
	Message string
	Code    Code
	Chain   []string

	SQLState   string
	SQLClass   string
	Constraint string
	Table      string
	Column     string
	Detail     string
	DBMessage  string
}

// sqlStateClasses names the SQLSTATE classes the inventory store can raise.
var sqlStateClasses = map[string]string{
	"08": "connection_exception",
	"22": "data_exception",
	"23": "integrity_constraint_violation",
	"40": "transaction_rollback",
	"53": "insufficient_resources",
	"57": "operator_intervention",
}

func Diagnose(err error) Diagnostic {
	if err == nil {
		return Diagnostic{}
	}

	d := Diagnostic{Message: err.Error(), Code: CodeOf(err)}
	for e := err; e != nil && len(d.Chain) < maxChainDepth; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgxErr):
		d.SQLState = pgxErr.Code
		d.Constraint = pgxErr.ConstraintName
		d.Table = pgxErr.TableName
		d.Column = pgxErr.ColumnName
		d.Detail = pgxErr.Detail
		d.DBMessage = pgxErr.Message
	case errors.As(err, &pqErr):
		d.SQLState = string(pqErr.Code)
		d.Constraint = pqErr.Constraint
		d.Table = pqErr.Table
		d.Column = pqErr.Column
		d.Detail = pqErr.Detail
		d.DBMessage = pqErr.Message
	}
	if len(d.SQLState) >= 2 {
		d.SQLClass = sqlStateClasses[d.SQLState[:2]]
	}
	return d
}

// LogFields flattens the diagnostic for structured logging, leaving out
// empty database fields.
func (d Diagnostic) LogFields() map[string]any {
	fields := map[string]any{
		"error":       d.Message,
		"error_code":  d.Code,
		"error_chain": d.Chain,
	}
	optional := map[string]string{
		"sql_state":     d.SQLState,
		"sql_class":     d.SQLClass,
		"db_constraint": d.Constraint,
		"db_table":      d.Table,
		"db_column":     d.Column,
		"db_detail":     d.Detail,
		"db_message":    d.DBMessage,
	}
	for k, v := range optional {
		if v != "" {
			fields[k] = v
		}
	}
	return fields
}
