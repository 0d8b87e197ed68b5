package obs

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxStatementLen = 300

type queryStartKey struct{}

type queryStart struct {
	span  trace.Span
	sql   string
	start time.Time
}

// PGXTracer implements pgx.QueryTracer. Order reads and audit writes get one span per
// statement, and statements slower than SlowThreshold are logged.
type PGXTracer struct {
	Logger        *zerolog.Logger
	SlowThreshold time.Duration
}

// TraceQueryStart starts a span named after the statement, e.g. "SELECT orders".
func (t PGXTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	op, table := describeSQL(data.SQL)
	name := "pgx " + strings.ToLower(op)
	if op != "" {
		name = op
		if table != "" {
			name += " " + table
		}
	}
	ctx, span := otel.Tracer("db.pgx").Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.statement", truncateSQL(data.SQL)),
		attribute.Int("db.args", len(data.Args)),
	)
	if op != "" {
		span.SetAttributes(attribute.String("db.operation", op))
	}
	if table != "" {
		span.SetAttributes(attribute.String("db.sql.table", table))
	}
	return context.WithValue(ctx, queryStartKey{}, queryStart{span: span, sql: data.SQL, start: time.Now()})
}

// TraceQueryEnd ends the span and records any error.
func (t PGXTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	qs, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}
	elapsed := time.Since(qs.start)
	if data.Err != nil {
		qs.span.RecordError(data.Err)
		qs.span.SetStatus(codes.Error, data.Err.Error())
	} else {
		qs.span.SetAttributes(attribute.Int64("db.rows_affected", data.CommandTag.RowsAffected()))
	}
	qs.span.End()

	if t.Logger != nil && t.SlowThreshold > 0 && elapsed >= t.SlowThreshold {
		t.Logger.Warn().
			Str("statement", truncateSQL(qs.sql)).
			Int64("duration_ms", elapsed.Milliseconds()).
			Err(data.Err).
			Msg("slow query")
	}
}

// describeSQL returns the upper-cased verb and the first table the statement touches.
func describeSQL(sql string) (op, table string) {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "", ""
	}
	op = strings.ToUpper(fields[0])
	marker := ""
	switch op {
	case "SELECT", "DELETE":
		marker = "FROM"
	case "INSERT":
		marker = "INTO"
	case "UPDATE":
		if len(fields) > 1 {
			return op, cleanIdent(fields[1])
		}
		return op, ""
	default:
		return op, ""
	}
	for i, f := range fields[:len(fields)-1] {
		if strings.EqualFold(f, marker) {
			next := fields[i+1]
			if strings.HasPrefix(next, "(") {
				return op, ""
			}
			return op, cleanIdent(next)
		}
	}
	return op, ""
}

func cleanIdent(s string) string {
	s = strings.TrimRight(s, ",;()")
	return strings.Trim(s, `"`)
}

func truncateSQL(sql string) string {
	trimmed := strings.Join(strings.Fields(sql), " ")
	if len(trimmed) > maxStatementLen {
		return trimmed[:maxStatementLen] + "..."
	}
	return trimmed
}
