package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRunID       = "run_id"
	FieldKind        = "kind"
	FieldOperation   = "operation"
	FieldError       = "error"
	FieldDuration    = "duration_ms"
	FieldFrom        = "from"
	FieldTo          = "to"
	FieldLocation    = "location_id"
	FieldTeam        = "team_id"
	FieldYear        = "year"
	FieldMonth       = "month"
	FieldProcessed   = "records_processed"
	FieldAggregated  = "records_aggregated"
	FieldGroupErrors = "group_errors"
	FieldDeleted     = "buckets_deleted"
	FieldStatus      = "status"
	FieldAmountCents = "amount_cents"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentAggregate = "aggregate"
	ComponentPnL       = "pnl"
	ComponentReconcile = "reconcile"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentBackend   = "backend"
	ComponentMetrics   = "metrics"
	ComponentCache     = "cache"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithRunID(id string) LogFields {
	f[FieldRunID] = id
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithRange adds the date range and filter of a bucket run.
func (f LogFields) WithRange(from, to, location, team string) LogFields {
	f[FieldFrom] = from
	f[FieldTo] = to
	if location != "" {
		f[FieldLocation] = location
	}
	if team != "" {
		f[FieldTeam] = team
	}
	return f
}

// WithPeriod adds the key of a P&L run.
func (f LogFields) WithPeriod(location string, year, month int) LogFields {
	f[FieldLocation] = location
	f[FieldYear] = year
	f[FieldMonth] = month
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
