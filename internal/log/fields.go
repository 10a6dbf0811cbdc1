package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldError     = "error"
	FieldOperation = "operation"
	FieldID        = "id"
	FieldVendor    = "vendor"
	FieldDueDate   = "due_date"
	FieldAmountKRW = "amount_krw"
	FieldCount     = "count"
	FieldDropped   = "dropped"
	FieldBackend   = "backend"
	FieldAttempt   = "attempt"
	FieldPath      = "path"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentBackend = "backend"
)

// Operations defines standard operation names
const (
	OpAdd       = "add"
	OpPay       = "pay"
	OpRemove    = "remove"
	OpReconcile = "reconcile"
	OpImport    = "import"
	OpNote      = "note"
	OpSync      = "sync"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithObligation adds the identifying fields of one ledger record.
func (f LogFields) WithObligation(id, vendor, dueDate string, amountKRW int64) LogFields {
	f[FieldID] = id
	f[FieldVendor] = vendor
	f[FieldDueDate] = dueDate
	f[FieldAmountKRW] = amountKRW
	return f
}

// WithLoad adds the record and dropped-row counts of a gateway load.
func (f LogFields) WithLoad(count, dropped int) LogFields {
	f[FieldCount] = count
	f[FieldDropped] = dropped
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
