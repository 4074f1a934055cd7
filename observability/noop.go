package observability

// NoOpObserver discards every operation.
type NoOpObserver struct{}

func (n *NoOpObserver) ObserveOperation(OperationContext) {}

// NewNoOpObserver creates a new NoOpObserver.
func NewNoOpObserver() Observer {
	return &NoOpObserver{}
}

// Multi fans each operation out to several observers in order. Nil entries are
// skipped.
type Multi []Observer

func (m Multi) ObserveOperation(ctx OperationContext) {
	for _, o := range m {
		if o != nil {
			o.ObserveOperation(ctx)
		}
	}
}

// Combine returns a single Observer for observers. It returns nil when none are
// non-nil and the observer itself when exactly one is.
func Combine(observers ...Observer) Observer {
	var out Multi
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	default:
		return out
	}
}
