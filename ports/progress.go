package ports

// ProgressPort receives a callback at repetition boundaries. UI concern; a
// nil port is always acceptable. Calls are serialized by the evaluator, so
// implementations need no locking of their own.
type ProgressPort interface {
	OnRepetition(completed, total int)
}

// ProgressFunc adapts a plain function to ProgressPort.
type ProgressFunc func(completed, total int)

// OnRepetition implements ProgressPort.
func (f ProgressFunc) OnRepetition(completed, total int) {
	f(completed, total)
}
