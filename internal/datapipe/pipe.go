package datapipe

// Filter transforms a value on its way through a pipe
type Filter[T any] func(T) T

// Trigger observes the committed output of a pipe
type Trigger[T any] func(T)

// Pipe is a named value channel. Executing it caches the input, runs the
// filter chain in registration order, caches the result and then notifies
// every trigger. Pipes are not safe for concurrent use; they belong to the
// event loop that executes them.
type Pipe[T any] struct {
	name     string
	input    T
	output   T
	filters  []Filter[T]
	triggers []Trigger[T]
}

// New creates a pipe holding initial as both cached input and output
func New[T any](name string, initial T) *Pipe[T] {
	return &Pipe[T]{
		name:   name,
		input:  initial,
		output: initial,
	}
}

// Name returns the pipe name
func (p *Pipe[T]) Name() string {
	return p.name
}

// AddFilter appends a filter to the chain
func (p *Pipe[T]) AddFilter(f Filter[T]) {
	p.filters = append(p.filters, f)
}

// AddTrigger appends an output trigger
func (p *Pipe[T]) AddTrigger(t Trigger[T]) {
	p.triggers = append(p.triggers, t)
}

// Execute publishes a new input value and returns the filtered output
func (p *Pipe[T]) Execute(value T) T {
	p.input = value

	out := value
	for _, f := range p.filters {
		out = f(out)
	}
	p.output = out

	for _, t := range p.triggers {
		t(out)
	}
	return out
}

// Rerun executes the pipe again with the cached input, so filters observe
// changed external state without the input changing
func (p *Pipe[T]) Rerun() T {
	return p.Execute(p.input)
}

// Input returns the cached unfiltered value
func (p *Pipe[T]) Input() T {
	return p.input
}

// Output returns the cached filtered value
func (p *Pipe[T]) Output() T {
	return p.output
}
