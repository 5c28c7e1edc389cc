package try

// something having method `Fatal`.
//
// Standard library examples: *testing.T, log.Logger
type Fataler interface {
	Fatal(...any)
}

// Either wraps a (T, error) pair.
//
// When the error is nil the Either is "ok" and the T value is valid.
// Otherwise the T value must not be used.
type Either[T any] interface {

	// Get returns (value, nil) when ok, (zero-value, error) otherwise.
	Get() (T, error)

	// OrFatal returns the T value when ok.
	//
	// Otherwise it calls ftl.Fatal(err). If ftl has a "Helper()" method
	// (like *testing.T), that is called first.
	OrFatal(ftl Fataler) T

	// OrDefault returns the T value when ok, and d otherwise.
	OrDefault(d T) T
}

// Map converts the wrapped value when the Either is ok.
func Map[T any, R any](try Either[T], mapper func(T) R) Either[R] {
	val, err := try.Get()
	if err != nil {
		return tryNg[R]{err}
	}
	return tryOk[R]{mapper(val)}
}

// TryMap converts the wrapped value when the Either is ok.
//
// An error-wrapping Either passes through; otherwise the result is
// To(mapper(value)).
func TryMap[T any, R any](try Either[T], mapper func(T) (R, error)) Either[R] {
	val, err := try.Get()
	if err != nil {
		return tryNg[R]{err}
	}
	return To(mapper(val))
}

func To[T any](ok T, ng error) Either[T] {
	if ng == nil {
		return tryOk[T]{ok}
	}
	return tryNg[T]{ng}
}

type tryOk[T any] struct {
	value T
}

type tryNg[T any] struct {
	err error
}

func (ok tryOk[T]) Get() (T, error) {
	return ok.value, nil
}

func (ng tryNg[T]) Get() (T, error) {
	return *new(T), ng.err
}

func (ok tryOk[T]) OrDefault(d T) T {
	return ok.value
}

func (ng tryNg[T]) OrDefault(d T) T {
	return d
}

func (ok tryOk[T]) OrFatal(Fataler) T {
	return ok.value
}

func (ng tryNg[T]) OrFatal(ftl Fataler) T {
	if hlp, ok := ftl.(interface{ Helper() }); ok {
		hlp.Helper() // think *testing.T
	}
	ftl.Fatal(ng.err)

	return *new(T)
}
