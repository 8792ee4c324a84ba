package iocboot

// Initializer is an optional interface a bean may implement to perform
// additional initialization once its property values have been applied.
//
// The factory calls Initialize() during bean creation, between the
// BeforeInit and AfterInit post-processor callbacks. If Initialize returns
// an error, creation fails with that error.
//
// Note: This interface is intentionally free of references to container
// types so beans in other modules can implement it without introducing
// cyclic dependencies.
type Initializer interface {
	Initialize() error
}
