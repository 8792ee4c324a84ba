package iocboot

import "errors"

var (
	ErrBeanNameEmpty          = errors.New("bean name is empty")
	ErrDefinitionNil          = errors.New("definition is nil")
	ErrBeanNil                = errors.New("bean instance is nil")
	ErrBeanTypeNotSupported   = errors.New("bean type is not supported")
	ErrBeanNotFound           = errors.New("bean not found")
	ErrDefinitionNotFound     = errors.New("definition not found")
	ErrTypeUnresolved         = errors.New("definition type cannot be resolved")
	ErrCurrentlyInCreation    = errors.New("bean is currently in creation")
	ErrDiscoveryNotConverging = errors.New("definition-registry post-processor discovery did not converge")
	ErrPlaceholderUnresolved  = errors.New("placeholder cannot be resolved")
)
