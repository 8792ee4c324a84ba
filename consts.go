package iocboot

const (
	emptyString = ""

	// innerBeanNamePrefix prefixes generated names for anonymous nested
	// definitions.
	innerBeanNamePrefix = "(inner bean)#"

	placeholderPrefix     = "${"
	placeholderSuffix     = "}"
	placeholderDefaultSep = ":"
)

// Startup step names used by the bootstrap sequence. These dotted
// identifiers are an observable contract: downstream metrics consumers key
// on them and they must not change across releases.
const (
	stepDefinitionRegistryPostProcess = "iocboot.definition-registry.post-process"
	stepBeanFactoryPostProcess        = "iocboot.bean-factory.post-process"
	stepContextRefresh                = "iocboot.context.refresh"
	stepBeansPostProcess              = "iocboot.context.beans.post-process"

	tagPostProcessor = "postProcessor"
)
