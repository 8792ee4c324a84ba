package iocboot

// beanPostProcessorChecker logs an info message when a bean is created
// while the post-processor chain is still being populated, i.e. when the
// bean is not eligible for getting processed by all bean post-processors.
// The condition is advisory only and never raised as an error.
type beanPostProcessorChecker struct {
	factory     *Factory
	targetCount int
}

var _ BeanPostProcessor = (*beanPostProcessorChecker)(nil)

func (c *beanPostProcessorChecker) BeforeInit(bean any, _ string) (any, error) {
	return bean, nil
}

func (c *beanPostProcessorChecker) AfterInit(bean any, beanName string) (any, error) {
	if _, isPostProcessor := bean.(BeanPostProcessor); !isPostProcessor &&
		!c.factory.isInfrastructure(beanName) &&
		c.factory.BeanPostProcessorCount() < c.targetCount {
		c.factory.Logger().Infof(
			"bean %q of type %T is not eligible for getting processed by all bean post-processors "+
				"(for example: not eligible for auto-proxying)", beanName, bean)
	}
	return bean, nil
}
