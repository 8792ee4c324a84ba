package iocboot

import "strings"

// listenerDetector closes the bean post-processor chain. It detects beans
// implementing EventListener, including inner/anonymous ones that never
// had a top-level definition, and records them with the factory.
type listenerDetector struct {
	factory *Factory
}

var _ BeanPostProcessor = (*listenerDetector)(nil)

func (d *listenerDetector) BeforeInit(bean any, _ string) (any, error) {
	return bean, nil
}

func (d *listenerDetector) AfterInit(bean any, beanName string) (any, error) {
	if _, ok := bean.(EventListener); !ok {
		return bean, nil
	}
	if strings.HasPrefix(beanName, innerBeanNamePrefix) || !d.factory.ContainsDefinition(beanName) {
		d.factory.Logger().Debugf("inner bean %q detected as event listener", beanName)
	}
	d.factory.registerListener(beanName)
	return bean, nil
}
