package model

// Decorator enriches a form definition after it has been fetched and before
// it is rendered (widget resolution, authorization, layout overrides).
type Decorator interface {
	Decorate(*FormDefinition) error
}

// DecoratorFunc adapts a function into a Decorator.
type DecoratorFunc func(*FormDefinition) error

// Decorate calls the underlying function.
func (fn DecoratorFunc) Decorate(form *FormDefinition) error {
	return fn(form)
}
