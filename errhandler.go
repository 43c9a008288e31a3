package colorpages

import (
	"errors"

	"github.com/dpotapov/colorpages/chtml"
)

type errorHandlerComponent struct {
	// comp is the component to render. It is nil if the import failed.
	comp chtml.Component

	// importErr is the error returned by the Importer.
	importErr error

	// fallback is rendered when the import or the render of comp fails.
	fallback chtml.Component

	// errs holds the errors of the last Render call.
	errs []error
}

var _ chtml.Component = (*errorHandlerComponent)(nil)
var _ chtml.Disposable = (*errorHandlerComponent)(nil)

// NewErrorHandlerComponent imports the component name with imp and guards its rendering.
// On failure the fallback component is rendered with two variables: "errors", a list of
// error messages, and "path", the URL path being rendered. Without a fallback the error is
// returned as is.
func NewErrorHandlerComponent(name string, imp chtml.Importer, fallback chtml.Component) *errorHandlerComponent {
	comp, err := imp.Import(name)

	return &errorHandlerComponent{
		comp:      comp,
		importErr: err,
		fallback:  fallback,
	}
}

func (eh *errorHandlerComponent) Render(s chtml.Scope) (any, error) {
	eh.errs = nil

	err := eh.importErr
	if err == nil {
		rr, rerr := eh.comp.Render(s)
		if rerr == nil {
			return rr, nil
		}
		err = rerr
	}

	if multierr, ok := err.(interface{ Unwrap() []error }); ok {
		eh.errs = multierr.Unwrap()
	} else {
		eh.errs = []error{err}
	}

	if eh.fallback == nil {
		return nil, err
	}

	msgs := make([]string, 0, len(eh.errs))
	for _, e := range eh.errs {
		msgs = append(msgs, e.Error())
	}

	path, _, _ := RouteFromScope(s)

	return eh.fallback.Render(s.Spawn(map[string]any{
		"errors": msgs,
		"path":   path,
	}))
}

// Failed reports whether the last Render call fell back to the error component.
func (eh *errorHandlerComponent) Failed() bool {
	return len(eh.errs) > 0
}

// Err returns the errors of the last Render call joined together.
func (eh *errorHandlerComponent) Err() error {
	return errors.Join(eh.errs...)
}

func (eh *errorHandlerComponent) Dispose() error {
	return errors.Join(chtml.Dispose(eh.comp), chtml.Dispose(eh.fallback))
}
