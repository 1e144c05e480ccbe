package workflow

import "reflect"

// stepRegistry maps YAML step type names to their concrete Go types,
// enabling polymorphic unmarshaling of StepDefinition values. Names are
// matched lowercase.
//
// To add a new step:
// 1. Create a struct implementing StepDefinition (Validate & Build).
// 2. Add it here under the name used in workflow files.
var stepRegistry = map[string]reflect.Type{
	"wait_for_page": reflect.TypeOf(WaitForPage{}),
	"click_element": reflect.TypeOf(ClickElement{}),
	"read_element":  reflect.TypeOf(ReadElement{}),
	"transition":    reflect.TypeOf(Transition{}),
	"navigate":      reflect.TypeOf(Navigate{}),
	"sleep":         reflect.TypeOf(Sleep{}),
}

// registeredSteps returns the known step names for error messages.
func registeredSteps() []string {
	names := make([]string, 0, len(stepRegistry))
	for name := range stepRegistry {
		names = append(names, name)
	}
	return names
}
