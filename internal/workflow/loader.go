package workflow

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"
)

// Workflow is a named, ordered sequence of step definitions.
type Workflow struct {
	Name  string
	Steps []StepDefinition
}

// workflowDoc is the raw YAML shape before polymorphic step resolution.
type workflowDoc struct {
	Name  string                   `yaml:"name"`
	Steps []map[string]interface{} `yaml:"steps"`
}

// Parse reads a workflow from YAML. Each step is a map with a "type" key
// naming a registered step; remaining keys unmarshal into that step's
// concrete struct.
func Parse(data []byte) (*Workflow, error) {
	var doc workflowDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse workflow: %w", err)
	}
	if doc.Name == "" {
		return nil, fmt.Errorf("workflow requires a name")
	}
	if len(doc.Steps) == 0 {
		return nil, fmt.Errorf("workflow %q has no steps", doc.Name)
	}

	wf := &Workflow{Name: doc.Name}
	for i, stepMap := range doc.Steps {
		step, err := unmarshalStep(stepMap)
		if err != nil {
			return nil, fmt.Errorf("workflow %q step %d: %w", doc.Name, i+1, err)
		}
		wf.Steps = append(wf.Steps, step)
	}
	return wf, nil
}

// LoadFile reads a workflow document from disk.
func LoadFile(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}
	return Parse(data)
}

// unmarshalStep resolves one raw step map into its concrete type through
// the step registry.
func unmarshalStep(stepMap map[string]interface{}) (StepDefinition, error) {
	typeRaw, ok := stepMap["type"]
	if !ok {
		return nil, fmt.Errorf("step missing 'type' field")
	}
	typeName, ok := typeRaw.(string)
	if !ok || typeName == "" {
		return nil, fmt.Errorf("step 'type' must be a non-empty string")
	}

	structType, found := stepRegistry[strings.ToLower(typeName)]
	if !found {
		return nil, fmt.Errorf("unknown step type %q (available: %v)", typeName, registeredSteps())
	}

	step := reflect.New(structType).Interface().(StepDefinition)

	// Round-trip through YAML to fill the concrete struct's fields.
	raw, err := yaml.Marshal(stepMap)
	if err != nil {
		return nil, fmt.Errorf("error marshaling step: %w", err)
	}
	if err := yaml.Unmarshal(raw, step); err != nil {
		return nil, fmt.Errorf("error unmarshaling step into %T: %w", step, err)
	}
	return step, nil
}
