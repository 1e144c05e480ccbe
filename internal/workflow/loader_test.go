package workflow

import (
	"testing"
)

func TestParseWorkflow(t *testing.T) {
	wf, err := Parse([]byte(`
name: daily-login
steps:
  - type: wait_for_page
    page: Login
    timeout: 10
  - type: click_element
    page: Login
    role: start
    attempts: 3
  - type: read_element
    element: gold counter
    store_as: gold
  - type: navigate
    to: Shop
  - type: sleep
    ms: 250
`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if wf.Name != "daily-login" {
		t.Errorf("name = %q", wf.Name)
	}
	if len(wf.Steps) != 5 {
		t.Fatalf("steps = %d, want 5", len(wf.Steps))
	}

	wait, ok := wf.Steps[0].(*WaitForPage)
	if !ok {
		t.Fatalf("step 0 is %T, want *WaitForPage", wf.Steps[0])
	}
	if wait.Page != "Login" || wait.Timeout != 10 {
		t.Errorf("wait = %+v", wait)
	}

	click, ok := wf.Steps[1].(*ClickElement)
	if !ok {
		t.Fatalf("step 1 is %T, want *ClickElement", wf.Steps[1])
	}
	if click.Role != "start" || click.Attempts != 3 {
		t.Errorf("click = %+v", click)
	}

	read, ok := wf.Steps[2].(*ReadElement)
	if !ok {
		t.Fatalf("step 2 is %T, want *ReadElement", wf.Steps[2])
	}
	if read.Element != "gold counter" || read.StoreAs != "gold" {
		t.Errorf("read = %+v", read)
	}
}

func TestParseUnknownStepType(t *testing.T) {
	_, err := Parse([]byte(`
name: broken
steps:
  - type: teleport
    to: nowhere
`))
	if err == nil {
		t.Fatal("unknown step type should fail to parse")
	}
}

func TestParseRequiresNameAndSteps(t *testing.T) {
	if _, err := Parse([]byte("steps:\n  - type: sleep\n    ms: 1\n")); err == nil {
		t.Error("missing name should fail")
	}
	if _, err := Parse([]byte("name: empty\n")); err == nil {
		t.Error("missing steps should fail")
	}
}

func TestStepValidationAgainstConfiguration(t *testing.T) {
	cfg := loginLobbyConfig(t)
	builder := NewBuilder().WithConfiguration(cfg)

	good := &WaitForPage{Page: "Login", Timeout: 5}
	if err := good.Validate(builder); err != nil {
		t.Errorf("valid step rejected: %v", err)
	}

	bad := &WaitForPage{Page: "Settings", Timeout: 5}
	if err := bad.Validate(builder); err == nil {
		t.Error("unknown page should fail build-time validation")
	}

	badRole := &ClickElement{Page: "Lobby", Role: "start"}
	if err := badRole.Validate(builder); err == nil {
		t.Error("role missing on page should fail build-time validation")
	}
}
