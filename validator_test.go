package settings

import (
	"errors"
	"testing"
)

type auditSettings struct {
	Mode string `settings:"name=mode" default:"strict"`
}

func (auditSettings) SettingsDefinition() Definition { return Define("audit") }

func (s *auditSettings) Validate() error {
	if s.Mode == "invalid" {
		return errors.New("mode rejected")
	}
	return nil
}

type rangeSettings struct {
	Min int `settings:"name=min" default:"1" rule:"value <= settings.max" ruleMessage:"min must not exceed max"`
	Max int `settings:"name=max" default:"10"`
}

func (rangeSettings) SettingsDefinition() Definition { return Define("range") }

type brokenRuleSettings struct {
	Label string `settings:"name=label" default:"x" rule:"value"`
}

func (brokenRuleSettings) SettingsDefinition() Definition { return Define("brokenrule") }

func TestValidatorReportsTagViolations(t *testing.T) {
	md := mustMetadata(t, MailSettings{})
	mail := newMailInstance(t, md)
	mail.Host = ""

	violations, err := NewValidator().Validate(mail, md)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(violations["host"]) != 1 {
		t.Fatalf("expected one host violation keyed by logical name, got %v", violations)
	}
}

func TestValidatorReportsRuleViolations(t *testing.T) {
	md := mustMetadata(t, MailSettings{})
	mail := newMailInstance(t, md)
	mail.Port = 0

	violations, err := NewValidator().Validate(mail, md)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(violations["port"]) != 1 || violations["port"][0] != "port must be between 1 and 65535" {
		t.Fatalf("expected declared rule message, got %v", violations["port"])
	}
}

func TestValidatorPassesValidInstance(t *testing.T) {
	md := mustMetadata(t, MailSettings{})
	mail := newMailInstance(t, md)

	violations, err := NewValidator().Validate(mail, md)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !violations.Empty() {
		t.Fatalf("expected no violations, got %v", violations)
	}
}

func TestValidatorCrossParameterRule(t *testing.T) {
	md := mustMetadata(t, rangeSettings{})
	instance, err := NewResetter().NewInstance(md)
	if err != nil {
		t.Fatalf("new instance: %v", err)
	}
	r := instance.(*rangeSettings)
	r.Min = 20

	violations, err := NewValidator().Validate(r, md)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(violations["min"]) != 1 || violations["min"][0] != "min must not exceed max" {
		t.Fatalf("expected cross-parameter violation, got %v", violations)
	}
}

func TestValidatorRuleMustYieldBool(t *testing.T) {
	md := mustMetadata(t, brokenRuleSettings{})
	instance, err := NewResetter().NewInstance(md)
	if err != nil {
		t.Fatalf("new instance: %v", err)
	}

	_, err = NewValidator().Validate(instance, md)
	var ruleErr *RuleError
	if !errors.As(err, &ruleErr) {
		t.Fatalf("expected RuleError for non-bool rule result, got %v", err)
	}
	if ruleErr.Parameter != "label" {
		t.Fatalf("expected parameter metadata on rule error, got %q", ruleErr.Parameter)
	}
}

func TestValidatorValidatableCapability(t *testing.T) {
	md := mustMetadata(t, auditSettings{})
	instance, err := NewResetter().NewInstance(md)
	if err != nil {
		t.Fatalf("new instance: %v", err)
	}
	audit := instance.(*auditSettings)
	audit.Mode = "invalid"

	violations, err := NewValidator().Validate(audit, md)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(violations["*"]) != 1 || violations["*"][0] != "mode rejected" {
		t.Fatalf("expected whole-instance violation under *, got %v", violations)
	}
}

func TestValidatorWithCELEvaluator(t *testing.T) {
	md := mustMetadata(t, MailSettings{})
	mail := newMailInstance(t, md)
	mail.Port = 0

	v := NewValidator(ValidatorWithEvaluator(NewCELEvaluator()))
	violations, err := v.Validate(mail, md)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(violations["port"]) != 1 {
		t.Fatalf("expected CEL engine to evaluate the rule, got %v", violations)
	}
}

func TestValidatorLogsRuleEvaluations(t *testing.T) {
	md := mustMetadata(t, MailSettings{})
	mail := newMailInstance(t, md)

	var events []RuleLogEvent
	logger := RuleLoggerFunc(func(event RuleLogEvent) {
		events = append(events, event)
	})
	if _, err := NewValidator(ValidatorWithLogger(logger)).Validate(mail, md); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one rule log event, got %d", len(events))
	}
	if events[0].Engine != "expr" || events[0].Parameter != "port" || events[0].Err != nil {
		t.Fatalf("unexpected rule log event %+v", events[0])
	}
}

func TestValidatorRuleFunctions(t *testing.T) {
	registry := NewFunctionRegistry()
	err := registry.Register("minport", func(args ...any) (any, error) {
		return 1024, nil
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	fnMD := mustMetadata(t, fnRuleSettings{})
	instance, err := NewResetter().NewInstance(fnMD)
	if err != nil {
		t.Fatalf("new instance: %v", err)
	}
	fixture := instance.(*fnRuleSettings)
	fixture.Port = 80

	v := NewValidator(ValidatorWithFunctionRegistry(registry))
	violations, err := v.Validate(fixture, fnMD)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(violations["port"]) != 1 {
		t.Fatalf("expected registered function to drive the rule, got %v", violations)
	}

	fixture.Port = 8080
	violations, err = v.Validate(fixture, fnMD)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !violations.Empty() {
		t.Fatalf("expected rule to pass, got %v", violations)
	}
}

type fnRuleSettings struct {
	Port int `settings:"name=port" default:"8080" rule:"value >= minport()"`
}

func (fnRuleSettings) SettingsDefinition() Definition { return Define("fnrule") }
