package settings

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
)

// ErrNoEvaluator indicates a rule expression with no engine to run it.
var ErrNoEvaluator = errors.New("settings: rule evaluator not configured")

// Validator checks hydrated instances and reports violations per logical
// parameter name. Three engines compose, in order: `validate` tag constraints
// (go-playground/validator), `rule` expressions run by the configured
// Evaluator, and the instance's own Validatable capability reported under "*".
// Validation is a pure function of instance state.
type Validator struct {
	tags      *validatorv10.Validate
	evaluator Evaluator
	cache     ProgramCache
	functions *FunctionRegistry
	logger    RuleLogger
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// ValidatorWithEvaluator selects the rule engine. Defaults to expr.
func ValidatorWithEvaluator(e Evaluator) ValidatorOption {
	return func(v *Validator) {
		v.evaluator = e
	}
}

// ValidatorWithProgramCache wires a cache for compiled rule programs.
func ValidatorWithProgramCache(cache ProgramCache) ValidatorOption {
	return func(v *Validator) {
		v.cache = cache
	}
}

// ValidatorWithFunctionRegistry exposes custom functions to rule expressions.
func ValidatorWithFunctionRegistry(registry *FunctionRegistry) ValidatorOption {
	return func(v *Validator) {
		if registry != nil {
			v.functions = registry.Clone()
		}
	}
}

// ValidatorWithLogger attaches a rule evaluation logger.
func ValidatorWithLogger(logger RuleLogger) ValidatorOption {
	return func(v *Validator) {
		if logger == nil {
			v.logger = noopRuleLogger{}
			return
		}
		v.logger = logger
	}
}

// NewValidator constructs a Validator.
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{
		tags:   validatorv10.New(validatorv10.WithRequiredStructEnabled()),
		logger: noopRuleLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// Validate runs every engine over instance. Violations are business-level and
// recoverable; a non-nil error is structural (bad rule expression, non-bool
// rule result) and aborts the caller.
func (v *Validator) Validate(instance any, md *Metadata) (Violations, error) {
	rv, err := instanceValue(instance, md)
	if err != nil {
		return nil, err
	}
	violations := Violations{}

	if err := v.tags.Struct(instance); err != nil {
		var invalid *validatorv10.InvalidValidationError
		if errors.As(err, &invalid) {
			return nil, fmt.Errorf("settings: validate %s: %w", md.className, err)
		}
		var fieldErrs validatorv10.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return nil, fmt.Errorf("settings: validate %s: %w", md.className, err)
		}
		for _, fe := range fieldErrs {
			name := fe.StructField()
			if p, perr := md.ParameterByProperty(name); perr == nil {
				name = p.Name
			} else {
				name = lowerFirst(name)
			}
			violations[name] = append(violations[name], constraintMessage(fe))
		}
	}

	var settingsMap map[string]any
	for _, p := range md.params {
		if p.Rule == "" {
			continue
		}
		if settingsMap == nil {
			settingsMap = parameterValues(rv, md)
		}
		value, _ := nativeOf(rv.FieldByIndex(p.fieldIndex), p)
		ok, err := v.evaluateRule(p, value, settingsMap)
		if err != nil {
			return nil, err
		}
		if !ok {
			violations[p.Name] = append(violations[p.Name], ruleMessage(p, value))
		}
	}

	if validatable, ok := instance.(Validatable); ok {
		if err := validatable.Validate(); err != nil {
			violations["*"] = append(violations["*"], err.Error())
		}
	}

	if len(violations) == 0 {
		return Violations{}, nil
	}
	return violations, nil
}

func (v *Validator) evaluateRule(p *ParameterSchema, value any, settingsMap map[string]any) (bool, error) {
	evaluator, err := v.resolveEvaluator()
	if err != nil {
		return false, err
	}
	ctx := RuleContext{
		Value:    value,
		Name:     p.Name,
		Settings: settingsMap,
	}.withDefaults()

	start := time.Now()
	result, evalErr := evaluator.Evaluate(ctx, p.Rule)
	duration := time.Since(start)
	evalErr = wrapRuleError(engineName(evaluator), p.Rule, p.Name, evalErr)
	v.logger.LogRule(RuleLogEvent{
		Engine:    engineName(evaluator),
		Expr:      p.Rule,
		Parameter: p.Name,
		Duration:  duration,
		Err:       evalErr,
	})
	if evalErr != nil {
		return false, evalErr
	}
	passed, ok := result.(bool)
	if !ok {
		return false, wrapRuleError(engineName(evaluator), p.Rule, p.Name,
			fmt.Errorf("rule must yield a bool, got %T", result))
	}
	return passed, nil
}

func (v *Validator) resolveEvaluator() (Evaluator, error) {
	if v.evaluator != nil {
		return v.evaluator, nil
	}
	var exprOpts []ExprEvaluatorOption
	if v.cache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(v.cache))
	}
	if v.functions != nil {
		exprOpts = append(exprOpts, ExprWithFunctionRegistry(v.functions))
	}
	evaluator := NewExprEvaluator(exprOpts...)
	if evaluator == nil {
		return nil, ErrNoEvaluator
	}
	v.evaluator = evaluator
	return evaluator, nil
}

func parameterValues(rv reflect.Value, md *Metadata) map[string]any {
	values := make(map[string]any, len(md.params))
	for _, p := range md.params {
		value, isNil := nativeOf(rv.FieldByIndex(p.fieldIndex), p)
		if isNil {
			values[p.Name] = nil
			continue
		}
		values[p.Name] = value
	}
	return values
}

func constraintMessage(fe validatorv10.FieldError) string {
	if fe.Param() != "" {
		return fmt.Sprintf("violates constraint %s=%s", fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("violates constraint %q", fe.Tag())
}

func ruleMessage(p *ParameterSchema, value any) string {
	if p.RuleMessage != "" {
		return p.RuleMessage
	}
	return fmt.Sprintf("value %v failed rule %q", value, p.Rule)
}

func engineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	switch fmt.Sprintf("%T", e) {
	case "*settings.exprEvaluator":
		return "expr"
	case "*settings.celEvaluator":
		return "cel"
	case "*settings.jsEvaluator":
		return "js"
	default:
		return "custom"
	}
}
