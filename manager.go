package settings

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/goliatone/go-settings/pkg/activity"
	"github.com/goliatone/go-settings/pkg/storage"
)

// Manager is the front door of the settings layer. It owns the identity map
// (one live instance per settings class), routes classes to storage adapters,
// and drives the hydrate, validate, persist, and reset lifecycle. Save and
// Reload cascade over the embedded-settings closure; their *Only variants
// touch a single class.
type Manager struct {
	mu    sync.Mutex
	cells map[reflect.Type]*lazyCell

	schemas   *SchemaManager
	metadata  *MetadataManager
	hydrator  *Hydrator
	resetter  *Resetter
	validator *Validator
	proxies   *ProxyFactory
	registry  *Registry
	emitter   *activity.Emitter

	adapters       map[string]storage.Adapter
	defaultAdapter storage.Adapter
	env            EnvResolver
}

type managerConfig struct {
	adapters        map[string]storage.Adapter
	defaultAdapter  storage.Adapter
	env             EnvResolver
	envMappers      map[string]EnvMapper
	evaluator       Evaluator
	programCache    ProgramCache
	functions       *FunctionRegistry
	ruleLogger      RuleLogger
	hooks           activity.Hooks
	activityChannel string
	schemaCache     SchemaCache
	parameterTypes  []ParameterType
	debug           bool
	protos          []Definable
}

// ManagerOption configures a Manager.
type ManagerOption func(*managerConfig)

// WithStorageAdapter registers a named storage adapter. Classes bind to it
// through WithStorage in their definition.
func WithStorageAdapter(name string, adapter storage.Adapter) ManagerOption {
	return func(cfg *managerConfig) {
		if name != "" && adapter != nil {
			cfg.adapters[name] = adapter
		}
	}
}

// WithDefaultStorage replaces the default adapter used by classes that do not
// name one. Defaults to an in-memory adapter.
func WithDefaultStorage(adapter storage.Adapter) ManagerOption {
	return func(cfg *managerConfig) {
		if adapter != nil {
			cfg.defaultAdapter = adapter
		}
	}
}

// WithEnvResolver replaces the environment resolver. Defaults to a resolver
// over os.LookupEnv carrying the registered mappers.
func WithEnvResolver(env EnvResolver) ManagerOption {
	return func(cfg *managerConfig) {
		cfg.env = env
	}
}

// WithEnvMapper registers a named transform for `mapper=` references in env
// tags.
func WithEnvMapper(name string, mapper EnvMapper) ManagerOption {
	return func(cfg *managerConfig) {
		if name != "" && mapper != nil {
			cfg.envMappers[name] = mapper
		}
	}
}

// WithRuleEvaluator selects the rule engine used by validation. Defaults to
// expr.
func WithRuleEvaluator(evaluator Evaluator) ManagerOption {
	return func(cfg *managerConfig) {
		cfg.evaluator = evaluator
	}
}

// WithProgramCache wires a cache for compiled rule programs.
func WithProgramCache(cache ProgramCache) ManagerOption {
	return func(cfg *managerConfig) {
		cfg.programCache = cache
	}
}

// WithFunctionRegistry exposes custom functions to rule expressions.
func WithFunctionRegistry(registry *FunctionRegistry) ManagerOption {
	return func(cfg *managerConfig) {
		cfg.functions = registry
	}
}

// WithRuleLogger attaches a rule evaluation logger.
func WithRuleLogger(logger RuleLogger) ManagerOption {
	return func(cfg *managerConfig) {
		cfg.ruleLogger = logger
	}
}

// WithActivityHooks registers hooks notified on lifecycle events.
func WithActivityHooks(hooks ...activity.ActivityHook) ManagerOption {
	return func(cfg *managerConfig) {
		for _, hook := range hooks {
			if hook != nil {
				cfg.hooks = append(cfg.hooks, hook)
			}
		}
	}
}

// WithActivityChannel overrides the default "settings" event channel.
func WithActivityChannel(channel string) ManagerOption {
	return func(cfg *managerConfig) {
		cfg.activityChannel = channel
	}
}

// WithSchemaCache wires the secondary schema cache.
func WithSchemaCache(cache SchemaCache) ManagerOption {
	return func(cfg *managerConfig) {
		cfg.schemaCache = cache
	}
}

// WithParameterType registers a custom parameter type adapter.
func WithParameterType(t ParameterType) ManagerOption {
	return func(cfg *managerConfig) {
		if t != nil {
			cfg.parameterTypes = append(cfg.parameterTypes, t)
		}
	}
}

// WithDebug disables the secondary schema cache so declaration changes are
// picked up immediately.
func WithDebug(debug bool) ManagerOption {
	return func(cfg *managerConfig) {
		cfg.debug = debug
	}
}

// WithSettings pre-registers settings classes by prototype, making them
// addressable by logical name.
func WithSettings(protos ...Definable) ManagerOption {
	return func(cfg *managerConfig) {
		cfg.protos = append(cfg.protos, protos...)
	}
}

// New constructs a Manager.
func New(opts ...ManagerOption) (*Manager, error) {
	cfg := &managerConfig{
		adapters:   map[string]storage.Adapter{},
		envMappers: map[string]EnvMapper{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	if cfg.defaultAdapter == nil {
		cfg.defaultAdapter = storage.NewMemoryAdapter()
	}
	if cfg.env == nil {
		cfg.env = NewOSEnvResolver(cfg.envMappers)
	}

	schemaOpts := []SchemaManagerOption{
		SchemaManagerWithDebug(cfg.debug),
	}
	if cfg.schemaCache != nil {
		schemaOpts = append(schemaOpts, SchemaManagerWithCache(cfg.schemaCache))
	}
	for _, t := range cfg.parameterTypes {
		schemaOpts = append(schemaOpts, SchemaManagerWithType(t))
	}
	schemas := NewSchemaManager(schemaOpts...)

	validatorOpts := []ValidatorOption{}
	if cfg.evaluator != nil {
		validatorOpts = append(validatorOpts, ValidatorWithEvaluator(cfg.evaluator))
	}
	if cfg.programCache != nil {
		validatorOpts = append(validatorOpts, ValidatorWithProgramCache(cfg.programCache))
	}
	if cfg.functions != nil {
		validatorOpts = append(validatorOpts, ValidatorWithFunctionRegistry(cfg.functions))
	}
	if cfg.ruleLogger != nil {
		validatorOpts = append(validatorOpts, ValidatorWithLogger(cfg.ruleLogger))
	}

	m := &Manager{
		cells:          map[reflect.Type]*lazyCell{},
		schemas:        schemas,
		metadata:       NewMetadataManager(schemas),
		hydrator:       NewHydrator(cfg.env),
		resetter:       NewResetter(),
		validator:      NewValidator(validatorOpts...),
		proxies:        NewProxyFactory(),
		registry:       NewRegistry(),
		adapters:       cfg.adapters,
		defaultAdapter: cfg.defaultAdapter,
		env:            cfg.env,
		emitter: activity.NewEmitter(cfg.hooks, activity.Config{
			Enabled: len(cfg.hooks) > 0,
			Channel: cfg.activityChannel,
		}),
	}

	if err := m.Register(cfg.protos...); err != nil {
		return nil, err
	}
	return m, nil
}

// Register derives schemas for the prototypes and binds their logical names,
// including every class reachable through embedded settings. Registration
// surfaces declaration mistakes before first use.
func (m *Manager) Register(protos ...Definable) error {
	for _, proto := range protos {
		if proto == nil {
			continue
		}
		class, err := settingsType(reflect.TypeOf(proto))
		if err != nil {
			return err
		}
		closure, err := m.metadata.Closure(class)
		if err != nil {
			return err
		}
		for _, member := range closure {
			md, err := m.metadata.Metadata(member)
			if err != nil {
				return err
			}
			if err := m.registry.Register(md.Name(), member); err != nil {
				return err
			}
		}
	}
	return nil
}

// Get returns the live instance for target, materializing it on first use.
// target may be a settings prototype, its reflect.Type, or a registered
// logical name. Repeated calls return the same instance until Reset or
// Invalidate.
func (m *Manager) Get(ctx context.Context, target any) (any, error) {
	class, err := m.resolveTarget(target)
	if err != nil {
		return nil, err
	}
	return m.cellFor(class).get(ctx)
}

// Get is the typed companion of Manager.Get.
func Get[T Definable](ctx context.Context, m *Manager) (T, error) {
	var zero T
	value, err := m.Get(ctx, reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return zero, err
	}
	typed, ok := value.(T)
	if !ok {
		return zero, fmt.Errorf("settings: manager holds %T, want %T", value, zero)
	}
	return typed, nil
}

// Metadata returns the derived metadata for target.
func (m *Manager) Metadata(target any) (*Metadata, error) {
	class, err := m.resolveTarget(target)
	if err != nil {
		return nil, err
	}
	return m.metadata.Metadata(class)
}

// Names returns the registered logical names.
func (m *Manager) Names() []string {
	return m.registry.Names()
}

// Save validates and persists the targets and every initialized class
// reachable through their embedded settings. With no targets it covers every
// class the manager currently tracks. Validation runs for the whole set
// before anything is written: one invalid class aborts the entire save and no
// storage is touched. Classes whose proxies were never materialized are
// skipped, they cannot have been mutated.
func (m *Manager) Save(ctx context.Context, targets ...any) error {
	classes, err := m.expandTargets(targets)
	if err != nil {
		return err
	}
	return m.save(ctx, classes)
}

// SaveOnly validates and persists target alone, without cascading.
func (m *Manager) SaveOnly(ctx context.Context, target any) error {
	class, err := m.resolveTarget(target)
	if err != nil {
		return err
	}
	return m.save(ctx, []reflect.Type{class})
}

func (m *Manager) save(ctx context.Context, classes []reflect.Type) error {
	type pending struct {
		md       *Metadata
		adapter  storage.Adapter
		instance any
	}

	var queue []pending
	failures := map[string]Violations{}

	for _, class := range classes {
		cell := m.lookupCell(class)
		if cell == nil {
			continue
		}
		instance, initialized := cell.snapshot()
		if !initialized {
			continue
		}
		md, err := m.metadata.Metadata(class)
		if err != nil {
			return err
		}
		adapter, err := m.adapterFor(md)
		if err != nil {
			return err
		}
		violations, err := m.validator.Validate(instance, md)
		if err != nil {
			return err
		}
		if !violations.Empty() {
			failures[md.ClassName()] = violations
			continue
		}
		queue = append(queue, pending{md: md, adapter: adapter, instance: instance})
	}

	if len(failures) > 0 {
		for class, violations := range failures {
			m.emit(ctx, activity.BuildSettingsValidationFailedEvent(activity.SettingsEventInput{
				Class:      class,
				Violations: violations,
			}))
		}
		return &SaveError{Violations: failures}
	}

	for _, item := range queue {
		if err := m.hydrator.Persist(ctx, item.adapter, item.instance, item.md); err != nil {
			return err
		}
		m.emit(ctx, activity.BuildSettingsSavedEvent(m.eventInput(item.md, item.adapter)))
	}
	return nil
}

// Reload discards in-memory parameter changes of target and every initialized
// class in its closure, re-reading from storage in place. Reference identity
// is preserved: existing holders observe the reloaded values.
func (m *Manager) Reload(ctx context.Context, target any) error {
	classes, err := m.closureOf(target)
	if err != nil {
		return err
	}
	return m.reload(ctx, classes)
}

// ReloadOne reloads target alone, without cascading.
func (m *Manager) ReloadOne(ctx context.Context, target any) error {
	class, err := m.resolveTarget(target)
	if err != nil {
		return err
	}
	return m.reload(ctx, []reflect.Type{class})
}

func (m *Manager) reload(ctx context.Context, classes []reflect.Type) error {
	for _, class := range classes {
		cell := m.lookupCell(class)
		if cell == nil {
			continue
		}
		instance, initialized := cell.snapshot()
		if !initialized {
			continue
		}
		md, err := m.metadata.Metadata(class)
		if err != nil {
			return err
		}
		adapter, err := m.adapterFor(md)
		if err != nil {
			return err
		}
		// Defaults first, so parameters absent from storage return to their
		// declared values instead of keeping stale edits.
		if err := m.resetter.Reset(instance, md); err != nil {
			return err
		}
		if err := m.hydrator.Hydrate(ctx, adapter, instance, md); err != nil {
			return err
		}
		m.emit(ctx, activity.BuildSettingsReloadedEvent(m.eventInput(md, adapter)))
	}
	return nil
}

// ResetToDefaults returns target's live instance to its declared defaults in
// memory. Nothing is persisted until Save; embedded settings are untouched.
func (m *Manager) ResetToDefaults(ctx context.Context, target any) error {
	class, err := m.resolveTarget(target)
	if err != nil {
		return err
	}
	instance, err := m.cellFor(class).get(ctx)
	if err != nil {
		return err
	}
	md, err := m.metadata.Metadata(class)
	if err != nil {
		return err
	}
	if err := m.resetter.Reset(instance, md); err != nil {
		return err
	}
	m.emit(ctx, activity.BuildSettingsResetEvent(activity.SettingsEventInput{
		Class:   md.ClassName(),
		Storage: md.Storage(),
	}))
	return nil
}

// Invalidate clears the identity map. The next Get materializes fresh
// instances; instances already handed out keep their previous cells and stay
// mutually consistent.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cells = map[reflect.Type]*lazyCell{}
}

// IsEnvVarOverwritten reports whether parameter's value currently comes from
// an environment override rather than storage.
func (m *Manager) IsEnvVarOverwritten(target any, parameter string) (bool, error) {
	class, err := m.resolveTarget(target)
	if err != nil {
		return false, err
	}
	md, err := m.metadata.Metadata(class)
	if err != nil {
		return false, err
	}
	p, err := md.Parameter(parameter)
	if err != nil {
		return false, err
	}
	return p.EnvMode.overwrites() && m.env != nil && m.env.Has(p), nil
}

// expandTargets resolves the union of the targets' closures, each class once.
// An empty target list means the whole identity map.
func (m *Manager) expandTargets(targets []any) ([]reflect.Type, error) {
	if len(targets) == 0 {
		return m.trackedClasses(), nil
	}
	var classes []reflect.Type
	seen := map[reflect.Type]bool{}
	for _, target := range targets {
		closure, err := m.closureOf(target)
		if err != nil {
			return nil, err
		}
		for _, class := range closure {
			if seen[class] {
				continue
			}
			seen[class] = true
			classes = append(classes, class)
		}
	}
	return classes, nil
}

func (m *Manager) trackedClasses() []reflect.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	classes := make([]reflect.Type, 0, len(m.cells))
	for class := range m.cells {
		classes = append(classes, class)
	}
	return classes
}

func (m *Manager) closureOf(target any) ([]reflect.Type, error) {
	class, err := m.resolveTarget(target)
	if err != nil {
		return nil, err
	}
	return m.metadata.Closure(class)
}

// resolveTarget accepts the three addressing forms: a registered logical
// name, a reflect.Type, or a settings prototype.
func (m *Manager) resolveTarget(target any) (reflect.Type, error) {
	switch v := target.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil target", ErrNotSettings)
	case string:
		return m.registry.TypeForName(v)
	case reflect.Type:
		return settingsType(v)
	case Definable:
		return settingsType(reflect.TypeOf(v))
	default:
		return nil, fmt.Errorf("%w: %T", ErrNotSettings, target)
	}
}

func (m *Manager) cellFor(class reflect.Type) *lazyCell {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cell, ok := m.cells[class]; ok {
		return cell
	}
	cell := m.proxies.CreateProxy(class, m.materialize(class))
	m.cells[class] = cell
	return cell
}

func (m *Manager) lookupCell(class reflect.Type) *lazyCell {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cells[class]
}

// materialize builds the cell initializer for class: fresh instance with
// defaults, hydrated from storage, embedded references bound to shared cells.
// Binding never materializes the embedded targets; they stay lazy until
// touched.
func (m *Manager) materialize(class reflect.Type) func(ctx context.Context) (any, error) {
	return func(ctx context.Context) (any, error) {
		md, err := m.metadata.Metadata(class)
		if err != nil {
			return nil, err
		}
		adapter, err := m.adapterFor(md)
		if err != nil {
			return nil, err
		}
		instance, err := m.resetter.NewInstance(md)
		if err != nil {
			return nil, err
		}
		if err := m.hydrator.Hydrate(ctx, adapter, instance, md); err != nil {
			return nil, err
		}
		if err := m.bindEmbeds(instance, md); err != nil {
			return nil, err
		}
		m.emit(ctx, activity.BuildSettingsLoadedEvent(m.eventInput(md, adapter)))
		return instance, nil
	}
}

func (m *Manager) bindEmbeds(instance any, md *Metadata) error {
	rv := reflect.ValueOf(instance).Elem()
	for _, embed := range md.embeds {
		field := rv.FieldByIndex(embed.fieldIndex)
		binder, ok := field.Addr().Interface().(lazyBinder)
		if !ok {
			return schemaError(md.className, embed.PropertyName,
				fmt.Errorf("embed field does not accept a lazy binding"))
		}
		binder.bindCell(m.cellFor(embed.Target))
	}
	return nil
}

func (m *Manager) adapterFor(md *Metadata) (storage.Adapter, error) {
	name := md.Storage()
	if name == "" {
		return m.defaultAdapter, nil
	}
	adapter, ok := m.adapters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q for %s", ErrUnknownStorage, name, md.ClassName())
	}
	return adapter, nil
}

func (m *Manager) eventInput(md *Metadata, adapter storage.Adapter) activity.SettingsEventInput {
	input := activity.SettingsEventInput{
		Class:   md.ClassName(),
		Storage: md.Storage(),
	}
	if provider, ok := adapter.(storage.MetaProvider); ok {
		if meta, found := provider.Meta(md.ClassName()); found {
			input.SnapshotID = meta.SnapshotID
		}
	}
	return input
}

// emit is best effort: hook failures never abort a lifecycle operation.
func (m *Manager) emit(ctx context.Context, event activity.Event) {
	if m.emitter.Enabled() {
		_ = m.emitter.Emit(ctx, event)
	}
}
