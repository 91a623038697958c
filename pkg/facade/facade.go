// Package facade coordinates the per-product adapters behind one
// capability-based entry point. Callers never need to know which backend
// product owns which operation: the facade routes each call to the owning
// adapter and fails fast, locally, when that adapter was never initialized
// or when no product supports the capability at all.
package facade

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/testshift/testshift/pkg/apierror"
	"github.com/testshift/testshift/pkg/canonical"
	"github.com/testshift/testshift/pkg/config"
	"github.com/testshift/testshift/pkg/providers"
	"github.com/testshift/testshift/pkg/providers/dataexport"
	"github.com/testshift/testshift/pkg/providers/manager"
	"github.com/testshift/testshift/pkg/providers/parameters"
	"github.com/testshift/testshift/pkg/providers/pulse"
	"github.com/testshift/testshift/pkg/providers/scenario"
	"github.com/testshift/testshift/pkg/telemetry"
	"github.com/testshift/testshift/pkg/transport"
)

// State is the facade lifecycle state.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateReady         State = "ready"
)

// AdapterStatus is one adapter's view in a connection report.
type AdapterStatus struct {
	Initialized bool   `json:"initialized"`
	Healthy     bool   `json:"healthy"`
	Error       string `json:"error,omitempty"`
}

// ConnectionStatus aggregates adapter health. Connected is the logical OR
// across initialized adapters: one healthy adapter is enough. This is a
// deliberate best-effort policy carried over from the system this tool
// replaces; a healthy optional adapter can mask a broken mandatory one.
type ConnectionStatus struct {
	Connected bool                     `json:"connected"`
	Details   map[string]AdapterStatus `json:"details"`
}

// ExecutorFactory builds the transport executor adapters share. Tests
// substitute a scripted executor here.
type ExecutorFactory func(cfg *config.Config) transport.Executor

// Option configures a Facade.
type Option func(*Facade)

// WithExecutorFactory overrides how the shared transport executor is built.
func WithExecutorFactory(factory ExecutorFactory) Option {
	return func(f *Facade) { f.newExecutor = factory }
}

// WithLogger sets the facade logger.
func WithLogger(log *telemetry.Logger) Option {
	return func(f *Facade) { f.log = log }
}

// WithTracer sets the tracer emitting a span per product call.
func WithTracer(tr *telemetry.Tracer) Option {
	return func(f *Facade) { f.tracer = tr }
}

// Facade is the single entry point over the configured product adapters.
// Run-scoped migration state never lives here; concurrent migrations may
// share one Facade.
type Facade struct {
	cfg         *config.Config
	newExecutor ExecutorFactory
	log         *telemetry.Logger
	tracer      *telemetry.Tracer

	mu         sync.RWMutex
	state      State
	manager    *manager.Adapter
	parameters *parameters.Adapter
	scenario   *scenario.Adapter
	pulse      *pulse.Adapter
	dataexport *dataexport.Adapter

	// initErrors records per-adapter initialization failures for optional
	// adapters; the mandatory adapter's failure aborts Initialize instead.
	initErrors map[providers.Product]error
}

func defaultExecutorFactory(cfg *config.Config) transport.Executor {
	return transport.NewHTTPExecutor(transport.Options{
		BaseURL:              cfg.BaseURL,
		APIToken:             cfg.APIToken,
		Username:             cfg.Username,
		Password:             cfg.Password,
		MaxRequestsPerMinute: cfg.Common.MaxRequestsPerMinute,
		MaxRetries:           cfg.Common.MaxRetries,
		RequestTimeout:       cfg.Common.RequestTimeout,
		BypassSSL:            cfg.Common.BypassSSL,
	})
}

// New validates the credential rule locally (no network) and returns an
// uninitialized facade.
func New(cfg *config.Config, opts ...Option) (*Facade, error) {
	if cfg == nil {
		return nil, apierror.NewValidation("configuration is required", nil)
	}
	if err := cfg.ValidateCredentials(); err != nil {
		return nil, apierror.NewValidation(err.Error(), nil)
	}
	if cfg.Products.Manager == nil {
		return nil, apierror.NewValidation("manager product configuration is required", nil)
	}

	noopTracer, _ := telemetry.NewTracer(telemetry.TracingConfig{}, "testshift", "dev", "")

	f := &Facade{
		cfg:         cfg,
		newExecutor: defaultExecutorFactory,
		log:         telemetry.NopLogger(),
		tracer:      noopTracer,
		state:       StateUninitialized,
		initErrors:  make(map[providers.Product]error),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Initialize builds the mandatory Manager adapter plus every optional
// adapter with a configuration block, probing each in parallel. A mandatory
// adapter failure aborts with the adapter's wrapped error; optional
// failures are scoped to their adapter and reported by TestConnection.
func (f *Facade) Initialize(ctx context.Context) error {
	f.mu.Lock()
	if f.state == StateInitializing {
		f.mu.Unlock()
		return apierror.NewClient("facade is already initializing")
	}
	f.state = StateInitializing
	f.mu.Unlock()

	exec := f.newExecutor(f.cfg)

	type initResult struct {
		product providers.Product
		err     error
	}

	mgr := manager.New(exec, f.cfg.Products.Manager.ProjectID, f.cfg.Products.Manager.BasePath)

	var wg sync.WaitGroup
	results := make(chan initResult, 5)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results <- initResult{providers.ProductManager, mgr.Health(ctx)}
	}()

	var par *parameters.Adapter
	if pc := f.cfg.Products.Parameters; pc != nil {
		par = parameters.New(exec, pc.ProjectID, pc.BasePath)
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- initResult{providers.ProductParameters, par.Health(ctx)}
		}()
	}

	var scn *scenario.Adapter
	if pc := f.cfg.Products.Scenario; pc != nil {
		scn = scenario.New(exec, pc.ProjectID, pc.BasePath)
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- initResult{providers.ProductScenario, scn.Health(ctx)}
		}()
	}

	var pls *pulse.Adapter
	if pc := f.cfg.Products.Pulse; pc != nil {
		pls = pulse.New(exec, pc.ProjectID, pc.BasePath)
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- initResult{providers.ProductPulse, pls.Health(ctx)}
		}()
	}

	var exp *dataexport.Adapter
	if pc := f.cfg.Products.DataExport; pc != nil {
		exp = dataexport.New(exec, pc.ProjectID, pc.BasePath)
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- initResult{providers.ProductDataExport, exp.Health(ctx)}
		}()
	}

	wg.Wait()
	close(results)

	initErrors := make(map[providers.Product]error)
	for r := range results {
		if r.err != nil {
			initErrors[r.product] = fmt.Errorf("%s adapter initialization failed: %w", r.product, r.err)
		}
	}

	if err, ok := initErrors[providers.ProductManager]; ok {
		f.mu.Lock()
		f.state = StateUninitialized
		f.mu.Unlock()
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.manager = mgr
	if _, failed := initErrors[providers.ProductParameters]; !failed {
		f.parameters = par
	}
	if _, failed := initErrors[providers.ProductScenario]; !failed {
		f.scenario = scn
	}
	if _, failed := initErrors[providers.ProductPulse]; !failed {
		f.pulse = pls
	}
	if _, failed := initErrors[providers.ProductDataExport]; !failed {
		f.dataexport = exp
	}
	f.initErrors = initErrors
	f.state = StateReady

	for product, err := range initErrors {
		f.log.WithField("product", string(product)).WithError(err).
			Warn("optional adapter failed to initialize")
	}

	return nil
}

// State returns the facade lifecycle state.
func (f *Facade) State() State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

// TestConnection probes every initialized adapter and reports per-adapter
// detail plus the overall OR verdict.
func (f *Facade) TestConnection(ctx context.Context) *ConnectionStatus {
	f.mu.RLock()
	probes := map[providers.Product]func(context.Context) error{}
	if f.manager != nil {
		probes[providers.ProductManager] = f.manager.Health
	}
	if f.parameters != nil {
		probes[providers.ProductParameters] = f.parameters.Health
	}
	if f.scenario != nil {
		probes[providers.ProductScenario] = f.scenario.Health
	}
	if f.pulse != nil {
		probes[providers.ProductPulse] = f.pulse.Health
	}
	if f.dataexport != nil {
		probes[providers.ProductDataExport] = f.dataexport.Health
	}
	initErrors := f.initErrors
	f.mu.RUnlock()

	status := &ConnectionStatus{Details: make(map[string]AdapterStatus)}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for product, probe := range probes {
		wg.Add(1)
		go func(product providers.Product, probe func(context.Context) error) {
			defer wg.Done()
			err := probe(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				status.Details[string(product)] = AdapterStatus{Initialized: true, Error: err.Error()}
				return
			}
			status.Details[string(product)] = AdapterStatus{Initialized: true, Healthy: true}
			status.Connected = true
		}(product, probe)
	}
	wg.Wait()

	for product, err := range initErrors {
		status.Details[string(product)] = AdapterStatus{Error: err.Error()}
	}

	return status
}

// notInitialized builds the local error for a capability whose adapter is
// missing.
func notInitialized(p providers.Product) *apierror.Error {
	return apierror.NewClient(fmt.Sprintf("%s provider not initialized", p))
}

// route resolves the product declaring c. A capability no product declares
// fails fast with the unsupported-operation error; an owning product whose
// adapter is not initialized yields the local not-initialized error. Both
// are decided before anything touches the network.
func (f *Facade) route(c providers.Capability) (providers.Product, error) {
	p, ok := providers.Owner(c)
	if !ok {
		return "", apierror.NewUnsupported(string(c))
	}
	if !f.adapterReady(p) {
		return p, notInitialized(p)
	}
	return p, nil
}

func (f *Facade) adapterReady(p providers.Product) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	switch p {
	case providers.ProductManager:
		return f.manager != nil
	case providers.ProductParameters:
		return f.parameters != nil
	case providers.ProductScenario:
		return f.scenario != nil
	case providers.ProductPulse:
		return f.pulse != nil
	case providers.ProductDataExport:
		return f.dataexport != nil
	}
	return false
}

func (f *Facade) managerAdapter(c providers.Capability) (*manager.Adapter, error) {
	if _, err := f.route(c); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.manager, nil
}

// parseTargetID parses a target-side id previously produced by this facade.
// An empty id yields 0, meaning "no assignment".
func parseTargetID(id string) (int64, error) {
	if id == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, apierror.NewValidation(fmt.Sprintf("invalid target id %q", id), nil)
	}
	return n, nil
}

// ListFolders returns the target project's folders in canonical form.
func (f *Facade) ListFolders(ctx context.Context) ([]canonical.Folder, error) {
	mgr, err := f.managerAdapter(providers.CapFolderRead)
	if err != nil {
		return nil, err
	}
	ctx, span := f.tracer.StartProductSpan(ctx, string(providers.ProductManager), "listFolders")
	defer span.End()
	modules, err := mgr.ListFolders(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	out := make([]canonical.Folder, 0, len(modules))
	for _, m := range modules {
		out = append(out, manager.FolderToCanonical(m))
	}
	return out, nil
}

// CreateFolder creates a target folder under parentID (empty for root) and
// returns the new target id.
func (f *Facade) CreateFolder(ctx context.Context, folder canonical.Folder, parentID string) (string, error) {
	mgr, err := f.managerAdapter(providers.CapFolderCreate)
	if err != nil {
		return "", err
	}
	pid, err := parseTargetID(parentID)
	if err != nil {
		return "", err
	}
	ctx, span := f.tracer.StartProductSpan(ctx, string(providers.ProductManager), "createFolder")
	defer span.End()
	created, err := mgr.CreateFolder(ctx, manager.FolderFromCanonical(folder, pid))
	if err != nil {
		telemetry.RecordError(span, err)
		return "", err
	}
	return strconv.FormatInt(created.ID, 10), nil
}

// CreateTestCase creates a target test case, placed under folderID when
// non-empty, and returns the new target id.
func (f *Facade) CreateTestCase(ctx context.Context, tc canonical.TestCase, folderID string) (string, error) {
	mgr, err := f.managerAdapter(providers.CapTestCaseCreate)
	if err != nil {
		return "", err
	}
	fid, err := parseTargetID(folderID)
	if err != nil {
		return "", err
	}
	ctx, span := f.tracer.StartProductSpan(ctx, string(providers.ProductManager), "createTestCase")
	defer span.End()
	created, err := mgr.CreateTestCase(ctx, manager.FromCanonical(tc, fid))
	if err != nil {
		telemetry.RecordError(span, err)
		return "", err
	}
	return strconv.FormatInt(created.ID, 10), nil
}

// DeleteTestCasesInFolder removes every test case directly under folderID.
func (f *Facade) DeleteTestCasesInFolder(ctx context.Context, folderID string) error {
	mgr, err := f.managerAdapter(providers.CapTestCaseDelete)
	if err != nil {
		return err
	}
	fid, err := parseTargetID(folderID)
	if err != nil {
		return err
	}
	ctx, span := f.tracer.StartProductSpan(ctx, string(providers.ProductManager), "deleteTestCasesInFolder")
	defer span.End()
	cases, err := mgr.ListTestCases(ctx, fid)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	for _, tc := range cases {
		if err := mgr.DeleteTestCase(ctx, tc.ID); err != nil {
			telemetry.RecordError(span, err)
			return err
		}
	}
	return nil
}

// UploadAttachment attaches a payload to a migrated test case.
func (f *Facade) UploadAttachment(ctx context.Context, testCaseID string, att canonical.Attachment) error {
	mgr, err := f.managerAdapter(providers.CapAttachmentUpload)
	if err != nil {
		return err
	}
	tid, err := parseTargetID(testCaseID)
	if err != nil {
		return err
	}
	ctx, span := f.tracer.StartProductSpan(ctx, string(providers.ProductManager), "uploadAttachment")
	defer span.End()
	if _, err := mgr.UploadAttachment(ctx, tid, att.Name, att.ContentType, att.Content); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	return nil
}

// CreateLink relates two migrated test cases by their target ids.
func (f *Facade) CreateLink(ctx context.Context, fromID, toID, linkType string) error {
	mgr, err := f.managerAdapter(providers.CapLinkCreate)
	if err != nil {
		return err
	}
	from, err := parseTargetID(fromID)
	if err != nil {
		return err
	}
	to, err := parseTargetID(toID)
	if err != nil {
		return err
	}
	ctx, span := f.tracer.StartProductSpan(ctx, string(providers.ProductManager), "createLink")
	defer span.End()
	if err := mgr.CreateLink(ctx, from, to, linkType); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	return nil
}

// CreateParameter creates a named parameter set in the Parameters product.
func (f *Facade) CreateParameter(ctx context.Context, name string, values []string) (string, error) {
	if _, err := f.route(providers.CapParameterCreate); err != nil {
		return "", err
	}
	f.mu.RLock()
	par := f.parameters
	f.mu.RUnlock()
	ctx, span := f.tracer.StartProductSpan(ctx, string(providers.ProductParameters), "createParameter")
	defer span.End()
	created, err := par.Create(ctx, parameters.Parameter{Name: name, Values: values})
	if err != nil {
		telemetry.RecordError(span, err)
		return "", err
	}
	return strconv.FormatInt(created.ID, 10), nil
}

// CreateFeature renders a canonical test case as a Gherkin feature in the
// Scenario product.
func (f *Facade) CreateFeature(ctx context.Context, tc canonical.TestCase) (string, error) {
	if _, err := f.route(providers.CapFeatureCreate); err != nil {
		return "", err
	}
	f.mu.RLock()
	scn := f.scenario
	f.mu.RUnlock()
	ctx, span := f.tracer.StartProductSpan(ctx, string(providers.ProductScenario), "createFeature")
	defer span.End()
	created, err := scn.Create(ctx, scenario.FromCanonical(tc))
	if err != nil {
		telemetry.RecordError(span, err)
		return "", err
	}
	return created.ID, nil
}

// CreateRule creates an automation rule in the Pulse product.
func (f *Facade) CreateRule(ctx context.Context, name, event, action string) (string, error) {
	if _, err := f.route(providers.CapRuleCreate); err != nil {
		return "", err
	}
	f.mu.RLock()
	pls := f.pulse
	f.mu.RUnlock()
	ctx, span := f.tracer.StartProductSpan(ctx, string(providers.ProductPulse), "createRule")
	defer span.End()
	created, err := pls.Create(ctx, pulse.Rule{Name: name, Event: event, Action: action, Enabled: true})
	if err != nil {
		telemetry.RecordError(span, err)
		return "", err
	}
	return strconv.FormatInt(created.ID, 10), nil
}

// CountMigratedTestCases queries the Data-Export product for the number of
// test cases matching query.
func (f *Facade) CountMigratedTestCases(ctx context.Context, query string) (int, error) {
	if _, err := f.route(providers.CapSearch); err != nil {
		return 0, err
	}
	f.mu.RLock()
	exp := f.dataexport
	f.mu.RUnlock()
	ctx, span := f.tracer.StartProductSpan(ctx, string(providers.ProductDataExport), "countTestCases")
	defer span.End()
	count, err := exp.CountTestCases(ctx, query)
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, err
	}
	return count, nil
}

// CreateCustomField always fails: no backend product declares custom-field
// creation in its capability set. The failure is local and immediate, never
// a transport error.
func (f *Facade) CreateCustomField(_ context.Context, _ canonical.CustomField) error {
	_, err := f.route(providers.CapCustomFieldCreate)
	return err
}
