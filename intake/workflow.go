package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/kendall-kelly/appraisal-orders-api/config"
	"github.com/kendall-kelly/appraisal-orders-api/metrics"
	"github.com/kendall-kelly/appraisal-orders-api/models"
	"github.com/kendall-kelly/appraisal-orders-api/services"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	DefaultAutosaveInterval = 30 * time.Second
	DefaultDebounceDelay    = 500 * time.Millisecond
)

var (
	shapeValidator  = services.NewValidator("shape")
	submitValidator = services.NewValidator("")
)

// TemplateSource looks up order templates
type TemplateSource interface {
	Template(ctx context.Context, id string) (*models.OrderTemplate, error)
}

// ClientDirectory looks up clients for reference checks and fee defaults
type ClientDirectory interface {
	Client(ctx context.Context, id string) (*models.Client, error)
}

// SubmitFunc hands a finished order to whatever creates it
type SubmitFunc func(ctx context.Context, order models.Order) (*models.Order, error)

// Options configures a Workflow
type Options struct {
	// InitialData, when set, seeds the draft and suppresses loading a stored one
	InitialData map[string]any

	Drafts           DraftStore
	DraftKey         string
	Templates        TemplateSource
	Clients          ClientDirectory
	Duplicates       DuplicateChecker
	Submit           SubmitFunc
	AutosaveInterval time.Duration
	DebounceDelay    time.Duration
	Metrics          *metrics.Registry
	Logger           *logrus.Logger
	Clock            func() time.Time
}

// State is a point-in-time view of the wizard
type State struct {
	Draft            Draft             `json:"draft"`
	Step             Step              `json:"step"`
	StepIndex        int               `json:"step_index"`
	Steps            []Step            `json:"steps"`
	AutoAssign       bool              `json:"auto_assign"`
	DuplicateWarning string            `json:"duplicate_warning,omitempty"`
	Errors           map[string]string `json:"errors,omitempty"`
	LastSavedAt      *time.Time        `json:"last_saved_at,omitempty"`
	Submitted        bool              `json:"submitted"`
	OrderID          string            `json:"order_id,omitempty"`
}

// Workflow is one open order form
type Workflow struct {
	opts       Options
	now        func() time.Time
	logger     *logrus.Logger
	duplicates *DuplicateWatcher

	mu          sync.Mutex
	draft       Draft
	step        int
	autoAssign  bool
	errors      map[string]string
	lastSavedAt *time.Time
	finished    bool
	submitted   bool
	orderID     string

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// New mounts the form. A stored draft replaces the defaults only when no initial data was given;
// an unreadable one is logged and ignored.
func New(ctx context.Context, opts Options) (*Workflow, error) {
	if opts.Drafts == nil {
		opts.Drafts = NewMemoryDraftStore()
	}
	if opts.DraftKey == "" {
		opts.DraftKey = OrderFormDraftKey
	}
	if opts.AutosaveInterval <= 0 {
		opts.AutosaveInterval = DefaultAutosaveInterval
	}
	if opts.DebounceDelay <= 0 {
		opts.DebounceDelay = DefaultDebounceDelay
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	w := &Workflow{
		opts:       opts,
		now:        opts.Clock,
		logger:     opts.Logger,
		duplicates: NewDuplicateWatcher(opts.Duplicates, opts.DebounceDelay, opts.Logger),
		draft:      DefaultDraft(opts.Clock()),
		errors:     map[string]string{},
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}

	if len(opts.InitialData) > 0 {
		if err := w.merge(ctx, opts.InitialData, true); err != nil {
			return nil, err
		}
	} else if stored, ok := w.loadStored(ctx); ok {
		w.draft = stored
	}
	w.draft.recomputeTotal()
	w.duplicates.Observe(w.draft.PropertyAddress)

	go w.autosave()
	return w, nil
}

func (w *Workflow) loadStored(ctx context.Context) (Draft, bool) {
	data, ok, err := w.opts.Drafts.Load(ctx, w.opts.DraftKey)
	if err != nil {
		config.LogError(w.logger, "intake", "loadStored", "failed to read stored draft", w.opts.DraftKey, err)
		return Draft{}, false
	}
	if !ok {
		return Draft{}, false
	}
	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		config.LogError(w.logger, "intake", "loadStored", "discarding stored draft", w.opts.DraftKey, fmt.Errorf("%w: %v", ErrDraftCorrupt, err))
		return Draft{}, false
	}
	return d, true
}

func (w *Workflow) autosave() {
	defer close(w.done)
	ticker := time.NewTicker(w.opts.AutosaveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			if err := w.SaveDraft(context.Background()); err != nil {
				config.LogError(w.logger, "intake", "autosave", "failed to save draft", w.opts.DraftKey, err)
			}
		}
	}
}

func (w *Workflow) halt() {
	w.stopOnce.Do(func() {
		close(w.stop)
		w.duplicates.Stop()
	})
}

// Snapshot returns the current state
func (w *Workflow) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshot()
}

func (w *Workflow) snapshot() State {
	errs := make(map[string]string, len(w.errors))
	for k, v := range w.errors {
		errs[k] = v
	}
	st := State{
		Draft:            w.draft,
		Step:             Steps[w.step],
		StepIndex:        w.step,
		Steps:            Steps,
		AutoAssign:       w.autoAssign,
		DuplicateWarning: w.duplicates.Warning(),
		Errors:           errs,
		Submitted:        w.submitted,
		OrderID:          w.orderID,
	}
	if w.lastSavedAt != nil {
		at := *w.lastSavedAt
		st.LastSavedAt = &at
	}
	return st
}

// Update merges field values into the draft by json key. A null clears a field.
func (w *Workflow) Update(ctx context.Context, fields map[string]any) (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finished {
		return w.snapshot(), ErrAlreadySubmitted
	}
	if err := w.merge(ctx, fields, true); err != nil {
		return w.snapshot(), err
	}
	return w.snapshot(), nil
}

// merge applies fields as a JSON merge patch and keeps the derived values current.
// fillFee lets a client or property type change pull the fee from the client's schedule.
func (w *Workflow) merge(ctx context.Context, fields map[string]any, fillFee bool) error {
	var errs services.ValidationErrors
	for key := range fields {
		if _, ok := draftFields[key]; !ok {
			errs = append(errs, services.ValidationError{Field: key, Message: "is not a draft field"})
		}
	}
	if len(errs) > 0 {
		return errs
	}

	before := w.draft
	current, err := json.Marshal(before)
	if err != nil {
		return err
	}
	patch, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	merged, err := jsonpatch.MergePatch(current, patch)
	if err != nil {
		return fmt.Errorf("merge patch: %w", err)
	}
	var next Draft
	if err := json.Unmarshal(merged, &next); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return services.ValidationErrors{{Field: typeErr.Field, Message: "has the wrong type"}}
		}
		return services.ValidationErrors{{Field: "body", Message: err.Error()}}
	}

	if fillFee && (next.ClientID != before.ClientID || next.PropertyType != before.PropertyType) {
		w.applyClientFee(ctx, &next)
	}
	next.recomputeTotal()
	w.draft = next

	for key := range fields {
		delete(w.errors, key)
	}
	if next.PropertyAddress != before.PropertyAddress {
		w.duplicates.Observe(next.PropertyAddress)
	}
	return nil
}

// applyClientFee fills an empty fee from the client's schedule
func (w *Workflow) applyClientFee(ctx context.Context, d *Draft) {
	if w.opts.Clients == nil || d.ClientID == "" || !d.FeeAmount.IsZero() {
		return
	}
	client, err := w.opts.Clients.Client(ctx, d.ClientID)
	if err != nil {
		if !errors.Is(err, services.ErrNotFound) {
			config.LogError(w.logger, "intake", "applyClientFee", "client lookup failed", d.ClientID, err)
		}
		return
	}
	if fee, ok := client.DefaultFee(d.PropertyType); ok {
		d.FeeAmount = fee
	}
}

// Next validates the shape of the current step's fields and advances. Review stays at review.
func (w *Workflow) Next(ctx context.Context) (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finished {
		return w.snapshot(), ErrAlreadySubmitted
	}
	if errs := w.validateStep(Steps[w.step]); len(errs) > 0 {
		for field, msg := range errs.Fields() {
			w.errors[field] = msg
		}
		return w.snapshot(), errs
	}
	if w.step < len(Steps)-1 {
		w.step++
	}
	return w.snapshot(), nil
}

// Back moves one step back. The first step stays put.
func (w *Workflow) Back(ctx context.Context) (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finished {
		return w.snapshot(), ErrAlreadySubmitted
	}
	if w.step > 0 {
		w.step--
	}
	return w.snapshot(), nil
}

// JumpTo moves to an earlier step. Forward jumps would skip validation and are refused.
func (w *Workflow) JumpTo(ctx context.Context, step Step) (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finished {
		return w.snapshot(), ErrAlreadySubmitted
	}
	idx := stepIndex(step)
	if idx < 0 {
		return w.snapshot(), fmt.Errorf("%w: %q", ErrUnknownStep, step)
	}
	if idx > w.step {
		return w.snapshot(), ErrStepLocked
	}
	w.step = idx
	return w.snapshot(), nil
}

func (w *Workflow) validateStep(step Step) services.ValidationErrors {
	var errs services.ValidationErrors
	fields := stepFields[step]
	if len(fields) > 0 {
		if err := shapeValidator.StructPartial(w.draft, fields...); err != nil {
			errs = append(errs, services.TranslateValidation(err)...)
		}
	}
	switch step {
	case StepLoan:
		errs = appendNegative(errs, "loan_amount", w.draft.LoanAmount)
	case StepOrderDetails:
		errs = appendNegative(errs, "fee_amount", w.draft.FeeAmount)
		errs = appendNegative(errs, "tech_fee", w.draft.TechFee)
	}
	return errs
}

func appendNegative(errs services.ValidationErrors, field string, v decimal.Decimal) services.ValidationErrors {
	if v.IsNegative() {
		return append(errs, services.ValidationError{Field: field, Message: "must be greater than or equal to 0"})
	}
	return errs
}

// ApplyTemplate overwrites only the fields the template names. Applying it again changes nothing.
// A template that sets client_id leaves the fee alone unless it names fee_amount too.
func (w *Workflow) ApplyTemplate(ctx context.Context, templateID string) (State, error) {
	if w.opts.Templates == nil {
		return w.Snapshot(), &services.NotFoundError{Resource: "template", ID: templateID}
	}
	tpl, err := w.opts.Templates.Template(ctx, templateID)
	if err != nil {
		return w.Snapshot(), err
	}

	defaults := make(map[string]any, len(tpl.Defaults))
	for key, v := range tpl.Defaults {
		if _, ok := draftFields[key]; ok {
			defaults[key] = v
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finished {
		return w.snapshot(), ErrAlreadySubmitted
	}
	if err := w.merge(ctx, defaults, false); err != nil {
		return w.snapshot(), err
	}
	return w.snapshot(), nil
}

// SetAutoAssign toggles whether submit creates an order with an assignee as assigned
func (w *Workflow) SetAutoAssign(enabled bool) State {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.autoAssign = enabled
	return w.snapshot()
}

// SaveDraft persists the whole draft. It does nothing once the form has finished.
func (w *Workflow) SaveDraft(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finished {
		return nil
	}
	data, err := json.Marshal(w.draft)
	if err != nil {
		return err
	}
	if err := w.opts.Drafts.Save(ctx, w.opts.DraftKey, data); err != nil {
		w.opts.Metrics.DraftSave(w.opts.DraftKey, "failed")
		return err
	}
	at := w.now()
	w.lastSavedAt = &at
	w.opts.Metrics.DraftSave(w.opts.DraftKey, "saved")
	return nil
}

// Submit validates the whole draft and hands it to the submit callback. On success the stored
// draft is removed and the workflow is finished; on failure the draft is kept.
func (w *Workflow) Submit(ctx context.Context) (*models.Order, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finished {
		return nil, ErrAlreadySubmitted
	}
	if Steps[w.step] != StepReview {
		return nil, ErrNotAtReview
	}

	errs, err := w.validateSubmit(ctx)
	if err != nil {
		return nil, err
	}
	if len(errs) > 0 {
		w.errors = errs.Fields()
		return nil, errs
	}
	if w.opts.Submit == nil {
		return nil, errors.New("no submit handler configured")
	}

	order := w.draft.ToOrder()
	order.Source = models.SourceIntake
	order.Status = models.StatusNew
	if w.autoAssign && strings.TrimSpace(order.AssignedTo) != "" {
		order.Status = models.StatusAssigned
	}

	created, err := w.opts.Submit(ctx, order)
	if err != nil {
		if verrs, ok := services.AsValidationErrors(err); ok {
			w.errors = verrs.Fields()
		}
		w.logger.WithFields(logrus.Fields{"module": "intake", "error": err.Error()}).Warn("submit failed, draft kept")
		return nil, err
	}

	w.finished = true
	w.submitted = true
	w.orderID = created.ID
	w.errors = map[string]string{}
	w.halt()
	if err := w.opts.Drafts.Delete(ctx, w.opts.DraftKey); err != nil {
		config.LogError(w.logger, "intake", "Submit", "failed to clear stored draft", w.opts.DraftKey, err)
	}
	w.opts.Metrics.DraftSave(w.opts.DraftKey, "cleared")
	return created, nil
}

func (w *Workflow) validateSubmit(ctx context.Context) (services.ValidationErrors, error) {
	var errs services.ValidationErrors
	if err := submitValidator.Struct(w.draft); err != nil {
		errs = append(errs, services.TranslateValidation(err)...)
	}
	switch {
	case w.draft.DueDate == nil:
		errs = append(errs, services.ValidationError{Field: "due_date", Message: "is required"})
	case !w.draft.DueDate.After(w.now()):
		errs = append(errs, services.ValidationError{Field: "due_date", Message: "must be in the future"})
	}
	errs = appendNegative(errs, "fee_amount", w.draft.FeeAmount)
	errs = appendNegative(errs, "tech_fee", w.draft.TechFee)

	if w.draft.ClientID != "" && w.opts.Clients != nil {
		_, err := w.opts.Clients.Client(ctx, w.draft.ClientID)
		switch {
		case errors.Is(err, services.ErrNotFound):
			errs = append(errs, services.ValidationError{Field: "client_id", Message: "must reference an existing client"})
		case err != nil:
			return nil, err
		}
	}
	return errs, nil
}

// Cancel abandons the form and removes the stored draft
func (w *Workflow) Cancel(ctx context.Context) error {
	w.mu.Lock()
	w.finished = true
	w.halt()
	w.mu.Unlock()
	<-w.done
	if err := w.opts.Drafts.Delete(ctx, w.opts.DraftKey); err != nil {
		return err
	}
	w.opts.Metrics.DraftSave(w.opts.DraftKey, "cleared")
	return nil
}

// Close unmounts the form. The stored draft is left in place.
func (w *Workflow) Close() {
	w.halt()
	<-w.done
}
