// Package workflow is the stage screen's controller: it turns user intents
// into validation, gateway calls, list refreshes and notifications.
//
// Networked intents come in three phases so an event loop never blocks:
//
//	op, err := c.PrepareSubmit(d) // on the loop, state only
//	res := op.Execute(ctx)        // anywhere, network only
//	err = c.Apply(res)            // back on the loop, state only
//
// Submit, Remove and LoadAll chain the phases for synchronous callers.
package workflow

import (
	"context"
	"log/slog"
	"time"

	"etapas-cli/internal/gateway"
	"etapas-cli/internal/modal"
	"etapas-cli/internal/model"
	"etapas-cli/internal/notify"
	"etapas-cli/internal/resource"
	"etapas-cli/internal/validate"
)

const (
	MsgFetchFailed = "Erro ao buscar etapas."
	MsgCreated     = "Etapa criada com sucesso!"
	MsgUpdated     = "Etapa atualizada com sucesso!"
	MsgSaveFailed  = "Erro ao salvar etapa."
	MsgDeleted     = "Etapa excluída com sucesso!"
	MsgDeleteFail  = "Erro ao excluir etapa."
)

// Outcomes passed to Recorder.ObserveOp.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeInvalid = "invalid"
	OutcomeStale   = "stale"
)

// Recorder receives operational measurements. A nil Recorder is allowed.
type Recorder interface {
	ObserveOp(op, outcome string, elapsed time.Duration)
	SetRecords(n int)
}

type Option func(*Controller)

func WithNotifier(n notify.Notifier) Option {
	return func(c *Controller) {
		if n != nil {
			c.notifier = n
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// Controller is not safe for concurrent use; drive it from one goroutine
// (or behind one mutex) and run only Op.Execute elsewhere.
type Controller struct {
	gw       gateway.Gateway
	store    *resource.Store
	modal    modal.Orchestrator
	errors   validate.Result
	inflight map[uint64]int

	notifier notify.Notifier
	recorder Recorder
	log      *slog.Logger
	now      func() time.Time
}

func New(gw gateway.Gateway, opts ...Option) *Controller {
	c := &Controller{
		gw:       gw,
		store:    resource.New(gw),
		inflight: map[uint64]int{},
		notifier: notify.Discard,
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Modal() modal.State { return c.modal.State() }

func (c *Controller) Session() uint64 { return c.modal.Session() }

// Draft is the form content; ok is false unless a form is open.
func (c *Controller) Draft() (model.Draft, bool) { return c.modal.State().Draft() }

// Errors returns a copy of the field errors from the last submit attempt.
func (c *Controller) Errors() validate.Result {
	out := make(validate.Result, len(c.errors))
	for k, v := range c.errors {
		out[k] = v
	}
	return out
}

func (c *Controller) Records() []model.Etapa { return c.store.Records() }

func (c *Controller) Find(id string) (model.Etapa, bool) { return c.store.Find(id) }

func (c *Controller) StoreVersion() uint64 { return c.store.Version() }

// Pending reports whether the current dialog has an operation in flight.
func (c *Controller) Pending() bool { return c.inflight[c.modal.Session()] > 0 }

func (c *Controller) OpenCreate() bool { return c.open(c.modal.OpenCreate()) }

func (c *Controller) OpenEdit(r model.Etapa) bool { return c.open(c.modal.OpenEdit(r)) }

func (c *Controller) OpenDeleteConfirm(r model.Etapa) bool {
	return c.open(c.modal.OpenDeleteConfirm(r))
}

func (c *Controller) open(ok bool) bool {
	if ok {
		c.errors = nil
	}
	return ok
}

// Cancel closes whatever dialog is open and discards the draft. An operation
// still in flight completes but can no longer touch the dialog.
func (c *Controller) Cancel() {
	c.modal.Close()
	c.errors = nil
}

// UpdateDraft records typing. Field errors stay until the next submit.
func (c *Controller) UpdateDraft(d model.Draft) bool { return c.modal.SetDraft(d) }

// Op is a prepared network call. Execute touches no controller state.
type Op struct {
	Kind     string
	Session  uint64
	TargetID string
	Payload  model.Payload

	gw    gateway.Gateway
	store *resource.Store
}

// Result is what Execute hands back to Apply.
type Result struct {
	Op       Op
	Etapa    model.Etapa
	Err      error
	Records  []model.Etapa
	FetchErr error
	Elapsed  time.Duration
}

// Execute performs the gateway call and, after a successful mutation, the
// follow-up list fetch.
func (op Op) Execute(ctx context.Context) Result {
	start := time.Now()
	res := Result{Op: op}
	switch op.Kind {
	case gateway.OpCreate:
		res.Etapa, res.Err = op.gw.Create(ctx, op.Payload)
	case gateway.OpUpdate:
		res.Etapa, res.Err = op.gw.Update(ctx, op.TargetID, op.Payload)
	case gateway.OpDelete:
		res.Err = op.gw.Delete(ctx, op.TargetID)
	}
	if res.Err == nil {
		res.Records, res.FetchErr = op.store.Fetch(ctx)
	}
	res.Elapsed = time.Since(start)
	return res
}

// PrepareSubmit validates d against the open form. Invalid drafts return the
// validate.Result as the error and never produce an Op.
func (c *Controller) PrepareSubmit(d model.Draft) (Op, error) {
	st := c.modal.State()
	if st.Kind() != modal.Editing {
		return Op{}, ErrNoDialog
	}
	if c.Pending() {
		return Op{}, ErrBusy
	}
	c.modal.SetDraft(d)
	payload, res := validate.Payload(d)
	if !res.Valid() {
		c.errors = res
		c.observe(opName(st), OutcomeInvalid, 0)
		c.log.Debug("etapa draft rejected", "errors", res.Error())
		return Op{}, res
	}
	c.errors = nil
	op := c.newOp(gateway.OpCreate)
	op.Payload = payload
	if id, ok := st.TargetID(); ok {
		op.Kind = gateway.OpUpdate
		op.TargetID = id
	}
	c.inflight[op.Session]++
	return op, nil
}

// PrepareRemove deletes id. When a delete confirmation is open it must be for id.
func (c *Controller) PrepareRemove(id string) (Op, error) {
	st := c.modal.State()
	switch st.Kind() {
	case modal.ConfirmingDelete:
		if subj, _ := st.Subject(); subj.ID != id {
			return Op{}, ErrNoDialog
		}
	case modal.Editing:
		return Op{}, ErrNoDialog
	}
	if id == "" {
		return Op{}, ErrNoDialog
	}
	if c.Pending() {
		return Op{}, ErrBusy
	}
	op := c.newOp(gateway.OpDelete)
	op.TargetID = id
	c.inflight[op.Session]++
	return op, nil
}

// PrepareConfirmDelete deletes the subject of the open confirmation.
func (c *Controller) PrepareConfirmDelete() (Op, error) {
	subj, ok := c.modal.State().Subject()
	if !ok {
		return Op{}, ErrNoDialog
	}
	return c.PrepareRemove(subj.ID)
}

// PrepareLoad fetches the list. It is never blocked by a pending mutation.
func (c *Controller) PrepareLoad() Op {
	return c.newOp(gateway.OpList)
}

func (c *Controller) newOp(kind string) Op {
	return Op{Kind: kind, Session: c.modal.Session(), gw: c.gw, store: c.store}
}

// Apply folds a finished Op back into controller state and emits the
// notifications. It returns the error the caller should surface, already
// notified.
func (c *Controller) Apply(res Result) error {
	op := res.Op
	if op.Kind == gateway.OpList {
		return c.applyLoad(res)
	}

	if c.inflight[op.Session]--; c.inflight[op.Session] <= 0 {
		delete(c.inflight, op.Session)
	}
	current := op.Session == c.modal.Session()
	lg := c.log.With("op", op.Kind, "session", op.Session)
	if op.TargetID != "" {
		lg = lg.With("id", op.TargetID)
	}

	if res.Err != nil {
		outcome := OutcomeError
		if !current {
			outcome = OutcomeStale
		}
		c.observe(op.Kind, outcome, res.Elapsed)
		lg.Warn("etapa mutation failed", "err", res.Err, "stale", !current)
		title := MsgSaveFailed
		if op.Kind == gateway.OpDelete {
			title = MsgDeleteFail
		}
		c.notify(notify.Error(title, gateway.Describe(res.Err)))
		return &MutationFailedError{Op: op.Kind, Err: res.Err}
	}

	c.observe(op.Kind, OutcomeOK, res.Elapsed)
	lg.Info("etapa mutation applied", "stale", !current)
	c.modal.CloseSession(op.Session)
	if current {
		c.errors = nil
	}
	c.replace(res.Records, res.FetchErr)

	switch op.Kind {
	case gateway.OpCreate:
		c.notify(notify.Success(MsgCreated))
	case gateway.OpUpdate:
		c.notify(notify.Success(MsgUpdated))
	case gateway.OpDelete:
		c.notify(notify.Success(MsgDeleted))
	}
	return nil
}

func (c *Controller) applyLoad(res Result) error {
	c.observe(gateway.OpList, outcomeOf(res.FetchErr), res.Elapsed)
	return c.replace(res.Records, res.FetchErr)
}

func (c *Controller) replace(records []model.Etapa, fetchErr error) error {
	err := fetchErr
	if err == nil {
		err = c.store.Replace(records)
	}
	if err != nil {
		c.log.Warn("etapas refresh failed", "err", err)
		c.notify(notify.Error(MsgFetchFailed, gateway.Describe(err)))
		return err
	}
	if c.recorder != nil {
		c.recorder.SetRecords(c.store.Len())
	}
	c.log.Debug("etapas refreshed", "count", c.store.Len(), "version", c.store.Version())
	return nil
}

// Submit validates d, saves it and refreshes the list.
func (c *Controller) Submit(ctx context.Context, d model.Draft) (model.Etapa, error) {
	op, err := c.PrepareSubmit(d)
	if err != nil {
		return model.Etapa{}, err
	}
	res := op.Execute(ctx)
	return res.Etapa, c.Apply(res)
}

// Remove deletes id and refreshes the list.
func (c *Controller) Remove(ctx context.Context, id string) error {
	op, err := c.PrepareRemove(id)
	if err != nil {
		return err
	}
	return c.Apply(op.Execute(ctx))
}

// ConfirmDelete removes the subject of the open confirmation.
func (c *Controller) ConfirmDelete(ctx context.Context) error {
	subj, ok := c.modal.State().Subject()
	if !ok {
		return ErrNoDialog
	}
	return c.Remove(ctx, subj.ID)
}

// LoadAll refreshes the list. On failure the previous list is kept.
func (c *Controller) LoadAll(ctx context.Context) error {
	return c.Apply(c.PrepareLoad().Execute(ctx))
}

func (c *Controller) notify(n notify.Notification) {
	if n.At.IsZero() {
		n.At = c.now()
	}
	c.notifier.Notify(n)
}

func (c *Controller) observe(op, outcome string, elapsed time.Duration) {
	if c.recorder != nil {
		c.recorder.ObserveOp(op, outcome, elapsed)
	}
}

func opName(st modal.State) string {
	if _, ok := st.TargetID(); ok {
		return gateway.OpUpdate
	}
	return gateway.OpCreate
}

func outcomeOf(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}
