package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/application/dispatcher"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/application/flow"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/application/port"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/application/workflow"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/entity"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/event"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/wizard"
	domainwf "github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/workflow"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/i18n"
)

var (
	ErrReceiptNotFound = errors.New("receipt not found")
	ErrReceiptNotReady = errors.New("receipt is not ready")
)

// ReceiptFile is a generated receipt ready for download
type ReceiptFile struct {
	Name        string
	ContentType string
	Content     []byte
}

// ReceiptService is the receipt-generation collaborator. Requests only queue
// a PENDING row; the receipt worker drives generation through
// ProcessPending.
type ReceiptService interface {
	wizard.ReceiptGenerator
	Get(ctx context.Context, referenceID string) (*entity.Receipt, error)
	Open(ctx context.Context, referenceID string) (*ReceiptFile, error)
	// ProcessPending generates up to limit queued receipts
	ProcessPending(ctx context.Context, limit int) (processed, failed int, err error)
	// RequeueInterrupted returns receipts a stopped worker left GENERATING
	// to the queue
	RequeueInterrupted(ctx context.Context) (int, error)
}

type receiptServiceImpl struct {
	receipts    port.ReceiptRepository
	submissions port.SubmissionRepository
	renderer    port.ReceiptRenderer
	storage     port.FileStorage
	flows       *flow.Catalog
	lifecycle   workflow.Lifecycle
	dispatcher  dispatcher.Dispatcher
	messages    *i18n.Catalog
	logger      Logger

	generateTimeout time.Duration
	now             func() time.Time
}

// NewReceiptService creates a new ReceiptService
func NewReceiptService(
	receipts port.ReceiptRepository,
	submissions port.SubmissionRepository,
	renderer port.ReceiptRenderer,
	storage port.FileStorage,
	flows *flow.Catalog,
	d dispatcher.Dispatcher,
	messages *i18n.Catalog,
	logger Logger,
	generateTimeout time.Duration,
) ReceiptService {
	if generateTimeout <= 0 {
		generateTimeout = 30 * time.Second
	}
	return &receiptServiceImpl{
		receipts:        receipts,
		submissions:     submissions,
		renderer:        renderer,
		storage:         storage,
		flows:           flows,
		lifecycle:       workflow.NewReceiptLifecycle(),
		dispatcher:      d,
		messages:        messages,
		logger:          logger,
		generateTimeout: generateTimeout,
		now:             time.Now,
	}
}

// Request queues a receipt. A second request for the same reference id is a
// no-op.
func (s *receiptServiceImpl) Request(ctx context.Context, referenceID string, snapshot wizard.Fields) error {
	now := s.now().UTC()
	receipt := &entity.Receipt{
		ReferenceID: referenceID,
		Status:      entity.ReceiptStatusPending,
		Snapshot:    flow.Persisted(snapshot),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := s.receipts.CreateIfAbsent(ctx, receipt)
	if err != nil {
		return fmt.Errorf("queue receipt: %w", err)
	}
	if !created {
		s.logger.Info("Receipt already requested", "reference_id", referenceID)
		return nil
	}

	s.logger.Info("Receipt requested", "reference_id", referenceID)
	s.emit(ctx, event.TypeReceiptRequested, referenceID, nil)
	return nil
}

// Retry re-queues a failed receipt. Any other state is refused.
func (s *receiptServiceImpl) Retry(ctx context.Context, referenceID string) error {
	receipt, err := s.Get(ctx, referenceID)
	if err != nil {
		return err
	}

	next, err := s.lifecycle.Next(ctx, receipt.Status, workflow.TriggerRetry)
	if err != nil {
		if errors.Is(err, domainwf.ErrInvalidTransition) {
			return fmt.Errorf("%w: receipt is %s", wizard.ErrReceiptNotFailed, receipt.Status)
		}
		return err
	}
	if err := s.receipts.UpdateStatus(ctx, receipt.ID, next.String(), ""); err != nil {
		return fmt.Errorf("requeue receipt: %w", err)
	}

	s.logger.Info("Receipt retry requested", "reference_id", referenceID, "attempts", receipt.Attempts)
	s.emit(ctx, event.TypeReceiptRequested, referenceID, map[string]interface{}{"retry": true})
	return nil
}

// Status maps the stored state to the indicator shown by the completion view
func (s *receiptServiceImpl) Status(ctx context.Context, referenceID string) (wizard.ReceiptStatus, error) {
	receipt, err := s.receipts.GetByReferenceID(ctx, referenceID)
	if err != nil {
		return "", fmt.Errorf("get receipt: %w", err)
	}
	if receipt == nil {
		return wizard.ReceiptNotRequested, nil
	}
	return ReceiptIndicator(receipt.Status), nil
}

// ReceiptIndicator maps a stored receipt status to the completion view's
// indicator.
func ReceiptIndicator(status string) wizard.ReceiptStatus {
	switch status {
	case entity.ReceiptStatusReady:
		return wizard.ReceiptReady
	case entity.ReceiptStatusFailed:
		return wizard.ReceiptFailed
	default:
		return wizard.ReceiptPending
	}
}

// Get returns the stored receipt
func (s *receiptServiceImpl) Get(ctx context.Context, referenceID string) (*entity.Receipt, error) {
	receipt, err := s.receipts.GetByReferenceID(ctx, referenceID)
	if err != nil {
		return nil, fmt.Errorf("get receipt: %w", err)
	}
	if receipt == nil {
		return nil, ErrReceiptNotFound
	}
	return receipt, nil
}

// Open reads a ready receipt file
func (s *receiptServiceImpl) Open(ctx context.Context, referenceID string) (*ReceiptFile, error) {
	receipt, err := s.Get(ctx, referenceID)
	if err != nil {
		return nil, err
	}
	if receipt.Status != entity.ReceiptStatusReady {
		return nil, ErrReceiptNotReady
	}

	content, err := s.storage.Read(ctx, receipt.FilePath)
	if err != nil {
		return nil, fmt.Errorf("read receipt file: %w", err)
	}
	return &ReceiptFile{
		Name:        referenceID + s.renderer.Extension(),
		ContentType: s.renderer.ContentType(),
		Content:     content,
	}, nil
}

// ProcessPending generates up to limit queued receipts. A failed receipt is
// marked FAILED and counted; it does not stop the batch.
func (s *receiptServiceImpl) ProcessPending(ctx context.Context, limit int) (int, int, error) {
	pending, err := s.receipts.GetPending(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("get pending receipts: %w", err)
	}

	processed, failed := 0, 0
	for _, receipt := range pending {
		if ctx.Err() != nil {
			break
		}
		if err := s.generate(ctx, receipt); err != nil {
			failed++
			continue
		}
		processed++
	}
	return processed, failed, nil
}

func (s *receiptServiceImpl) generate(ctx context.Context, receipt *entity.Receipt) error {
	ref := receipt.ReferenceID

	state, err := s.lifecycle.Next(ctx, receipt.Status, workflow.TriggerStart)
	if err != nil {
		return err
	}
	if err := s.receipts.MarkGenerating(ctx, receipt.ID); err != nil {
		return err
	}

	genCtx, cancel := context.WithTimeout(ctx, s.generateTimeout)
	defer cancel()

	// The outcome is recorded even when the worker is stopping, or the row
	// would stay GENERATING.
	ctx = context.WithoutCancel(ctx)

	data, err := s.receiptData(genCtx, receipt)
	if err != nil {
		return s.fail(ctx, receipt, state, err)
	}

	content, err := s.renderer.Render(genCtx, data)
	if err != nil {
		return s.fail(ctx, receipt, state, fmt.Errorf("render: %w", err))
	}

	path := port.ReceiptPath(ref, s.renderer.Extension())
	if err := s.storage.Save(genCtx, path, content); err != nil {
		return s.fail(ctx, receipt, state, fmt.Errorf("save: %w", err))
	}

	if _, err := s.lifecycle.Next(ctx, state.String(), workflow.TriggerComplete); err != nil {
		return err
	}
	if err := s.receipts.MarkReady(ctx, receipt.ID, path, s.now().UTC()); err != nil {
		return err
	}

	s.logger.Info("Receipt generated", "reference_id", ref, "path", path, "size", len(content))
	s.emit(ctx, event.TypeReceiptReady, ref, map[string]interface{}{"path": path})
	return nil
}

func (s *receiptServiceImpl) RequeueInterrupted(ctx context.Context) (int, error) {
	next, err := s.lifecycle.Next(ctx, entity.ReceiptStatusGenerating, workflow.TriggerRequeue)
	if err != nil {
		return 0, err
	}
	n, err := s.receipts.MoveStatus(ctx, entity.ReceiptStatusGenerating, next.String())
	if err != nil {
		return 0, fmt.Errorf("requeue receipts: %w", err)
	}
	if n > 0 {
		s.logger.Info("Interrupted receipts requeued", "count", n)
	}
	return int(n), nil
}

// receiptData assembles the receipt from the snapshot. The stored submission,
// when this instance holds it, supplies flow, locale and submission time.
func (s *receiptServiceImpl) receiptData(ctx context.Context, receipt *entity.Receipt) (port.ReceiptData, error) {
	data := port.ReceiptData{
		ReferenceID: receipt.ReferenceID,
		Locale:      i18n.Default.String(),
		SubmittedAt: receipt.CreatedAt,
		Fields:      wizard.Fields(receipt.Snapshot).Clone(),
	}

	sub, err := s.submissions.GetByReferenceID(ctx, receipt.ReferenceID)
	if err != nil {
		return data, fmt.Errorf("load submission: %w", err)
	}
	if sub != nil {
		data.Flow = sub.Flow
		data.Locale = sub.Locale
		data.SubmittedAt = sub.SubmittedAt
	}

	locale, ok := i18n.Parse(data.Locale)
	if !ok {
		locale = i18n.Default
	}
	data.Labels = stripPrefix(s.messages.Table(locale, "receipt."), "receipt.")
	for key, label := range stripPrefix(s.messages.Table(locale, "fields."), "fields.") {
		data.Labels["field."+key] = label
	}
	if data.Flow != "" {
		data.Labels["flow_title"] = s.messages.Message(locale, "flows."+data.Flow+".title", nil)
	}

	if def, err := s.flows.Get(data.Flow); err == nil {
		data.FieldOrder = def.OrderFields(data.Fields)
	} else {
		data.FieldOrder = flow.Definition{}.OrderFields(data.Fields)
	}
	return data, nil
}

func (s *receiptServiceImpl) fail(ctx context.Context, receipt *entity.Receipt, state domainwf.State, cause error) error {
	next, err := s.lifecycle.Next(ctx, state.String(), workflow.TriggerFail)
	if err != nil {
		return err
	}
	if err := s.receipts.UpdateStatus(ctx, receipt.ID, next.String(), cause.Error()); err != nil {
		s.logger.Error("Failed to record receipt failure", "reference_id", receipt.ReferenceID, "error", err)
		return err
	}

	s.logger.Error("Receipt generation failed", "reference_id", receipt.ReferenceID, "error", cause)
	s.emit(ctx, event.TypeReceiptFailed, receipt.ReferenceID, map[string]interface{}{"error": cause.Error()})
	return cause
}

func (s *receiptServiceImpl) emit(ctx context.Context, typ event.Type, ref string, payload map[string]interface{}) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.DispatchAsync(ctx, event.NewEvent(typ, ref, payload))
}

func stripPrefix(table map[string]string, prefix string) map[string]string {
	out := make(map[string]string, len(table))
	for k, v := range table {
		out[strings.TrimPrefix(k, prefix)] = v
	}
	return out
}
