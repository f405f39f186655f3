package http

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/assets"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/application/flow"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/application/port"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/application/service"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/auth"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/content"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/entity"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/upload"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/wizard"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/i18n"
)

type logEntry struct {
	level string
	msg   string
}

type mockLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.record("info", msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.record("error", msg)
}

func (m *mockLogger) record(level, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, logEntry{level: level, msg: msg})
}

func (m *mockLogger) has(level, msg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.level == level && e.msg == msg {
			return true
		}
	}
	return false
}

// mockWizards is a func-field WizardService; unset funcs answer as if the
// session did not exist
type mockWizards struct {
	StartFunc             func(ctx context.Context, flowName string) (*service.Session, error)
	GetFunc               func(ctx context.Context, id string) (*service.Session, error)
	AdvanceFunc           func(ctx context.Context, id string, input wizard.Fields) (*service.Session, wizard.FieldErrors, error)
	RetreatFunc           func(ctx context.Context, id string) (*service.Session, error)
	SkipFunc              func(ctx context.Context, id string) (*service.Session, error)
	SetFieldsFunc         func(ctx context.Context, id string, fields wizard.Fields) (*service.Session, error)
	AddAttachmentFunc     func(ctx context.Context, id, name, mimeType string, content []byte) (*service.Session, error)
	ReplaceAttachmentFunc func(ctx context.Context, id, attachmentID, name, mimeType string, content []byte) (*service.Session, error)
	RemoveAttachmentFunc  func(ctx context.Context, id, attachmentID string) (*service.Session, error)
	ResendCodeFunc        func(ctx context.Context, id string) error
	SubmitFunc            func(ctx context.Context, id string) (*service.Session, error)
	ReceiptFunc           func(ctx context.Context, id string) (*service.ReceiptView, error)
	RetryReceiptFunc      func(ctx context.Context, id string) (*service.ReceiptView, error)
	CloseFunc             func(ctx context.Context, id string) error
}

func (m *mockWizards) Start(ctx context.Context, flowName string) (*service.Session, error) {
	if m.StartFunc != nil {
		return m.StartFunc(ctx, flowName)
	}
	return nil, flow.ErrUnknownFlow
}

func (m *mockWizards) Get(ctx context.Context, id string) (*service.Session, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, service.ErrSessionNotFound
}

func (m *mockWizards) Advance(ctx context.Context, id string, input wizard.Fields) (*service.Session, wizard.FieldErrors, error) {
	if m.AdvanceFunc != nil {
		return m.AdvanceFunc(ctx, id, input)
	}
	return nil, nil, service.ErrSessionNotFound
}

func (m *mockWizards) Retreat(ctx context.Context, id string) (*service.Session, error) {
	if m.RetreatFunc != nil {
		return m.RetreatFunc(ctx, id)
	}
	return nil, service.ErrSessionNotFound
}

func (m *mockWizards) Skip(ctx context.Context, id string) (*service.Session, error) {
	if m.SkipFunc != nil {
		return m.SkipFunc(ctx, id)
	}
	return nil, service.ErrSessionNotFound
}

func (m *mockWizards) SetFields(ctx context.Context, id string, fields wizard.Fields) (*service.Session, error) {
	if m.SetFieldsFunc != nil {
		return m.SetFieldsFunc(ctx, id, fields)
	}
	return nil, service.ErrSessionNotFound
}

func (m *mockWizards) AddAttachment(ctx context.Context, id, name, mimeType string, content []byte) (*service.Session, error) {
	if m.AddAttachmentFunc != nil {
		return m.AddAttachmentFunc(ctx, id, name, mimeType, content)
	}
	return nil, service.ErrSessionNotFound
}

func (m *mockWizards) ReplaceAttachment(ctx context.Context, id, attachmentID, name, mimeType string, content []byte) (*service.Session, error) {
	if m.ReplaceAttachmentFunc != nil {
		return m.ReplaceAttachmentFunc(ctx, id, attachmentID, name, mimeType, content)
	}
	return nil, service.ErrSessionNotFound
}

func (m *mockWizards) RemoveAttachment(ctx context.Context, id, attachmentID string) (*service.Session, error) {
	if m.RemoveAttachmentFunc != nil {
		return m.RemoveAttachmentFunc(ctx, id, attachmentID)
	}
	return nil, service.ErrSessionNotFound
}

func (m *mockWizards) ResendCode(ctx context.Context, id string) error {
	if m.ResendCodeFunc != nil {
		return m.ResendCodeFunc(ctx, id)
	}
	return service.ErrSessionNotFound
}

func (m *mockWizards) Submit(ctx context.Context, id string) (*service.Session, error) {
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, id)
	}
	return nil, service.ErrSessionNotFound
}

func (m *mockWizards) Receipt(ctx context.Context, id string) (*service.ReceiptView, error) {
	if m.ReceiptFunc != nil {
		return m.ReceiptFunc(ctx, id)
	}
	return nil, service.ErrSessionNotFound
}

func (m *mockWizards) RetryReceipt(ctx context.Context, id string) (*service.ReceiptView, error) {
	if m.RetryReceiptFunc != nil {
		return m.RetryReceiptFunc(ctx, id)
	}
	return nil, service.ErrSessionNotFound
}

func (m *mockWizards) Close(ctx context.Context, id string) error {
	if m.CloseFunc != nil {
		return m.CloseFunc(ctx, id)
	}
	return service.ErrSessionNotFound
}

func (m *mockWizards) Sweep(now time.Time) int {
	return 0
}

type mockSubmissions struct {
	SubmitFunc func(ctx context.Context, req wizard.SubmissionRequest) (*wizard.SubmissionResult, error)
	GetFunc    func(ctx context.Context, referenceID string) (*entity.Submission, error)
	ListFunc   func(ctx context.Context, filter port.SubmissionFilter) ([]*entity.Submission, error)
	ReviewFunc func(ctx context.Context, referenceID, status, note string) (*entity.Submission, error)
}

func (m *mockSubmissions) Submit(ctx context.Context, req wizard.SubmissionRequest) (*wizard.SubmissionResult, error) {
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, req)
	}
	return nil, &wizard.TransportError{Op: "submit", Err: fmt.Errorf("not configured")}
}

func (m *mockSubmissions) Get(ctx context.Context, referenceID string) (*entity.Submission, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, referenceID)
	}
	return nil, service.ErrSubmissionNotFound
}

func (m *mockSubmissions) List(ctx context.Context, filter port.SubmissionFilter) ([]*entity.Submission, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return nil, nil
}

func (m *mockSubmissions) Review(ctx context.Context, referenceID, status, note string) (*entity.Submission, error) {
	if m.ReviewFunc != nil {
		return m.ReviewFunc(ctx, referenceID, status, note)
	}
	return nil, service.ErrSubmissionNotFound
}

type mockReceipts struct {
	StatusFunc func(ctx context.Context, referenceID string) (wizard.ReceiptStatus, error)
	RetryFunc  func(ctx context.Context, referenceID string) error
	OpenFunc   func(ctx context.Context, referenceID string) (*service.ReceiptFile, error)
}

func (m *mockReceipts) Request(ctx context.Context, referenceID string, snapshot wizard.Fields) error {
	return nil
}

func (m *mockReceipts) Retry(ctx context.Context, referenceID string) error {
	if m.RetryFunc != nil {
		return m.RetryFunc(ctx, referenceID)
	}
	return service.ErrReceiptNotFound
}

func (m *mockReceipts) Status(ctx context.Context, referenceID string) (wizard.ReceiptStatus, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx, referenceID)
	}
	return wizard.ReceiptNotRequested, nil
}

func (m *mockReceipts) Get(ctx context.Context, referenceID string) (*entity.Receipt, error) {
	return nil, service.ErrReceiptNotFound
}

func (m *mockReceipts) Open(ctx context.Context, referenceID string) (*service.ReceiptFile, error) {
	if m.OpenFunc != nil {
		return m.OpenFunc(ctx, referenceID)
	}
	return nil, service.ErrReceiptNotFound
}

func (m *mockReceipts) ProcessPending(ctx context.Context, limit int) (int, int, error) {
	return 0, 0, nil
}

func (m *mockReceipts) RequeueInterrupted(ctx context.Context) (int, error) {
	return 0, nil
}

type mockContent struct {
	metrics  []content.ImpactMetric
	SaveFunc func(ctx context.Context, kind, id string, body json.RawMessage) (*entity.ContentDocument, error)
	PageFunc func(ctx context.Context, slug string) (*service.RenderedPage, error)
}

func (m *mockContent) Testimonials(ctx context.Context, query, category string) service.Listing[content.Testimonial] {
	return service.Listing[content.Testimonial]{Items: []content.Testimonial{}, Source: service.SourceDefaults}
}

func (m *mockContent) Milestones(ctx context.Context, query, category string) service.Listing[content.Milestone] {
	return service.Listing[content.Milestone]{Items: []content.Milestone{}, Source: service.SourceDefaults}
}

func (m *mockContent) ImpactMetrics(ctx context.Context) service.Listing[content.ImpactMetric] {
	return service.Listing[content.ImpactMetric]{Items: m.metrics, Source: service.SourceDefaults}
}

func (m *mockContent) Page(ctx context.Context, slug string) (*service.RenderedPage, error) {
	if m.PageFunc != nil {
		return m.PageFunc(ctx, slug)
	}
	return nil, service.ErrPageNotFound
}

func (m *mockContent) Save(ctx context.Context, kind, id string, body json.RawMessage) (*entity.ContentDocument, error) {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, kind, id, body)
	}
	return nil, service.ErrUnknownContentKind
}

func (m *mockContent) Delete(ctx context.Context, kind, id string) error {
	return nil
}

func (m *mockContent) Invalidate(kind string) {}

type mockWorkers struct {
	running bool
	count   int
}

func (m *mockWorkers) IsRunning() bool     { return m.running }
func (m *mockWorkers) GetWorkerCount() int { return m.count }

type fixture struct {
	server      *Server
	wizards     *mockWizards
	submissions *mockSubmissions
	receipts    *mockReceipts
	content     *mockContent
	workers     *mockWorkers
	tokens      *auth.Tokens
	logger      *mockLogger
}

const testIngestToken = "ingest-secret"

func newFixture(t *testing.T) *fixture {
	t.Helper()

	messages, err := i18n.LoadCatalog(assets.FS, assets.LocalesDir)
	require.NoError(t, err)

	f := &fixture{
		wizards:     &mockWizards{},
		submissions: &mockSubmissions{},
		receipts:    &mockReceipts{},
		content:     &mockContent{},
		workers:     &mockWorkers{running: true, count: 2},
		tokens:      auth.NewTokens("test-secret", "kisan-portal"),
		logger:      &mockLogger{},
	}

	config := DefaultServerConfig()
	config.AllowedOrigins = []string{"https://kisanandolan.org"}
	config.Impact = ImpactConfig{Duration: 30 * time.Millisecond, Interval: 5 * time.Millisecond}
	config.IngestToken = testIngestToken

	f.server = NewServer(config, Services{
		Wizards:     f.wizards,
		Submissions: f.submissions,
		Receipts:    f.receipts,
		Content:     f.content,
		Flows:       flow.NewCatalog(nil, upload.DefaultPolicy()),
		Messages:    messages,
		Workers:     f.workers,
	}, f.tokens, f.logger)
	return f
}

func sampleSession(stepID string) *service.Session {
	return &service.Session{
		ID:        "sess-1",
		ExpiresAt: time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC),
		State: wizard.Snapshot{
			Flow:        entity.FlowRegistration,
			Phase:       wizard.PhaseEditing,
			StepID:      stepID,
			Data:        wizard.Fields{},
			Attachments: []wizard.AttachmentView{},
		},
	}
}
