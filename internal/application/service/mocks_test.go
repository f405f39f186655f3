package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/assets"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/application/dispatcher"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/application/port"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/content"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/entity"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/event"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/i18n"
)

type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

func (m *mockLogger) hasInfo(msg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.infos {
		if s == msg {
			return true
		}
	}
	return false
}

func (m *mockLogger) hasError(msg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.errors {
		if s == msg {
			return true
		}
	}
	return false
}

// recordingDispatcher captures dispatched events instead of running handlers
type recordingDispatcher struct {
	mu     sync.Mutex
	events []*event.Event
	subs   map[event.Type][]string
}

func (d *recordingDispatcher) Subscribe(t event.Type, h dispatcher.Handler) {
	d.SubscribeNamed(t, "", h)
}

func (d *recordingDispatcher) SubscribeNamed(t event.Type, name string, h dispatcher.Handler) {
	d.SubscribeDescribed(t, name, "", h)
}

func (d *recordingDispatcher) SubscribeDescribed(t event.Type, name, _ string, _ dispatcher.Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.subs == nil {
		d.subs = make(map[event.Type][]string)
	}
	d.subs[t] = append(d.subs[t], name)
}

func (d *recordingDispatcher) Unsubscribe(event.Type, string) {}

func (d *recordingDispatcher) Dispatch(_ context.Context, evt *event.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, evt)
	return nil
}

func (d *recordingDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	_ = d.Dispatch(ctx, evt)
}

func (d *recordingDispatcher) ListHandlers(event.Type) []dispatcher.HandlerInfo { return nil }

func (d *recordingDispatcher) Close() error { return nil }

func (d *recordingDispatcher) types() []event.Type {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]event.Type, len(d.events))
	for i, e := range d.events {
		out[i] = e.Type
	}
	return out
}

func (d *recordingDispatcher) last() *event.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.events) == 0 {
		return nil
	}
	return d.events[len(d.events)-1]
}

type mockSubmissionRepo struct {
	CreateFunc           func(ctx context.Context, sub *entity.Submission) error
	GetByReferenceIDFunc func(ctx context.Context, referenceID string) (*entity.Submission, error)
	ExistsActiveFunc     func(ctx context.Context, flow, phone string) (bool, error)
	UpdateStatusFunc     func(ctx context.Context, id int64, status, note string, reviewedAt time.Time) error
	ListFunc             func(ctx context.Context, filter port.SubmissionFilter) ([]*entity.Submission, error)
}

func (m *mockSubmissionRepo) Create(ctx context.Context, sub *entity.Submission) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, sub)
	}
	sub.ID = 1
	return nil
}

func (m *mockSubmissionRepo) GetByReferenceID(ctx context.Context, referenceID string) (*entity.Submission, error) {
	if m.GetByReferenceIDFunc != nil {
		return m.GetByReferenceIDFunc(ctx, referenceID)
	}
	return nil, nil
}

func (m *mockSubmissionRepo) ExistsActive(ctx context.Context, flow, phone string) (bool, error) {
	if m.ExistsActiveFunc != nil {
		return m.ExistsActiveFunc(ctx, flow, phone)
	}
	return false, nil
}

func (m *mockSubmissionRepo) UpdateStatus(ctx context.Context, id int64, status, note string, reviewedAt time.Time) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status, note, reviewedAt)
	}
	return nil
}

func (m *mockSubmissionRepo) List(ctx context.Context, filter port.SubmissionFilter) ([]*entity.Submission, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return nil, nil
}

type mockAttachmentRepo struct {
	mu      sync.Mutex
	created []*entity.Attachment

	CreateFunc func(ctx context.Context, att *entity.Attachment) error
}

func (m *mockAttachmentRepo) Create(ctx context.Context, att *entity.Attachment) error {
	if m.CreateFunc != nil {
		if err := m.CreateFunc(ctx, att); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	att.ID = int64(len(m.created) + 1)
	m.created = append(m.created, att)
	return nil
}

func (m *mockAttachmentRepo) GetBySubmissionID(_ context.Context, submissionID int64) ([]*entity.Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Attachment
	for _, a := range m.created {
		if a.SubmissionID == submissionID {
			out = append(out, a)
		}
	}
	return out, nil
}

// memReceiptRepo keeps receipts in memory and mirrors the SQLite semantics
type memReceiptRepo struct {
	mu       sync.Mutex
	receipts map[string]*entity.Receipt
	nextID   int64
}

func newMemReceiptRepo() *memReceiptRepo {
	return &memReceiptRepo{receipts: make(map[string]*entity.Receipt)}
}

func (m *memReceiptRepo) CreateIfAbsent(_ context.Context, r *entity.Receipt) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.receipts[r.ReferenceID]; ok {
		return false, nil
	}
	m.nextID++
	cp := *r
	cp.ID = m.nextID
	m.receipts[r.ReferenceID] = &cp
	return true, nil
}

func (m *memReceiptRepo) GetByReferenceID(_ context.Context, ref string) (*entity.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.receipts[ref]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *memReceiptRepo) GetPending(_ context.Context, limit int) ([]*entity.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Receipt
	for _, r := range m.receipts {
		if r.Status == entity.ReceiptStatusPending && len(out) < limit {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memReceiptRepo) byID(id int64) *entity.Receipt {
	for _, r := range m.receipts {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (m *memReceiptRepo) MarkGenerating(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.byID(id)
	if r == nil {
		return fmt.Errorf("receipt %d not found", id)
	}
	r.Status = entity.ReceiptStatusGenerating
	r.Attempts++
	return nil
}

func (m *memReceiptRepo) MarkReady(ctx context.Context, id int64, path string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.byID(id)
	if r == nil {
		return fmt.Errorf("receipt %d not found", id)
	}
	r.Status = entity.ReceiptStatusReady
	r.FilePath = path
	r.GeneratedAt = &at
	r.ErrorMessage = ""
	return nil
}

func (m *memReceiptRepo) UpdateStatus(ctx context.Context, id int64, status, errorMsg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.byID(id)
	if r == nil {
		return fmt.Errorf("receipt %d not found", id)
	}
	r.Status = status
	r.ErrorMessage = errorMsg
	return nil
}

func (m *memReceiptRepo) MoveStatus(ctx context.Context, from, to string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.receipts {
		if r.Status == from {
			r.Status = to
			n++
		}
	}
	return n, nil
}

type mockContentRepo struct {
	ListFunc   func(ctx context.Context, kind string) ([]*entity.ContentDocument, error)
	UpsertFunc func(ctx context.Context, doc *entity.ContentDocument) error
	DeleteFunc func(ctx context.Context, kind, id string) error

	mu     sync.Mutex
	lists  int
	upsert []*entity.ContentDocument
}

func (m *mockContentRepo) List(ctx context.Context, kind string) ([]*entity.ContentDocument, error) {
	m.mu.Lock()
	m.lists++
	m.mu.Unlock()
	if m.ListFunc != nil {
		return m.ListFunc(ctx, kind)
	}
	return nil, nil
}

func (m *mockContentRepo) Get(ctx context.Context, kind, id string) (*entity.ContentDocument, error) {
	return nil, nil
}

func (m *mockContentRepo) Upsert(ctx context.Context, doc *entity.ContentDocument) error {
	m.mu.Lock()
	m.upsert = append(m.upsert, doc)
	m.mu.Unlock()
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, doc)
	}
	return nil
}

func (m *mockContentRepo) Delete(ctx context.Context, kind, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, kind, id)
	}
	return nil
}

// memVerificationRepo keeps codes in issue order
type memVerificationRepo struct {
	mu    sync.Mutex
	codes []*entity.VerificationCode

	LatestErr error
}

func (m *memVerificationRepo) Create(_ context.Context, c *entity.VerificationCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = int64(len(m.codes) + 1)
	m.codes = append(m.codes, c)
	return nil
}

func (m *memVerificationRepo) Latest(_ context.Context, subject string) (*entity.VerificationCode, error) {
	if m.LatestErr != nil {
		return nil, m.LatestErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.codes) - 1; i >= 0; i-- {
		if m.codes[i].Subject == subject {
			cp := *m.codes[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memVerificationRepo) ClaimAttempt(_ context.Context, id int64, maxAttempts int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.codes[id-1]
	if c.ConsumedAt != nil || c.Attempts >= maxAttempts {
		return false, nil
	}
	c.Attempts++
	return true, nil
}

func (m *memVerificationRepo) MarkConsumed(_ context.Context, id int64, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.codes[id-1]
	if c.ConsumedAt != nil {
		return false, nil
	}
	c.ConsumedAt = &at
	return true, nil
}

func (m *memVerificationRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.codes[:0]
	var n int64
	for _, c := range m.codes {
		if c.ExpiresAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, c)
	}
	m.codes = kept
	return n, nil
}

// mockTxManager runs fn inline
type mockTxManager struct {
	calls int
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

// memStorage is an in-memory FileStorage
type memStorage struct {
	mu    sync.Mutex
	files map[string][]byte

	SaveFunc func(ctx context.Context, path string, content []byte) error
}

func newMemStorage() *memStorage {
	return &memStorage{files: make(map[string][]byte)}
}

func (m *memStorage) Save(ctx context.Context, path string, content []byte) error {
	if m.SaveFunc != nil {
		if err := m.SaveFunc(ctx, path, content); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = append([]byte(nil), content...)
	return nil
}

func (m *memStorage) Read(_ context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	return b, nil
}

func (m *memStorage) Exists(_ context.Context, path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[path]
	return ok
}

func (m *memStorage) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
	return nil
}

func (m *memStorage) paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for p := range m.files {
		out = append(out, p)
	}
	return out
}

type mockMailer struct {
	mu   sync.Mutex
	sent []port.Email

	SendFunc func(ctx context.Context, msg port.Email) error
}

func (m *mockMailer) Send(ctx context.Context, msg port.Email) error {
	if m.SendFunc != nil {
		if err := m.SendFunc(ctx, msg); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

type mockRenderer struct {
	RenderFunc func(ctx context.Context, data port.ReceiptData) ([]byte, error)
	last       port.ReceiptData
}

func (m *mockRenderer) Render(ctx context.Context, data port.ReceiptData) ([]byte, error) {
	m.last = data
	if m.RenderFunc != nil {
		return m.RenderFunc(ctx, data)
	}
	return []byte("receipt " + data.ReferenceID), nil
}

func (m *mockRenderer) Extension() string   { return ".xlsx" }
func (m *mockRenderer) ContentType() string { return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" }

type mockTranslator struct {
	TranslateFunc func(ctx context.Context, texts []string) ([]string, error)
}

func (m *mockTranslator) TranslateToHindi(ctx context.Context, texts []string) ([]string, error) {
	if m.TranslateFunc != nil {
		return m.TranslateFunc(ctx, texts)
	}
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = "हि:" + t
	}
	return out, nil
}

// upperMarkdown wraps text in a paragraph so tests can see it was rendered
type upperMarkdown struct{}

func (upperMarkdown) Render(md string) (string, error) {
	return "<p>" + strings.TrimSpace(md) + "</p>", nil
}

func loadMessages(t *testing.T) *i18n.Catalog {
	t.Helper()
	c, err := i18n.LoadCatalog(assets.FS, assets.LocalesDir)
	require.NoError(t, err)
	return c
}

func loadDefaults(t *testing.T) *content.Defaults {
	t.Helper()
	data, err := assets.FS.ReadFile(assets.DefaultsPath)
	require.NoError(t, err)
	d, err := content.ParseDefaults(data)
	require.NoError(t, err)
	return d
}
