package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/application/port"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/entity"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/infrastructure/persistence/sqlite"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/migrations"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/pkg/database"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	logger := zap.NewNop()
	db, err := database.New(database.Config{Path: ":memory:", MaxOpenConns: 1}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.NewMigrator(db, logger).RunMigrations(migrations.FS))
	return db
}

func TestSubmissionRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewSubmissionRepository(db.DB, zap.NewNop())

	sub := &entity.Submission{
		ReferenceID: "KA-REG-20261019-0a1b2c3d",
		Flow:        entity.FlowRegistration,
		Phone:       "9876543210",
		Locale:      "hi",
		Fields:      map[string]string{"name": "आशा", "phone": "9876543210"},
	}
	require.NoError(t, repo.Create(ctx, sub))
	assert.NotZero(t, sub.ID)
	assert.Equal(t, entity.SubmissionStatusPending, sub.Status)

	got, err := repo.GetByReferenceID(ctx, sub.ReferenceID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, sub.Fields, got.Fields)
	assert.Equal(t, "hi", got.Locale)
	assert.Nil(t, got.ReviewedAt)

	missing, err := repo.GetByReferenceID(ctx, "KA-NOPE")
	require.NoError(t, err)
	assert.Nil(t, missing)

	exists, err := repo.ExistsActive(ctx, entity.FlowRegistration, "9876543210")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.ExistsActive(ctx, entity.FlowYouthLeadership, "9876543210")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.UpdateStatus(ctx, sub.ID, entity.SubmissionStatusRejected, "duplicate card", time.Now().UTC()))
	exists, err = repo.ExistsActive(ctx, entity.FlowRegistration, "9876543210")
	require.NoError(t, err)
	assert.False(t, exists, "rejected submissions do not block a new one")

	got, err = repo.GetByReferenceID(ctx, sub.ReferenceID)
	require.NoError(t, err)
	assert.Equal(t, "duplicate card", got.ReviewNote)
	assert.NotNil(t, got.ReviewedAt)

	assert.Error(t, repo.UpdateStatus(ctx, 999, entity.SubmissionStatusAccepted, "", time.Now()))

	list, err := repo.List(ctx, port.SubmissionFilter{Status: entity.SubmissionStatusRejected})
	require.NoError(t, err)
	require.Len(t, list, 1)
	list, err = repo.List(ctx, port.SubmissionFilter{Flow: entity.FlowYouthLeadership})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTransactionRollback(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	tm := sqlite.NewDB(db.DB, zap.NewNop())
	subs := NewSubmissionRepository(db.DB, zap.NewNop())
	atts := NewAttachmentRepository(db.DB, zap.NewNop())

	boom := errors.New("storage failed")
	err := tm.WithTransaction(ctx, func(ctx context.Context) error {
		sub := &entity.Submission{ReferenceID: "KA-TX-1", Flow: "registration", Fields: map[string]string{}}
		if err := subs.Create(ctx, sub); err != nil {
			return err
		}
		if err := atts.Create(ctx, &entity.Attachment{SubmissionID: sub.ID, FileName: "a.pdf", MimeType: "application/pdf", FileSize: 10, FilePath: "x"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := subs.GetByReferenceID(ctx, "KA-TX-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	err = tm.WithTransaction(ctx, func(ctx context.Context) error {
		sub := &entity.Submission{ReferenceID: "KA-TX-2", Flow: "registration", Fields: map[string]string{}}
		if err := subs.Create(ctx, sub); err != nil {
			return err
		}
		return atts.Create(ctx, &entity.Attachment{SubmissionID: sub.ID, FileName: "a.pdf", MimeType: "application/pdf", FileSize: 10, FilePath: "x"})
	})
	require.NoError(t, err)

	got, err = subs.GetByReferenceID(ctx, "KA-TX-2")
	require.NoError(t, err)
	require.NotNil(t, got)
	list, err := atts.GetBySubmissionID(ctx, got.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a.pdf", list[0].FileName)
}

func TestReceiptRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewReceiptRepository(db.DB, zap.NewNop())

	receipt := &entity.Receipt{ReferenceID: "KA-REG-1", Snapshot: map[string]string{"name": "Asha"}}
	created, err := repo.CreateIfAbsent(ctx, receipt)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.CreateIfAbsent(ctx, &entity.Receipt{ReferenceID: "KA-REG-1", Snapshot: map[string]string{"name": "Other"}})
	require.NoError(t, err)
	assert.False(t, created, "second request for the same reference is ignored")

	pending, err := repo.GetPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Asha", pending[0].Snapshot["name"])

	require.NoError(t, repo.MarkGenerating(ctx, receipt.ID))
	require.NoError(t, repo.UpdateStatus(ctx, receipt.ID, entity.ReceiptStatusFailed, "disk full"))
	got, err := repo.GetByReferenceID(ctx, "KA-REG-1")
	require.NoError(t, err)
	assert.Equal(t, entity.ReceiptStatusFailed, got.Status)
	assert.Equal(t, 1, got.Attempts)
	assert.Equal(t, "disk full", got.ErrorMessage)

	require.NoError(t, repo.UpdateStatus(ctx, receipt.ID, entity.ReceiptStatusPending, ""))
	require.NoError(t, repo.MarkGenerating(ctx, receipt.ID))
	moved, err := repo.MoveStatus(ctx, entity.ReceiptStatusGenerating, entity.ReceiptStatusPending)
	require.NoError(t, err)
	assert.Equal(t, int64(1), moved)
	pending, err = repo.GetPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, repo.MarkGenerating(ctx, receipt.ID))
	require.NoError(t, repo.MarkReady(ctx, receipt.ID, "receipts/KA-REG-1.xlsx", time.Now().UTC()))
	got, err = repo.GetByReferenceID(ctx, "KA-REG-1")
	require.NoError(t, err)
	assert.Equal(t, entity.ReceiptStatusReady, got.Status)
	assert.Equal(t, 3, got.Attempts)
	assert.Empty(t, got.ErrorMessage)
	assert.NotNil(t, got.GeneratedAt)

	pending, err = repo.GetPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestContentRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewContentRepository(db.DB, zap.NewNop())

	body, _ := json.Marshal(map[string]any{"quote": map[string]string{"en": "Hello"}})
	require.NoError(t, repo.Upsert(ctx, &entity.ContentDocument{ID: "t-2", Kind: entity.ContentKindTestimonial, Position: 2, Body: body}))
	require.NoError(t, repo.Upsert(ctx, &entity.ContentDocument{ID: "t-1", Kind: entity.ContentKindTestimonial, Position: 1, Body: body}))
	require.NoError(t, repo.Upsert(ctx, &entity.ContentDocument{ID: "m-1", Kind: entity.ContentKindMilestone, Body: []byte(`{}`)}))

	docs, err := repo.List(ctx, entity.ContentKindTestimonial)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "t-1", docs[0].ID)
	assert.JSONEq(t, string(body), string(docs[0].Body))

	require.NoError(t, repo.Upsert(ctx, &entity.ContentDocument{ID: "t-1", Kind: entity.ContentKindTestimonial, Position: 3, Body: []byte(`{}`)}))
	doc, err := repo.Get(ctx, entity.ContentKindTestimonial, "t-1")
	require.NoError(t, err)
	assert.Equal(t, 3, doc.Position)

	require.NoError(t, repo.Delete(ctx, entity.ContentKindTestimonial, "t-1"))
	doc, err = repo.Get(ctx, entity.ContentKindTestimonial, "t-1")
	require.NoError(t, err)
	assert.Nil(t, doc)
	require.NoError(t, repo.Delete(ctx, entity.ContentKindTestimonial, "t-1"))
}

func TestVerificationRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewVerificationRepository(db.DB, zap.NewNop())
	now := time.Now().UTC()

	old := &entity.VerificationCode{Subject: "registration:9876543210", CodeHash: "h1", ExpiresAt: now.Add(-time.Minute)}
	fresh := &entity.VerificationCode{Subject: "registration:9876543210", CodeHash: "h2", ExpiresAt: now.Add(10 * time.Minute)}
	require.NoError(t, repo.Create(ctx, old))
	require.NoError(t, repo.Create(ctx, fresh))

	latest, err := repo.Latest(ctx, "registration:9876543210")
	require.NoError(t, err)
	assert.Equal(t, "h2", latest.CodeHash)

	claimed, err := repo.ClaimAttempt(ctx, fresh.ID, 2)
	require.NoError(t, err)
	assert.True(t, claimed)
	claimed, err = repo.ClaimAttempt(ctx, fresh.ID, 2)
	require.NoError(t, err)
	assert.True(t, claimed)
	claimed, err = repo.ClaimAttempt(ctx, fresh.ID, 2)
	require.NoError(t, err)
	assert.False(t, claimed, "the limit is enforced by the update itself")

	consumed, err := repo.MarkConsumed(ctx, fresh.ID, now)
	require.NoError(t, err)
	assert.True(t, consumed)
	consumed, err = repo.MarkConsumed(ctx, fresh.ID, now)
	require.NoError(t, err)
	assert.False(t, consumed, "a code is consumed once")

	latest, err = repo.Latest(ctx, "registration:9876543210")
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Attempts)
	assert.NotNil(t, latest.ConsumedAt)

	claimed, err = repo.ClaimAttempt(ctx, fresh.ID, 10)
	require.NoError(t, err)
	assert.False(t, claimed, "a consumed code takes no attempts")

	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	none, err := repo.Latest(ctx, "youth-leadership:9876543210")
	require.NoError(t, err)
	assert.Nil(t, none)
}
