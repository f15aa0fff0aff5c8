package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/presensi-api/internal/proof"
	"github.com/noah-isme/presensi-api/internal/repository"
)

func newProofService(t *testing.T, sessions repository.SessionRepository, now time.Time) *proofService {
	t.Helper()
	codec := proof.NewTokenCodec("test-secret", 5*time.Minute)
	svc := NewProofService(sessions, codec, 15*time.Minute, testLogger()).(*proofService)
	svc.now = func() time.Time { return now }
	return svc
}

func TestProofServiceQRRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	sessions := repository.NewSessionRepository(db)
	slot := seedSlot(t, db)
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	session := seedSession(t, db, slot, date)

	svc := newProofService(t, sessions, date.Add(10*time.Hour+30*time.Minute))

	issued, err := svc.IssueQR(context.Background(), slot.TeacherID, session.ID)
	require.NoError(t, err)
	require.Equal(t, session.ID, issued.SessionID)
	require.NotEmpty(t, issued.Token)
	require.NotEmpty(t, issued.QRImage)
	require.Equal(t, 300, issued.ExpiresIn)

	verified, err := svc.VerifyQR(context.Background(), issued.Token)
	require.NoError(t, err)
	require.Equal(t, session.ID, verified.ID)
}

func TestProofServiceReissueSupersedesQR(t *testing.T) {
	db := setupTestDB(t)
	sessions := repository.NewSessionRepository(db)
	slot := seedSlot(t, db)
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	session := seedSession(t, db, slot, date)

	svc := newProofService(t, sessions, date.Add(10*time.Hour+30*time.Minute))

	first, err := svc.IssueQR(context.Background(), slot.TeacherID, session.ID)
	require.NoError(t, err)
	second, err := svc.IssueQR(context.Background(), slot.TeacherID, session.ID)
	require.NoError(t, err)

	// The earlier token is still unexpired but no longer bound.
	_, err = svc.VerifyQR(context.Background(), first.Token)
	require.ErrorIs(t, err, ErrProofSuperseded)

	verified, err := svc.VerifyQR(context.Background(), second.Token)
	require.NoError(t, err)
	require.Equal(t, session.ID, verified.ID)
}

func TestProofServiceVerifyQRDeactivatedSession(t *testing.T) {
	db := setupTestDB(t)
	sessions := repository.NewSessionRepository(db)
	slot := seedSlot(t, db)
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	session := seedSession(t, db, slot, date)

	svc := newProofService(t, sessions, date.Add(10*time.Hour+30*time.Minute))

	issued, err := svc.IssueQR(context.Background(), slot.TeacherID, session.ID)
	require.NoError(t, err)
	require.NoError(t, sessions.Deactivate(context.Background(), session.ID))

	// A deactivated session rejects its still-unexpired token the same way a
	// rebound nonce would.
	_, err = svc.VerifyQR(context.Background(), issued.Token)
	require.ErrorIs(t, err, ErrProofSuperseded)
}

func TestProofServiceVerifyQRUnknownSession(t *testing.T) {
	db := setupTestDB(t)
	sessions := repository.NewSessionRepository(db)

	now := time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)
	svc := newProofService(t, sessions, now)

	codec := proof.NewTokenCodec("test-secret", 5*time.Minute)
	token, _, err := codec.Mint(999, "orphan-nonce", "Maths", now)
	require.NoError(t, err)

	_, err = svc.VerifyQR(context.Background(), token)
	require.ErrorIs(t, err, ErrProofSuperseded)
}

func TestProofServiceQRExpiry(t *testing.T) {
	db := setupTestDB(t)
	sessions := repository.NewSessionRepository(db)
	slot := seedSlot(t, db)
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	session := seedSession(t, db, slot, date)

	issuedAt := date.Add(10*time.Hour + 30*time.Minute)
	svc := newProofService(t, sessions, issuedAt)

	issued, err := svc.IssueQR(context.Background(), slot.TeacherID, session.ID)
	require.NoError(t, err)

	svc.now = func() time.Time { return issuedAt.Add(6 * time.Minute) }
	_, err = svc.VerifyQR(context.Background(), issued.Token)
	require.ErrorIs(t, err, proof.ErrExpired)
}

func TestProofServiceIssueRequiresOwnership(t *testing.T) {
	db := setupTestDB(t)
	sessions := repository.NewSessionRepository(db)
	slot := seedSlot(t, db)
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	session := seedSession(t, db, slot, date)

	svc := newProofService(t, sessions, date.Add(10*time.Hour))

	_, err := svc.IssueQR(context.Background(), slot.TeacherID+1, session.ID)
	require.ErrorIs(t, err, ErrNotSessionOwner)

	_, err = svc.IssueManualCode(context.Background(), slot.TeacherID+1, session.ID)
	require.ErrorIs(t, err, ErrNotSessionOwner)
}

func TestProofServiceIssueInactiveSession(t *testing.T) {
	db := setupTestDB(t)
	sessions := repository.NewSessionRepository(db)
	slot := seedSlot(t, db)
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	session := seedSession(t, db, slot, date)
	require.NoError(t, sessions.Deactivate(context.Background(), session.ID))

	svc := newProofService(t, sessions, date.Add(10*time.Hour))

	_, err := svc.IssueQR(context.Background(), slot.TeacherID, session.ID)
	require.ErrorIs(t, err, ErrSessionInactive)
}

func TestProofServiceManualCodeRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	sessions := repository.NewSessionRepository(db)
	slot := seedSlot(t, db)
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	session := seedSession(t, db, slot, date)

	svc := newProofService(t, sessions, date.Add(10*time.Hour+30*time.Minute))

	issued, err := svc.IssueManualCode(context.Background(), slot.TeacherID, session.ID)
	require.NoError(t, err)
	require.Len(t, issued.Code, proof.CodeLength)
	require.Equal(t, 900, issued.ExpiresIn)

	verified, err := svc.VerifyManualCode(context.Background(), issued.Code)
	require.NoError(t, err)
	require.Equal(t, session.ID, verified.ID)

	// Lowercase entry is accepted.
	verified, err = svc.VerifyManualCode(context.Background(), "  "+strings.ToLower(issued.Code)+" ")
	require.NoError(t, err)
	require.Equal(t, session.ID, verified.ID)
}

func TestProofServiceManualCodeExpires(t *testing.T) {
	db := setupTestDB(t)
	sessions := repository.NewSessionRepository(db)
	slot := seedSlot(t, db)
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	session := seedSession(t, db, slot, date)

	issuedAt := date.Add(10 * time.Hour)
	svc := newProofService(t, sessions, issuedAt)

	issued, err := svc.IssueManualCode(context.Background(), slot.TeacherID, session.ID)
	require.NoError(t, err)

	svc.now = func() time.Time { return issuedAt.Add(16 * time.Minute) }
	_, err = svc.VerifyManualCode(context.Background(), issued.Code)
	require.ErrorIs(t, err, ErrCodeNotFound)
}

func TestProofServiceReissueInvalidatesOldCode(t *testing.T) {
	db := setupTestDB(t)
	sessions := repository.NewSessionRepository(db)
	slot := seedSlot(t, db)
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	session := seedSession(t, db, slot, date)

	svc := newProofService(t, sessions, date.Add(10*time.Hour))

	first, err := svc.IssueManualCode(context.Background(), slot.TeacherID, session.ID)
	require.NoError(t, err)
	second, err := svc.IssueManualCode(context.Background(), slot.TeacherID, session.ID)
	require.NoError(t, err)
	require.NotEqual(t, first.Code, second.Code)

	_, err = svc.VerifyManualCode(context.Background(), first.Code)
	require.ErrorIs(t, err, ErrCodeNotFound)

	verified, err := svc.VerifyManualCode(context.Background(), second.Code)
	require.NoError(t, err)
	require.Equal(t, session.ID, verified.ID)
}

func TestProofServiceMalformedCode(t *testing.T) {
	db := setupTestDB(t)
	sessions := repository.NewSessionRepository(db)

	svc := newProofService(t, sessions, time.Now())

	_, err := svc.VerifyManualCode(context.Background(), "TOOLONGCODE")
	require.ErrorIs(t, err, ErrCodeNotFound)
	_, err = svc.VerifyManualCode(context.Background(), "")
	require.ErrorIs(t, err, ErrCodeNotFound)
}
