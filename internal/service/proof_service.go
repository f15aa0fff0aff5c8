package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/presensi-api/internal/dto"
	"github.com/noah-isme/presensi-api/internal/models"
	"github.com/noah-isme/presensi-api/internal/proof"
	"github.com/noah-isme/presensi-api/internal/repository"
)

const codeBindAttempts = 5

// ProofService issues and verifies attendance proofs. Issuing a new proof for
// a session supersedes the one before it, so at most one QR token and one
// manual code are honored per session at any moment.
type ProofService interface {
	IssueQR(ctx context.Context, teacherID, sessionID uint) (dto.QRProofResponse, error)
	IssueManualCode(ctx context.Context, teacherID, sessionID uint) (dto.ManualCodeResponse, error)
	// VerifyQR validates a scanned token and resolves the session it marks.
	VerifyQR(ctx context.Context, token string) (models.AttendanceSession, error)
	// VerifyManualCode resolves the session bound to a short code. Expired,
	// superseded and unknown codes all fail identically with ErrCodeNotFound.
	VerifyManualCode(ctx context.Context, code string) (models.AttendanceSession, error)
}

type proofService struct {
	sessions repository.SessionRepository
	codec    *proof.TokenCodec
	codeTTL  time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewProofService constructs a ProofService instance.
func NewProofService(
	sessions repository.SessionRepository,
	codec *proof.TokenCodec,
	codeTTL time.Duration,
	logger zerolog.Logger,
) ProofService {
	return &proofService{
		sessions: sessions,
		codec:    codec,
		codeTTL:  codeTTL,
		logger:   logger.With().Str("component", "proof_service").Logger(),
		now:      time.Now,
	}
}

func (s *proofService) IssueQR(ctx context.Context, teacherID, sessionID uint) (dto.QRProofResponse, error) {
	session, err := s.issuableSession(ctx, teacherID, sessionID)
	if err != nil {
		return dto.QRProofResponse{}, err
	}

	nonce := uuid.NewString()
	if err := s.sessions.BindQRNonce(ctx, session.ID, nonce); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.QRProofResponse{}, ErrSessionInactive
		}
		return dto.QRProofResponse{}, err
	}

	now := s.now()
	token, expiresAt, err := s.codec.Mint(session.ID, nonce, session.Timetable.Subject.Name, now)
	if err != nil {
		return dto.QRProofResponse{}, err
	}

	image, err := proof.RenderQR(token)
	if err != nil {
		return dto.QRProofResponse{}, err
	}

	s.logger.Info().Uint("session_id", session.ID).Time("expires_at", expiresAt).Msg("qr proof issued")

	return dto.QRProofResponse{
		SessionID: session.ID,
		Token:     token,
		QRImage:   image,
		ExpiresAt: expiresAt,
		ExpiresIn: int(expiresAt.Sub(now).Seconds()),
	}, nil
}

func (s *proofService) IssueManualCode(ctx context.Context, teacherID, sessionID uint) (dto.ManualCodeResponse, error) {
	session, err := s.issuableSession(ctx, teacherID, sessionID)
	if err != nil {
		return dto.ManualCodeResponse{}, err
	}

	now := s.now()
	for attempt := 0; attempt < codeBindAttempts; attempt++ {
		code, err := proof.NewCode()
		if err != nil {
			return dto.ManualCodeResponse{}, err
		}

		err = s.sessions.BindManualCode(ctx, session.ID, code, now)
		if err == nil {
			s.logger.Info().Uint("session_id", session.ID).Msg("manual code issued")
			return dto.ManualCodeResponse{
				SessionID: session.ID,
				Code:      code,
				ExpiresIn: int(s.codeTTL.Seconds()),
			}, nil
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			continue
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ManualCodeResponse{}, ErrSessionInactive
		}

		return dto.ManualCodeResponse{}, err
	}

	return dto.ManualCodeResponse{}, errors.New("failed to bind a unique manual code")
}

func (s *proofService) VerifyQR(ctx context.Context, token string) (models.AttendanceSession, error) {
	claims, err := s.codec.Verify(token, s.now())
	if err != nil {
		return models.AttendanceSession{}, err
	}

	// A token whose session vanished or got deactivated is rejected the same
	// way as one whose nonce was overwritten. Token holders learn only that
	// their proof is no longer the live one.
	session, err := s.sessions.GetByID(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.AttendanceSession{}, ErrProofSuperseded
		}
		return models.AttendanceSession{}, err
	}

	if !session.IsActive || session.QRNonce != claims.Nonce {
		return models.AttendanceSession{}, ErrProofSuperseded
	}

	return session, nil
}

func (s *proofService) VerifyManualCode(ctx context.Context, code string) (models.AttendanceSession, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if len(normalized) != proof.CodeLength {
		return models.AttendanceSession{}, ErrCodeNotFound
	}

	now := s.now()
	session, err := s.sessions.GetActiveByManualCode(ctx, normalized, now)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.AttendanceSession{}, ErrCodeNotFound
		}
		return models.AttendanceSession{}, err
	}

	// An expired binding fails the same way as an unknown code so callers
	// cannot probe which six character strings were ever issued.
	if session.CodeIssuedAt == nil || now.After(session.CodeIssuedAt.Add(s.codeTTL)) {
		return models.AttendanceSession{}, ErrCodeNotFound
	}

	return session, nil
}

func (s *proofService) issuableSession(ctx context.Context, teacherID, sessionID uint) (models.AttendanceSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.AttendanceSession{}, ErrSessionNotFound
		}
		return models.AttendanceSession{}, err
	}

	if session.Timetable.TeacherID != teacherID {
		return models.AttendanceSession{}, ErrNotSessionOwner
	}

	if !session.IsActive {
		return models.AttendanceSession{}, ErrSessionInactive
	}

	return session, nil
}
