package agent

import (
	"context"

	"go.uber.org/zap"

	"github.com/casefile/inquest/internal/models"
	"github.com/casefile/inquest/internal/verify"
)

// Service runs a full investigation: the loop produces a session and its read
// ledger, then the verifier settles every pending citation against the
// ledgered text. The verifier is optional.
type Service struct {
	loop     *Loop
	verifier *verify.Verifier
	logger   *zap.Logger
}

// NewService returns a Service. verifier may be nil; citations then stay in
// their extraction status.
func NewService(loop *Loop, verifier *verify.Verifier, logger *zap.Logger) *Service {
	return &Service{loop: loop, verifier: verifier, logger: logger}
}

// Investigate answers one question end to end. The session is returned even
// when the loop errors, so callers can inspect the partial transcript.
func (s *Service) Investigate(ctx context.Context, question string) (*models.Session, error) {
	session, led, err := s.loop.Run(ctx, question)
	if err != nil {
		return session, err
	}
	if s.verifier != nil {
		if verr := s.verifier.Run(ctx, session, led); verr != nil {
			s.logger.Warn("citation verification incomplete", zap.Error(verr))
		}
	}
	return session, nil
}
