package profile

import (
	"context"
	"strings"

	"zeptical/models"
	"zeptical/pkg/apperr"
	"zeptical/pkg/asset"
	"zeptical/pkg/photo"

	"go.uber.org/zap"
)

func defaultCollaborator() models.Collaborator {
	return models.Collaborator{PitchStatus: true}
}

// Collaborator returns the caller's collaborator section, or its defaults.
func (s *Service) Collaborator(ctx context.Context, userID uint) (*models.Collaborator, error) {
	p, err := s.repo.Get(ctx, userID, models.FieldCollaborator)
	if err != nil {
		return nil, err
	}
	if p == nil || p.Collaborator == nil {
		c := defaultCollaborator()
		return &c, nil
	}
	return p.Collaborator, nil
}

// updateCollaborator applies change to the current collaborator section and saves it.
func (s *Service) updateCollaborator(ctx context.Context, userID uint, change func(*models.Collaborator)) (*models.Collaborator, error) {
	ctx = context.WithoutCancel(ctx)
	c, err := s.Collaborator(ctx, userID)
	if err != nil {
		return nil, err
	}
	next := *c
	change(&next)
	p, err := s.replace(ctx, userID, models.FieldCollaborator, next)
	if err != nil {
		return nil, err
	}
	return p.Collaborator, nil
}

func (s *Service) ApplyCollaborator(ctx context.Context, userID uint, paymentPreference string) (*models.Collaborator, error) {
	pref := strings.TrimSpace(paymentPreference)
	if pref == "" {
		return nil, invalid("Please select your payment preference")
	}
	return s.updateCollaborator(ctx, userID, func(c *models.Collaborator) {
		c.IsApplied = true
		c.PaymentPreference = pref
	})
}

func (s *Service) UpdatePaymentPreference(ctx context.Context, userID uint, paymentPreference string) (*models.Collaborator, error) {
	pref := strings.TrimSpace(paymentPreference)
	if pref == "" {
		return nil, invalid("Please select your payment preference")
	}
	return s.updateCollaborator(ctx, userID, func(c *models.Collaborator) {
		c.PaymentPreference = pref
	})
}

func (s *Service) UpdatePitchStatus(ctx context.Context, userID uint, pitch bool) (*models.Collaborator, error) {
	return s.updateCollaborator(ctx, userID, func(c *models.Collaborator) {
		c.PitchStatus = pitch
	})
}

// SubmitVerification stores the verification photo and id document. Either may be
// omitted when one was submitted before; new files replace the previous ones.
func (s *Service) SubmitVerification(ctx context.Context, userID uint, selfie, idDocument *photo.Upload) (*models.Collaborator, error) {
	ctx = context.WithoutCancel(ctx)
	if selfie == nil && idDocument == nil {
		return nil, invalid("Please provide your verification photo and id document")
	}
	current, err := s.Collaborator(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !current.IsApplied {
		return nil, apperr.New(apperr.KindValidation, "Please register as a collaborator first")
	}
	if (selfie == nil && current.PhotoVerificationURL == "") || (idDocument == nil && current.IDVerificationURL == "") {
		return nil, invalid("Please provide your verification photo and id document")
	}

	next := *current
	var stored, replaced []string
	discardStored := func() {
		for _, u := range stored {
			s.assets.Discard(ctx, asset.CollaboratorVerification, u)
		}
	}
	for _, f := range []struct {
		upload *photo.Upload
		dst    *string
	}{
		{selfie, &next.PhotoVerificationURL},
		{idDocument, &next.IDVerificationURL},
	} {
		if f.upload == nil {
			continue
		}
		url, err := s.assets.Process(ctx, asset.CollaboratorVerification, f.upload, s.maxBytes)
		if err != nil {
			discardStored()
			return nil, err
		}
		stored = append(stored, url)
		if *f.dst != "" {
			replaced = append(replaced, *f.dst)
		}
		*f.dst = url
	}
	next.IsVerified = false

	p, err := s.replace(ctx, userID, models.FieldCollaborator, next)
	if err != nil {
		discardStored()
		return nil, err
	}
	for _, u := range replaced {
		s.assets.Discard(ctx, asset.CollaboratorVerification, u)
	}
	s.log.Info("verification submitted", zap.Uint("user_id", userID))
	return p.Collaborator, nil
}

// WithdrawCollaborator resets the collaborator group and removes verification files.
func (s *Service) WithdrawCollaborator(ctx context.Context, userID uint) (*models.Collaborator, error) {
	ctx = context.WithoutCancel(ctx)
	current, err := s.Collaborator(ctx, userID)
	if err != nil {
		return nil, err
	}
	next := defaultCollaborator()
	p, err := s.replace(ctx, userID, models.FieldCollaborator, next)
	if err != nil {
		return nil, err
	}
	s.assets.Discard(ctx, asset.CollaboratorVerification, current.PhotoVerificationURL)
	s.assets.Discard(ctx, asset.CollaboratorVerification, current.IDVerificationURL)
	s.log.Info("collaborator withdrawn", zap.Uint("user_id", userID))
	return p.Collaborator, nil
}
