package main

import (
	"github.com/gin-gonic/gin"
)

func (s *server) getCollaboratorHandler(c *gin.Context) {
	collab, err := s.profiles.Collaborator(c.Request.Context(), userID(c))
	if err != nil {
		respondErr(c, s.log, err)
		return
	}
	respondOK(c, collab, "")
}

type paymentPreferenceRequest struct {
	PaymentPreference string `json:"paymentPreference" binding:"required"`
}

func (s *server) createCollaboratorHandler(c *gin.Context) {
	var req paymentPreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, s.log, bindErr(err))
		return
	}
	collab, err := s.profiles.ApplyCollaborator(c.Request.Context(), userID(c), req.PaymentPreference)
	if err != nil {
		respondErr(c, s.log, err)
		return
	}
	respondOK(c, collab, "Your profile has been successfully registered as collaborator")
}

func (s *server) updatePaymentPreferenceHandler(c *gin.Context) {
	var req paymentPreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, s.log, bindErr(err))
		return
	}
	collab, err := s.profiles.UpdatePaymentPreference(c.Request.Context(), userID(c), req.PaymentPreference)
	if err != nil {
		respondErr(c, s.log, err)
		return
	}
	respondOK(c, collab, "Your payment preference has been updated")
}

func (s *server) updatePitchStatusHandler(c *gin.Context) {
	var req struct {
		PitchStatus *bool `json:"pitchStatus" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, s.log, bindErr(err))
		return
	}
	collab, err := s.profiles.UpdatePitchStatus(c.Request.Context(), userID(c), *req.PitchStatus)
	if err != nil {
		respondErr(c, s.log, err)
		return
	}
	respondOK(c, collab, "Your pitch status has been updated")
}

// submitVerificationHandler takes a selfie in "photo" and an identity document in "idProof".
func (s *server) submitVerificationHandler(c *gin.Context) {
	collab, err := s.profiles.SubmitVerification(c.Request.Context(), userID(c),
		formUpload(c, "photo"), formUpload(c, "idProof"))
	if err != nil {
		respondErr(c, s.log, err)
		return
	}
	respondOK(c, collab, "Your verification documents have been submitted")
}

func (s *server) deleteCollaboratorHandler(c *gin.Context) {
	collab, err := s.profiles.WithdrawCollaborator(c.Request.Context(), userID(c))
	if err != nil {
		respondErr(c, s.log, err)
		return
	}
	respondOK(c, collab, "Your collaborator profile has been deleted")
}
