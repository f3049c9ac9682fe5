package web

import (
	"net/http"

	"github.com/ArkLabsHQ/sol-relayer/internal/core/application"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// health handles GET /health.
func (s *service) health(c *gin.Context) {
	status := s.svc.Health(s.clock.Now())
	c.JSON(http.StatusOK, gin.H{
		"status":      status.Status,
		"timestamp":   status.Timestamp,
		"network":     status.Network,
		"privacyMode": status.PrivacyMode,
	})
}

// config handles GET /api/swap/config.
func (s *service) config(c *gin.Context) {
	cfg := s.svc.Config()
	c.JSON(http.StatusOK, gin.H{
		"relayerFeePct":      cfg.RelayerFeePct,
		"depositFeePct":      cfg.DepositFeePct,
		"minSwapLamports":    cfg.MinSwapLamports,
		"maxSwapLamports":    cfg.MaxSwapLamports,
		"maxNotes":           cfg.MaxNotes,
		"defaultNotes":       cfg.DefaultNotes,
		"minNotes":           cfg.MinNotes,
		"mixingWindowSec":    int(cfg.MixingWindow.Seconds()),
		"minSplitLamports":   cfg.MinSplitLamports,
		"obfuscationRange":   cfg.ObfuscationRange,
		"recoveryThreshold":  cfg.RecoveryThreshold,
		"recoveryTimeoutSec": int(cfg.RecoveryTimeout.Seconds()),
		"feeReserveLamports": cfg.FeeReserveLamports,
		"configHash":         cfg.ConfigHash,
	})
}

type prepareRequest struct {
	SourceWallet      string `json:"sourceWallet" binding:"required"`
	DestinationWallet string `json:"destinationWallet" binding:"required"`
	Amount            uint64 `json:"amount" binding:"required"`
}

// prepare handles POST /api/swap/prepare.
func (s *service) prepare(c *gin.Context) {
	var req prepareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := s.svc.Prepare(c.Request.Context(), req.SourceWallet, req.DestinationWallet, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"intermediateWallet": gin.H{
			"publicKey": result.IntermediatePubkey,
			"walletId":  result.IntermediateWalletId,
		},
		"fee": result.Fee,
		"recovery": gin.H{
			"recoveryKey":     result.RecoveryKey,
			"recoveryKeyHash": result.RecoveryKeyHash,
			"threshold":       result.RecoveryThreshold,
		},
		"instructions": "send `amount` lamports plus at least feeReserveLamports (see /api/swap/config) to the intermediate wallet's publicKey, then call /api/swap/initiate with the resulting transaction signature",
	})
}

type initiateRequest struct {
	SourceWallet         string `json:"sourceWallet" binding:"required"`
	DestinationWallet    string `json:"destinationWallet" binding:"required"`
	Amount               uint64 `json:"amount" binding:"required"`
	SourceTxSignature    string `json:"sourceTxSignature" binding:"required"`
	IntermediateWalletId string `json:"intermediateWalletId" binding:"required"`
	RecoveryKey          string `json:"recoveryKey" binding:"required"`
	EncryptedMemo        string `json:"encryptedMemo"`
}

// initiate handles POST /api/swap/initiate.
func (s *service) initiate(c *gin.Context) {
	var req initiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	transactionId, err := s.svc.Initiate(c.Request.Context(), application.InitiateRequest{
		SourceWallet:         req.SourceWallet,
		DestinationWallet:    req.DestinationWallet,
		AmountLamports:       req.Amount,
		SourceTxSignature:    req.SourceTxSignature,
		IntermediateWalletId: req.IntermediateWalletId,
		RecoveryKey:          req.RecoveryKey,
		EncryptedMemo:        []byte(req.EncryptedMemo),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactionId": transactionId, "status": "pending"})
}

// status handles GET /api/swap/status/:id.
func (s *service) status(c *gin.Context) {
	swap, err := s.svc.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, swap)
}

// intermediate handles GET /api/swap/intermediate/:walletId.
func (s *service) intermediate(c *gin.Context) {
	info, err := s.svc.Intermediate(c.Request.Context(), c.Param("walletId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"publicKey": info.PublicKey, "balance": info.Balance})
}

// recoveryStatus handles GET /api/swap/recovery/:id.
func (s *service) recoveryStatus(c *gin.Context) {
	availability, err := s.svc.RecoveryAvailability(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"available": availability.Available,
		"reason":    availability.Reason,
		"details":   availability.Details,
	})
}

type recoverRequest struct {
	RecoveryKey       string `json:"recoveryKey" binding:"required"`
	DestinationWallet string `json:"destinationWallet" binding:"required"`
}

// recover handles POST /api/swap/recovery/:id.
func (s *service) recover(c *gin.Context) {
	var req recoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	signature, err := s.svc.Recover(c.Request.Context(), c.Param("id"), req.RecoveryKey, req.DestinationWallet)
	if err != nil {
		log.WithError(err).WithField("swap_id", c.Param("id")).Warn("recovery consume failed")
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "txSignature": signature})
}

// memo handles GET /api/swap/memo/:id.
func (s *service) memo(c *gin.Context) {
	m, err := s.svc.Memo(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"encrypted": m.Ciphertext, "metadata": m.Metadata})
}
