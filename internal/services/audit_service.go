package services

import (
	"encoding/json"

	"gorm.io/gorm"

	"spendtrack/internal/logger"
	"spendtrack/internal/models"
)

// Audit actions.
const (
	AuditActionCreate   = "CREATE"
	AuditActionUpdate   = "UPDATE"
	AuditActionDelete   = "DELETE"
	AuditActionGenerate = "GENERATE"
	AuditActionRegister = "REGISTER"
)

// Audited resource types.
const (
	ResourceUser     = "user"
	ResourceCategory = "category"
	ResourceExpense  = "expense"
	ResourceBudget   = "budget"
	ResourceReport   = "report"
)

type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer backed by the audit_logs table.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log writes one audit row. A failed write is logged and swallowed so the
// request that triggered it still succeeds.
func (s *auditService) Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{}) {
	entry := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
		Changes:      encodeChanges(action, changes),
	}

	if err := s.db.Create(entry).Error; err != nil {
		logger.Named("audit").Errorw("audit write failed",
			"error", err,
			"user_id", userID,
			"action", action,
			"resource", resourceType+"/"+resourceID,
		)
	}
}

// encodeChanges renders the change set as a JSON object, or "" when there is
// nothing to record.
func encodeChanges(action string, changes map[string]interface{}) string {
	if len(changes) == 0 {
		return ""
	}
	data, err := json.Marshal(changes)
	if err != nil {
		logger.Named("audit").Warnw("audit changes not serialisable", "error", err, "action", action)
		return "{}"
	}
	return string(data)
}
