package worker

import (
	"github.com/spec-kit/ops-hub/internal/service"
)

// StartAuditWorker registers audit and notification handlers.
func StartAuditWorker(auditService *service.AuditService, notificationService *service.NotificationService) {
	if auditService != nil {
		auditService.RegisterHandlers()
	}
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
}
