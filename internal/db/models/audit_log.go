// Package models - audit_log.go defines the AdminAuditLog model, the append-only record of
// every privileged back-office mutation, together with the closed set of action tags.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
)

// AuditAction is one of the tags a super admin action is recorded under.
type AuditAction string

const (
	ActionChurchCreate       AuditAction = "church.create"
	ActionChurchUpdate       AuditAction = "church.update"
	ActionChurchSuspend      AuditAction = "church.suspend"
	ActionChurchReactivate   AuditAction = "church.reactivate"
	ActionChurchDelete       AuditAction = "church.delete"
	ActionChurchDomainVerify AuditAction = "church.domain_verify"
	ActionChurchDomainRemove AuditAction = "church.domain_remove"
	ActionSubscriptionCreate AuditAction = "subscription.create"
	ActionSubscriptionUpdate AuditAction = "subscription.update"
	ActionSubscriptionCancel AuditAction = "subscription.cancel"
	ActionSubscriptionExtend AuditAction = "subscription.extend"
	ActionPaymentRefund      AuditAction = "payment.refund"
	ActionPlanCreate         AuditAction = "plan.create"
	ActionPlanUpdate         AuditAction = "plan.update"
	ActionPlanDelete         AuditAction = "plan.delete"
	ActionCouponCreate       AuditAction = "coupon.create"
	ActionCouponDelete       AuditAction = "coupon.delete"
	ActionUserUpdate         AuditAction = "user.update"
	ActionUserRoleChange     AuditAction = "user.role_change"
	ActionUserBan            AuditAction = "user.ban"
	ActionUserUnban          AuditAction = "user.unban"
	ActionUserDelete         AuditAction = "user.delete"
	ActionUserImpersonate    AuditAction = "user.impersonate"
	ActionUserPasswordReset  AuditAction = "user.password_reset"
	ActionFeatureFlagCreate  AuditAction = "feature_flag.create"
	ActionFeatureFlagUpdate  AuditAction = "feature_flag.update"
	ActionFeatureFlagDelete  AuditAction = "feature_flag.delete"
	ActionSettingUpdate      AuditAction = "setting.update"
	ActionAlertCreate        AuditAction = "alert.create"
	ActionAlertResolve       AuditAction = "alert.resolve"
	ActionIntegrationCheck   AuditAction = "integration.health_check"
	ActionIntegrationConfig  AuditAction = "integration.config_update"
	ActionBroadcastSend      AuditAction = "broadcast.send"
	ActionSupportTicketReply AuditAction = "support.ticket_reply"
	ActionSupportTicketClose AuditAction = "support.ticket_close"
	ActionDataExport         AuditAction = "data.export"
	ActionWhatsAppAgentReset AuditAction = "whatsapp_agent.reset"
)

var knownActions = map[AuditAction]struct{}{
	ActionChurchCreate: {}, ActionChurchUpdate: {}, ActionChurchSuspend: {},
	ActionChurchReactivate: {}, ActionChurchDelete: {}, ActionChurchDomainVerify: {},
	ActionChurchDomainRemove: {}, ActionSubscriptionCreate: {}, ActionSubscriptionUpdate: {},
	ActionSubscriptionCancel: {}, ActionSubscriptionExtend: {}, ActionPaymentRefund: {},
	ActionPlanCreate: {}, ActionPlanUpdate: {}, ActionPlanDelete: {},
	ActionCouponCreate: {}, ActionCouponDelete: {}, ActionUserUpdate: {},
	ActionUserRoleChange: {}, ActionUserBan: {}, ActionUserUnban: {},
	ActionUserDelete: {}, ActionUserImpersonate: {}, ActionUserPasswordReset: {},
	ActionFeatureFlagCreate: {}, ActionFeatureFlagUpdate: {}, ActionFeatureFlagDelete: {},
	ActionSettingUpdate: {}, ActionAlertCreate: {}, ActionAlertResolve: {},
	ActionIntegrationCheck: {}, ActionIntegrationConfig: {}, ActionBroadcastSend: {},
	ActionSupportTicketReply: {}, ActionSupportTicketClose: {}, ActionDataExport: {},
	ActionWhatsAppAgentReset: {},
}

// Valid reports whether a is one of the known action tags.
func (a AuditAction) Valid() bool {
	_, ok := knownActions[a]
	return ok
}

// Target types used across the back office.
const (
	TargetChurch       = "church"
	TargetSubscription = "subscription"
	TargetPlan         = "plan"
	TargetUser         = "user"
	TargetFeatureFlag  = "feature_flag"
	TargetSetting      = "admin_setting"
	TargetAlert        = "system_alert"
	TargetIntegration  = "integration"
)

// AdminAuditLog is one immutable row of admin_audit_logs.
type AdminAuditLog struct {
	ID         uuid.UUID      `db:"id" json:"id"`
	AdminID    uuid.UUID      `db:"admin_id" json:"admin_id"`
	Action     AuditAction    `db:"action" json:"action"`
	TargetType string         `db:"target_type" json:"target_type"`
	TargetID   *string        `db:"target_id" json:"target_id,omitempty"`
	ChurchID   *uuid.UUID     `db:"church_id" json:"church_id,omitempty"`
	OldValue   types.JSONText `db:"old_value" json:"old_value"`
	NewValue   types.JSONText `db:"new_value" json:"new_value"`
	Reason     *string        `db:"reason" json:"reason,omitempty"`
	IPAddress  *string        `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent  *string        `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}
