package constants

const (
	CreateTradeRequest  = "create_trade_request"
	ManageTradeRequests = "manage_trade_requests"
	ConfirmTradeRequest = "confirm_trade_request"
	DeleteTradeRequest  = "delete_trade_request"
	IssueShares         = "issue_shares"
	ManageInvestors     = "manage_investors"
	ViewLedger          = "view_ledger"
	ViewReports         = "view_reports"
	ViewAuditLogs       = "view_audit_logs"
)

// PermissionRoles maps each permission to the roles allowed to perform it.
var PermissionRoles = map[string][]string{
	CreateTradeRequest:  {Investor},
	ManageTradeRequests: {Employee, Admin, Superadmin},
	ConfirmTradeRequest: {Employee, Admin, Superadmin},
	DeleteTradeRequest:  {Admin, Superadmin},
	IssueShares:         {Admin, Superadmin},
	ManageInvestors:     {Employee, Admin, Superadmin},
	ViewLedger:          {Investor, Employee, Admin, Superadmin},
	ViewReports:         {Admin, Superadmin},
	ViewAuditLogs:       {Employee, Admin, Superadmin},
}

// AllowedRole returns true if role is in the list of allowed roles for the permission.
func AllowedRole(permission, role string) bool {
	for _, r := range PermissionRoles[permission] {
		if r == role {
			return true
		}
	}
	return false
}
