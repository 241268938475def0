package constants

const (
	ViewLeads      = "view_leads"
	UnlockLeads    = "unlock_leads"
	UseWallet      = "use_wallet"
	ReportLeads    = "report_leads"
	ViewReferrals  = "view_referrals"
	ManageLeads    = "manage_leads"
	ResolveReports = "resolve_reports"
	VerifyAgents   = "verify_agents"
	AdjustWallets  = "adjust_wallets"
)

// PermissionRoles maps each permission to the roles allowed to perform it.
var PermissionRoles = map[string][]string{
	ViewLeads:      {Agent, Admin},
	UnlockLeads:    {Agent},
	UseWallet:      {Agent},
	ReportLeads:    {Agent},
	ViewReferrals:  {Agent},
	ManageLeads:    {Admin},
	ResolveReports: {Admin},
	VerifyAgents:   {Admin},
	AdjustWallets:  {Admin},
}

// AllowedRole returns true if role is in the list of allowed roles for the permission.
func AllowedRole(permission, role string) bool {
	roles, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
