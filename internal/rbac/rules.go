package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"exam:view",
		"attempt:create",
		"attempt:save",
		"attempt:submit",
		"attempt:view-own",
		"grade:view-own",
		"report:view-own",
		"user:change_password",
	},
	"teacher": {
		"exam:create",
		"exam:view",
		"attempt:view-all",
		"attempt:grade",
		"grade:calculate",
		"grade:view-all",
		"report:view-all",
		"report:export",
		"users:list",
		"user:change_password",
	},
	"admin": {
		"*", // everything
	},
}
