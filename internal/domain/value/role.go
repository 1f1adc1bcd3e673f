package value

// Role is a capability granted to an address by the external role
// administration. The core only ever asks "does this address hold this role
// right now" and never caches the answer.
type Role string

const (
	RoleFeeManager       Role = "FEE_MANAGER"
	RoleTransferOperator Role = "TRANSFER_OPERATOR"
	RolePauser           Role = "PAUSER"
)

func (r Role) String() string {
	return string(r)
}
