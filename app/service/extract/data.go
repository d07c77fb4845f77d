package extract

type FinancingType string

const (
	FinancingDirect  FinancingType = "direct"
	FinancingCPF     FinancingType = "cpf"
	FinancingOPCO    FinancingType = "opco"
	FinancingUnknown FinancingType = "unknown"
)

// FinancingInfo is the canonical extraction result: the detected financing
// type and the elapsed time converted to days. ElapsedDays is nil when the
// message carries no duration token at all.
type FinancingInfo struct {
	FinancingType FinancingType
	ElapsedDays   *int
}
