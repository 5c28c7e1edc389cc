package domain

import "time"

const TransactionKindUsageCharge = "usage_charge"

// Transaction is one immutable ledger entry. Charges carry negative amounts.
type Transaction struct {
	Id           string
	BalanceId    string
	DeploymentId string
	Amount       float64
	Kind         string
	Detail       string

	// WindowStart/WindowEnd bound the accrual window this charge covers.
	// (DeploymentId, WindowStart) is unique; replays are no-ops.
	WindowStart time.Time
	WindowEnd   time.Time

	CreatedAt time.Time
}

// Balance is the running account of one user.
type Balance struct {
	Id        string
	UserId    string
	Amount    float64
	UpdatedAt time.Time
}

// BillingRate prices one hour of resource limits.
type BillingRate struct {
	// CpuPerCoreHour is the hourly price of one full core of cpu limit.
	CpuPerCoreHour float64
	// MemoryPerGibHour is the hourly price of one GiB of memory limit.
	MemoryPerGibHour float64
}

// Cost prices the resource limits of spec over the window [start, end).
func (r BillingRate) Cost(spec ResourceSpec, start, end time.Time) float64 {
	hours := end.Sub(start).Hours()
	if hours < 0 {
		hours = 0
	}
	cpu := float64(spec.CpuLimitMillicores) / 1000.0 * r.CpuPerCoreHour
	mem := float64(spec.MemoryLimitMebibytes) / 1024.0 * r.MemoryPerGibHour
	return (cpu + mem) * hours
}

// AccrualWindow returns the wall-clock hour window containing t,
// as [start, start+1h).
func AccrualWindow(t time.Time) (time.Time, time.Time) {
	start := t.UTC().Truncate(time.Hour)
	return start, start.Add(time.Hour)
}
