package domain

// AccountStatus is what the backend believes about a lead's broker account.
type AccountStatus string

const (
	AccountUnknown  AccountStatus = "desconhecido"
	AccountReported AccountStatus = "reported"
	AccountOpen     AccountStatus = "com_conta"
)

// Valid reports whether s is a known status.
func (s AccountStatus) Valid() bool {
	switch s {
	case AccountUnknown, AccountReported, AccountOpen:
		return true
	}
	return false
}

// DepositStatus tracks a lead's first deposit.
type DepositStatus string

const (
	DepositNone      DepositStatus = "nenhum"
	DepositPending   DepositStatus = "pending"
	DepositConfirmed DepositStatus = "confirmado"
)

// Valid reports whether s is a known status.
func (s DepositStatus) Valid() bool {
	switch s {
	case DepositNone, DepositPending, DepositConfirmed:
		return true
	}
	return false
}

// Snapshot is the backend's point-in-time belief state about a lead.
// The Studio only reads it, to feed simulations.
type Snapshot struct {
	Accounts       map[string]AccountStatus `json:"accounts" yaml:"accounts"`
	Deposit        Deposit                  `json:"deposit" yaml:"deposit"`
	Agreements     map[string]bool          `json:"agreements" yaml:"agreements"`
	Flags          map[string]bool          `json:"flags" yaml:"flags"`
	HistorySummary string                   `json:"history_summary,omitempty" yaml:"history_summary,omitempty"`
}

// Deposit holds the deposit facts of a snapshot.
type Deposit struct {
	Status DepositStatus `json:"status" yaml:"status"`
}

// NewSnapshot returns an empty snapshot for a lead nobody knows anything about.
func NewSnapshot() Snapshot {
	return Snapshot{
		Accounts: map[string]AccountStatus{
			"quotex": AccountUnknown,
			"nyrion": AccountUnknown,
		},
		Deposit:    Deposit{Status: DepositNone},
		Agreements: map[string]bool{},
		Flags:      map[string]bool{},
	}
}
