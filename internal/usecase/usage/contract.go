package usage

import "github.com/kailas-cloud/refurnish/internal/domain/usage"

// BudgetReader provides read-only access to vision token budget windows.
type BudgetReader interface {
	Daily() usage.Window
	Monthly() usage.Window
}
