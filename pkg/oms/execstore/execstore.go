package execstore

import (
	"time"

	"github.com/joripage/marketsim/pkg/oms/model"
)

// Query narrows the execution history returned by a store. Zero fields
// disable the corresponding filter.
type Query struct {
	OrderID string
	Start   time.Time
	End     time.Time
}

type ExecutionStore interface {
	Append(exec *model.Execution)
	ByOrder(orderID string) []*model.Execution
	Find(q Query) []*model.Execution
}
