package rule

import "github.com/joripage/marketsim/pkg/oms/model"

// Rule is a submit-time order check. Any failing rule rejects the order
// synchronously before it reaches the matching loop.
type Rule interface {
	Check(order *model.Order) error
}
