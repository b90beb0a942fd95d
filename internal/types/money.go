// README: Money value object; fares are carried as opaque amounts in minor units.
package types

import "fmt"

type Money struct {
	Amount   int64
	Currency string
}

func (m Money) String() string {
	return fmt.Sprintf("%d %s", m.Amount, m.Currency)
}
