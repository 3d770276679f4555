// Package exposure derives commercial and global exposure from current
// orders, contracts and linkages. Everything here is a pure function of its
// inputs: no caching, no stored state, safe for concurrent use.
package exposure

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hedgeback/internal/apperr"
	"hedgeback/internal/models"
)

// CommercialResult is the net unhedged variable-price commercial flow.
type CommercialResult struct {
	PreReductionActiveMT  decimal.Decimal `json:"pre_reduction_active_mt"`
	PreReductionPassiveMT decimal.Decimal `json:"pre_reduction_passive_mt"`
	ReductionActiveMT     decimal.Decimal `json:"reduction_active_mt"`
	ReductionPassiveMT    decimal.Decimal `json:"reduction_passive_mt"`
	ActiveMT              decimal.Decimal `json:"active_mt"`
	PassiveMT             decimal.Decimal `json:"passive_mt"`
	NetMT                 decimal.Decimal `json:"net_mt"`
	OrderCountConsidered  int             `json:"order_count_considered"`
	CalculationTimestamp  time.Time       `json:"calculation_timestamp"`
}

// GlobalResult extends the commercial view with unlinked hedge contracts.
// Short hedges counter sales (active) exposure, long hedges counter purchase
// (passive) exposure.
type GlobalResult struct {
	Commercial CommercialResult `json:"commercial"`

	HedgeLongTotalMT     decimal.Decimal `json:"hedge_long_total_mt"`
	HedgeShortTotalMT    decimal.Decimal `json:"hedge_short_total_mt"`
	HedgeLongUnlinkedMT  decimal.Decimal `json:"hedge_long_unlinked_mt"`
	HedgeShortUnlinkedMT decimal.Decimal `json:"hedge_short_unlinked_mt"`

	PreReductionActiveMT  decimal.Decimal `json:"pre_reduction_active_mt"`
	PreReductionPassiveMT decimal.Decimal `json:"pre_reduction_passive_mt"`
	ActiveMT              decimal.Decimal `json:"active_mt"`
	PassiveMT             decimal.Decimal `json:"passive_mt"`
	NetMT                 decimal.Decimal `json:"net_mt"`

	ContractCountConsidered int       `json:"contract_count_considered"`
	CalculationTimestamp    time.Time `json:"calculation_timestamp"`
}

// linkedQuantities sums linkage quantities per key.
func linkedQuantities(linkages []models.HedgeOrderLinkage, key func(models.HedgeOrderLinkage) uuid.UUID) map[uuid.UUID]decimal.Decimal {
	out := make(map[uuid.UUID]decimal.Decimal, len(linkages))
	for _, l := range linkages {
		k := key(l)
		out[k] = out[k].Add(l.QuantityMT)
	}
	return out
}

// Commercial computes the net variable-price exposure. A negative residual on
// any order means linkages exceed the order quantity, which is a consistency
// fault and is reported as a conflict rather than clamped.
func Commercial(orders []models.Order, linkages []models.HedgeOrderLinkage) (CommercialResult, error) {
	linkedByOrder := linkedQuantities(linkages, func(l models.HedgeOrderLinkage) uuid.UUID { return l.OrderID })

	var res CommercialResult
	for _, o := range orders {
		if o.PriceType != models.PriceTypeVariable {
			continue
		}
		res.OrderCountConsidered++

		linked := linkedByOrder[o.ID]
		residual := o.QuantityMT.Sub(linked)
		if residual.IsNegative() {
			return CommercialResult{}, apperr.Conflict(
				"order %s linked quantity %s exceeds order quantity %s",
				o.ID, linked, o.QuantityMT)
		}

		switch o.OrderType {
		case models.OrderTypeSales:
			res.PreReductionActiveMT = res.PreReductionActiveMT.Add(o.QuantityMT)
			res.ReductionActiveMT = res.ReductionActiveMT.Add(linked)
			res.ActiveMT = res.ActiveMT.Add(residual)
		case models.OrderTypePurchase:
			res.PreReductionPassiveMT = res.PreReductionPassiveMT.Add(o.QuantityMT)
			res.ReductionPassiveMT = res.ReductionPassiveMT.Add(linked)
			res.PassiveMT = res.PassiveMT.Add(residual)
		}
	}

	res.NetMT = res.ActiveMT.Sub(res.PassiveMT)
	res.CalculationTimestamp = time.Now().UTC()
	return res, nil
}

// Global computes enterprise-wide exposure: the commercial residual plus the
// mirrored residual of hedge contracts not yet linked to any order. All
// contracts contribute regardless of status; a settled hedge still offsets
// the flow it was booked against. Pre-reduction values add total hedge
// quantity to the commercial pre-reduction figures, while the reduced values
// add only unlinked residuals.
func Global(orders []models.Order, contracts []models.HedgeContract, linkages []models.HedgeOrderLinkage) (GlobalResult, error) {
	commercial, err := Commercial(orders, linkages)
	if err != nil {
		return GlobalResult{}, err
	}

	linkedByContract := linkedQuantities(linkages, func(l models.HedgeOrderLinkage) uuid.UUID { return l.ContractID })

	res := GlobalResult{Commercial: commercial}
	for _, c := range contracts {
		res.ContractCountConsidered++

		linked := linkedByContract[c.ID]
		residual := c.QuantityMT.Sub(linked)
		if residual.IsNegative() {
			return GlobalResult{}, apperr.Conflict(
				"hedge contract %s linked quantity %s exceeds contract quantity %s",
				c.ID, linked, c.QuantityMT)
		}

		switch c.Classification {
		case models.HedgeClassificationLong:
			res.HedgeLongTotalMT = res.HedgeLongTotalMT.Add(c.QuantityMT)
			res.HedgeLongUnlinkedMT = res.HedgeLongUnlinkedMT.Add(residual)
		case models.HedgeClassificationShort:
			res.HedgeShortTotalMT = res.HedgeShortTotalMT.Add(c.QuantityMT)
			res.HedgeShortUnlinkedMT = res.HedgeShortUnlinkedMT.Add(residual)
		}
	}

	res.PreReductionActiveMT = commercial.PreReductionActiveMT.Add(res.HedgeShortTotalMT)
	res.PreReductionPassiveMT = commercial.PreReductionPassiveMT.Add(res.HedgeLongTotalMT)
	res.ActiveMT = commercial.ActiveMT.Add(res.HedgeShortUnlinkedMT)
	res.PassiveMT = commercial.PassiveMT.Add(res.HedgeLongUnlinkedMT)
	res.NetMT = res.ActiveMT.Sub(res.PassiveMT)
	res.CalculationTimestamp = time.Now().UTC()
	return res, nil
}

// OrderResidual reports the unhedged remainder of one order.
func OrderResidual(order models.Order, linkages []models.HedgeOrderLinkage) (decimal.Decimal, error) {
	var linked decimal.Decimal
	for _, l := range linkages {
		if l.OrderID == order.ID {
			linked = linked.Add(l.QuantityMT)
		}
	}
	residual := order.QuantityMT.Sub(linked)
	if residual.IsNegative() {
		return decimal.Decimal{}, apperr.Conflict(
			"order %s linked quantity %s exceeds order quantity %s",
			order.ID, linked, order.QuantityMT)
	}
	return residual, nil
}

// ContractResidual reports the unallocated remainder of one hedge contract.
func ContractResidual(contract models.HedgeContract, linkages []models.HedgeOrderLinkage) (decimal.Decimal, error) {
	var linked decimal.Decimal
	for _, l := range linkages {
		if l.ContractID == contract.ID {
			linked = linked.Add(l.QuantityMT)
		}
	}
	residual := contract.QuantityMT.Sub(linked)
	if residual.IsNegative() {
		return decimal.Decimal{}, apperr.Conflict(
			"hedge contract %s linked quantity %s exceeds contract quantity %s",
			contract.ID, linked, contract.QuantityMT)
	}
	return residual, nil
}
