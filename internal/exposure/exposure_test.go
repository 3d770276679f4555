package exposure

import (
	"testing"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"

	"hedgeback/internal/apperr"
	"hedgeback/internal/models"
)

func variableOrder(orderType models.OrderType, qty int64) models.Order {
	conv := models.PricingConventionAVG
	return models.Order{
		ID:                uuid.New(),
		OrderType:         orderType,
		PriceType:         models.PriceTypeVariable,
		QuantityMT:        decimal.NewFromInt(qty),
		PricingConvention: &conv,
	}
}

func fixedOrder(orderType models.OrderType, qty int64) models.Order {
	return models.Order{
		ID:         uuid.New(),
		OrderType:  orderType,
		PriceType:  models.PriceTypeFixed,
		QuantityMT: decimal.NewFromInt(qty),
	}
}

func hedge(class models.HedgeClassification, qty int64) models.HedgeContract {
	fixedSide := models.HedgeLegSideSell
	if class == models.HedgeClassificationLong {
		fixedSide = models.HedgeLegSideBuy
	}
	return models.HedgeContract{
		ID:              uuid.New(),
		Commodity:       "ALUMINIUM",
		QuantityMT:      decimal.NewFromInt(qty),
		FixedLegSide:    fixedSide,
		VariableLegSide: oppositeOf(fixedSide),
		Classification:  class,
		Status:          models.HedgeContractStatusActive,
	}
}

func oppositeOf(side models.HedgeLegSide) models.HedgeLegSide {
	if side == models.HedgeLegSideBuy {
		return models.HedgeLegSideSell
	}
	return models.HedgeLegSideBuy
}

func TestCommercial_SalesWithPartialLinkage(t *testing.T) {
	sale := variableOrder(models.OrderTypeSales, 10)
	contract := hedge(models.HedgeClassificationShort, 4)
	linkages := []models.HedgeOrderLinkage{
		{ID: uuid.New(), OrderID: sale.ID, ContractID: contract.ID, QuantityMT: decimal.NewFromInt(4)},
	}

	res, err := Commercial([]models.Order{sale}, linkages)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !res.ActiveMT.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("active=%s want=6", res.ActiveMT)
	}
	if !res.PreReductionActiveMT.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("pre-reduction active=%s want=10", res.PreReductionActiveMT)
	}
	if !res.ReductionActiveMT.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("reduction active=%s want=4", res.ReductionActiveMT)
	}
	if !res.NetMT.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("net=%s want=6", res.NetMT)
	}
	if res.OrderCountConsidered != 1 {
		t.Fatalf("orders considered=%d want=1", res.OrderCountConsidered)
	}
}

func TestCommercial_FixedOrdersIgnored(t *testing.T) {
	orders := []models.Order{
		fixedOrder(models.OrderTypeSales, 100),
		variableOrder(models.OrderTypePurchase, 30),
	}
	res, err := Commercial(orders, nil)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if res.OrderCountConsidered != 1 {
		t.Fatalf("orders considered=%d want=1", res.OrderCountConsidered)
	}
	if !res.ActiveMT.IsZero() {
		t.Fatalf("active=%s want=0", res.ActiveMT)
	}
	if !res.NetMT.Equal(decimal.NewFromInt(-30)) {
		t.Fatalf("net=%s want=-30", res.NetMT)
	}
}

func TestCommercial_OverlinkedOrderIsConflict(t *testing.T) {
	sale := variableOrder(models.OrderTypeSales, 5)
	linkages := []models.HedgeOrderLinkage{
		{ID: uuid.New(), OrderID: sale.ID, ContractID: uuid.New(), QuantityMT: decimal.NewFromInt(3)},
		{ID: uuid.New(), OrderID: sale.ID, ContractID: uuid.New(), QuantityMT: decimal.NewFromInt(3)},
	}
	_, err := Commercial([]models.Order{sale}, linkages)
	if err == nil {
		t.Fatalf("expected conflict")
	}
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("kind=%v want conflict", apperr.KindOf(err))
	}
}

func TestGlobal_UnlinkedShortCountersSales(t *testing.T) {
	sale := variableOrder(models.OrderTypeSales, 10)
	linked := hedge(models.HedgeClassificationShort, 4)
	unlinked := hedge(models.HedgeClassificationShort, 3)
	linkages := []models.HedgeOrderLinkage{
		{ID: uuid.New(), OrderID: sale.ID, ContractID: linked.ID, QuantityMT: decimal.NewFromInt(4)},
	}

	res, err := Global([]models.Order{sale}, []models.HedgeContract{linked, unlinked}, linkages)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	// Commercial residual 6, plus the unlinked short of 3.
	if !res.ActiveMT.Equal(decimal.NewFromInt(9)) {
		t.Fatalf("global active=%s want=9", res.ActiveMT)
	}
	// Pre-reduction adds total short quantity (4+3) to order quantity.
	if !res.PreReductionActiveMT.Equal(decimal.NewFromInt(17)) {
		t.Fatalf("global pre-reduction active=%s want=17", res.PreReductionActiveMT)
	}
	if !res.HedgeShortTotalMT.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("short total=%s want=7", res.HedgeShortTotalMT)
	}
	if !res.HedgeShortUnlinkedMT.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("short unlinked=%s want=3", res.HedgeShortUnlinkedMT)
	}
	if res.ContractCountConsidered != 2 {
		t.Fatalf("contracts considered=%d want=2", res.ContractCountConsidered)
	}
}

func TestGlobal_CountsContractsOfEveryStatus(t *testing.T) {
	cancelled := hedge(models.HedgeClassificationLong, 50)
	cancelled.Status = models.HedgeContractStatusCancelled
	settled := hedge(models.HedgeClassificationShort, 5)
	settled.Status = models.HedgeContractStatusSettled

	res, err := Global(nil, []models.HedgeContract{cancelled, settled}, nil)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if res.ContractCountConsidered != 2 {
		t.Fatalf("contracts considered=%d want=2", res.ContractCountConsidered)
	}
	if !res.HedgeShortTotalMT.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("short total=%s want=5", res.HedgeShortTotalMT)
	}
	if !res.ActiveMT.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("active=%s want=5", res.ActiveMT)
	}
	if !res.PassiveMT.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("passive=%s want=50", res.PassiveMT)
	}
}

func TestOrderResidual(t *testing.T) {
	sale := variableOrder(models.OrderTypeSales, 10)
	other := variableOrder(models.OrderTypeSales, 99)
	linkages := []models.HedgeOrderLinkage{
		{ID: uuid.New(), OrderID: sale.ID, ContractID: uuid.New(), QuantityMT: decimal.NewFromInt(4)},
		{ID: uuid.New(), OrderID: other.ID, ContractID: uuid.New(), QuantityMT: decimal.NewFromInt(2)},
	}
	residual, err := OrderResidual(sale, linkages)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !residual.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("residual=%s want=6", residual)
	}
}

func TestContractResidual_Overallocated(t *testing.T) {
	contract := hedge(models.HedgeClassificationShort, 5)
	linkages := []models.HedgeOrderLinkage{
		{ID: uuid.New(), OrderID: uuid.New(), ContractID: contract.ID, QuantityMT: decimal.NewFromInt(6)},
	}
	_, err := ContractResidual(contract, linkages)
	if err == nil {
		t.Fatalf("expected conflict")
	}
}

// randomBook builds a consistent order/contract/linkage set where every
// linkage fits within both its order and its contract.
func randomBook(orderQtys, contractQtys, linkFractionsPct []int) ([]models.Order, []models.HedgeContract, []models.HedgeOrderLinkage) {
	orders := make([]models.Order, 0, len(orderQtys))
	for i, q := range orderQtys {
		orderType := models.OrderTypeSales
		if i%2 == 1 {
			orderType = models.OrderTypePurchase
		}
		orders = append(orders, variableOrder(orderType, int64(q)))
	}
	contracts := make([]models.HedgeContract, 0, len(contractQtys))
	for i, q := range contractQtys {
		class := models.HedgeClassificationShort
		if i%2 == 1 {
			class = models.HedgeClassificationLong
		}
		contracts = append(contracts, hedge(class, int64(q)))
	}
	var linkages []models.HedgeOrderLinkage
	for i := 0; i < len(orders) && i < len(contracts) && i < len(linkFractionsPct); i++ {
		ceiling := orders[i].QuantityMT
		if contracts[i].QuantityMT.LessThan(ceiling) {
			ceiling = contracts[i].QuantityMT
		}
		qty := ceiling.Mul(decimal.NewFromInt(int64(linkFractionsPct[i]))).Div(decimal.NewFromInt(100))
		if qty.IsPositive() {
			linkages = append(linkages, models.HedgeOrderLinkage{
				ID:         uuid.New(),
				OrderID:    orders[i].ID,
				ContractID: contracts[i].ID,
				QuantityMT: qty,
			})
		}
	}
	return orders, contracts, linkages
}

func TestExposureProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	qtyGen := gen.SliceOfN(4, gen.IntRange(1, 1000))
	pctGen := gen.SliceOfN(4, gen.IntRange(0, 100))

	properties.Property("consistent books never yield negative residual figures", prop.ForAll(
		func(orderQtys, contractQtys, pcts []int) bool {
			orders, contracts, linkages := randomBook(orderQtys, contractQtys, pcts)
			res, err := Global(orders, contracts, linkages)
			if err != nil {
				return false
			}
			return !res.Commercial.ActiveMT.IsNegative() &&
				!res.Commercial.PassiveMT.IsNegative() &&
				!res.HedgeShortUnlinkedMT.IsNegative() &&
				!res.HedgeLongUnlinkedMT.IsNegative()
		},
		qtyGen, qtyGen, pctGen,
	))

	properties.Property("net equals active minus passive", prop.ForAll(
		func(orderQtys, contractQtys, pcts []int) bool {
			orders, contracts, linkages := randomBook(orderQtys, contractQtys, pcts)
			res, err := Global(orders, contracts, linkages)
			if err != nil {
				return false
			}
			return res.NetMT.Equal(res.ActiveMT.Sub(res.PassiveMT)) &&
				res.Commercial.NetMT.Equal(res.Commercial.ActiveMT.Sub(res.Commercial.PassiveMT))
		},
		qtyGen, qtyGen, pctGen,
	))

	properties.Property("input order does not change totals", prop.ForAll(
		func(orderQtys, contractQtys, pcts []int) bool {
			orders, contracts, linkages := randomBook(orderQtys, contractQtys, pcts)
			a, err := Global(orders, contracts, linkages)
			if err != nil {
				return false
			}
			reversedOrders := make([]models.Order, len(orders))
			for i, o := range orders {
				reversedOrders[len(orders)-1-i] = o
			}
			reversedContracts := make([]models.HedgeContract, len(contracts))
			for i, c := range contracts {
				reversedContracts[len(contracts)-1-i] = c
			}
			b, err := Global(reversedOrders, reversedContracts, linkages)
			if err != nil {
				return false
			}
			return a.ActiveMT.Equal(b.ActiveMT) &&
				a.PassiveMT.Equal(b.PassiveMT) &&
				a.NetMT.Equal(b.NetMT)
		},
		qtyGen, qtyGen, pctGen,
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
