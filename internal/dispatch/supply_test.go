package dispatch

import (
	"context"
	"strings"
	"testing"

	"arogya-swarm/backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var supplyRec = models.Recommendation{
	Type:     models.RecommendationSupplyOrder,
	Title:    "Order 20 O2 cylinders (emergency)",
	Priority: models.PriorityCritical,
}

func TestSupplyHandler_CompletesDraft(t *testing.T) {
	res := new(MockResources)
	res.On("GetInventoryStatus", mock.Anything, true).Return([]models.InventoryItem{
		{Item: "O2 Cylinders", Current: 5, Threshold: 20, Supplier: "MedSupply India", UnitCost: 800, Status: "critical", Shortage: 15},
		{Item: "N95 Masks", Current: 50, Threshold: 200, Supplier: "SafeGear", UnitCost: 40, Status: "critical", Shortage: 150},
	}, nil)

	reasoner := new(MockReasoner)
	reasoner.On("Invoke", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "O2 Cylinders")
	})).Return(`{"order_items":[{"item":"o2 cylinders","delivery_eta":"6 hours"},{"item":"N95 Masks","quantity":200,"supplier":"FastMed","unit_cost":35}]}`, nil)

	h, err := NewSupplyHandler(Deps{Resources: res, Reasoner: reasoner, Policy: fastPolicy()})
	require.NoError(t, err)
	art, err := h.Handle(context.Background(), supplyRec)
	require.NoError(t, err)

	po := art.PurchaseOrder
	require.Len(t, po.OrderItems, 2)
	assert.Equal(t, 19, po.OrderItems[0].Quantity)
	assert.Equal(t, "MedSupply India", po.OrderItems[0].Supplier)
	assert.Equal(t, 800.0, po.OrderItems[0].UnitCost)
	assert.Equal(t, "FastMed", po.OrderItems[1].Supplier)
	assert.Equal(t, 19*800.0+200*35.0, po.TotalCost)
	assert.Equal(t, "emergency", po.Priority)
	assert.True(t, po.ApprovalRequired)
}

func TestSupplyHandler_FallsBackToInventory(t *testing.T) {
	res := new(MockResources)
	res.On("GetInventoryStatus", mock.Anything, true).Return([]models.InventoryItem{
		{Item: "Saline", Current: 10, Threshold: 30, Supplier: "Baxter", UnitCost: 50, Status: "critical"},
	}, nil)
	reasoner := new(MockReasoner)
	reasoner.On("Invoke", mock.Anything, mock.Anything).Return(`{"order_items":[],"priority":"normal","approval_required":false}`, nil)

	h, err := NewSupplyHandler(Deps{Resources: res, Reasoner: reasoner, Policy: fastPolicy()})
	require.NoError(t, err)
	art, err := h.Handle(context.Background(), supplyRec)
	require.NoError(t, err)

	po := art.PurchaseOrder
	require.Len(t, po.OrderItems, 1)
	assert.Equal(t, 26, po.OrderItems[0].Quantity)
	assert.Equal(t, 1300.0, po.TotalCost)
	assert.Equal(t, "normal", po.Priority)
	assert.False(t, po.ApprovalRequired)
}

func TestSupplyHandler_NothingCritical(t *testing.T) {
	res := new(MockResources)
	res.On("GetInventoryStatus", mock.Anything, true).Return([]models.InventoryItem{}, nil)
	reasoner := new(MockReasoner)

	h, err := NewSupplyHandler(Deps{Resources: res, Reasoner: reasoner, Policy: fastPolicy()})
	require.NoError(t, err)
	art, err := h.Handle(context.Background(), supplyRec)
	require.NoError(t, err)

	assert.Empty(t, art.PurchaseOrder.OrderItems)
	reasoner.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything)
}

func TestReorderQuantity(t *testing.T) {
	assert.Equal(t, 19, ReorderQuantity(models.InventoryItem{Current: 5, Threshold: 20}))
	assert.Equal(t, 1, ReorderQuantity(models.InventoryItem{Current: 100, Threshold: 20}))
	assert.Equal(t, 14, ReorderQuantity(models.InventoryItem{Current: 0, Threshold: 11}))
}
