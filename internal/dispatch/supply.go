package dispatch

import (
	"context"
	"fmt"
	"math"
	"strings"

	"arogya-swarm/backend/pkg/models"
)

// approvalLimit is the order total above which sign-off is always required.
const approvalLimit = 10000

// SupplyHandler drafts purchase orders for stock below threshold.
type SupplyHandler struct {
	deps Deps
}

// NewSupplyHandler creates a SupplyHandler.
func NewSupplyHandler(deps Deps) (*SupplyHandler, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	return &SupplyHandler{deps: deps}, nil
}

// Type implements Handler.
func (h *SupplyHandler) Type() models.RecommendationType {
	return models.RecommendationSupplyOrder
}

// Handle implements Handler.
func (h *SupplyHandler) Handle(ctx context.Context, rec models.Recommendation) (*models.Artifact, error) {
	critical, err := h.deps.Resources.GetInventoryStatus(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory status: %w", err)
	}
	if len(critical) == 0 {
		return &models.Artifact{PurchaseOrder: &models.PurchaseOrder{OrderItems: []models.OrderItem{}, Priority: "normal"}}, nil
	}

	var po models.PurchaseOrder
	if err := h.deps.draft(ctx, h.prompt(rec, critical), &po); err != nil {
		return nil, err
	}

	complete(&po, rec, critical)
	return &models.Artifact{PurchaseOrder: &po}, nil
}

func (h *SupplyHandler) prompt(rec models.Recommendation, critical []models.InventoryItem) string {
	return fmt.Sprintf(`You are a Supply Chain Agent. Draft a purchase order for critical supplies.

Recommendation: %s

Critical Inventory:
%s

For each item:
1. Calculate order quantity (threshold + 20%% buffer)
2. Identify fastest supplier
3. Estimate delivery time
4. Calculate total cost

Output JSON format:
{
  "order_items": [{"item": "O2 Cylinders", "quantity": 25, "supplier": "MedSupply India", "unit_cost": 800, "delivery_eta": "6 hours"}],
  "total_cost": 20000,
  "priority": "emergency|normal",
  "approval_required": true
}`, rec.Title, indent(critical))
}

// ReorderQuantity tops an item up to its threshold plus a 20% buffer.
func ReorderQuantity(item models.InventoryItem) int {
	return max(1, int(math.Ceil(float64(item.Threshold)*1.2))-item.Current)
}

// complete fills gaps in the drafted order from the inventory records.
func complete(po *models.PurchaseOrder, rec models.Recommendation, critical []models.InventoryItem) {
	stock := make(map[string]models.InventoryItem, len(critical))
	for _, item := range critical {
		stock[normalize(item.Item)] = item
	}

	lines := po.OrderItems[:0]
	for _, line := range po.OrderItems {
		if strings.TrimSpace(line.Item) == "" {
			continue
		}
		if item, ok := stock[normalize(line.Item)]; ok {
			if line.Quantity <= 0 {
				line.Quantity = ReorderQuantity(item)
			}
			if line.Supplier == "" {
				line.Supplier = item.Supplier
			}
			if line.UnitCost <= 0 {
				line.UnitCost = item.UnitCost
			}
		}
		if line.Quantity <= 0 {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		for _, item := range critical {
			lines = append(lines, models.OrderItem{
				Item:     item.Item,
				Quantity: ReorderQuantity(item),
				Supplier: item.Supplier,
				UnitCost: item.UnitCost,
			})
		}
	}
	po.OrderItems = lines

	if po.TotalCost <= 0 {
		for _, line := range lines {
			po.TotalCost += float64(line.Quantity) * line.UnitCost
		}
	}
	if po.Priority == "" {
		po.Priority = "normal"
		if rec.Priority == models.PriorityHigh || rec.Priority == models.PriorityCritical {
			po.Priority = "emergency"
		}
	}
	if po.TotalCost > approvalLimit {
		po.ApprovalRequired = true
	}
}
