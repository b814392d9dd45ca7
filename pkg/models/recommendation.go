package models

import "time"

// RecommendationType selects the sub-agent that handles a recommendation
type RecommendationType string

const (
	RecommendationStaffReallocation RecommendationType = "staff_reallocation"
	RecommendationSupplyOrder       RecommendationType = "supply_order"
	RecommendationPatientAdvisory   RecommendationType = "patient_advisory"
)

// Priority of a recommendation
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// RecommendationStatus is managed by the external approval workflow
type RecommendationStatus string

const (
	StatusPending  RecommendationStatus = "pending"
	StatusApproved RecommendationStatus = "approved"
	StatusRejected RecommendationStatus = "rejected"
)

// Recommendation is one actionable suggestion. Negative cost impact is a
// cost, positive is a saving.
type Recommendation struct {
	ID                  string               `json:"id,omitempty"`
	Type                RecommendationType   `json:"type"`
	Title               string               `json:"title"`
	Priority            Priority             `json:"priority"`
	EstimatedCostImpact float64              `json:"estimated_cost_impact"`
	Reasoning           string               `json:"reasoning"`
	Status              RecommendationStatus `json:"status"`
	CreatedByAgent      string               `json:"created_by_agent,omitempty"`
	CreatedAt           time.Time            `json:"created_at,omitempty"`
}

// StaffMove moves one named staff member between departments. ID, when
// present, identifies the member when names are shared.
type StaffMove struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	From  string `json:"from"`
	To    string `json:"to"`
	Shift string `json:"shift"`
}

// StaffPlan is the staff reallocation artifact
type StaffPlan struct {
	StaffToMove            []StaffMove `json:"staff_to_move"`
	EstimatedOvertimeHours float64     `json:"estimated_overtime_hours"`
	CostImpact             float64     `json:"cost_impact"`
	ImplementationNotes    string      `json:"implementation_notes"`
	ManualReview           bool        `json:"manual_review"`
}

// OrderItem is one purchase order line
type OrderItem struct {
	Item        string  `json:"item"`
	Quantity    int     `json:"quantity"`
	Supplier    string  `json:"supplier"`
	UnitCost    float64 `json:"unit_cost"`
	DeliveryETA string  `json:"delivery_eta"`
}

// PurchaseOrder is the supply order artifact
type PurchaseOrder struct {
	OrderItems       []OrderItem `json:"order_items"`
	TotalCost        float64     `json:"total_cost"`
	Priority         string      `json:"priority"`
	ApprovalRequired bool        `json:"approval_required"`
}

// PatientAdvisory is the patient communication artifact, keyed by language code
type PatientAdvisory struct {
	Messages             map[string]string `json:"messages"`
	AlternativeHospitals []string          `json:"alternative_hospitals"`
	TeleconsultLink      string            `json:"teleconsult_link"`
}

// Artifact holds exactly one of the handler outputs
type Artifact struct {
	Kind          RecommendationType `json:"kind"`
	StaffPlan     *StaffPlan         `json:"staff_plan,omitempty"`
	PurchaseOrder *PurchaseOrder     `json:"purchase_order,omitempty"`
	Advisory      *PatientAdvisory   `json:"advisory,omitempty"`
}

// ActionResult pairs a recommendation with what its handler produced
type ActionResult struct {
	Recommendation   Recommendation `json:"recommendation"`
	ProducedArtifact *Artifact      `json:"produced_artifact,omitempty"`
	Error            string         `json:"error,omitempty"`
}

// Failed reports whether the handler failed for this item.
func (r ActionResult) Failed() bool {
	return r.Error != ""
}

// CostSummary aggregates approved recommendations
type CostSummary struct {
	TotalSavings            float64 `json:"total_savings"`
	TotalCosts              float64 `json:"total_costs"`
	NetSavings              float64 `json:"net_savings"`
	RecommendationsApproved int     `json:"recommendations_approved"`
	ROIPercentage           float64 `json:"roi_percentage"`
}
