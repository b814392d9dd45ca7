package models

// StaffMember is a single roster entry
type StaffMember struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	Department   string `json:"department"`
	Shift        string `json:"shift"`
	Status       string `json:"status"`
	FatigueScore int    `json:"fatigue_score"`
}

// StaffGroup aggregates the roster by shift and role
type StaffGroup struct {
	Shift      string        `json:"shift"`
	Role       string        `json:"role"`
	Available  int           `json:"available"`
	Total      int           `json:"total"`
	AvgFatigue float64       `json:"avg_fatigue"`
	Members    []StaffMember `json:"members"`
}

// StaffAvailability is keyed by "<shift>_<role>"
type StaffAvailability map[string]StaffGroup

// InventoryItem is one stock line
type InventoryItem struct {
	Item      string  `json:"item"`
	Current   int     `json:"current"`
	Threshold int     `json:"threshold"`
	Unit      string  `json:"unit"`
	Supplier  string  `json:"supplier"`
	UnitCost  float64 `json:"unit_cost"`
	Status    string  `json:"status"`
	Shortage  int     `json:"shortage"`
}

// QueueStatus summarises waiting patients for one department
type QueueStatus struct {
	Total      int            `json:"total"`
	ByPriority map[string]int `json:"by_priority"`
	AvgWait    float64        `json:"avg_wait"`
}

// PatientQueue is keyed by department
type PatientQueue map[string]QueueStatus
