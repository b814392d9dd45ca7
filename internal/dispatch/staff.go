package dispatch

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"arogya-swarm/backend/pkg/models"
)

// StaffRules are the hard constraints applied to every staff plan.
type StaffRules struct {
	// FatigueThreshold is the highest fatigue score a moved member may have.
	FatigueThreshold int
	// PatientsPerStaff is the minimum ratio kept in RatioDepartments.
	PatientsPerStaff int
	RatioDepartments []string
}

// DefaultStaffRules keeps fatigue at or below 70 and 1:4 in the ER.
func DefaultStaffRules() StaffRules {
	return StaffRules{FatigueThreshold: 70, PatientsPerStaff: 4, RatioDepartments: []string{"ER", "Emergency"}}
}

// Validate checks the rules.
func (r StaffRules) Validate() error {
	if r.FatigueThreshold <= 0 || r.FatigueThreshold > 100 {
		return fmt.Errorf("fatigue threshold %d outside 1..100", r.FatigueThreshold)
	}
	if r.PatientsPerStaff <= 0 {
		return fmt.Errorf("patients per staff must be positive, got %d", r.PatientsPerStaff)
	}
	return nil
}

// StaffHandler drafts staff reallocation plans.
type StaffHandler struct {
	deps  Deps
	rules StaffRules
}

// NewStaffHandler creates a StaffHandler.
func NewStaffHandler(deps Deps, rules StaffRules) (*StaffHandler, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return &StaffHandler{deps: deps, rules: rules}, nil
}

// Type implements Handler.
func (h *StaffHandler) Type() models.RecommendationType {
	return models.RecommendationStaffReallocation
}

// Handle implements Handler. Moves that break the fatigue or ratio rules are
// dropped from the plan and the plan is flagged for manual review.
func (h *StaffHandler) Handle(ctx context.Context, rec models.Recommendation) (*models.Artifact, error) {
	staff, err := h.deps.Resources.GetStaffAvailability(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get staff availability: %w", err)
	}
	queue, err := h.deps.Resources.GetPatientQueueLength(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient queue: %w", err)
	}

	var plan models.StaffPlan
	if err := h.deps.draft(ctx, h.prompt(rec, staff), &plan); err != nil {
		return nil, err
	}

	h.enforce(&plan, staff, queue)
	return &models.Artifact{StaffPlan: &plan}, nil
}

func (h *StaffHandler) prompt(rec models.Recommendation, staff models.StaffAvailability) string {
	return fmt.Sprintf(`You are a Staff Reallocation Agent. Create a specific, actionable staff reallocation plan.

Recommendation: %s
Reasoning: %s

Current Staff Status:
%s

Rules:
1. Do not assign staff with fatigue_score > %d
2. Maintain minimum staffing ratios (1 staff : %d patients in %s)
3. Consider staff specializations
4. Calculate overtime costs
5. Copy each member's id from the status above

Output JSON format:
{
  "staff_to_move": [{"id": "N-001", "name": "Nurse X", "from": "OPD", "to": "ER", "shift": "evening"}],
  "estimated_overtime_hours": 10,
  "cost_impact": -5000,
  "implementation_notes": "Contact nursing supervisor for approval"
}`, rec.Title, rec.Reasoning, indent(staff), h.rules.FatigueThreshold, h.rules.PatientsPerStaff,
		strings.Join(h.rules.RatioDepartments, "/"))
}

func (h *StaffHandler) enforce(plan *models.StaffPlan, staff models.StaffAvailability, queue models.PatientQueue) {
	known := newRoster(staff)
	onDuty := make(map[string]int)
	for _, group := range staff {
		for _, m := range group.Members {
			if m.Status == "available" {
				onDuty[normalize(m.Department)]++
			}
		}
	}

	var (
		kept   []models.StaffMove
		issues []string
		moved  = make(map[string]bool)
	)
	for _, move := range plan.StaffToMove {
		member, reason := known.resolve(move)
		if reason != "" {
			issues = append(issues, fmt.Sprintf("%s omitted (%s)", move.Name, reason))
			continue
		}
		key := memberKey(member)
		switch {
		case moved[key]:
			issues = append(issues, fmt.Sprintf("%s omitted (listed twice)", move.Name))
			continue
		case member.FatigueScore > h.rules.FatigueThreshold:
			issues = append(issues, fmt.Sprintf("%s omitted (fatigue %d exceeds %d)", move.Name, member.FatigueScore, h.rules.FatigueThreshold))
			continue
		}

		move.ID = member.ID
		move.Name = member.Name
		if member.Department != "" {
			move.From = member.Department
		}
		from := normalize(move.From)
		available := member.Status == "available"
		if available && h.ratioDepartment(move.From) {
			waiting := waitingIn(queue, move.From)
			if (onDuty[from]-1)*h.rules.PatientsPerStaff < waiting {
				issues = append(issues, fmt.Sprintf("%s omitted (would leave %s below 1:%d for %d waiting)",
					move.Name, move.From, h.rules.PatientsPerStaff, waiting))
				continue
			}
		}

		if available {
			onDuty[from]--
			onDuty[normalize(move.To)]++
		}
		moved[key] = true
		kept = append(kept, move)
	}

	for _, dept := range h.rules.RatioDepartments {
		waiting := waitingIn(queue, dept)
		if waiting > 0 && onDuty[normalize(dept)]*h.rules.PatientsPerStaff < waiting {
			issues = append(issues, fmt.Sprintf("%s remains below 1:%d with %d staff for %d waiting",
				dept, h.rules.PatientsPerStaff, onDuty[normalize(dept)], waiting))
		}
	}

	plan.StaffToMove = kept
	if len(issues) == 0 {
		return
	}
	plan.ManualReview = true
	note := "Manual review required: " + strings.Join(issues, "; ")
	if plan.ImplementationNotes != "" {
		note = plan.ImplementationNotes + ". " + note
	}
	plan.ImplementationNotes = note
	h.deps.logger().Warn("staff plan flagged for manual review", "issues", len(issues))
}

// roster indexes staff by id and by normalized name. Names are not unique.
type roster struct {
	byID   map[string]models.StaffMember
	byName map[string][]models.StaffMember
}

func newRoster(staff models.StaffAvailability) roster {
	r := roster{byID: make(map[string]models.StaffMember), byName: make(map[string][]models.StaffMember)}
	for _, group := range staff {
		for _, m := range group.Members {
			if m.ID != "" {
				r.byID[m.ID] = m
			}
			r.byName[normalize(m.Name)] = append(r.byName[normalize(m.Name)], m)
		}
	}
	return r
}

// resolve finds the member a move refers to, or a reason it cannot.
func (r roster) resolve(move models.StaffMove) (models.StaffMember, string) {
	if id := strings.TrimSpace(move.ID); id != "" {
		m, ok := r.byID[id]
		if !ok {
			return models.StaffMember{}, fmt.Sprintf("id %s not on roster", id)
		}
		if move.Name != "" && normalize(move.Name) != normalize(m.Name) {
			return models.StaffMember{}, fmt.Sprintf("id %s belongs to %s", id, m.Name)
		}
		return m, ""
	}
	switch matches := r.byName[normalize(move.Name)]; len(matches) {
	case 0:
		return models.StaffMember{}, "not on roster"
	case 1:
		return matches[0], ""
	default:
		return models.StaffMember{}, fmt.Sprintf("name matches %d roster entries", len(matches))
	}
}

func memberKey(m models.StaffMember) string {
	if m.ID != "" {
		return "id:" + m.ID
	}
	return "name:" + normalize(m.Name)
}

func (h *StaffHandler) ratioDepartment(dept string) bool {
	return slices.ContainsFunc(h.rules.RatioDepartments, func(d string) bool {
		return normalize(d) == normalize(dept)
	})
}

func waitingIn(queue models.PatientQueue, dept string) int {
	for name, q := range queue {
		if normalize(name) == normalize(dept) {
			return q.Total
		}
	}
	return 0
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
