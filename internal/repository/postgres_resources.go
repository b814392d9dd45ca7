package repository

import (
	"context"
	"fmt"
	"math"
	"time"

	"arogya-swarm/backend/pkg/models"
)

// GetStaffAvailability groups the roster by shift and role.
func (s *PostgresStore) GetStaffAvailability(ctx context.Context) (models.StaffAvailability, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id::text, name, role, COALESCE(department, ''), COALESCE(shift, ''), status, fatigue_score
		FROM staff
		ORDER BY shift, role, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query staff: %w", err)
	}
	defer rows.Close()

	var members []models.StaffMember
	for rows.Next() {
		var m models.StaffMember
		if err := rows.Scan(&m.ID, &m.Name, &m.Role, &m.Department, &m.Shift, &m.Status, &m.FatigueScore); err != nil {
			return nil, fmt.Errorf("failed to scan staff: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read staff: %w", err)
	}
	return GroupStaff(members), nil
}

// GroupStaff aggregates members under "<shift>_<role>" keys.
func GroupStaff(members []models.StaffMember) models.StaffAvailability {
	out := make(models.StaffAvailability)
	fatigue := make(map[string]int)
	for _, m := range members {
		key := m.Shift + "_" + m.Role
		g := out[key]
		g.Shift, g.Role = m.Shift, m.Role
		g.Total++
		if m.Status == "available" {
			g.Available++
		}
		g.Members = append(g.Members, m)
		fatigue[key] += m.FatigueScore
		out[key] = g
	}
	for key, g := range out {
		g.AvgFatigue = round(float64(fatigue[key])/float64(g.Total), 1)
		out[key] = g
	}
	return out
}

// GetInventoryStatus lists stock lines. With criticalOnly only lines below
// their minimum threshold are returned.
func (s *PostgresStore) GetInventoryStatus(ctx context.Context, criticalOnly bool) ([]models.InventoryItem, error) {
	query := `
		SELECT item_name, current_stock, minimum_threshold, COALESCE(unit, ''), COALESCE(supplier, ''),
			COALESCE(unit_cost, 0)::float8
		FROM inventory`
	if criticalOnly {
		query += ` WHERE current_stock < minimum_threshold`
	}
	query += ` ORDER BY item_name`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory: %w", err)
	}
	defer rows.Close()

	items := []models.InventoryItem{}
	for rows.Next() {
		var it models.InventoryItem
		if err := rows.Scan(&it.Item, &it.Current, &it.Threshold, &it.Unit, &it.Supplier, &it.UnitCost); err != nil {
			return nil, fmt.Errorf("failed to scan inventory: %w", err)
		}
		it.Status = "ok"
		if it.Current < it.Threshold {
			it.Status = "critical"
		}
		it.Shortage = max(0, it.Threshold-it.Current)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read inventory: %w", err)
	}
	return items, nil
}

// GetPatientQueueLength summarises waiting patients per department. The
// average wait is weighted across priorities.
func (s *PostgresStore) GetPatientQueueLength(ctx context.Context) (models.PatientQueue, error) {
	rows, err := s.db.Query(ctx, `
		SELECT department, COALESCE(priority, 'unknown'), COUNT(*), COALESCE(AVG(estimated_wait_time), 0)::float8
		FROM patient_queue
		WHERE status = 'waiting'
		GROUP BY department, priority
		ORDER BY department, priority`)
	if err != nil {
		return nil, fmt.Errorf("failed to query patient queue: %w", err)
	}
	defer rows.Close()

	queue := make(models.PatientQueue)
	waitTotals := make(map[string]float64)
	for rows.Next() {
		var (
			dept, priority string
			count          int
			avgWait        float64
		)
		if err := rows.Scan(&dept, &priority, &count, &avgWait); err != nil {
			return nil, fmt.Errorf("failed to scan patient queue: %w", err)
		}
		q := queue[dept]
		if q.ByPriority == nil {
			q.ByPriority = make(map[string]int)
		}
		q.Total += count
		q.ByPriority[priority] = count
		waitTotals[dept] += avgWait * float64(count)
		queue[dept] = q
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read patient queue: %w", err)
	}
	for dept, q := range queue {
		q.AvgWait = math.Round(waitTotals[dept] / float64(q.Total))
		queue[dept] = q
	}
	return queue, nil
}

// DailyArrivals counts patient arrivals per day over the last days days.
func (s *PostgresStore) DailyArrivals(ctx context.Context, days int) ([]models.CountPoint, error) {
	rows, err := s.db.Query(ctx, `
		SELECT date_trunc('day', arrival_time) AS day, COUNT(*)
		FROM patient_queue
		WHERE arrival_time >= now() - make_interval(days => $1)
		GROUP BY day
		ORDER BY day`, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query arrivals: %w", err)
	}
	defer rows.Close()

	var series []models.CountPoint
	for rows.Next() {
		var (
			day   time.Time
			count int64
		)
		if err := rows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("failed to scan arrivals: %w", err)
		}
		series = append(series, models.CountPoint{Timestamp: day.UTC(), Count: float64(count)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read arrivals: %w", err)
	}
	return series, nil
}
