package db

import (
	"context"
	"fmt"
)

// GetStats computes dashboard statistics for an owner's account.
// The average is taken over submissions with a non-null percentage only;
// zero-mark exams never drag the average toward zero.
func (db *DB) GetStats(ctx context.Context, owner string) (*Stats, error) {
	var stats Stats
	err := db.pool.QueryRow(ctx,
		`SELECT
		     (SELECT COUNT(*) FROM exams WHERE owner = $1),
		     (SELECT COUNT(*) FROM submissions s
		          JOIN exams e ON e.id = s.exam_id WHERE e.owner = $1),
		     (SELECT AVG(s.percentage) FROM submissions s
		          JOIN exams e ON e.id = s.exam_id
		          WHERE e.owner = $1 AND s.percentage IS NOT NULL),
		     (SELECT COUNT(DISTINCT s.roll_number) FROM submissions s
		          JOIN exams e ON e.id = s.exam_id WHERE e.owner = $1)`,
		owner,
	).Scan(&stats.TotalExams, &stats.TotalSubmissions, &stats.AverageGrade, &stats.TotalStudents)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return &stats, nil
}
