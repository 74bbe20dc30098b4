package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/training-signups/pkg/core/model"
)

// InsertBoss inserts a boss into the catalog and sets its ID
func (d *queries) InsertBoss(ctx context.Context, boss *model.Boss) error {
	err := d.q.QueryRow(ctx, `
		INSERT INTO training_bosses (code, name, wing, position)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, boss.Code, boss.Name, boss.Wing, boss.Position).Scan(&boss.ID)
	return translate(err, "insert boss %q", boss.Code)
}

// GetBoss retrieves a boss by id
func (d *queries) GetBoss(ctx context.Context, id int64) (*model.Boss, error) {
	var b model.Boss
	err := d.q.QueryRow(ctx, `
		SELECT id, code, name, wing, position FROM training_bosses WHERE id = $1
	`, id).Scan(&b.ID, &b.Code, &b.Name, &b.Wing, &b.Position)
	if err != nil {
		return nil, translate(err, "boss %d", id)
	}
	return &b, nil
}

// ListBosses retrieves the whole catalog in wing order
func (d *queries) ListBosses(ctx context.Context) ([]model.Boss, error) {
	rows, err := d.q.Query(ctx, `
		SELECT id, code, name, wing, position
		FROM training_bosses
		ORDER BY wing, position, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query bosses: %w", err)
	}
	return collectBosses(rows)
}

// AttachBoss adds a boss to a training's schedule
func (d *queries) AttachBoss(ctx context.Context, trainingID, bossID int64) error {
	_, err := d.q.Exec(ctx, `
		INSERT INTO training_boss_mappings (training_id, training_boss_id) VALUES ($1, $2)
	`, trainingID, bossID)
	return translate(err, "attach boss %d to training %d", bossID, trainingID)
}

// DetachBoss removes a boss from a training's schedule
func (d *queries) DetachBoss(ctx context.Context, trainingID, bossID int64) error {
	tag, err := d.q.Exec(ctx, `
		DELETE FROM training_boss_mappings WHERE training_id = $1 AND training_boss_id = $2
	`, trainingID, bossID)
	if err != nil {
		return translate(err, "detach boss %d from training %d", bossID, trainingID)
	}
	return requireRow(tag, "boss %d on training %d", bossID, trainingID)
}

// ListTrainingBosses retrieves the bosses scheduled for a training
func (d *queries) ListTrainingBosses(ctx context.Context, trainingID int64) ([]model.Boss, error) {
	rows, err := d.q.Query(ctx, `
		SELECT b.id, b.code, b.name, b.wing, b.position
		FROM training_boss_mappings m
		JOIN training_bosses b ON b.id = m.training_boss_id
		WHERE m.training_id = $1
		ORDER BY b.wing, b.position, b.id
	`, trainingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query training bosses: %w", err)
	}
	return collectBosses(rows)
}

// DeleteTrainingBosses clears a training's schedule
func (d *queries) DeleteTrainingBosses(ctx context.Context, trainingID int64) error {
	_, err := d.q.Exec(ctx, `DELETE FROM training_boss_mappings WHERE training_id = $1`, trainingID)
	return translate(err, "delete bosses of training %d", trainingID)
}

func collectBosses(rows pgx.Rows) ([]model.Boss, error) {
	defer rows.Close()

	bosses := []model.Boss{}
	for rows.Next() {
		var b model.Boss
		if err := rows.Scan(&b.ID, &b.Code, &b.Name, &b.Wing, &b.Position); err != nil {
			return nil, fmt.Errorf("failed to scan boss: %w", err)
		}
		bosses = append(bosses, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bosses: %w", err)
	}

	return bosses, nil
}
